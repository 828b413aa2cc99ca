package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Kubeconfig returns the command that fetches cluster credentials.
//
// The admin kubeconfig is read from the first control plane, rewritten
// to point at the proxy endpoint and renamed after the cluster, then
// written to a file, merged into an existing kubeconfig, or printed.
//
// Optional flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--output:     Write the kubeconfig to this path
//	--merge:      Merge into the kubeconfig at --output (default ~/.kube/config)
func Kubeconfig() *cobra.Command {
	var configPath string
	var output string
	var merge bool

	cmd := &cobra.Command{
		Use:   "kubeconfig",
		Short: "Fetch the admin kubeconfig for the cluster",
		Long: `Fetch the admin kubeconfig from the cluster.

The server address is rewritten to the proxy endpoint and the context is
named after the cluster, so several clusters can live side by side in
one file. Without flags the kubeconfig is printed to stdout.

Examples:
  # Print to stdout
  k3pilot kubeconfig

  # Make it the default kubeconfig for this shell
  k3pilot kubeconfig --output ./kubeconfig && export KUBECONFIG=$PWD/kubeconfig

  # Fold it into ~/.kube/config
  k3pilot kubeconfig --merge`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.KubeconfigOptions{
				ConfigPath: configPath,
				Output:     output,
				Merge:      merge,
			}
			return handlers.Kubeconfig(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&output, "output", "", "Write the kubeconfig to this path")
	cmd.Flags().BoolVar(&merge, "merge", false, "Merge into the kubeconfig at --output (default ~/.kube/config)")

	return cmd
}
