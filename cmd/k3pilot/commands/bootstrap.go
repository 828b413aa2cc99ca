package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Bootstrap returns the command that stands up a cluster from scratch.
//
// The descriptor names every machine; bootstrap walks them in role
// order (proxy, control planes, workers), verifies the NFS storage
// path end to end, and merges the admin kubeconfig locally.
//
// Optional flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--kubeconfig: File the admin kubeconfig is merged into (default: ~/.kube/config)
//	--yes, -y:    Answer every confirmation prompt with yes
func Bootstrap() *cobra.Command {
	var configPath string
	var kubeconfigPath string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Stand up the cluster described by the descriptor",
		Long: `Stand up a complete cluster on the machines named in the descriptor.

The machines only need SSH access and a sudo-capable user. Bootstrap
installs the nginx API proxy, initializes the control planes in order,
joins the workers, provisions the NFS storage class, and merges the
admin kubeconfig into your local file.

Examples:
  # Bootstrap using k3pilot.yaml in the current directory
  k3pilot bootstrap

  # Bootstrap a specific descriptor without prompts
  k3pilot bootstrap -c production.yaml --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.BootstrapOptions{
				ConfigPath:     configPath,
				KubeconfigPath: kubeconfigPath,
				AssumeYes:      assumeYes,
			}
			return handlers.Bootstrap(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Merge the admin kubeconfig into this file (default: ~/.kube/config)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation prompt with yes")

	return cmd
}
