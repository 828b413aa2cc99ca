package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Join returns the command that adds one node to a running cluster.
//
// The join token and, if the descriptor does not pin one, the runtime
// version are learned from the cluster itself, so the descriptor on
// disk can lag behind reality without breaking the join.
//
// Required flags:
//
//	--role: control-plane or worker
//
// Optional flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--yes, -y:    Answer every confirmation prompt with yes
func Join() *cobra.Command {
	var configPath string
	var role string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "join <address>",
		Short: "Add a node to the running cluster",
		Long: `Add one machine to the running cluster.

For a control-plane join the proxy upstream is extended first, so the
new API server is load-balanced the moment it is up. The node counts as
joined only once it appears in the cluster's own node listing.

Examples:
  # Join a new worker
  k3pilot join 10.0.0.24 --role worker

  # Grow the control plane
  k3pilot join 10.0.0.14 --role control-plane -c production.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := handlers.JoinOptions{
				ConfigPath: configPath,
				Address:    args[0],
				Role:       role,
				AssumeYes:  assumeYes,
			}
			return handlers.Join(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&role, "role", "", "Role of the new node: control-plane or worker")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation prompt with yes")

	// MarkFlagRequired cannot fail for flags defined on the same command
	_ = cmd.MarkFlagRequired("role")

	return cmd
}
