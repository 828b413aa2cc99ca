package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Upgrade returns the command that rolls the cluster to a new k3s version.
//
// Control planes go first, one at a time; workers follow in batches with
// cordon/drain around each install. A failed control plane stops the
// rollout, a failed worker only costs that worker.
//
// Required flags:
//
//	--to: Target k3s release tag, e.g. v1.33.1+k3s1
//
// Optional flags:
//
//	--config, -c:    Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--dry-run:       Print the rollout plan without touching any node
//	--batch-size:    Workers upgraded per batch (default from descriptor)
//	--drain-timeout: Per-node drain budget (default from descriptor)
//	--yes, -y:       Answer every confirmation prompt with yes
func Upgrade() *cobra.Command {
	var configPath string
	var target string
	var dryRun bool
	var batchSize int
	var drainTimeout time.Duration
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Roll the cluster to a new k3s version",
		Long: `Upgrade every node to the target k3s version.

Control planes upgrade sequentially and each must report the target
version before the next begins. Workers then upgrade in batches, each
node cordoned and drained first and uncordoned after. A drain that
overruns its budget is a warning, not a failure.

Examples:
  # Preview the rollout order
  k3pilot upgrade --to v1.33.1+k3s1 --dry-run

  # Upgrade with wider worker batches
  k3pilot upgrade --to v1.33.1+k3s1 --batch-size 4 --yes`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.UpgradeOptions{
				ConfigPath:   configPath,
				Target:       target,
				DryRun:       dryRun,
				BatchSize:    batchSize,
				DrainTimeout: drainTimeout,
				AssumeYes:    assumeYes,
			}
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&target, "to", "", "Target k3s release tag, e.g. v1.33.1+k3s1")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the rollout plan without touching any node")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Workers upgraded per batch (default from descriptor)")
	cmd.Flags().DurationVar(&drainTimeout, "drain-timeout", 0, "Per-node drain budget (default from descriptor)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation prompt with yes")

	_ = cmd.MarkFlagRequired("to")

	return cmd
}
