package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Backup returns the command that snapshots every control plane.
//
// Each control plane saves an etcd snapshot and the bundle (snapshot,
// server token, TLS material) is pulled to the local output directory.
// One failing node does not stop the others.
//
// Optional flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--output:     Local directory for the bundles (default from descriptor)
//	--s3:         Also upload each bundle to the configured S3 bucket
func Backup() *cobra.Command {
	var configPath string
	var outputDir string
	var offload bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot every control plane to local bundles",
		Long: `Take an etcd snapshot on every control plane and pull each one down
as a self-contained bundle. A bundle carries the snapshot, the server
token and the TLS material, which is everything a later restore needs.

Examples:
  # Bundles land in the descriptor's snapshot directory
  k3pilot backup

  # Keep an off-site copy too
  k3pilot backup --output /mnt/backups --s3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.BackupOptions{
				ConfigPath: configPath,
				OutputDir:  outputDir,
				Offload:    offload,
			}
			return handlers.Backup(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Local directory for the bundles (default from descriptor)")
	cmd.Flags().BoolVar(&offload, "s3", false, "Also upload each bundle to the configured S3 bucket")

	return cmd
}
