package commands

import (
	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Restore returns the command that rebuilds a control plane from a bundle.
//
// The restore is destructive: the target's datastore is replaced by the
// snapshot inside the bundle. Exactly one source must be given, either a
// local bundle via --archive or an S3 object via --from-s3.
//
// Optional flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--archive:    Local bundle to restore from
//	--from-s3:    S3 key of a bundle to fetch and restore from
//	--yes, -y:    Answer every confirmation prompt with yes
func Restore() *cobra.Command {
	var configPath string
	var archive string
	var s3Key string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "restore <address>",
		Short: "Rebuild a control plane's datastore from a backup bundle",
		Long: `Replace the datastore of one control plane with the snapshot inside a
backup bundle. The node's k3s server is stopped, the datastore is reset
from the snapshot with the bundled server token, and the server comes
back up serving the restored state.

In a multi control-plane cluster the other members hold a stale
datastore afterwards and must be wiped and rejoined; the report says so.

Examples:
  # Restore from a local bundle
  k3pilot restore 10.0.0.11 --archive backups/prod-20260314-092653.tar.gz

  # Restore from the offloaded copy
  k3pilot restore 10.0.0.11 --from-s3 prod/prod-20260314-092653.tar.gz --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := handlers.RestoreOptions{
				ConfigPath: configPath,
				Address:    args[0],
				Archive:    archive,
				S3Key:      s3Key,
				AssumeYes:  assumeYes,
			}
			return handlers.Restore(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().StringVar(&archive, "archive", "", "Local bundle to restore from")
	cmd.Flags().StringVar(&s3Key, "from-s3", "", "S3 key of a bundle to fetch and restore from")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation prompt with yes")

	return cmd
}
