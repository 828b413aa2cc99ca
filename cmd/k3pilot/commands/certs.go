package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/k3pilot/k3pilot/cmd/k3pilot/handlers"
)

// Certs returns the parent command for cluster certificate upkeep.
//
// This command provides subcommands for inspecting certificate expiry
// across the control plane and for rotating the certificates before
// they run out.
func Certs() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Inspect and rotate cluster certificates",
	}

	cmd.AddCommand(CertsCheck())
	cmd.AddCommand(CertsRotate())

	return cmd
}

// CertsCheck returns the command that reads certificate expiry dates.
//
// Every core certificate on every control plane is read in place and
// reported with its remaining lifetime. Certificates inside the warning
// window show up as warnings, expired ones as failures.
//
// Flags:
//
//	--config, -c:  Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--warn-within: Flag certificates expiring within this window (default 720h)
func CertsCheck() *cobra.Command {
	var configPath string
	var warnWithin time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report certificate expiry across the control plane",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.CertsCheckOptions{
				ConfigPath: configPath,
				WarnWithin: warnWithin,
			}
			return handlers.CertsCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().DurationVar(&warnWithin, "warn-within", 0, "Flag certificates expiring within this window (default 720h)")

	return cmd
}

// CertsRotate returns the command that rotates the cluster certificates.
//
// Control planes rotate one at a time, each restarted and confirmed
// Ready before the next begins, then every agent restarts to pick up
// the new material.
//
// Flags:
//
//	--config, -c: Path to the cluster descriptor (default: auto-detect k3pilot.yaml)
//	--yes, -y:    Answer every confirmation prompt with yes
func CertsRotate() *cobra.Command {
	var configPath string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Rotate certificates on every control plane",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := handlers.CertsRotateOptions{
				ConfigPath: configPath,
				AssumeYes:  assumeYes,
			}
			return handlers.CertsRotate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the cluster descriptor (default: k3pilot.yaml)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Answer every confirmation prompt with yes")

	return cmd
}
