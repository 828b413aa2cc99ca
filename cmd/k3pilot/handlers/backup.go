package handlers

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/provision/backup"
)

// BackupOptions contains options for the backup command.
type BackupOptions struct {
	ConfigPath string
	OutputDir  string
	Offload    bool
}

// Backup handles the backup command.
//
// It snapshots every control plane and pulls each bundle into the
// output directory, optionally offloading copies to S3. One failing
// node does not stop the others.
func Backup(ctx context.Context, opts BackupOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, false)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := backup.Run(s, backup.Options{OutputDir: opts.OutputDir, Offload: opts.Offload})
	fmt.Print(renderReport(rep))
	return err
}
