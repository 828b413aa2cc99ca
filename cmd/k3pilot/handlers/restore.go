package handlers

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/provision/backup"
)

// RestoreOptions contains options for the restore command.
type RestoreOptions struct {
	ConfigPath string
	Address    string
	Archive    string
	S3Key      string
	AssumeYes  bool
}

// Restore handles the restore command.
//
// It rebuilds one control plane's datastore from a backup bundle,
// either a local archive or one fetched from S3. The restore is
// destructive and asks for confirmation before touching the node.
func Restore(ctx context.Context, opts RestoreOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, opts.AssumeYes)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := backup.Restore(s, backup.RestoreOptions{
		Address: opts.Address,
		Archive: opts.Archive,
		S3Key:   opts.S3Key,
	})
	fmt.Print(renderReport(rep))
	return err
}
