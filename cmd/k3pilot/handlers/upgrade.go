package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/k3pilot/k3pilot/internal/provision/upgrade"
)

// UpgradeOptions contains options for the upgrade command.
type UpgradeOptions struct {
	ConfigPath   string
	Target       string
	DryRun       bool
	BatchSize    int
	DrainTimeout time.Duration
	AssumeYes    bool
}

// Upgrade handles the upgrade command.
//
// It rolls the fleet to the target k3s version: control planes
// sequentially with a hard stop on failure, then workers in batches
// with cordon/drain around each install. With DryRun set the plan is
// reported without any node being touched.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, opts.AssumeYes)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := upgrade.Run(s, upgrade.Options{
		Target:       opts.Target,
		BatchSize:    opts.BatchSize,
		DrainTimeout: opts.DrainTimeout,
		DryRun:       opts.DryRun,
	})
	fmt.Print(renderReport(rep))
	return err
}
