package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/k3pilot/k3pilot/internal/provision/certs"
)

// CertsCheckOptions contains options for the certs check command.
type CertsCheckOptions struct {
	ConfigPath string
	WarnWithin time.Duration
}

// CertsCheck handles the certs check command.
//
// It reads the expiry date of every core certificate on every control
// plane and reports the remaining lifetime. Certificates inside the
// warning window are warnings, expired ones are failures.
func CertsCheck(ctx context.Context, opts CertsCheckOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, false)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := certs.Check(s, certs.CheckOptions{WarnWithin: opts.WarnWithin})
	fmt.Print(renderReport(rep))
	return err
}

// CertsRotateOptions contains options for the certs rotate command.
type CertsRotateOptions struct {
	ConfigPath string
	AssumeYes  bool
}

// CertsRotate handles the certs rotate command.
//
// It rotates the certificates on every control plane one at a time,
// then restarts every agent so the fleet reconnects with the new
// material.
func CertsRotate(ctx context.Context, opts CertsRotateOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, opts.AssumeYes)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := certs.Rotate(s)
	fmt.Print(renderReport(rep))
	return err
}
