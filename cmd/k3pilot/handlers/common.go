// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/provision"
)

// loadCluster loads and validates the cluster descriptor.
// If configPath is empty it walks up from the working directory looking
// for the default descriptor filename.
func loadCluster(configPath string) (*config.Cluster, error) {
	if configPath == "" {
		path, err := config.FindConfigFile()
		if err != nil {
			return nil, fmt.Errorf("no cluster descriptor found: %w", err)
		}
		configPath = path
	}

	c, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", configPath, err)
	}
	return c, nil
}

// openSession builds the SSH gateway and wraps it in a workflow session.
// The returned closer tears the gateway's connections down.
func openSession(ctx context.Context, c *config.Cluster, assumeYes bool) (*provision.Session, func(), error) {
	gw, err := gateway.New(c, config.LoadTimeouts())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize the SSH gateway: %w", err)
	}

	s := provision.NewSession(ctx, c, gw)
	if assumeYes {
		s = s.WithConfirm(provision.AssumeYes())
	}
	return s, func() { _ = gw.Close() }, nil
}
