package handlers

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/provision/join"
)

// JoinOptions contains options for the join command.
type JoinOptions struct {
	ConfigPath string
	Address    string
	Role       string
	AssumeYes  bool
}

// Join handles the join command.
//
// It adds one node to the running cluster under the given role. The
// join token and, unless the descriptor pins one, the runtime version
// are read from the cluster itself.
func Join(ctx context.Context, opts JoinOptions) error {
	role, err := parseRole(opts.Role)
	if err != nil {
		return err
	}

	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, opts.AssumeYes)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := join.Run(s, join.Options{Address: opts.Address, Role: role})
	fmt.Print(renderReport(rep))
	return err
}

// parseRole maps the --role flag value onto a node kind.
func parseRole(s string) (config.NodeKind, error) {
	switch s {
	case "control-plane":
		return config.KindControlPlane, nil
	case "worker":
		return config.KindWorker, nil
	default:
		return "", fmt.Errorf("role %q is not control-plane or worker", s)
	}
}
