package handlers

import (
	"context"
	"fmt"
	"log"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/k3pilot/k3pilot/internal/kubeconfig"
)

// KubeconfigOptions contains options for the kubeconfig command.
type KubeconfigOptions struct {
	ConfigPath string
	Output     string
	Merge      bool
}

// Kubeconfig handles the kubeconfig command.
//
// It fetches the admin kubeconfig from the first control plane,
// rewritten to the proxy endpoint and named after the cluster, then
// merges it, writes it, or prints it depending on the options.
func Kubeconfig(ctx context.Context, opts KubeconfigOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, false)
	if err != nil {
		return err
	}
	defer closeSession()

	cfg, err := kubeconfig.Fetch(s, s.Gateway, c.FirstControlPlane(), c)
	if err != nil {
		return fmt.Errorf("failed to fetch the kubeconfig: %w", err)
	}

	switch {
	case opts.Merge:
		path := opts.Output
		if path == "" {
			path, err = kubeconfig.DefaultPath()
			if err != nil {
				return fmt.Errorf("failed to resolve the kubeconfig path: %w", err)
			}
		}
		if err := kubeconfig.MergeInto(cfg, path); err != nil {
			return fmt.Errorf("failed to merge into %s: %w", path, err)
		}
		log.Printf("Merged context %s into %s", c.Name, path)

	case opts.Output != "":
		if err := kubeconfig.Write(cfg, opts.Output); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.Output, err)
		}
		log.Printf("Kubeconfig written to %s", opts.Output)

	default:
		raw, err := clientcmd.Write(*cfg)
		if err != nil {
			return fmt.Errorf("failed to serialize the kubeconfig: %w", err)
		}
		fmt.Print(string(raw))
	}

	return nil
}
