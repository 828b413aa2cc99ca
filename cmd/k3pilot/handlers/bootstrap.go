package handlers

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/provision/bootstrap"
)

// BootstrapOptions contains options for the bootstrap command.
type BootstrapOptions struct {
	ConfigPath     string
	KubeconfigPath string
	AssumeYes      bool
}

// Bootstrap handles the bootstrap command.
//
// It loads the cluster descriptor and brings the whole fleet up in
// order: proxy, control planes, workers, storage sanity check, then
// merges the cluster credentials into the local kubeconfig. The printed
// report carries every step reached, even when the run aborts.
func Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	c, err := loadCluster(opts.ConfigPath)
	if err != nil {
		return err
	}

	s, closeSession, err := openSession(ctx, c, opts.AssumeYes)
	if err != nil {
		return err
	}
	defer closeSession()

	rep, err := bootstrap.Run(s, bootstrap.Options{KubeconfigPath: opts.KubeconfigPath})
	fmt.Print(renderReport(rep))
	return err
}
