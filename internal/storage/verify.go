package storage

import (
	"context"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/k8s"
)

// Install applies the provisioner manifests pointed at the first
// control-plane node's export.
func Install(ctx context.Context, client *k8s.Client, c *config.Cluster) error {
	manifest, err := Render(c.FirstControlPlane(), c.Storage.ExportPath)
	if err != nil {
		return err
	}
	if err := client.Apply(ctx, manifest); err != nil {
		return fmt.Errorf("failed to deploy storage provisioner: %w", err)
	}
	return nil
}

// Verify creates a throwaway claim against the default class and waits
// for it to bind. The claim is deleted whether or not it bound; a bind
// timeout means the provisioner is unusable, not merely slow.
func Verify(ctx context.Context, client *k8s.Client) error {
	claim, err := RenderProbeClaim()
	if err != nil {
		return err
	}
	if err := client.Apply(ctx, claim); err != nil {
		return fmt.Errorf("failed to create probe claim: %w", err)
	}
	defer func() {
		_ = client.Delete(ctx, "default", "pvc", ProbeClaimName)
	}()

	return client.WaitClaimBound(ctx, "default", ProbeClaimName)
}
