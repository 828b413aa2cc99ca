package k8s

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
)

// Client runs kubectl on one control-plane node. The node must host a
// k3s server; all queries go through its embedded kubectl with the
// local admin kubeconfig.
type Client struct {
	ex       gateway.Executor
	node     string
	timeouts *config.Timeouts
}

// NewClient returns a client bound to the given control-plane node.
func NewClient(ex gateway.Executor, node string, timeouts *config.Timeouts) *Client {
	return &Client{ex: ex, node: node, timeouts: timeouts}
}

// Node returns the control-plane node this client executes on.
func (c *Client) Node() string {
	return c.node
}

// kubectl runs one kubectl invocation and returns its combined output.
func (c *Client) kubectl(ctx context.Context, args string) (string, error) {
	return c.ex.Execute(ctx, c.node, "sudo k3s kubectl "+args)
}

// Apply stages a manifest on the node and applies it.
func (c *Client) Apply(ctx context.Context, manifest []byte) error {
	remote := fmt.Sprintf("/tmp/k3pilot-manifest-%s.yaml", randomSuffix())
	if err := c.ex.Upload(ctx, c.node, manifest, remote, 0o644); err != nil {
		return fmt.Errorf("failed to stage manifest on %s: %w", c.node, err)
	}
	_, err := c.kubectl(ctx, "apply -f "+remote)
	_, _ = c.ex.Execute(ctx, c.node, "rm -f "+remote)
	if err != nil {
		return fmt.Errorf("failed to apply manifest: %w", err)
	}
	return nil
}

// Delete removes a namespaced object, tolerating its absence.
func (c *Client) Delete(ctx context.Context, namespace, kind, name string) error {
	_, err := c.kubectl(ctx, fmt.Sprintf("delete %s -n %s %s --ignore-not-found --wait=false", kind, namespace, name))
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", kind, name, err)
	}
	return nil
}

// StorageClasses returns the raw storage class listing, one class per
// line.
func (c *Client) StorageClasses(ctx context.Context) (string, error) {
	out, err := c.kubectl(ctx, "get storageclass --no-headers")
	if err != nil {
		return "", fmt.Errorf("failed to list storage classes: %w", err)
	}
	return out, nil
}

// ClaimPhase reads the status.phase of a persistent volume claim.
func (c *Client) ClaimPhase(ctx context.Context, namespace, name string) (string, error) {
	out, err := c.kubectl(ctx, fmt.Sprintf("get pvc -n %s %s -o jsonpath={.status.phase}", namespace, name))
	if err != nil {
		return "", err
	}
	return out, nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(b)
}
