package k8s

import (
	"context"
	"fmt"
	"strings"
)

// Node is one row of `kubectl get nodes -o wide`.
type Node struct {
	Name       string
	Status     string
	Roles      string
	Version    string
	InternalIP string
	ExternalIP string
}

// IsReady reports whether the kubelet is Ready, cordoned or not.
func (n Node) IsReady() bool {
	return strings.HasPrefix(n.Status, "Ready")
}

// IsSchedulable reports whether the node accepts new pods.
func (n Node) IsSchedulable() bool {
	return !strings.Contains(n.Status, "SchedulingDisabled")
}

// Nodes lists the cluster nodes.
func (c *Client) Nodes(ctx context.Context) ([]Node, error) {
	out, err := c.kubectl(ctx, "get nodes -o wide --no-headers")
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return ParseNodes(out), nil
}

// ParseNodes parses the wide no-headers node listing. Short rows are
// skipped rather than guessed at.
func ParseNodes(output string) []Node {
	var nodes []Node
	for _, rec := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.Fields(rec)
		if len(fields) < 7 {
			continue
		}
		nodes = append(nodes, Node{
			Name:       fields[0],
			Status:     fields[1],
			Roles:      fields[2],
			Version:    fields[4],
			InternalIP: fields[5],
			ExternalIP: fields[6],
		})
	}
	return nodes
}

// NodeByAddress finds the node whose name, internal, or external IP
// matches the configured address.
func NodeByAddress(nodes []Node, address string) (Node, bool) {
	for _, n := range nodes {
		if n.Name == address || n.InternalIP == address || n.ExternalIP == address {
			return n, true
		}
	}
	return Node{}, false
}

// Cordon marks the node unschedulable.
func (c *Client) Cordon(ctx context.Context, nodeName string) error {
	if _, err := c.kubectl(ctx, "cordon "+nodeName); err != nil {
		return fmt.Errorf("failed to cordon %s: %w", nodeName, err)
	}
	return nil
}

// Uncordon restores scheduling on the node.
func (c *Client) Uncordon(ctx context.Context, nodeName string) error {
	if _, err := c.kubectl(ctx, "uncordon "+nodeName); err != nil {
		return fmt.Errorf("failed to uncordon %s: %w", nodeName, err)
	}
	return nil
}

// Drain evicts the node's pods within the given deadline. DaemonSet
// pods are ignored and emptyDir data is discarded, since the node is
// about to be reinstalled anyway.
func (c *Client) Drain(ctx context.Context, nodeName string, timeoutSeconds int) error {
	args := fmt.Sprintf("drain %s --ignore-daemonsets --delete-emptydir-data --timeout=%ds", nodeName, timeoutSeconds)
	if _, err := c.kubectl(ctx, args); err != nil {
		return fmt.Errorf("failed to drain %s: %w", nodeName, err)
	}
	return nil
}
