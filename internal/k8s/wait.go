package k8s

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// WaitTimeoutError reports a readiness poll that ran out its deadline.
// Last carries the final observed state for the operator.
type WaitTimeoutError struct {
	What    string
	Timeout time.Duration
	Last    string
}

func (e *WaitTimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.What)
	if e.Last != "" {
		msg += fmt.Sprintf(" (last: %s)", e.Last)
	}
	return msg
}

// poll runs condition until it reports done or timeout expires. kubectl
// failures inside the condition surface as "not yet"; the caller's
// deadline is the only exit.
func (c *Client) poll(ctx context.Context, timeout time.Duration, what string, last *string, condition func(ctx context.Context) bool) error {
	err := wait.PollUntilContextTimeout(ctx, c.timeouts.PollInterval, timeout, true,
		func(ctx context.Context) (bool, error) {
			return condition(ctx), nil
		})
	if err != nil {
		werr := &WaitTimeoutError{What: what, Timeout: timeout}
		if last != nil {
			werr.Last = *last
		}
		return werr
	}
	return nil
}

// WaitNodeAppears waits until a node matching the address shows up in
// the listing at all.
func (c *Client) WaitNodeAppears(ctx context.Context, address string) error {
	var last string
	return c.poll(ctx, c.timeouts.JoinAppear, fmt.Sprintf("node %s to register", address), &last,
		func(ctx context.Context) bool {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				last = err.Error()
				return false
			}
			_, found := NodeByAddress(nodes, address)
			return found
		})
}

// WaitNodeReady waits until the node matching the address reports
// Ready.
func (c *Client) WaitNodeReady(ctx context.Context, address string) error {
	var last string
	return c.poll(ctx, c.timeouts.NodeReady, fmt.Sprintf("node %s to be Ready", address), &last,
		func(ctx context.Context) bool {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				last = err.Error()
				return false
			}
			node, found := NodeByAddress(nodes, address)
			if !found {
				last = "not registered"
				return false
			}
			last = node.Status
			return node.IsReady()
		})
}

// WaitNodeVersion waits until the node matching the address reports
// exactly the given kubelet version.
func (c *Client) WaitNodeVersion(ctx context.Context, address, version string) error {
	var last string
	return c.poll(ctx, c.timeouts.VersionRead, fmt.Sprintf("node %s to report %s", address, version), &last,
		func(ctx context.Context) bool {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				last = err.Error()
				return false
			}
			node, found := NodeByAddress(nodes, address)
			if !found {
				last = "not registered"
				return false
			}
			last = node.Version
			return node.Version == version
		})
}

// WaitClaimBound waits until the persistent volume claim reaches the
// Bound phase.
func (c *Client) WaitClaimBound(ctx context.Context, namespace, name string) error {
	var last string
	return c.poll(ctx, c.timeouts.ClaimBind, fmt.Sprintf("claim %s/%s to bind", namespace, name), &last,
		func(ctx context.Context) bool {
			phase, err := c.ClaimPhase(ctx, namespace, name)
			if err != nil {
				last = err.Error()
				return false
			}
			last = phase
			return phase == "Bound"
		})
}

// WaitAllNodesReady waits until every listed node reports Ready and
// the listing holds at least want entries.
func (c *Client) WaitAllNodesReady(ctx context.Context, want int) error {
	var last string
	return c.poll(ctx, c.timeouts.NodeReady, fmt.Sprintf("all %d nodes to be Ready", want), &last,
		func(ctx context.Context) bool {
			nodes, err := c.Nodes(ctx)
			if err != nil {
				last = err.Error()
				return false
			}
			if len(nodes) < want {
				last = fmt.Sprintf("%d of %d registered", len(nodes), want)
				return false
			}
			for _, n := range nodes {
				if !n.IsReady() {
					last = fmt.Sprintf("%s is %s", n.Name, n.Status)
					return false
				}
			}
			return true
		})
}
