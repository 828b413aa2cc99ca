package provision

import (
	"context"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/k8s"
)

// Session carries everything a workflow needs: the cluster descriptor,
// the SSH gateway, timeouts, the observer, and the confirm policy. It
// embeds context.Context so cancellation flows through every remote
// call.
type Session struct {
	context.Context

	Cluster  *config.Cluster
	Gateway  gateway.Executor
	Observer Observer
	Timeouts *config.Timeouts
	Confirm  ConfirmPolicy
}

// NewSession creates a session with default observer, timeouts, and an
// interactive confirm policy.
func NewSession(ctx context.Context, cluster *config.Cluster, ex gateway.Executor) *Session {
	return &Session{
		Context:  ctx,
		Cluster:  cluster,
		Gateway:  ex,
		Observer: NewConsoleObserver(),
		Timeouts: config.LoadTimeouts(),
		Confirm:  Interactive(),
	}
}

// Kube returns a kubectl client running through the given node.
func (s *Session) Kube(node string) *k8s.Client {
	return k8s.NewClient(s.Gateway, node, s.Timeouts)
}

// WithObserver returns a copy of the session using the given observer.
func (s *Session) WithObserver(o Observer) *Session {
	out := *s
	out.Observer = o
	return &out
}

// WithConfirm returns a copy of the session using the given confirm
// policy.
func (s *Session) WithConfirm(p ConfirmPolicy) *Session {
	out := *s
	out.Confirm = p
	return &out
}
