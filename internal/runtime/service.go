package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/avast/retry-go"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
)

// Service is a systemd unit managed on cluster nodes.
type Service string

const (
	// ServerService runs k3s in server mode on control planes.
	ServerService Service = "k3s"
	// AgentService runs k3s in agent mode on workers.
	AgentService Service = "k3s-agent"
	// ProxyService is the nginx unit on the proxy node.
	ProxyService Service = "nginx"
)

// ServiceFor maps a node kind to its k3s unit.
func ServiceFor(kind config.NodeKind) Service {
	if kind == config.KindWorker {
		return AgentService
	}
	return ServerService
}

// ServiceManager drives systemd units over the gateway. Verbs are
// issued with --no-block and completion is confirmed by polling
// is-active, so a hung unit surfaces as a bounded timeout instead of a
// stuck session.
type ServiceManager struct {
	ex       gateway.Executor
	timeouts *config.Timeouts
}

func NewServiceManager(ex gateway.Executor, timeouts *config.Timeouts) *ServiceManager {
	return &ServiceManager{ex: ex, timeouts: timeouts}
}

// Start starts the unit and waits for it to report active.
func (m *ServiceManager) Start(ctx context.Context, node string, svc Service) error {
	if err := m.run(ctx, node, fmt.Sprintf("sudo systemctl --no-block start %s", svc)); err != nil {
		return err
	}
	return m.waitState(ctx, node, svc, "active")
}

// Stop stops the unit and waits for it to leave the active state.
func (m *ServiceManager) Stop(ctx context.Context, node string, svc Service) error {
	if err := m.run(ctx, node, fmt.Sprintf("sudo systemctl --no-block stop %s", svc)); err != nil {
		return err
	}
	return m.waitState(ctx, node, svc, "inactive", "failed", "unknown")
}

// Restart restarts the unit and waits for it to report active again.
func (m *ServiceManager) Restart(ctx context.Context, node string, svc Service) error {
	if err := m.run(ctx, node, fmt.Sprintf("sudo systemctl --no-block restart %s", svc)); err != nil {
		return err
	}
	return m.waitState(ctx, node, svc, "active")
}

// State returns the unit's current is-active output. systemctl exits
// non-zero for any state other than active, so the command error is
// ignored as long as a state word came back.
func (m *ServiceManager) State(ctx context.Context, node string, svc Service) string {
	out, _ := m.ex.Execute(ctx, node, fmt.Sprintf("sudo systemctl is-active %s", svc))
	return strings.TrimSpace(out)
}

// run issues a systemctl verb, retrying transient failures.
func (m *ServiceManager) run(ctx context.Context, node, cmd string) error {
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := m.ex.Execute(ctx, node, cmd)
			return err
		},
		retry.Attempts(uint(m.timeouts.RetryMax)),
		retry.Delay(m.timeouts.RetryDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("failed to run %q on %s: %w", cmd, node, err)
	}
	return nil
}

// waitState polls is-active until the unit reaches one of the wanted
// states or the settle timeout expires.
func (m *ServiceManager) waitState(ctx context.Context, node string, svc Service, want ...string) error {
	// A transient "failed" read is not terminal here: the k3s units run
	// with Restart=always, so the poll bound decides.
	err := wait.PollUntilContextTimeout(ctx, m.timeouts.PollInterval, m.timeouts.ServiceSettle, true,
		func(ctx context.Context) (bool, error) {
			state := m.State(ctx, node, svc)
			for _, w := range want {
				if state == w {
					return true, nil
				}
			}
			return false, nil
		})
	if err != nil {
		return fmt.Errorf("%s on %s did not reach %s within %s: %w",
			svc, node, strings.Join(want, "|"), m.timeouts.ServiceSettle, err)
	}
	return nil
}
