package proxy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/k3pilot/k3pilot/internal/gateway"
)

const candidatePath = ConfPath + ".k3pilot-next"

// Editor applies load-balancer configuration changes on the proxy node
// under the validate-backup-replace-reload discipline.
type Editor struct {
	ex   gateway.Executor
	node string
	now  func() time.Time
}

// NewEditor returns an editor bound to the proxy node.
func NewEditor(ex gateway.Executor, node string) *Editor {
	return &Editor{ex: ex, node: node, now: time.Now}
}

// Current reads the live configuration.
func (e *Editor) Current(ctx context.Context) (string, error) {
	out, err := e.ex.Execute(ctx, e.node, "sudo cat "+ConfPath)
	if err != nil {
		return "", fmt.Errorf("failed to read load-balancer config: %w", err)
	}
	return out, nil
}

// Servers returns the current upstream members.
func (e *Editor) Servers(ctx context.Context) ([]string, error) {
	live, err := e.Current(ctx)
	if err != nil {
		return nil, err
	}
	return ParseServers(live)
}

// Install writes a freshly rendered configuration with the given
// members. Used at bootstrap, where nginx is not necessarily running
// yet; the caller restarts the service afterwards.
func (e *Editor) Install(ctx context.Context, servers []string) error {
	text, err := Render(servers)
	if err != nil {
		return err
	}
	return e.replace(ctx, text, false)
}

// AddServer inserts a member into the upstream block of the live
// configuration. Adding an existing member is a no-op without a
// reload.
func (e *Editor) AddServer(ctx context.Context, member string) error {
	live, err := e.Current(ctx)
	if err != nil {
		return err
	}
	servers, err := ParseServers(live)
	if err != nil {
		return fmt.Errorf("live configuration on %s is not managed: %w", e.node, err)
	}
	for _, s := range servers {
		if s == member {
			return nil
		}
	}
	next, err := ReplaceServers(live, append(servers, member))
	if err != nil {
		return err
	}
	return e.replace(ctx, next, true)
}

// replace validates the candidate text remotely and swaps it in. The
// live file is untouched until the candidate has passed nginx -t, and
// a reload failure rolls the previous configuration back.
func (e *Editor) replace(ctx context.Context, text string, reload bool) error {
	stage := fmt.Sprintf("/tmp/k3pilot-nginx-%s.conf", randomSuffix())
	if err := e.ex.Upload(ctx, e.node, []byte(text), stage, 0o644); err != nil {
		return fmt.Errorf("failed to stage candidate config: %w", err)
	}
	defer func() { _, _ = e.ex.Execute(ctx, e.node, "rm -f "+stage) }()

	if _, err := e.ex.Execute(ctx, e.node, fmt.Sprintf("sudo install -m 0644 %s %s", stage, candidatePath)); err != nil {
		return fmt.Errorf("failed to place candidate config: %w", err)
	}

	if out, err := e.ex.Execute(ctx, e.node, "sudo nginx -t -c "+candidatePath); err != nil {
		_, _ = e.ex.Execute(ctx, e.node, "sudo rm -f "+candidatePath)
		return fmt.Errorf("candidate config failed validation, live config untouched: %w\n%s", err, out)
	}

	backup := fmt.Sprintf("%s.bak-%s", ConfPath, e.now().Format("20060102-150405"))
	if _, err := e.ex.Execute(ctx, e.node, fmt.Sprintf("sudo cp %s %s", ConfPath, backup)); err != nil {
		// No live file yet means nothing to back up or roll back to.
		backup = ""
	}

	if _, err := e.ex.Execute(ctx, e.node, fmt.Sprintf("sudo mv %s %s", candidatePath, ConfPath)); err != nil {
		_, _ = e.ex.Execute(ctx, e.node, "sudo rm -f "+candidatePath)
		return fmt.Errorf("failed to replace load-balancer config: %w", err)
	}

	if !reload {
		return nil
	}

	if out, err := e.ex.Execute(ctx, e.node, "sudo nginx -t"); err != nil {
		if backup != "" {
			_, _ = e.ex.Execute(ctx, e.node, fmt.Sprintf("sudo cp %s %s", backup, ConfPath))
		}
		return fmt.Errorf("swapped config failed validation, previous config restored: %w\n%s", err, out)
	}

	if out, err := e.ex.Execute(ctx, e.node, "sudo systemctl reload nginx"); err != nil {
		if backup != "" {
			_, _ = e.ex.Execute(ctx, e.node, fmt.Sprintf("sudo cp %s %s", backup, ConfPath))
			_, _ = e.ex.Execute(ctx, e.node, "sudo systemctl reload nginx")
		}
		return fmt.Errorf("reload failed, previous config restored: %w\n%s", err, out)
	}
	return nil
}

func randomSuffix() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "fallback"
	}
	return hex.EncodeToString(b)
}
