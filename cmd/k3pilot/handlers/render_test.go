package handlers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/k8s"
	"github.com/k3pilot/k3pilot/internal/provision"
)

func TestRenderReport(t *testing.T) {
	t.Run("contains title, steps, and verdict", func(t *testing.T) {
		rep := provision.NewReport("upgrade", "lab")
		rep.OK("10.0.0.11", "install", "running v1.33.1+k3s1")
		rep.Warn("10.0.0.21", "drain", "drain overran its budget")
		rep.Resolve()

		output := renderReport(rep)
		assert.Contains(t, output, "k3pilot upgrade: lab")
		assert.Contains(t, output, "10.0.0.11 install")
		assert.Contains(t, output, "running v1.33.1+k3s1")
		assert.Contains(t, output, "10.0.0.21 drain")
		assert.Contains(t, output, "upgrade complete in")
	})

	t.Run("partial run names the failure count", func(t *testing.T) {
		rep := provision.NewReport("backup", "lab")
		rep.OK("10.0.0.11", "backup", "archive pulled")
		rep.Fail("10.0.0.12", "snapshot", errors.New("connect: no route to host"))
		rep.Resolve()

		output := renderReport(rep)
		assert.Contains(t, output, "1 failed step(s)")
		assert.Contains(t, output, "no route to host")
	})

	t.Run("aborted run says so", func(t *testing.T) {
		rep := provision.NewReport("restore", "lab")
		rep.Fail("10.0.0.11", "reset", errors.New("datastore reset did not confirm"))
		rep.Skip("10.0.0.12", "restore", "aborted")
		rep.Finish(provision.VerdictAborted)

		output := renderReport(rep)
		assert.Contains(t, output, "restore aborted after")
		assert.Contains(t, output, "10.0.0.12 restore")
	})

	t.Run("cluster-level steps render without a node", func(t *testing.T) {
		rep := provision.NewReport("bootstrap", "lab")
		rep.OK("", "kubeconfig", "merged into ~/.kube/config")
		rep.Resolve()

		output := renderReport(rep)
		assert.Contains(t, output, "kubeconfig")
		assert.NotContains(t, output, " kubeconfig kubeconfig")
	})

	t.Run("aborted run carries a hint for a typed cause", func(t *testing.T) {
		rep := provision.NewReport("join", "lab")
		rep.Fail("10.0.0.22", "connect", &gateway.ConnectError{
			Node: "10.0.0.22",
			Addr: "10.0.0.22:22",
			Err:  errors.New("connection refused"),
		})
		rep.Finish(provision.VerdictAborted)

		output := renderReport(rep)
		assert.Contains(t, output, "Verify 10.0.0.22 is reachable at 10.0.0.22:22")
	})

	t.Run("nil report renders empty", func(t *testing.T) {
		assert.Empty(t, renderReport(nil))
	})
}

func TestHintFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "connect",
			err:  &gateway.ConnectError{Node: "10.0.0.11", Addr: "10.0.0.11:22", Err: errors.New("timeout")},
			want: "reachable at 10.0.0.11:22",
		},
		{
			name: "wrapped connect",
			err:  fmt.Errorf("failed to reach node: %w", &gateway.ConnectError{Node: "10.0.0.11", Addr: "10.0.0.11:22", Err: errors.New("timeout")}),
			want: "reachable at 10.0.0.11:22",
		},
		{
			name: "wait timeout",
			err:  &k8s.WaitTimeoutError{What: "node 10.0.0.21 to register", Timeout: 5 * time.Minute},
			want: "did not settle waiting for node 10.0.0.21 to register",
		},
		{
			name: "health gate with not-ready nodes",
			err:  &provision.HealthGateError{Node: "10.0.0.12", NotReady: []string{"cp-2"}},
			want: "not-ready node(s) cp-2",
		},
		{
			name: "health gate with only unhealthy pods",
			err:  &provision.HealthGateError{Node: "10.0.0.12", Unhealthy: []string{"kube-system/coredns"}},
			want: "unhealthy pods",
		},
		{
			name: "remote command",
			err:  &gateway.CommandError{Node: "10.0.0.11", Command: "k3s-killall.sh", ExitCode: 1},
			want: "Inspect 10.0.0.11 directly",
		},
		{
			name: "plain error has no hint",
			err:  errors.New("something else"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hintFor(tt.err)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestStatusMark(t *testing.T) {
	tests := []struct {
		status provision.Status
		want   string
	}{
		{provision.StatusOK, "✓"},
		{provision.StatusWarning, "!"},
		{provision.StatusFailed, "✗"},
		{provision.StatusSkipped, "·"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Contains(t, statusMark(tt.status), tt.want)
		})
	}
}
