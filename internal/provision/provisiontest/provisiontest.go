// Package provisiontest provides a recording observer and session
// wiring for workflow tests.
package provisiontest

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/provision"
	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

// Recorder is an Observer that records events for assertions.
type Recorder struct {
	events   []provision.Event
	progress []string
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Printf(format string, v ...interface{}) {}

func (r *Recorder) Event(e provision.Event) { r.events = append(r.events, e) }

func (r *Recorder) Progress(phase string, current, total int) {
	r.progress = append(r.progress, fmt.Sprintf("%s %d/%d", phase, current, total))
}

func (r *Recorder) WithFields(map[string]string) provision.Observer { return r }

// Events returns everything recorded so far.
func (r *Recorder) Events() []provision.Event { return r.events }

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(t provision.EventType) []provision.Event {
	var out []provision.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the recorded warning events.
func (r *Recorder) Warnings() []provision.Event {
	return r.OfType(provision.EventWarning)
}

// SystemdSim scripts systemctl verbs and is-active reads per node and
// unit, so stop/start sequences that poll for a state change resolve
// instead of timing out. Units not touched yet report active, matching
// a running cluster.
func SystemdSim(gw *testutil.FakeGateway) {
	var mu sync.Mutex
	states := map[string]string{}

	gw.HandleFunc("systemctl --no-block", func(c testutil.Call) testutil.Response {
		fields := strings.Fields(c.Command)
		if len(fields) < 5 {
			return testutil.Response{}
		}
		verb, unit := fields[3], fields[4]
		mu.Lock()
		defer mu.Unlock()
		if verb == "stop" {
			states[c.Node+"/"+unit] = "inactive"
		} else {
			states[c.Node+"/"+unit] = "active"
		}
		return testutil.Response{}
	})
	gw.HandleFunc("systemctl is-active", func(c testutil.Call) testutil.Response {
		fields := strings.Fields(c.Command)
		unit := fields[len(fields)-1]
		mu.Lock()
		defer mu.Unlock()
		if st, ok := states[c.Node+"/"+unit]; ok {
			return testutil.Response{Output: st}
		}
		return testutil.Response{Output: "active"}
	})
}

// NodeRow formats one `kubectl get nodes -o wide --no-headers` row.
func NodeRow(name, status, roles, version, address string) string {
	return fmt.Sprintf("%s   %s   %s   5m   %s   %s   <none>", name, status, roles, version, address)
}

// ReadyNodesOutput renders a node listing with every control plane and
// worker Ready at the given version.
func ReadyNodesOutput(c *config.Cluster, version string) string {
	var rows []string
	for i, cp := range c.ControlPlanes {
		rows = append(rows, NodeRow(fmt.Sprintf("cp-%d", i), "Ready", "control-plane,etcd,master", version, cp))
	}
	for i, w := range c.Workers {
		rows = append(rows, NodeRow(fmt.Sprintf("worker-%d", i), "Ready", "<none>", version, w))
	}
	return strings.Join(rows, "\n")
}

// PodRow formats one `kubectl get pods -A -o wide --no-headers` row.
func PodRow(namespace, name, ready, status, node string) string {
	return strings.Join([]string{namespace, name, ready, status, "0", "5m", "10.42.0.5", node, "<none>", "<none>"}, "   ")
}

// RemoteKubeconfig is a realistic /etc/rancher/k3s/k3s.yaml payload.
const RemoteKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    certificate-authority-data: Y2EtZGF0YQ==
    server: https://127.0.0.1:6443
  name: default
contexts:
- context:
    cluster: default
    user: default
  name: default
current-context: default
users:
- name: default
  user:
    client-certificate-data: Y2VydC1kYXRh
    client-key-data: a2V5LWRhdGE=
`

// NewSession wires a session with shrunk timeouts, a recording
// observer, and an always-approving confirm policy.
func NewSession(t *testing.T, c *config.Cluster, gw gateway.Executor) (*provision.Session, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	s := &provision.Session{
		Context:  testutil.TestContext(t),
		Cluster:  c,
		Gateway:  gw,
		Observer: rec,
		Timeouts: testutil.FastTimeouts(),
		Confirm:  provision.AssumeYes(),
	}
	return s, rec
}
