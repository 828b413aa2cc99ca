package k8s

import (
	"context"
	"strings"
	"testing"

	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

const wideNodeListing = `cp1     Ready                      control-plane,etcd,master   43d   v1.31.4+k3s1   10.0.0.11    <none>        Ubuntu 22.04.4 LTS   5.15.0-105-generic   containerd://1.7.11-k3s2
cp2     Ready,SchedulingDisabled   control-plane,etcd,master   43d   v1.31.4+k3s1   10.0.0.12    <none>        Ubuntu 22.04.4 LTS   5.15.0-105-generic   containerd://1.7.11-k3s2
wk1     NotReady                   <none>                      42d   v1.31.4+k3s1   10.0.0.21    <none>        Ubuntu 22.04.4 LTS   5.15.0-105-generic   containerd://1.7.11-k3s2
`

func TestParseNodes(t *testing.T) {
	t.Parallel()

	nodes := ParseNodes(wideNodeListing)
	if len(nodes) != 3 {
		t.Fatalf("parsed %d nodes, want 3", len(nodes))
	}

	cp1 := nodes[0]
	if cp1.Name != "cp1" || cp1.Status != "Ready" || cp1.Version != "v1.31.4+k3s1" || cp1.InternalIP != "10.0.0.11" {
		t.Errorf("cp1 parsed as %+v", cp1)
	}
	if !cp1.IsReady() || !cp1.IsSchedulable() {
		t.Error("cp1 should be ready and schedulable")
	}

	cp2 := nodes[1]
	if !cp2.IsReady() {
		t.Error("a cordoned node still counts as ready")
	}
	if cp2.IsSchedulable() {
		t.Error("cp2 is cordoned and must not be schedulable")
	}

	wk1 := nodes[2]
	if wk1.IsReady() {
		t.Error("wk1 is NotReady")
	}
}

func TestParseNodes_SkipsMalformedRows(t *testing.T) {
	t.Parallel()

	nodes := ParseNodes("cp1 Ready\n\n")
	if len(nodes) != 0 {
		t.Errorf("parsed %d nodes from malformed output, want 0", len(nodes))
	}
}

func TestNodeByAddress(t *testing.T) {
	t.Parallel()

	nodes := ParseNodes(wideNodeListing)

	if n, ok := NodeByAddress(nodes, "10.0.0.12"); !ok || n.Name != "cp2" {
		t.Errorf("NodeByAddress(internal IP) = %+v, %v", n, ok)
	}
	if n, ok := NodeByAddress(nodes, "wk1"); !ok || n.InternalIP != "10.0.0.21" {
		t.Errorf("NodeByAddress(name) = %+v, %v", n, ok)
	}
	if _, ok := NodeByAddress(nodes, "10.9.9.9"); ok {
		t.Error("NodeByAddress should miss for an unknown address")
	}
}

func TestCordonDrainUncordon_Commands(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	ctx := context.Background()

	if err := c.Cordon(ctx, "wk1"); err != nil {
		t.Fatalf("Cordon() error = %v", err)
	}
	if err := c.Drain(ctx, "wk1", 120); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if err := c.Uncordon(ctx, "wk1"); err != nil {
		t.Fatalf("Uncordon() error = %v", err)
	}

	cmds := gw.NodeCommands("10.0.0.11")
	if len(cmds) != 3 {
		t.Fatalf("executed %d commands, want 3:\n%s", len(cmds), gw)
	}
	if cmds[0] != "sudo k3s kubectl cordon wk1" {
		t.Errorf("cordon command = %q", cmds[0])
	}
	want := "sudo k3s kubectl drain wk1 --ignore-daemonsets --delete-emptydir-data --timeout=120s"
	if cmds[1] != want {
		t.Errorf("drain command = %q, want %q", cmds[1], want)
	}
	if cmds[2] != "sudo k3s kubectl uncordon wk1" {
		t.Errorf("uncordon command = %q", cmds[2])
	}
}

func TestNodes_ListsThroughEmbeddedKubectl(t *testing.T) {
	t.Parallel()

	gw := testutil.NewFakeGateway()
	gw.Handle("get nodes -o wide --no-headers", wideNodeListing, nil)

	c := NewClient(gw, "10.0.0.11", testutil.FastTimeouts())
	nodes, err := c.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes() error = %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("listed %d nodes, want 3", len(nodes))
	}
	calls := gw.CommandsMatching("get nodes")
	if len(calls) != 1 || !strings.HasPrefix(calls[0].Command, "sudo k3s kubectl ") {
		t.Errorf("listing should run through the embedded kubectl, got %v", calls)
	}
}
