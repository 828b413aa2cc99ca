package runtime

import (
	"reflect"
	"strings"
	"testing"

	"github.com/k3pilot/k3pilot/internal/config"
	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

func TestServerArgs_FirstControlPlaneDiffersByOneFlag(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().
		WithControlPlanes("10.0.0.11", "10.0.0.12", "10.0.0.13").
		Build()

	first := ServerArgs(cluster, true)
	rest := ServerArgs(cluster, false)

	if len(first) != len(rest) {
		t.Fatalf("argument counts differ: first=%d rest=%d", len(first), len(rest))
	}
	var diffs int
	for i := range first {
		if first[i] != rest[i] {
			diffs++
			if first[i] != "--cluster-init" {
				t.Errorf("first control plane differs at %q, want --cluster-init", first[i])
			}
			if rest[i] != "--server="+cluster.InitEndpoint() {
				t.Errorf("joining control plane differs at %q, want --server=%s", rest[i], cluster.InitEndpoint())
			}
		}
	}
	if diffs != 1 {
		t.Errorf("argument lists differ in %d positions, want exactly 1", diffs)
	}
}

func TestServerArgs_SANsCoverProxyAndControlPlanes(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().
		WithProxy("10.0.0.10").
		WithControlPlanes("10.0.0.13", "10.0.0.11", "10.0.0.12").
		WithTLSSANs("kube.example.com", "10.0.0.11", "kube.example.com").
		Build()

	args := ServerArgs(cluster, true)

	var sans []string
	for _, a := range args {
		if v, ok := strings.CutPrefix(a, "--tls-san="); ok {
			sans = append(sans, v)
		}
	}

	for _, required := range []string{"10.0.0.10", "10.0.0.11", "10.0.0.12", "10.0.0.13", "kube.example.com"} {
		found := false
		for _, s := range sans {
			if s == required {
				found = true
			}
		}
		if !found {
			t.Errorf("SAN set %v missing %q", sans, required)
		}
	}

	if !reflect.DeepEqual(sans, TLSSANs(cluster)) {
		t.Errorf("emitted SANs %v should match TLSSANs order", sans)
	}
	for i := 1; i < len(sans); i++ {
		if sans[i-1] >= sans[i] {
			t.Fatalf("SANs not sorted or contain duplicates: %v", sans)
		}
	}
}

func TestServerArgs_Deterministic(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().
		WithControlPlanes("10.0.0.12", "10.0.0.11").
		WithTLSSANs("b.example.com", "a.example.com").
		WithNetwork(config.Network{ServiceCIDR: "10.43.0.0/16", PodCIDR: "10.42.0.0/16"}).
		Build()

	a := ServerArgs(cluster, false)
	b := ServerArgs(cluster, false)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same configuration produced different arguments:\n%v\n%v", a, b)
	}
}

func TestServerArgs_NetworkFlagsOmittedWhenUnset(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().Build()
	args := strings.Join(ServerArgs(cluster, true), " ")

	for _, flag := range []string{"--cluster-cidr", "--service-cidr", "--cluster-dns", "--cluster-domain", "--service-node-port-range", "--kubelet-arg"} {
		if strings.Contains(args, flag) {
			t.Errorf("arguments %q contain %s despite unset network config", args, flag)
		}
	}
}

func TestServerArgs_NetworkFlags(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().
		WithNetwork(config.Network{
			ServiceCIDR:   "10.43.0.0/16",
			PodCIDR:       "10.42.0.0/16",
			ClusterDNS:    "10.43.0.10",
			ClusterDomain: "cluster.local",
			NodePortRange: "30000-32767",
			MaxPods:       150,
		}).
		Build()

	args := strings.Join(ServerArgs(cluster, true), " ")
	for _, want := range []string{
		"--cluster-cidr=10.42.0.0/16",
		"--service-cidr=10.43.0.0/16",
		"--cluster-dns=10.43.0.10",
		"--cluster-domain=cluster.local",
		"--service-node-port-range=30000-32767",
		"--kubelet-arg=max-pods=150",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("arguments %q missing %s", args, want)
		}
	}
}

func TestServerArgs_DisableAndExtraArgsLast(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().Build()
	cluster.Runtime.Disable = []string{"traefik", "servicelb"}
	cluster.Runtime.ServerExtraArgs = []string{"--write-kubeconfig-mode=644"}

	args := ServerArgs(cluster, true)
	n := len(args)
	if args[n-1] != "--write-kubeconfig-mode=644" {
		t.Errorf("extra args should come last, got %v", args)
	}
	if args[n-3] != "--disable=traefik" || args[n-2] != "--disable=servicelb" {
		t.Errorf("disables should precede extra args in config order, got %v", args)
	}
}

func TestAgentArgs(t *testing.T) {
	t.Parallel()

	cluster := testutil.NewClusterBuilder().Build()
	cluster.Network.MaxPods = 110
	cluster.Runtime.AgentExtraArgs = []string{"--node-label=tier=worker"}

	args := AgentArgs(cluster, "https://10.0.0.10:6443")
	if args[0] != "--server=https://10.0.0.10:6443" {
		t.Errorf("first argument = %q, want the join URL", args[0])
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--kubelet-arg=max-pods=110") {
		t.Errorf("arguments %q missing kubelet max-pods", joined)
	}
	if args[len(args)-1] != "--node-label=tier=worker" {
		t.Errorf("extra args should come last, got %v", args)
	}
	if strings.Contains(joined, "--tls-san") {
		t.Errorf("agents must not receive --tls-san, got %q", joined)
	}
}
