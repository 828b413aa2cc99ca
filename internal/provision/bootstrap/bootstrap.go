// Package bootstrap drives a descriptor from bare hosts to a verified
// cluster.
//
// The sequencer is a linear state machine: proxy first, control planes
// in descriptor order with node 0 initializing the datastore, then
// workers joining through the proxy, then the storage provisioner with
// a functional bind check, and finally kubeconfig retrieval plus a
// verification pass. Every transition must complete before the next
// starts; any failure halts the run with the reached state in the
// error.
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/k8s"
	"github.com/k3pilot/k3pilot/internal/kubeconfig"
	"github.com/k3pilot/k3pilot/internal/payload"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/proxy"
	"github.com/k3pilot/k3pilot/internal/runtime"
	"github.com/k3pilot/k3pilot/internal/storage"
)

// State names the stages a bootstrap passes through.
type State string

const (
	StateUnconfigured      State = "unconfigured"
	StateProxyReady        State = "proxy-ready"
	StateControlPlaneReady State = "control-plane-ready"
	StateWorkersReady      State = "workers-ready"
	StateStorageVerified   State = "storage-verified"
	StateComplete          State = "complete"
)

// Options tune a bootstrap run.
type Options struct {
	// KubeconfigPath overrides where the cluster credentials are
	// merged. Empty selects ~/.kube/config.
	KubeconfigPath string
}

// Run bootstraps the whole fleet. The returned report always carries
// the outcomes reached so far, even when the run aborts.
func Run(s *provision.Session, opts Options) (*provision.Report, error) {
	rep := provision.NewReport("bootstrap", s.Cluster.Name)
	state := StateUnconfigured

	transitions := []struct {
		phase string
		to    State
		run   func(*provision.Session, *provision.Report) error
	}{
		{"proxy", StateProxyReady, provisionProxy},
		{"control-plane", StateControlPlaneReady, provisionControlPlanes},
		{"workers", StateWorkersReady, provisionWorkers},
		{"storage", StateStorageVerified, verifyStorage},
		{"finalize", StateComplete, func(s *provision.Session, rep *provision.Report) error {
			return finalize(s, rep, opts)
		}},
	}

	for i, tr := range transitions {
		provision.LogPhaseStart(s.Observer, tr.phase, fmt.Sprintf("%s -> %s", state, tr.to))
		if err := tr.run(s, rep); err != nil {
			provision.LogPhaseFailed(s.Observer, tr.phase, err)
			rep.Finish(provision.VerdictAborted)
			return rep, fmt.Errorf("bootstrap halted in %s phase at state %s: %w", tr.phase, state, err)
		}
		state = tr.to
		provision.LogPhaseComplete(s.Observer, tr.phase)
		s.Observer.Progress("bootstrap", i+1, len(transitions))
	}

	return rep.Resolve(), nil
}

// provisionProxy prepares the proxy host, installs the rendered
// load-balancer configuration, and restarts nginx. There is no health
// gate here: without the proxy the cluster is unreachable, so any
// failure is immediately fatal.
func provisionProxy(s *provision.Session, rep *provision.Report) error {
	node := s.Cluster.Proxy
	provision.LogNodeStart(s.Observer, "proxy", node, "preparing host")

	if out, err := gateway.RunScript(s, s.Gateway, node, payload.ProxyScript()); err != nil {
		rep.Fail(node, "prepare", err)
		return fmt.Errorf("proxy host preparation failed: %w\n%s", err, out)
	}

	members := make([]string, 0, len(s.Cluster.ControlPlanes))
	for _, cp := range s.Cluster.ControlPlanes {
		members = append(members, proxy.UpstreamMember(cp))
	}
	if err := proxy.NewEditor(s.Gateway, node).Install(s, members); err != nil {
		rep.Fail(node, "configure", err)
		return err
	}

	svc := runtime.NewServiceManager(s.Gateway, s.Timeouts)
	if err := svc.Restart(s, node, runtime.ProxyService); err != nil {
		rep.Fail(node, "restart", err)
		return err
	}

	rep.OK(node, "proxy", "serving "+s.Cluster.APIEndpoint())
	provision.LogNodeComplete(s.Observer, "proxy", node, "load balancer up")
	return nil
}

// provisionControlPlanes bootstraps the control planes strictly in
// descriptor order. Node 0 initializes the datastore; every later node
// joins through it. Readiness is polled through kubectl on node 0
// rather than waited out.
func provisionControlPlanes(s *provision.Session, rep *provision.Report) error {
	client := s.Kube(s.Cluster.FirstControlPlane())

	for i, node := range s.Cluster.ControlPlanes {
		first := i == 0
		provision.LogNodeStart(s.Observer, "control-plane", node, "bootstrapping server")

		args := payload.ControlPlaneArgs(s.Cluster, i)
		if out, err := gateway.RunScript(s, s.Gateway, node, payload.ControlPlaneScript(), args...); err != nil {
			rep.Fail(node, "prepare", err)
			return fmt.Errorf("control-plane host preparation failed on %s: %w\n%s", node, err, out)
		}

		install := runtime.ServerInstall(s.Cluster, first)
		if _, err := s.Gateway.Execute(s, node, install.Command()); err != nil {
			rep.Fail(node, "install", err)
			return err
		}

		if err := client.WaitNodeReady(s, node); err != nil {
			rep.Fail(node, "ready", err)
			return err
		}

		rep.OK(node, "control-plane", "ready")
		provision.LogNodeComplete(s.Observer, "control-plane", node, "ready")
		s.Observer.Progress("control-plane", i+1, len(s.Cluster.ControlPlanes))
	}
	return nil
}

// provisionWorkers joins every worker through the proxy endpoint, so a
// control-plane outage later does not strand the agents.
func provisionWorkers(s *provision.Session, rep *provision.Report) error {
	if len(s.Cluster.Workers) == 0 {
		return nil
	}
	client := s.Kube(s.Cluster.FirstControlPlane())
	joinURL := s.Cluster.APIEndpoint()

	for i, node := range s.Cluster.Workers {
		provision.LogNodeStart(s.Observer, "workers", node, "joining agent")

		if out, err := gateway.RunScript(s, s.Gateway, node, payload.WorkerScript()); err != nil {
			rep.Fail(node, "prepare", err)
			return fmt.Errorf("worker host preparation failed on %s: %w\n%s", node, err, out)
		}

		install := runtime.AgentInstall(s.Cluster, joinURL)
		if _, err := s.Gateway.Execute(s, node, install.Command()); err != nil {
			rep.Fail(node, "install", err)
			return err
		}

		if err := client.WaitNodeReady(s, node); err != nil {
			rep.Fail(node, "ready", err)
			return err
		}

		rep.OK(node, "worker", "ready")
		provision.LogNodeComplete(s.Observer, "workers", node, "ready")
		s.Observer.Progress("workers", i+1, len(s.Cluster.Workers))
	}
	return nil
}

// verifyStorage deploys the provisioner and proves it works by binding
// a throwaway claim. A claim stuck pending means the provisioner is
// unusable, not merely slow, and fails the bootstrap.
func verifyStorage(s *provision.Session, rep *provision.Report) error {
	node := s.Cluster.FirstControlPlane()
	client := s.Kube(node)

	if err := storage.Install(s, client, s.Cluster); err != nil {
		rep.Fail(node, "storage-install", err)
		return err
	}
	if err := storage.Verify(s, client); err != nil {
		rep.Fail(node, "storage-verify", err)
		return err
	}

	rep.OK(node, "storage", "claim bound against class "+storage.ClassName)
	return nil
}

// finalize pulls the admin kubeconfig, rewrites it against the proxy,
// merges it locally, and runs the closing verification pass. Degraded
// listings are warnings here; the transitions before this one already
// proved the cluster works.
func finalize(s *provision.Session, rep *provision.Report, opts Options) error {
	cfg, err := kubeconfig.Fetch(s, s.Gateway, s.Cluster.FirstControlPlane(), s.Cluster)
	if err != nil {
		rep.Fail(s.Cluster.FirstControlPlane(), "kubeconfig", err)
		return err
	}
	path := opts.KubeconfigPath
	if path == "" {
		if path, err = kubeconfig.DefaultPath(); err != nil {
			rep.Fail("", "kubeconfig", err)
			return err
		}
	}
	if err := kubeconfig.MergeInto(cfg, path); err != nil {
		rep.Fail("", "kubeconfig", err)
		return err
	}
	rep.OK("", "kubeconfig", "merged into "+path)

	client := s.Kube(s.Cluster.FirstControlPlane())
	nodes, err := client.Nodes(s)
	if err != nil {
		rep.Fail("", "verify", err)
		return err
	}
	ready := 0
	for _, n := range nodes {
		if n.IsReady() {
			ready++
		}
	}
	want := len(s.Cluster.ControlPlanes) + len(s.Cluster.Workers)
	if ready < want {
		msg := fmt.Sprintf("%d/%d nodes ready", ready, want)
		rep.Warn("", "verify", msg)
		provision.LogWarning(s.Observer, "finalize", "", msg)
	} else {
		rep.OK("", "verify", fmt.Sprintf("%d/%d nodes ready", ready, want))
	}

	pods, err := client.Pods(s)
	if err != nil {
		rep.Fail("", "verify", err)
		return err
	}
	if unhealthy := k8s.UnhealthyPods(pods); len(unhealthy) > 0 {
		msg := fmt.Sprintf("%d pod(s) not healthy", len(unhealthy))
		rep.Warn("", "pods", msg)
		provision.LogWarning(s.Observer, "finalize", "", msg)
	}

	classes, err := client.StorageClasses(s)
	if err != nil {
		rep.Fail("", "verify", err)
		return err
	}
	if !strings.Contains(classes, storage.ClassName) {
		rep.Warn("", "storage-class", "class "+storage.ClassName+" not listed")
	}
	return nil
}
