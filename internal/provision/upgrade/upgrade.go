// Package upgrade rolls a cluster to a new k3s release.
//
// Control planes go first, one at a time, and a failure there is a
// hard stop: nothing after it is attempted, because an unstable
// control-plane majority risks the whole cluster. Worker batches
// follow; a failed worker is recorded and skipped past, since its
// workloads reschedule elsewhere. Between control-plane steps the
// orchestrator re-polls fleet readiness and treats degradation as a
// soft gate that needs the session's confirm policy to pass.
package upgrade

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/k8s"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// Options tune a rollout.
type Options struct {
	// Target is the k3s release to upgrade to.
	Target string
	// BatchSize overrides the descriptor's worker batch size.
	BatchSize int
	// DrainTimeout overrides the descriptor's drain deadline.
	DrainTimeout time.Duration
	// DryRun renders the plan without touching any node.
	DryRun bool
}

// Run upgrades the fleet to opts.Target.
func Run(s *provision.Session, opts Options) (*provision.Report, error) {
	rep := provision.NewReport("upgrade", s.Cluster.Name)

	if opts.Target == "" {
		err := fmt.Errorf("upgrade requires a target version")
		rep.Fail("", "preflight", err)
		return rep.Finish(provision.VerdictAborted), err
	}
	if _, err := semver.NewVersion(opts.Target); err != nil {
		err = fmt.Errorf("target version %q is not a release tag: %w", opts.Target, err)
		rep.Fail("", "preflight", err)
		return rep.Finish(provision.VerdictAborted), err
	}

	plan := BuildPlan(s.Cluster, opts.Target, opts.BatchSize)

	if opts.DryRun {
		for _, st := range plan.Steps {
			for _, node := range st.Nodes {
				rep.Skip(node, "upgrade", "dry run")
			}
		}
		s.Observer.Printf("%s", plan.Describe())
		return rep.Resolve(), nil
	}

	if err := confirmDirection(s, rep, opts.Target); err != nil {
		return rep.Finish(provision.VerdictAborted), err
	}

	client := s.Kube(s.Cluster.FirstControlPlane())
	svc := runtime.NewServiceManager(s.Gateway, s.Timeouts)
	drainSeconds := int(s.Cluster.Operations.DrainTimeout.Duration.Seconds())
	if opts.DrainTimeout > 0 {
		drainSeconds = int(opts.DrainTimeout.Seconds())
	}

	provision.LogPhaseStart(s.Observer, "upgrade", plan.Describe())

	for i, st := range plan.Steps {
		if st.Role == config.KindControlPlane {
			node := st.Nodes[0]
			if err := upgradeServer(s, client, svc, node, opts.Target, rep); err != nil {
				provision.LogPhaseFailed(s.Observer, "upgrade", err)
				skipRemaining(rep, plan.Steps[i+1:], "aborted after control-plane failure on "+node)
				return rep.Finish(provision.VerdictAborted), err
			}
			if err := applyHealthGate(s, client, rep, plan.Steps[i+1:], node); err != nil {
				return rep.Finish(provision.VerdictAborted), err
			}
		} else {
			upgradeWorkerBatch(s, client, svc, st.Nodes, opts.Target, drainSeconds, rep)
			if i < len(plan.Steps)-1 {
				if err := pause(s, s.Timeouts.BatchPause); err != nil {
					skipRemaining(rep, plan.Steps[i+1:], "canceled")
					return rep.Finish(provision.VerdictAborted), err
				}
			}
		}
		s.Observer.Progress("upgrade", i+1, len(plan.Steps))
	}

	sweep(s, client, opts.Target, rep)
	provision.LogPhaseComplete(s.Observer, "upgrade")
	return rep.Resolve(), nil
}

// confirmDirection compares the target against the running release and
// routes a downgrade through the confirm policy before any node is
// touched.
func confirmDirection(s *provision.Session, rep *provision.Report, target string) error {
	current := s.Cluster.Runtime.Version
	if current == "" {
		out, err := s.Gateway.Execute(s, s.Cluster.FirstControlPlane(), runtime.VersionCommand())
		if err != nil {
			rep.Fail(s.Cluster.FirstControlPlane(), "preflight", err)
			return fmt.Errorf("cannot determine the running version: %w", err)
		}
		if current, err = runtime.ParseVersion(out); err != nil {
			rep.Fail(s.Cluster.FirstControlPlane(), "preflight", err)
			return err
		}
	}

	cur, err := semver.NewVersion(current)
	if err != nil {
		rep.Fail("", "preflight", err)
		return fmt.Errorf("running version %q is not a release tag: %w", current, err)
	}
	tgt := semver.MustParse(target)
	if !tgt.LessThan(cur) {
		return nil
	}

	ok, err := s.Confirm(s, fmt.Sprintf("Downgrade from %s to %s?", current, target),
		"Rolling back a cluster runtime can break workloads that already use newer APIs.")
	if err != nil {
		rep.Fail("", "preflight", err)
		return err
	}
	if !ok {
		err := fmt.Errorf("downgrade from %s to %s declined", current, target)
		rep.Fail("", "preflight", err)
		return err
	}
	rep.Warn("", "preflight", fmt.Sprintf("downgrade from %s to %s confirmed", current, target))
	return nil
}

// upgradeServer runs the stop, reinstall, restart, readback sequence
// on one control plane. The readback compares `k3s -v` verbatim to the
// target; a mismatch is a failed step, not a silent acceptance.
func upgradeServer(s *provision.Session, client *k8s.Client, svc *runtime.ServiceManager, node, target string, rep *provision.Report) error {
	provision.LogNodeStart(s.Observer, "upgrade", node, "upgrading control plane to "+target)

	if err := svc.Stop(s, node, runtime.ServerService); err != nil {
		rep.Fail(node, "stop", err)
		return err
	}
	first := node == s.Cluster.FirstControlPlane()
	install := runtime.ServerUpgrade(s.Cluster, target, first)
	if _, err := s.Gateway.Execute(s, node, install.Command()); err != nil {
		rep.Fail(node, "install", err)
		return err
	}
	if err := svc.Start(s, node, runtime.ServerService); err != nil {
		rep.Fail(node, "restart", err)
		return err
	}
	if err := client.WaitNodeReady(s, node); err != nil {
		rep.Fail(node, "ready", err)
		return err
	}

	out, err := s.Gateway.Execute(s, node, runtime.VersionCommand())
	if err != nil {
		rep.Fail(node, "verify", err)
		return err
	}
	got, err := runtime.ParseVersion(out)
	if err != nil {
		rep.Fail(node, "verify", err)
		return err
	}
	if got != target {
		err := fmt.Errorf("%s reports %s after reinstall of %s", node, got, target)
		rep.Fail(node, "verify", err)
		return err
	}

	rep.OK(node, "upgrade", target)
	provision.LogNodeComplete(s.Observer, "upgrade", node, "at "+target)
	return nil
}

// applyHealthGate re-polls fleet readiness after a control-plane step.
// Degradation does not abort outright; it is surfaced through the
// confirm policy, and only a decline stops the rollout.
func applyHealthGate(s *provision.Session, client *k8s.Client, rep *provision.Report, remaining []Step, after string) error {
	nodes, err := client.Nodes(s)
	if err != nil {
		// The listing itself failing is degradation too.
		nodes = nil
	}
	var notReady []string
	for _, n := range nodes {
		if !n.IsReady() {
			notReady = append(notReady, n.Name)
		}
	}
	if err == nil && len(notReady) == 0 {
		return nil
	}

	gate := &provision.HealthGateError{Node: after, NotReady: notReady}
	if err != nil {
		gate.NotReady = append(gate.NotReady, "listing failed: "+err.Error())
	}
	provision.LogWarning(s.Observer, "upgrade", after, gate.Error())

	ok, cerr := s.Confirm(s, "Continue the upgrade?",
		gate.Error()+". Continuing with a degraded cluster can cost the control plane its quorum.")
	if cerr != nil {
		rep.Fail(after, "health-gate", cerr)
		skipRemaining(rep, remaining, "aborted at health gate")
		return cerr
	}
	if !ok {
		rep.Fail(after, "health-gate", gate)
		skipRemaining(rep, remaining, "aborted at health gate")
		return fmt.Errorf("upgrade stopped: %s", gate.Error())
	}
	rep.Warn(after, "health-gate", gate.Error())
	return nil
}

// upgradeWorkerBatch cordons and drains the whole batch, reinstalls
// each node, and uncordons whatever was cordoned. Node failures are
// recorded and stepped past.
func upgradeWorkerBatch(s *provision.Session, client *k8s.Client, svc *runtime.ServiceManager, batch []string, target string, drainSeconds int, rep *provision.Report) {
	listing, err := client.Nodes(s)
	if err != nil {
		for _, node := range batch {
			rep.Fail(node, "cordon", err)
		}
		return
	}

	names := make(map[string]string, len(batch))
	var cordoned []string
	for _, node := range batch {
		entry, found := k8s.NodeByAddress(listing, node)
		if !found {
			rep.Fail(node, "cordon", fmt.Errorf("%s is not in the node listing", node))
			continue
		}
		names[node] = entry.Name

		if err := client.Cordon(s, entry.Name); err != nil {
			rep.Fail(node, "cordon", err)
			delete(names, node)
			continue
		}
		cordoned = append(cordoned, entry.Name)

		if err := client.Drain(s, entry.Name, drainSeconds); err != nil {
			// Some workloads cannot be evicted cleanly; the node is
			// about to restart anyway.
			msg := fmt.Sprintf("drain did not finish: %v", err)
			rep.Warn(node, "drain", msg)
			provision.LogWarning(s.Observer, "upgrade", node, msg)
		}
	}

	joinURL := s.Cluster.APIEndpoint()
	for _, node := range batch {
		if _, ok := names[node]; !ok {
			continue
		}
		if err := upgradeAgent(s, client, svc, node, target, joinURL); err != nil {
			rep.Fail(node, "upgrade", err)
			provision.LogNodeFailed(s.Observer, "upgrade", node, err)
			continue
		}
		rep.OK(node, "upgrade", target)
		provision.LogNodeComplete(s.Observer, "upgrade", node, "at "+target)
	}

	for _, name := range cordoned {
		if err := client.Uncordon(s, name); err != nil {
			rep.Warn(name, "uncordon", err.Error())
		}
	}
}

func upgradeAgent(s *provision.Session, client *k8s.Client, svc *runtime.ServiceManager, node, target, joinURL string) error {
	provision.LogNodeStart(s.Observer, "upgrade", node, "upgrading worker to "+target)

	if err := svc.Stop(s, node, runtime.AgentService); err != nil {
		return err
	}
	install := runtime.AgentUpgrade(s.Cluster, target, joinURL)
	if _, err := s.Gateway.Execute(s, node, install.Command()); err != nil {
		return err
	}
	if err := svc.Start(s, node, runtime.AgentService); err != nil {
		return err
	}
	return client.WaitNodeVersion(s, node, target)
}

// sweep closes the run with a fleet-wide version readback and a pod
// health summary. Stragglers are warnings: the per-node steps already
// decided success and failure.
func sweep(s *provision.Session, client *k8s.Client, target string, rep *provision.Report) {
	nodes, err := client.Nodes(s)
	if err != nil {
		rep.Warn("", "sweep", "version sweep failed: "+err.Error())
		return
	}
	failed := make(map[string]bool)
	for _, o := range rep.Failures() {
		failed[o.Node] = true
	}
	fleet := append(append([]string(nil), s.Cluster.ControlPlanes...), s.Cluster.Workers...)
	for _, addr := range fleet {
		if failed[addr] {
			continue
		}
		n, found := k8s.NodeByAddress(nodes, addr)
		if !found {
			rep.Warn(addr, "sweep", "missing from the node listing")
			continue
		}
		if n.Version != target {
			rep.Warn(addr, "sweep", fmt.Sprintf("reports %s, want %s", n.Version, target))
		}
	}

	pods, err := client.Pods(s)
	if err != nil {
		rep.Warn("", "sweep", "pod summary failed: "+err.Error())
		return
	}
	if unhealthy := k8s.UnhealthyPods(pods); len(unhealthy) > 0 {
		rep.Warn("", "pods", fmt.Sprintf("%d pod(s) not healthy after upgrade", len(unhealthy)))
	}
}

func skipRemaining(rep *provision.Report, steps []Step, reason string) {
	for _, st := range steps {
		for _, node := range st.Nodes {
			rep.Skip(node, "upgrade", reason)
		}
	}
}

// pause waits out the inter-batch delay without outliving the session.
func pause(s *provision.Session, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.Done():
		return s.Err()
	}
}
