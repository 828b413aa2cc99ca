// Package certs triages and rotates the cluster certificates.
//
// Check is a read-only fan-out: every control plane reports the expiry
// of its core certificate files, independently, so one unreachable
// node never hides the state of the others. Rotate restarts control
// planes in turn and is therefore sequential with a hard stop, the
// same stance the upgrade takes.
package certs

import (
	"fmt"
	"time"

	"github.com/k3pilot/k3pilot/internal/k8s"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// DefaultWarnWindow flags certificates expiring within 30 days. k3s
// rotates leaves automatically only within 90 days of expiry and only
// on a service restart, which long-lived clusters may never see.
const DefaultWarnWindow = 30 * 24 * time.Hour

// CheckOptions tune the expiry triage.
type CheckOptions struct {
	// WarnWithin flags certificates expiring inside this window.
	// Defaults to DefaultWarnWindow.
	WarnWithin time.Duration
}

// Check reads the notAfter date of every core certificate on every
// control plane. Expired files are failures, files inside the warning
// window are warnings, and node errors never abort the fan-out.
func Check(s *provision.Session, opts CheckOptions) (*provision.Report, error) {
	c := s.Cluster
	rep := provision.NewReport("certs-check", c.Name)

	warnWithin := opts.WarnWithin
	if warnWithin <= 0 {
		warnWithin = DefaultWarnWindow
	}

	provision.LogPhaseStart(s.Observer, "certs", fmt.Sprintf("checking %d certificate(s) on %d control plane(s)",
		len(runtime.CoreCertificates), len(c.ControlPlanes)))

	for i, node := range c.ControlPlanes {
		checkNode(s, rep, node, warnWithin)
		s.Observer.Progress("certs", i+1, len(c.ControlPlanes))
	}

	provision.LogPhaseComplete(s.Observer, "certs")
	return rep.Resolve(), nil
}

func checkNode(s *provision.Session, rep *provision.Report, node string, warnWithin time.Duration) {
	for _, file := range runtime.CoreCertificates {
		out, err := s.Gateway.Execute(s, node, runtime.CertCheckCommand(file))
		if err != nil {
			rep.Fail(node, file, err)
			provision.LogNodeFailed(s.Observer, "certs", node, err)
			continue
		}
		notAfter, err := runtime.ParseNotAfter(out)
		if err != nil {
			rep.Fail(node, file, err)
			continue
		}

		left := time.Until(notAfter)
		days := int(left.Hours() / 24)
		switch {
		case left <= 0:
			rep.Fail(node, file, fmt.Errorf("expired on %s", notAfter.Format("2006-01-02")))
		case left < warnWithin:
			msg := fmt.Sprintf("expires in %d day(s), on %s", days, notAfter.Format("2006-01-02"))
			rep.Warn(node, file, msg)
			provision.LogWarning(s.Observer, "certs", node, file+" "+msg)
		default:
			rep.OK(node, file, fmt.Sprintf("valid until %s (%d days)", notAfter.Format("2006-01-02"), days))
		}
	}
}

// Rotate regenerates the leaf certificates on every control plane, one
// node at a time, then restarts the agents so they pick up the new
// material. A control-plane failure is a hard stop; agent restart
// failures are recorded per node.
func Rotate(s *provision.Session) (*provision.Report, error) {
	c := s.Cluster
	rep := provision.NewReport("certs-rotate", c.Name)

	ok, err := s.Confirm(s,
		fmt.Sprintf("Rotate the certificates of %s?", c.Name),
		"Every control plane restarts in turn while its leaf certificates are regenerated.")
	if err != nil {
		rep.Fail("", "confirm", err)
		return rep.Finish(provision.VerdictAborted), err
	}
	if !ok {
		err := fmt.Errorf("certificate rotation declined")
		rep.Fail("", "confirm", err)
		return rep.Finish(provision.VerdictAborted), err
	}

	client := s.Kube(c.FirstControlPlane())
	svc := runtime.NewServiceManager(s.Gateway, s.Timeouts)

	provision.LogPhaseStart(s.Observer, "certs", fmt.Sprintf("rotating certificates on %d control plane(s)", len(c.ControlPlanes)))

	for i, node := range c.ControlPlanes {
		if err := rotateServer(s, client, svc, node, rep); err != nil {
			provision.LogPhaseFailed(s.Observer, "certs", err)
			for _, rest := range c.ControlPlanes[i+1:] {
				rep.Skip(rest, "rotate", "aborted after failure on "+node)
			}
			return rep.Finish(provision.VerdictAborted), err
		}
		s.Observer.Progress("certs", i+1, len(c.ControlPlanes))
	}

	for _, node := range c.Workers {
		if err := svc.Restart(s, node, runtime.AgentService); err != nil {
			rep.Fail(node, "agent-restart", err)
			provision.LogNodeFailed(s.Observer, "certs", node, err)
			continue
		}
		rep.OK(node, "agent-restart", "reconnected")
	}

	provision.LogPhaseComplete(s.Observer, "certs")
	return rep.Resolve(), nil
}

// rotateServer regenerates one control plane's certificates. The k3s
// docs require the service to be down while the rotate runs.
func rotateServer(s *provision.Session, client *k8s.Client, svc *runtime.ServiceManager, node string, rep *provision.Report) error {
	provision.LogNodeStart(s.Observer, "certs", node, "rotating certificates")

	if err := svc.Stop(s, node, runtime.ServerService); err != nil {
		rep.Fail(node, "stop", err)
		return err
	}
	if _, err := s.Gateway.Execute(s, node, runtime.CertRotateCommand()); err != nil {
		rep.Fail(node, "rotate", err)
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

	rep.OK(node, "rotate", "certificates rotated")
	provision.LogNodeComplete(s.Observer, "certs", node, "rotated")
	return nil
}
