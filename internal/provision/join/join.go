// Package join adds a single node to a running cluster.
//
// Success is judged on observed membership: the workflow polls the
// cluster's node listing for the new address and reports on that, not
// on the install script's exit status, because the installer can exit
// zero without the node ever registering.
package join

import (
	"fmt"
	"strings"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/payload"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/proxy"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// Options name the node to add.
type Options struct {
	// Address of the new node.
	Address string
	// Role is control-plane or worker.
	Role config.NodeKind
}

// Run joins the node described by opts.
func Run(s *provision.Session, opts Options) (*provision.Report, error) {
	rep := provision.NewReport("join", s.Cluster.Name)

	if opts.Address == "" {
		return abort(rep, fmt.Errorf("join requires a node address"))
	}
	if opts.Role != config.KindControlPlane && opts.Role != config.KindWorker {
		return abort(rep, fmt.Errorf("join role must be %s or %s, got %q",
			config.KindControlPlane, config.KindWorker, opts.Role))
	}
	if opts.Address == s.Cluster.Proxy {
		return abort(rep, fmt.Errorf("%s is the proxy node and cannot join as %s", opts.Address, opts.Role))
	}

	provision.LogPhaseStart(s.Observer, "join", fmt.Sprintf("adding %s as %s", opts.Address, opts.Role))

	token, version, source, err := preflight(s)
	if err != nil {
		rep.Fail("", "preflight", err)
		provision.LogPhaseFailed(s.Observer, "join", err)
		return rep.Finish(provision.VerdictAborted), err
	}
	rep.OK(source, "preflight", "join credentials retrieved")

	// Work on a copy so the learned token and version never leak back
	// into the caller's descriptor.
	c := *s.Cluster
	c.Runtime.Token = token
	c.Runtime.Version = version
	ordinal := membership(&c, opts)

	client := s.Kube(source)

	if opts.Role == config.KindControlPlane {
		member := proxy.UpstreamMember(opts.Address)
		if err := proxy.NewEditor(s.Gateway, c.Proxy).AddServer(s, member); err != nil {
			rep.Fail(c.Proxy, "upstream", err)
			provision.LogPhaseFailed(s.Observer, "join", err)
			return rep.Finish(provision.VerdictAborted), err
		}
		rep.OK(c.Proxy, "upstream", member+" in rotation")
	}

	if err := bootstrapNode(s, &c, opts, ordinal); err != nil {
		rep.Fail(opts.Address, "install", err)
		provision.LogPhaseFailed(s.Observer, "join", err)
		return rep.Finish(provision.VerdictAborted), err
	}
	rep.OK(opts.Address, "install", "k3s "+version)

	if err := client.WaitNodeAppears(s, opts.Address); err != nil {
		rep.Fail(opts.Address, "register", err)
		provision.LogPhaseFailed(s.Observer, "join", err)
		return rep.Finish(provision.VerdictAborted), fmt.Errorf("%s never appeared in the node listing: %w", opts.Address, err)
	}
	rep.OK(opts.Address, "register", "listed in cluster")

	if err := client.WaitNodeReady(s, opts.Address); err != nil {
		// Registered but still settling. The join itself succeeded.
		msg := fmt.Sprintf("registered but not ready yet: %v", err)
		rep.Warn(opts.Address, "ready", msg)
		provision.LogWarning(s.Observer, "join", opts.Address, msg)
	} else {
		rep.OK(opts.Address, "ready", "")
	}

	provision.LogPhaseComplete(s.Observer, "join")
	return rep.Resolve(), nil
}

func abort(rep *provision.Report, err error) (*provision.Report, error) {
	rep.Fail("", "validate", err)
	return rep.Finish(provision.VerdictAborted), err
}

// preflight retrieves the join token and, when the descriptor does not
// pin one, the running version from the first control plane that
// answers. A new node cannot safely join without both.
func preflight(s *provision.Session) (token, version, source string, err error) {
	var lastErr error
	for _, cp := range s.Cluster.ControlPlanes {
		out, err := s.Gateway.Execute(s, cp, runtime.TokenCommand())
		if err != nil {
			lastErr = err
			continue
		}
		token = strings.TrimSpace(out)
		if token == "" {
			lastErr = fmt.Errorf("empty node token on %s", cp)
			continue
		}

		version = s.Cluster.Runtime.Version
		if version == "" {
			vout, err := s.Gateway.Execute(s, cp, runtime.VersionCommand())
			if err != nil {
				lastErr = err
				continue
			}
			if version, err = runtime.ParseVersion(vout); err != nil {
				lastErr = err
				continue
			}
		}
		return token, version, cp, nil
	}
	return "", "", "", fmt.Errorf("no control plane could supply join credentials: %w", lastErr)
}

// membership places the address in the working descriptor and returns
// its ordinal. Rejoining an address already on the list keeps its
// existing slot.
func membership(c *config.Cluster, opts Options) int {
	if role, ok := c.RoleOf(opts.Address); ok {
		return role.Ordinal
	}
	if opts.Role == config.KindControlPlane {
		c.ControlPlanes = append(append([]string(nil), c.ControlPlanes...), opts.Address)
		return len(c.ControlPlanes) - 1
	}
	c.Workers = append(append([]string(nil), c.Workers...), opts.Address)
	return len(c.Workers) - 1
}

func bootstrapNode(s *provision.Session, c *config.Cluster, opts Options, ordinal int) error {
	provision.LogNodeStart(s.Observer, "join", opts.Address, "bootstrapping")

	if opts.Role == config.KindControlPlane {
		args := payload.ControlPlaneArgs(c, ordinal)
		if out, err := gateway.RunScript(s, s.Gateway, opts.Address, payload.ControlPlaneScript(), args...); err != nil {
			return fmt.Errorf("host preparation failed: %w\n%s", err, out)
		}
		_, err := s.Gateway.Execute(s, opts.Address, runtime.ServerInstall(c, false).Command())
		return err
	}

	if out, err := gateway.RunScript(s, s.Gateway, opts.Address, payload.WorkerScript()); err != nil {
		return fmt.Errorf("host preparation failed: %w\n%s", err, out)
	}
	_, err := s.Gateway.Execute(s, opts.Address, runtime.AgentInstall(c, c.APIEndpoint()).Command())
	return err
}
