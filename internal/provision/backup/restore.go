package backup

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/platform/s3"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// RestoreOptions name the node to rebuild and the bundle to rebuild it
// from. Exactly one of Archive and S3Key must be set.
type RestoreOptions struct {
	// Address is the control plane whose datastore is rebuilt.
	Address string
	// Archive is a local bundle produced by a backup run.
	Archive string
	// S3Key fetches the bundle from the descriptor's bucket instead.
	S3Key string
}

// Restore rebuilds the datastore of one control plane from a bundle.
// Every step is a hard stop; a half-restored server must not be left
// looking healthy.
func Restore(s *provision.Session, opts RestoreOptions) (*provision.Report, error) {
	c := s.Cluster
	rep := provision.NewReport("restore", c.Name)

	abort := func(step string, err error) (*provision.Report, error) {
		rep.Fail(opts.Address, step, err)
		provision.LogPhaseFailed(s.Observer, "restore", err)
		return rep.Finish(provision.VerdictAborted), err
	}

	if opts.Address == "" {
		return abort("validate", fmt.Errorf("restore requires a node address"))
	}
	role, known := c.RoleOf(opts.Address)
	if !known || role.Kind != config.KindControlPlane {
		return abort("validate", fmt.Errorf("%s is not a control plane of %s", opts.Address, c.Name))
	}
	if (opts.Archive == "") == (opts.S3Key == "") {
		return abort("validate", fmt.Errorf("exactly one of an archive path or an S3 key is required"))
	}

	ok, err := s.Confirm(s,
		fmt.Sprintf("Restore %s on %s?", c.Name, opts.Address),
		"The node's datastore is replaced with the bundle's snapshot. Everything created since that snapshot is gone afterwards.")
	if err != nil {
		return abort("confirm", err)
	}
	if !ok {
		return abort("confirm", fmt.Errorf("restore of %s declined", c.Name))
	}

	archivePath := opts.Archive
	if opts.S3Key != "" {
		if c.Operations.S3 == nil {
			return abort("fetch", fmt.Errorf("an S3 key needs operations.s3 configured"))
		}
		store, err := s3.New(s, c.Operations.S3)
		if err != nil {
			return abort("fetch", err)
		}
		archivePath = filepath.Join(c.Operations.SnapshotDir, filepath.Base(opts.S3Key))
		if err := store.DownloadArchive(s, opts.S3Key, archivePath); err != nil {
			return abort("fetch", err)
		}
	}
	if _, err := os.Stat(archivePath); err != nil {
		return abort("fetch", err)
	}

	node := opts.Address
	base := filepath.Base(archivePath)
	provision.LogPhaseStart(s.Observer, "restore", fmt.Sprintf("restoring %s from %s", node, base))

	if err := s.Gateway.Push(s, node, archivePath, path.Join("/tmp", base)); err != nil {
		return abort("push", err)
	}
	rep.OK(node, "push", base)

	svc := runtime.NewServiceManager(s.Gateway, s.Timeouts)
	if err := svc.Stop(s, node, runtime.ServerService); err != nil {
		return abort("stop", err)
	}

	if _, err := s.Gateway.Execute(s, node, runtime.BundleUnpackCommand(base)); err != nil {
		return abort("unpack", err)
	}
	listing, err := s.Gateway.Execute(s, node, runtime.StagedSnapshotListCommand())
	if err != nil {
		return abort("unpack", err)
	}
	snapshot := firstLine(listing)
	if snapshot == "" {
		return abort("unpack", fmt.Errorf("bundle %s carries no snapshot", base))
	}
	token, err := s.Gateway.Execute(s, node, runtime.StagedTokenCommand())
	if err != nil {
		return abort("unpack", err)
	}
	if token = strings.TrimSpace(token); token == "" {
		return abort("unpack", fmt.Errorf("bundle %s carries no server token", base))
	}

	reset := runtime.ClusterResetCommand(path.Join(runtime.RestoreStageDir, "db/snapshots", snapshot), token)
	out, err := s.Gateway.Execute(s, node, reset)
	if err != nil && !resetSucceeded(out, err) {
		return abort("reset", err)
	}
	rep.OK(node, "reset", "datastore rebuilt from "+snapshot)

	// The stage and the pushed archive are gone before the server
	// comes back.
	_, _ = s.Gateway.Execute(s, node, runtime.RestoreCleanupCommand(base))

	if err := svc.Start(s, node, runtime.ServerService); err != nil {
		return abort("restart", err)
	}

	client := s.Kube(node)
	if err := client.WaitNodeReady(s, node); err != nil {
		return abort("ready", err)
	}
	rep.OK(node, "ready", "serving again")

	if len(c.ControlPlanes) > 1 {
		msg := "the other control planes hold a stale datastore now; wipe " +
			path.Join(runtime.ServerDir, "db") + " on each and rejoin them"
		rep.Warn("", "peers", msg)
		provision.LogWarning(s.Observer, "restore", "", msg)
	}

	provision.LogPhaseComplete(s.Observer, "restore")
	return rep.Resolve(), nil
}

// resetSucceeded reports whether a non-zero reset invocation actually
// finished. k3s exits non-zero from --cluster-reset even when the
// datastore was rebuilt; the marker in the output is what counts.
func resetSucceeded(out string, err error) bool {
	if strings.Contains(out, runtime.ClusterResetMarker) {
		return true
	}
	var cmdErr *gateway.CommandError
	return errors.As(err, &cmdErr) && strings.Contains(cmdErr.Output, runtime.ClusterResetMarker)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
