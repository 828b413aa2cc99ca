// Package backup captures the cluster datastore and rebuilds it.
//
// A backup visits every control plane independently: each holds a full
// copy of the datastore, so one node failing to snapshot must not stop
// the others. A restore is the opposite shape: one named node,
// strictly sequential, and destructive enough that it always goes
// through the session's confirm policy.
package backup

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/k3pilot/k3pilot/internal/platform/s3"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// Options tune a backup run.
type Options struct {
	// OutputDir receives the pulled archives. Defaults to the
	// descriptor's snapshot_dir.
	OutputDir string
	// Offload uploads each pulled archive to the descriptor's S3
	// bucket.
	Offload bool
}

// Run snapshots every control plane and pulls the bundles local. Node
// failures are recorded and stepped past; only preflight problems
// abort the run.
func Run(s *provision.Session, opts Options) (*provision.Report, error) {
	c := s.Cluster
	rep := provision.NewReport("backup", c.Name)

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = c.Operations.SnapshotDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		rep.Fail("", "preflight", err)
		return rep.Finish(provision.VerdictAborted), err
	}

	var store *s3.Client
	if opts.Offload {
		if c.Operations.S3 == nil {
			err := fmt.Errorf("S3 offload requested but operations.s3 is not configured")
			rep.Fail("", "preflight", err)
			return rep.Finish(provision.VerdictAborted), err
		}
		var err error
		if store, err = s3.New(s, c.Operations.S3); err != nil {
			rep.Fail("", "preflight", err)
			return rep.Finish(provision.VerdictAborted), err
		}
		if err := store.EnsureBucket(s); err != nil {
			err = fmt.Errorf("object storage is not usable: %w", err)
			rep.Fail("", "preflight", err)
			return rep.Finish(provision.VerdictAborted), err
		}
	}

	name := runtime.SnapshotName(c.Name, time.Now())
	provision.LogPhaseStart(s.Observer, "backup", "snapshot "+name)

	for i, node := range c.ControlPlanes {
		backupNode(s, rep, node, name, outDir, store)
		s.Observer.Progress("backup", i+1, len(c.ControlPlanes))
	}

	provision.LogPhaseComplete(s.Observer, "backup")
	return rep.Resolve(), nil
}

// backupNode runs the snapshot, bundle, pull sequence on one control
// plane, recording every failure on the report instead of returning it.
func backupNode(s *provision.Session, rep *provision.Report, node, name, outDir string, store *s3.Client) {
	provision.LogNodeStart(s.Observer, "backup", node, "saving snapshot "+name)
	fail := func(step string, err error) {
		rep.Fail(node, step, err)
		provision.LogNodeFailed(s.Observer, "backup", node, err)
	}

	if _, err := s.Gateway.Execute(s, node, runtime.SnapshotSaveCommand(name)); err != nil {
		fail("snapshot", err)
		return
	}

	listing, err := s.Gateway.Execute(s, node, runtime.SnapshotListCommand())
	if err != nil {
		fail("locate", err)
		return
	}
	file, err := runtime.FindSnapshotFile(listing, name)
	if err != nil {
		fail("locate", err)
		return
	}

	if _, err := s.Gateway.Execute(s, node, runtime.BundleCommand(file)); err != nil {
		fail("bundle", err)
		return
	}

	local := filepath.Join(outDir, runtime.BundleName(file))
	err = s.Gateway.Pull(s, node, path.Join("/tmp", runtime.BundleName(file)), local)
	// The staged archive goes away no matter how the pull went.
	_, _ = s.Gateway.Execute(s, node, runtime.BundleUnstageCommand(file))
	if err != nil {
		fail("pull", err)
		return
	}

	if _, err := s.Gateway.Execute(s, node, runtime.SnapshotPruneCommand(s.Cluster.Operations.SnapshotRetention)); err != nil {
		msg := "retention prune failed: " + err.Error()
		rep.Warn(node, "prune", msg)
		provision.LogWarning(s.Observer, "backup", node, msg)
	}

	rep.OK(node, "backup", "archive "+local)

	if store != nil {
		key, err := store.UploadArchive(s, local)
		if err != nil {
			fail("offload", err)
			return
		}
		rep.OK(node, "offload", "uploaded "+key)
	}
	provision.LogNodeComplete(s.Observer, "backup", node, "archive "+local)
}
