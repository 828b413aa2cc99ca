package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/provision"
	"github.com/k3pilot/k3pilot/internal/provision/provisiontest"
	testutil "github.com/k3pilot/k3pilot/internal/testing"
)

const (
	storedSnapshot = "test-cluster-20260314-092653-cp0-1773795600"
	bundleToken    = "K10abc::server:tok"
)

// writeBundle drops a placeholder archive on disk and returns its path.
func writeBundle(t *testing.T) string {
	t.Helper()
	arc := filepath.Join(t.TempDir(), storedSnapshot+".tar.gz")
	require.NoError(t, os.WriteFile(arc, []byte("archive"), 0o600))
	return arc
}

// simRestoreTarget scripts the staged-bundle responses and a reset that
// exits non-zero with the success marker in its output, which is how
// k3s actually behaves.
func simRestoreTarget(c *config.Cluster, gw *testutil.FakeGateway) {
	provisiontest.SystemdSim(gw)
	gw.Handle("get nodes", provisiontest.ReadyNodesOutput(c, "v1.32.1+k3s1"), nil)
	gw.Handle("k3pilot-restore/db/snapshots", storedSnapshot+"\n", nil)
	gw.Handle("k3pilot-restore/token", bundleToken+"\n", nil)
	gw.Handle("--cluster-reset", "Managed etcd cluster membership has been reset, restart without --cluster-reset flag now", errors.New("exit status 1"))
}

func TestRestore_RunsFullSequence(t *testing.T) {
	t.Parallel()

	c := testutil.NewClusterBuilder().
		WithControlPlanes("10.0.0.11", "10.0.0.12", "10.0.0.13").
		Build()
	gw := testutil.NewFakeGateway()
	simRestoreTarget(c, gw)
	arc := writeBundle(t)
	s, _ := provisiontest.NewSession(t, c, gw)

	rep, err := Restore(s, RestoreOptions{Address: "10.0.0.11", Archive: arc})

	require.NoError(t, err, gw.String())
	assert.Equal(t, provision.VerdictComplete, rep.Verdict)

	base := filepath.Base(arc)
	local, ok := gw.PushedTo("10.0.0.11", "/tmp/"+base)
	require.True(t, ok, "bundle was not pushed:\n%s", gw)
	assert.Equal(t, arc, local)

	// Stop, unpack, reset, restart, in that order, all on the target.
	cmds := gw.NodeCommands("10.0.0.11")
	stop, unpack, reset, start := -1, -1, -1, -1
	for i, cmd := range cmds {
		switch {
		case strings.Contains(cmd, "--no-block stop") && stop == -1:
			stop = i
		case strings.Contains(cmd, "tar -xzf /tmp/"+base) && unpack == -1:
			unpack = i
		case strings.Contains(cmd, "--cluster-reset"):
			reset = i
		case strings.Contains(cmd, "--no-block start") && start == -1:
			start = i
		}
	}
	require.GreaterOrEqual(t, stop, 0, "server never stopped:\n%s", gw)
	require.GreaterOrEqual(t, unpack, 0, "bundle never unpacked:\n%s", gw)
	require.GreaterOrEqual(t, reset, 0, "reset never ran:\n%s", gw)
	require.GreaterOrEqual(t, start, 0, "server never restarted:\n%s", gw)
	assert.Less(t, stop, unpack, "unpacked before the server stopped")
	assert.Less(t, unpack, reset, "reset before the bundle was staged")
	assert.Less(t, reset, start, "server restarted before the reset")

	resetCmd := cmds[reset]
	assert.Contains(t, resetCmd, "--cluster-reset-restore-path=/tmp/k3pilot-restore/db/snapshots/"+storedSnapshot)
	assert.Contains(t, resetCmd, "--token="+bundleToken)

	assert.NotEmpty(t, gw.CommandsMatching("rm -rf /tmp/k3pilot-restore /tmp/"), "staged bundle left behind")

	require.NotEmpty(t, rep.Warnings())
	assert.Equal(t, "peers", rep.Warnings()[0].Step)

	// The untouched control planes saw no traffic.
	assert.Empty(t, gw.NodeCommands("10.0.0.12"))
	assert.Empty(t, gw.NodeCommands("10.0.0.13"))
}

func TestRestore_DeclinedDoesNothing(t *testing.T) {
	t.Parallel()

	c := testutil.NewClusterBuilder().Build()
	gw := testutil.NewFakeGateway()
	simRestoreTarget(c, gw)
	arc := writeBundle(t)
	s, _ := provisiontest.NewSession(t, c, gw)
	s.Confirm = func(context.Context, string, string) (bool, error) { return false, nil }

	rep, err := Restore(s, RestoreOptions{Address: "10.0.0.11", Archive: arc})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "declined")
	assert.Equal(t, provision.VerdictAborted, rep.Verdict)
	assert.Empty(t, gw.Calls(), "declined restore reached the fleet:\n%s", gw)
	_, pushed := gw.PushedTo("10.0.0.11", "/tmp/"+filepath.Base(arc))
	assert.False(t, pushed)
}

func TestRestore_RejectsBadTargets(t *testing.T) {
	t.Parallel()

	arc := writeBundle(t)
	tests := []struct {
		name string
		opts RestoreOptions
		want string
	}{
		{"empty address", RestoreOptions{Archive: arc}, "requires a node address"},
		{"worker", RestoreOptions{Address: "10.0.0.21", Archive: arc}, "not a control plane"},
		{"proxy", RestoreOptions{Address: "10.0.0.10", Archive: arc}, "not a control plane"},
		{"stranger", RestoreOptions{Address: "10.9.9.9", Archive: arc}, "not a control plane"},
		{"no source", RestoreOptions{Address: "10.0.0.11"}, "exactly one"},
		{"two sources", RestoreOptions{Address: "10.0.0.11", Archive: arc, S3Key: "backups/x.tar.gz"}, "exactly one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := testutil.NewClusterBuilder().WithWorkers("10.0.0.21").Build()
			gw := testutil.NewFakeGateway()
			s, _ := provisiontest.NewSession(t, c, gw)

			rep, err := Restore(s, tt.opts)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, provision.VerdictAborted, rep.Verdict)
			assert.Empty(t, gw.Calls())
		})
	}
}

func TestRestore_ResetWithoutMarkerAborts(t *testing.T) {
	t.Parallel()

	c := testutil.NewClusterBuilder().Build()
	gw := testutil.NewFakeGateway()
	simRestoreTarget(c, gw)
	gw.Handle("--cluster-reset", "walk failure: snapshot path does not exist", errors.New("exit status 1"))
	arc := writeBundle(t)
	s, _ := provisiontest.NewSession(t, c, gw)

	rep, err := Restore(s, RestoreOptions{Address: "10.0.0.11", Archive: arc})

	require.Error(t, err)
	assert.Equal(t, provision.VerdictAborted, rep.Verdict)
	require.NotEmpty(t, rep.Failures())
	assert.Equal(t, "reset", rep.Failures()[0].Step)

	// The server stays down and the stage stays put for inspection.
	assert.Empty(t, gw.CommandsMatching("--no-block start"))
	assert.Empty(t, gw.CommandsMatching("rm -rf /tmp/k3pilot-restore /tmp/"))
}

func TestRestore_MissingArchiveAborts(t *testing.T) {
	t.Parallel()

	c := testutil.NewClusterBuilder().Build()
	gw := testutil.NewFakeGateway()
	s, _ := provisiontest.NewSession(t, c, gw)

	rep, err := Restore(s, RestoreOptions{Address: "10.0.0.11", Archive: filepath.Join(t.TempDir(), "nope.tar.gz")})

	require.Error(t, err)
	assert.Equal(t, provision.VerdictAborted, rep.Verdict)
	require.NotEmpty(t, rep.Failures())
	assert.Equal(t, "fetch", rep.Failures()[0].Step)
	assert.Empty(t, gw.Calls())
}

func TestRestore_SingleControlPlaneHasNoPeerWarning(t *testing.T) {
	t.Parallel()

	c := testutil.NewClusterBuilder().Build()
	gw := testutil.NewFakeGateway()
	simRestoreTarget(c, gw)
	arc := writeBundle(t)
	s, _ := provisiontest.NewSession(t, c, gw)

	rep, err := Restore(s, RestoreOptions{Address: "10.0.0.11", Archive: arc})

	require.NoError(t, err, gw.String())
	assert.Equal(t, provision.VerdictComplete, rep.Verdict)
	assert.Empty(t, rep.Warnings())
}
