package runtime

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// SnapshotDir is where k3s stores local etcd snapshots on servers.
const SnapshotDir = "/var/lib/rancher/k3s/server/db/snapshots"

// ClusterResetMarker appears in the cluster-reset output once the
// datastore has been restored. The reset command exits non-zero even on
// success, so the marker is the signal that counts.
const ClusterResetMarker = "has been reset"

// SnapshotName builds the on-demand snapshot name for a node. k3s
// appends the node hostname and a unix timestamp to the stored file,
// so the name itself only needs to be unique per invocation.
func SnapshotName(clusterName string, now time.Time) string {
	return fmt.Sprintf("%s-%s", clusterName, now.Format("20060102-150405"))
}

// SnapshotSaveCommand saves an on-demand etcd snapshot under the given
// name. The output contains "Snapshot on-demand" on success.
func SnapshotSaveCommand(name string) string {
	return fmt.Sprintf("sudo k3s etcd-snapshot save --name %s", name)
}

// SnapshotPruneCommand trims stored snapshots down to the retention
// count.
func SnapshotPruneCommand(retention int) string {
	return fmt.Sprintf("sudo k3s etcd-snapshot prune --snapshot-retention %d", retention)
}

// SnapshotListCommand lists the snapshot files on disk, newest last.
func SnapshotListCommand() string {
	return fmt.Sprintf("sudo ls -1tr %s", SnapshotDir)
}

// FindSnapshotFile picks the file produced by a save under name from
// the directory listing. k3s stores it as <name>-<host>-<timestamp>,
// so a prefix match identifies it; with -1tr ordering the last match
// is the newest.
func FindSnapshotFile(listing, name string) (string, error) {
	var found string
	for _, line := range strings.Split(listing, "\n") {
		file := strings.TrimSpace(line)
		if file == "" {
			continue
		}
		if strings.HasPrefix(file, name) {
			found = file
		}
	}
	if found == "" {
		return "", fmt.Errorf("snapshot %q not found in listing", name)
	}
	return found, nil
}

// ServerDir is the k3s server state directory on control planes.
const ServerDir = "/var/lib/rancher/k3s/server"

// RestoreStageDir is where a pushed backup archive is unpacked before
// a cluster reset.
const RestoreStageDir = "/tmp/k3pilot-restore"

// BundleName is the archive filename wrapping a stored snapshot file.
func BundleName(file string) string {
	return file + ".tar.gz"
}

// BundleCommand tars the snapshot together with the server token and
// TLS material into /tmp, world-readable so the SSH user can pull it
// without root. A snapshot alone cannot rebuild a server; the reset
// needs the token it was taken under, and reusing the TLS material
// spares every kubeconfig out there a certificate swap.
func BundleCommand(file string) string {
	archive := path.Join("/tmp", BundleName(file))
	return fmt.Sprintf("sudo tar -czf %s -C %s db/snapshots/%s token tls && sudo chmod 644 %s",
		archive, ServerDir, file, archive)
}

// BundleUnstageCommand removes the staged archive.
func BundleUnstageCommand(file string) string {
	return "sudo rm -f " + path.Join("/tmp", BundleName(file))
}

// BundleUnpackCommand clears the restore stage and unpacks a pushed
// archive into it.
func BundleUnpackCommand(archive string) string {
	return fmt.Sprintf("sudo rm -rf %s && sudo mkdir -p %s && sudo tar -xzf %s -C %s",
		RestoreStageDir, RestoreStageDir, path.Join("/tmp", archive), RestoreStageDir)
}

// StagedSnapshotListCommand lists the snapshots carried by an unpacked
// bundle.
func StagedSnapshotListCommand() string {
	return "sudo ls -1 " + path.Join(RestoreStageDir, "db/snapshots")
}

// StagedTokenCommand prints the server token carried by an unpacked
// bundle.
func StagedTokenCommand() string {
	return "sudo cat " + path.Join(RestoreStageDir, "token")
}

// RestoreCleanupCommand drops the staged bundle and the pushed archive.
func RestoreCleanupCommand(archive string) string {
	return fmt.Sprintf("sudo rm -rf %s %s", RestoreStageDir, path.Join("/tmp", archive))
}

// ClusterResetCommand rebuilds a single-node datastore from the given
// snapshot path. The invocation blocks until the reset finishes and
// then exits non-zero with [ClusterResetMarker] in its output.
func ClusterResetCommand(snapshotPath, token string) string {
	return fmt.Sprintf("sudo k3s server --cluster-reset --cluster-reset-restore-path=%s --token=%s",
		snapshotPath, token)
}
