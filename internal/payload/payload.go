// Package payload bundles the host preparation scripts pushed to nodes
// during bootstrap and join. The scripts run as root via the gateway
// and take positional arguments; the k3s installer itself is a
// separately synthesized command, not part of these payloads.
package payload

import (
	"embed"
	"strconv"

	"github.com/k3pilot/k3pilot/internal/config"
)

//go:embed scripts/*.sh
var scriptsFS embed.FS

// ProxyScript prepares the proxy host: installs nginx with the stream
// module available.
func ProxyScript() []byte {
	return mustRead("scripts/proxy.sh")
}

// ControlPlaneScript prepares a control-plane host. On ordinal 0 it
// formats and mounts the storage device and exports it over NFS for
// the in-cluster provisioner; on other ordinals it is a no-op.
func ControlPlaneScript() []byte {
	return mustRead("scripts/control-plane.sh")
}

// WorkerScript prepares a worker host: installs the NFS client tooling
// the shared storage class needs.
func WorkerScript() []byte {
	return mustRead("scripts/worker.sh")
}

// ControlPlaneArgs builds the positional arguments for the control
// plane script: ordinal, storage device, export path, export scope.
func ControlPlaneArgs(c *config.Cluster, ordinal int) []string {
	return []string{
		strconv.Itoa(ordinal),
		c.Storage.Device,
		c.Storage.ExportPath,
		"*",
	}
}

func mustRead(name string) []byte {
	b, err := scriptsFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return b
}
