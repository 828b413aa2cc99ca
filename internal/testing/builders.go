package testing

import (
	"time"

	"github.com/k3pilot/k3pilot/internal/config"
)

// ClusterBuilder provides a fluent interface for constructing cluster
// configurations in tests. Each method returns a new builder so partial
// setups can be shared safely.
type ClusterBuilder struct {
	cluster config.Cluster
}

// NewClusterBuilder returns a builder preloaded with a minimal valid
// three-role topology.
func NewClusterBuilder() *ClusterBuilder {
	return &ClusterBuilder{
		cluster: config.Cluster{
			Name:          "test-cluster",
			Proxy:         "10.0.0.10",
			ControlPlanes: []string{"10.0.0.11"},
			Workers:       nil,
			Runtime: config.Runtime{
				Version: "v1.32.1+k3s1",
				Token:   "test-token",
			},
			SSH: config.SSH{
				User:    "ops",
				KeyFile: "/home/ops/.ssh/id_ed25519",
			},
			Storage: config.Storage{
				Device:    "/dev/sdb",
				MountPath: "/srv/export",
			},
		},
	}
}

func (b *ClusterBuilder) clone() *ClusterBuilder {
	c := b.cluster
	c.ControlPlanes = append([]string(nil), b.cluster.ControlPlanes...)
	c.Workers = append([]string(nil), b.cluster.Workers...)
	c.Runtime.TLSSANs = append([]string(nil), b.cluster.Runtime.TLSSANs...)
	c.Runtime.Disable = append([]string(nil), b.cluster.Runtime.Disable...)
	c.SSH.Overrides = append([]config.SSHOverride(nil), b.cluster.SSH.Overrides...)
	return &ClusterBuilder{cluster: c}
}

// WithName sets the cluster name.
func (b *ClusterBuilder) WithName(name string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Name = name
	return nb
}

// WithProxy sets the proxy address.
func (b *ClusterBuilder) WithProxy(addr string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Proxy = addr
	return nb
}

// WithControlPlanes replaces the control-plane list.
func (b *ClusterBuilder) WithControlPlanes(addrs ...string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.ControlPlanes = addrs
	return nb
}

// WithWorkers replaces the worker list.
func (b *ClusterBuilder) WithWorkers(addrs ...string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Workers = addrs
	return nb
}

// WithVersion pins the k3s release.
func (b *ClusterBuilder) WithVersion(version string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Runtime.Version = version
	return nb
}

// WithToken sets the join token.
func (b *ClusterBuilder) WithToken(token string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Runtime.Token = token
	return nb
}

// WithTLSSANs sets the explicit certificate names.
func (b *ClusterBuilder) WithTLSSANs(sans ...string) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Runtime.TLSSANs = sans
	return nb
}

// WithNetwork sets the network overrides.
func (b *ClusterBuilder) WithNetwork(n config.Network) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Network = n
	return nb
}

// WithBatchSize sets the worker upgrade batch size.
func (b *ClusterBuilder) WithBatchSize(n int) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Operations.UpgradeBatchSize = n
	return nb
}

// WithDrainTimeout sets the drain deadline.
func (b *ClusterBuilder) WithDrainTimeout(d time.Duration) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Operations.DrainTimeout = config.Duration{Duration: d}
	return nb
}

// WithS3 attaches snapshot offload settings.
func (b *ClusterBuilder) WithS3(s3 *config.S3) *ClusterBuilder {
	nb := b.clone()
	nb.cluster.Operations.S3 = s3
	return nb
}

// Build finalizes the configuration with defaults applied, the same
// shape Load produces.
func (b *ClusterBuilder) Build() *config.Cluster {
	c := b.clone().cluster
	if err := c.ApplyDefaults(); err != nil {
		panic(err)
	}
	return &c
}
