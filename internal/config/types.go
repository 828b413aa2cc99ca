package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Cluster is the validated fleet descriptor. It is constructed once per
// invocation by Load and treated as read-only by every consumer. List order
// is significant: ControlPlanes[0] initializes the cluster, and bootstrap and
// upgrade walk both lists in declaration order.
type Cluster struct {
	// Name identifies the cluster in reports and generated artifacts.
	Name string `yaml:"name,omitempty"`

	// Proxy is the address of the load-balancing entry point.
	Proxy string `yaml:"proxy"`

	// ControlPlanes are the control-plane node addresses, in bootstrap order.
	ControlPlanes []string `yaml:"control_planes"`

	// Workers are the worker node addresses.
	Workers []string `yaml:"workers,omitempty"`

	Network    Network    `yaml:"network,omitempty"`
	Runtime    Runtime    `yaml:"runtime,omitempty"`
	SSH        SSH        `yaml:"ssh"`
	Storage    Storage    `yaml:"storage,omitempty"`
	Operations Operations `yaml:"operations,omitempty"`
}

// Network holds the Kubernetes networking parameters passed to the runtime.
// Empty fields are omitted from synthesized arguments, not sent as empty
// values.
type Network struct {
	ServiceCIDR   string `yaml:"service_cidr,omitempty"`
	PodCIDR       string `yaml:"pod_cidr,omitempty"`
	ClusterDNS    string `yaml:"cluster_dns,omitempty"`
	ClusterDomain string `yaml:"cluster_domain,omitempty"`
	NodePortRange string `yaml:"node_port_range,omitempty"`
	MaxPods       int    `yaml:"max_pods,omitempty"`
}

// Runtime holds K3s installation parameters shared by all nodes.
type Runtime struct {
	// Version pins the runtime version (e.g. "v1.32.1+k3s1"). When empty,
	// installs follow Channel and join flows read the version from a
	// running control-plane node.
	Version string `yaml:"version,omitempty"`

	// Channel selects the release channel used when Version is empty.
	Channel string `yaml:"channel,omitempty"`

	// Token is the shared join secret. Generated at load time when empty
	// and stable for the lifetime of the descriptor instance.
	Token string `yaml:"token,omitempty"`

	// TLSSANs lists extra names the serving certificate must cover. The
	// proxy and all control-plane addresses are always unioned in.
	TLSSANs []string `yaml:"tls_sans,omitempty"`

	// Disable lists built-in components to turn off (e.g. "traefik").
	Disable []string `yaml:"disable,omitempty"`

	ServerExtraArgs []string `yaml:"server_extra_args,omitempty"`
	AgentExtraArgs  []string `yaml:"agent_extra_args,omitempty"`
}

// SSH holds the default remote credential plus optional per-role overrides.
type SSH struct {
	User    string `yaml:"user"`
	KeyFile string `yaml:"key_file"`
	Port    int    `yaml:"port,omitempty"`

	// Overrides supply distinct credentials for individual roles or
	// addresses. Match is "proxy", "control-plane[N]", "worker[N]", or a
	// literal node address. Unset fields inherit the default credential.
	Overrides []SSHOverride `yaml:"overrides,omitempty"`
}

// SSHOverride is a partial credential bound to a role or address selector.
type SSHOverride struct {
	Match   string `yaml:"match"`
	User    string `yaml:"user,omitempty"`
	KeyFile string `yaml:"key_file,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// Storage describes the shared-storage export on the first control-plane
// node, which backs the cluster's default storage class.
type Storage struct {
	Device     string `yaml:"device,omitempty"`
	MountPath  string `yaml:"mount_path,omitempty"`
	ExportPath string `yaml:"export_path,omitempty"`
}

// Operations holds workflow tuning knobs.
type Operations struct {
	DrainTimeout      Duration `yaml:"drain_timeout,omitempty"`
	UpgradeBatchSize  int      `yaml:"upgrade_batch_size,omitempty"`
	SnapshotRetention int      `yaml:"snapshot_retention,omitempty"`
	SnapshotDir       string   `yaml:"snapshot_dir,omitempty"`

	// S3 enables offloading pulled backup archives to object storage.
	S3 *S3 `yaml:"s3,omitempty"`
}

// S3 holds object-storage coordinates for backup archive offload.
type S3 struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket"`
	Folder    string `yaml:"folder,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Duration wraps time.Duration with YAML support for strings like "90s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"90s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.Duration.String(), nil
}

// NodeKind classifies a fleet member by its function.
type NodeKind string

const (
	KindProxy        NodeKind = "proxy"
	KindControlPlane NodeKind = "control-plane"
	KindWorker       NodeKind = "worker"
)

// NodeRole identifies a node's function and its position within that
// function's list. It is derived by membership lookup, never stored.
type NodeRole struct {
	Kind    NodeKind
	Ordinal int
}

// String renders the role as it appears in SSH override selectors.
func (r NodeRole) String() string {
	if r.Kind == KindProxy {
		return string(KindProxy)
	}
	return fmt.Sprintf("%s[%d]", r.Kind, r.Ordinal)
}

// RoleOf resolves an address to its role by membership lookup against the
// descriptor's lists. The second return is false for unknown addresses.
func (c *Cluster) RoleOf(address string) (NodeRole, bool) {
	if address == c.Proxy {
		return NodeRole{Kind: KindProxy}, true
	}
	for i, addr := range c.ControlPlanes {
		if addr == address {
			return NodeRole{Kind: KindControlPlane, Ordinal: i}, true
		}
	}
	for i, addr := range c.Workers {
		if addr == address {
			return NodeRole{Kind: KindWorker, Ordinal: i}, true
		}
	}
	return NodeRole{}, false
}

// FirstControlPlane returns the cluster-initializing node's address.
func (c *Cluster) FirstControlPlane() string {
	return c.ControlPlanes[0]
}

// AllNodes returns every fleet address: proxy, control planes, then workers.
func (c *Cluster) AllNodes() []string {
	nodes := make([]string, 0, 1+len(c.ControlPlanes)+len(c.Workers))
	nodes = append(nodes, c.Proxy)
	nodes = append(nodes, c.ControlPlanes...)
	nodes = append(nodes, c.Workers...)
	return nodes
}

// APIEndpoint returns the load-balanced API URL workers and clients join
// through.
func (c *Cluster) APIEndpoint() string {
	return fmt.Sprintf("https://%s:%d", c.Proxy, KubeAPIPort)
}

// InitEndpoint returns the first control-plane node's direct API URL, the
// join target for subsequent control-plane nodes.
func (c *Cluster) InitEndpoint() string {
	return fmt.Sprintf("https://%s:%d", c.FirstControlPlane(), KubeAPIPort)
}
