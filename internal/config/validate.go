package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ValidationError describes a descriptor field that failed validation. Any
// validation failure is fatal for the invocation.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the descriptor for common errors and returns a detailed
// error if validation fails.
func (c *Cluster) Validate() error {
	if err := c.validateTopology(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateSSH(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateOperations()
}

// validateTopology checks the three address lists: presence, shape, and that
// no address serves two roles.
func (c *Cluster) validateTopology() error {
	if c.Proxy == "" {
		return invalid("proxy", "address is required")
	}
	if net.ParseIP(c.Proxy) == nil {
		return invalid("proxy", "%q is not an IP address", c.Proxy)
	}

	if len(c.ControlPlanes) == 0 {
		return invalid("control_planes", "at least one control-plane address is required")
	}

	seen := map[string]string{c.Proxy: "proxy"}
	for i, addr := range c.ControlPlanes {
		field := fmt.Sprintf("control_planes[%d]", i)
		if net.ParseIP(addr) == nil {
			return invalid(field, "%q is not an IP address", addr)
		}
		if prev, ok := seen[addr]; ok {
			return invalid(field, "%q already used as %s", addr, prev)
		}
		seen[addr] = field
	}
	for i, addr := range c.Workers {
		field := fmt.Sprintf("workers[%d]", i)
		if net.ParseIP(addr) == nil {
			return invalid(field, "%q is not an IP address", addr)
		}
		if prev, ok := seen[addr]; ok {
			return invalid(field, "%q already used as %s", addr, prev)
		}
		seen[addr] = field
	}

	return nil
}

// validateNetwork checks CIDR syntax and the node-port range shape. Values
// are passed through to the runtime; semantic overlap checks are its job.
func (c *Cluster) validateNetwork() error {
	if c.Network.ServiceCIDR != "" {
		if _, _, err := net.ParseCIDR(c.Network.ServiceCIDR); err != nil {
			return invalid("network.service_cidr", "%v", err)
		}
	}
	if c.Network.PodCIDR != "" {
		if _, _, err := net.ParseCIDR(c.Network.PodCIDR); err != nil {
			return invalid("network.pod_cidr", "%v", err)
		}
	}
	if c.Network.ClusterDNS != "" && net.ParseIP(c.Network.ClusterDNS) == nil {
		return invalid("network.cluster_dns", "%q is not an IP address", c.Network.ClusterDNS)
	}
	if c.Network.NodePortRange != "" {
		if err := validatePortRange(c.Network.NodePortRange); err != nil {
			return invalid("network.node_port_range", "%v", err)
		}
	}
	if c.Network.MaxPods < 0 {
		return invalid("network.max_pods", "must not be negative")
	}
	return nil
}

// validatePortRange checks a "low-high" port range string.
func validatePortRange(r string) error {
	low, high, found := strings.Cut(r, "-")
	if !found {
		return fmt.Errorf("%q must look like \"30000-32767\"", r)
	}
	lo, err := strconv.Atoi(low)
	if err != nil {
		return fmt.Errorf("bad lower bound %q", low)
	}
	hi, err := strconv.Atoi(high)
	if err != nil {
		return fmt.Errorf("bad upper bound %q", high)
	}
	if lo < 1 || hi > 65535 || lo >= hi {
		return fmt.Errorf("range %q out of order or out of bounds", r)
	}
	return nil
}

// validateSSH checks the default credential and that every override selector
// matches a known role or address.
func (c *Cluster) validateSSH() error {
	if c.SSH.User == "" {
		return invalid("ssh.user", "is required")
	}
	if c.SSH.KeyFile == "" {
		return invalid("ssh.key_file", "is required")
	}

	for i, o := range c.SSH.Overrides {
		if o.Match == "" {
			return invalid(fmt.Sprintf("ssh.overrides[%d].match", i), "is required")
		}
		if !c.selectorKnown(o.Match) {
			return invalid(fmt.Sprintf("ssh.overrides[%d].match", i),
				"%q does not name a role or a fleet address", o.Match)
		}
	}
	return nil
}

// selectorKnown reports whether a selector names the proxy, an in-range
// role ordinal, or a fleet address.
func (c *Cluster) selectorKnown(sel string) bool {
	if _, ok := c.RoleOf(sel); ok {
		return true
	}
	if sel == string(KindProxy) {
		return true
	}
	for i := range c.ControlPlanes {
		if sel == (NodeRole{Kind: KindControlPlane, Ordinal: i}).String() {
			return true
		}
	}
	for i := range c.Workers {
		if sel == (NodeRole{Kind: KindWorker, Ordinal: i}).String() {
			return true
		}
	}
	return false
}

// validateStorage requires the shared-storage layout that bootstrap
// provisions and verifies.
func (c *Cluster) validateStorage() error {
	if c.Storage.Device == "" {
		return invalid("storage.device", "is required")
	}
	if c.Storage.MountPath == "" {
		return invalid("storage.mount_path", "is required")
	}
	if !strings.HasPrefix(c.Storage.MountPath, "/") {
		return invalid("storage.mount_path", "%q must be absolute", c.Storage.MountPath)
	}
	if c.Storage.ExportPath != "" && !strings.HasPrefix(c.Storage.ExportPath, "/") {
		return invalid("storage.export_path", "%q must be absolute", c.Storage.ExportPath)
	}
	return nil
}

// validateOperations checks workflow tuning values.
func (c *Cluster) validateOperations() error {
	if c.Operations.UpgradeBatchSize < 0 {
		return invalid("operations.upgrade_batch_size", "must not be negative")
	}
	if c.Operations.SnapshotRetention < 0 {
		return invalid("operations.snapshot_retention", "must not be negative")
	}
	if c.Operations.DrainTimeout.Duration < 0 {
		return invalid("operations.drain_timeout", "must not be negative")
	}
	if s3 := c.Operations.S3; s3 != nil {
		if s3.Bucket == "" {
			return invalid("operations.s3.bucket", "is required when s3 is configured")
		}
		if s3.Endpoint == "" && s3.Region == "" {
			return invalid("operations.s3", "endpoint or region is required")
		}
	}
	return nil
}
