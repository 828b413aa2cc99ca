package runtime

import (
	"fmt"
	"sort"

	"github.com/k3pilot/k3pilot/internal/config"
)

// TLSSANs returns the sorted, deduplicated set of subject alternative
// names for the cluster's server certificates. The proxy and every
// control plane are always included so the API certificate stays valid
// no matter which path a client takes.
func TLSSANs(c *config.Cluster) []string {
	seen := make(map[string]bool)
	var sans []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		sans = append(sans, v)
	}
	add(c.Proxy)
	for _, cp := range c.ControlPlanes {
		add(cp)
	}
	for _, san := range c.Runtime.TLSSANs {
		add(san)
	}
	sort.Strings(sans)
	return sans
}

// ServerArgs returns the k3s server arguments for a control-plane node.
// The first control plane initializes the datastore with --cluster-init;
// every other control plane joins through it. All remaining flags are
// identical across control planes.
func ServerArgs(c *config.Cluster, first bool) []string {
	var args []string
	if first {
		args = append(args, "--cluster-init")
	} else {
		args = append(args, "--server="+c.InitEndpoint())
	}
	for _, san := range TLSSANs(c) {
		args = append(args, "--tls-san="+san)
	}
	args = append(args, networkArgs(c)...)
	args = append(args, kubeletArgs(c)...)
	for _, component := range c.Runtime.Disable {
		args = append(args, "--disable="+component)
	}
	args = append(args, c.Runtime.ServerExtraArgs...)
	return args
}

// AgentArgs returns the k3s agent arguments for a worker node joining
// through the given URL.
func AgentArgs(c *config.Cluster, joinURL string) []string {
	args := []string{"--server=" + joinURL}
	args = append(args, kubeletArgs(c)...)
	args = append(args, c.Runtime.AgentExtraArgs...)
	return args
}

// networkArgs emits a flag per configured network field. Unset fields
// produce no flag at all so k3s falls back to its own defaults.
func networkArgs(c *config.Cluster) []string {
	var args []string
	if v := c.Network.PodCIDR; v != "" {
		args = append(args, "--cluster-cidr="+v)
	}
	if v := c.Network.ServiceCIDR; v != "" {
		args = append(args, "--service-cidr="+v)
	}
	if v := c.Network.ClusterDNS; v != "" {
		args = append(args, "--cluster-dns="+v)
	}
	if v := c.Network.ClusterDomain; v != "" {
		args = append(args, "--cluster-domain="+v)
	}
	if v := c.Network.NodePortRange; v != "" {
		args = append(args, "--service-node-port-range="+v)
	}
	return args
}

func kubeletArgs(c *config.Cluster) []string {
	if c.Network.MaxPods <= 0 {
		return nil
	}
	return []string{fmt.Sprintf("--kubelet-arg=max-pods=%d", c.Network.MaxPods)}
}
