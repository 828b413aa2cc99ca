package kubeconfig

import (
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// Merge inserts incoming's entries into existing in place and activates
// incoming's current context. Before inserting, every existing cluster
// that serves the same endpoint as an incoming one is dropped together
// with the contexts built on it and any auth entries those contexts
// held exclusively. Merging the same cluster twice therefore yields the
// same file as merging it once.
func Merge(existing, incoming *clientcmdapi.Config) {
	servers := make(map[string]bool)
	for _, cluster := range incoming.Clusters {
		servers[cluster.Server] = true
	}

	var stale []string
	for name, cluster := range existing.Clusters {
		if servers[cluster.Server] {
			stale = append(stale, name)
		}
	}
	for _, name := range stale {
		dropCluster(existing, name)
	}

	for name, cluster := range incoming.Clusters {
		existing.Clusters[name] = cluster
	}
	for name, auth := range incoming.AuthInfos {
		existing.AuthInfos[name] = auth
	}
	for name, ctx := range incoming.Contexts {
		existing.Contexts[name] = ctx
	}
	existing.CurrentContext = incoming.CurrentContext
}

// dropCluster removes a cluster entry, the contexts referencing it, and
// auth entries no remaining context uses.
func dropCluster(cfg *clientcmdapi.Config, cluster string) {
	delete(cfg.Clusters, cluster)

	orphaned := make(map[string]bool)
	for name, ctx := range cfg.Contexts {
		if ctx.Cluster == cluster {
			orphaned[ctx.AuthInfo] = true
			delete(cfg.Contexts, name)
			if cfg.CurrentContext == name {
				cfg.CurrentContext = ""
			}
		}
	}

	for _, ctx := range cfg.Contexts {
		delete(orphaned, ctx.AuthInfo)
	}
	for auth := range orphaned {
		delete(cfg.AuthInfos, auth)
	}
}
