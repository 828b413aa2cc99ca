package kubeconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/k3pilot/k3pilot/internal/config"
	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/runtime"
)

// DefaultPath returns the path kubectl reads by default, ~/.kube/config.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".kube", "config"), nil
}

// Fetch reads the admin kubeconfig from node and rewrites it for access
// through the load balancer: the server URL becomes the proxy endpoint
// and the "default" entries are renamed after the cluster.
func Fetch(ctx context.Context, ex gateway.Executor, node string, c *config.Cluster) (*clientcmdapi.Config, error) {
	out, err := ex.Execute(ctx, node, runtime.KubeconfigCommand())
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig from %s: %w", node, err)
	}

	cfg, err := clientcmd.Load([]byte(out))
	if err != nil {
		return nil, fmt.Errorf("kubeconfig from %s is not parseable: %w", node, err)
	}

	return Rewrite(cfg, c.Name, c.APIEndpoint()), nil
}

// Rewrite renames the single-cluster config after name and points every
// cluster entry at server. k3s emits "default" for the cluster, user,
// and context; the renamed entries are keyed deterministically so a
// re-fetch lands on the same keys.
func Rewrite(cfg *clientcmdapi.Config, name, server string) *clientcmdapi.Config {
	out := clientcmdapi.NewConfig()
	userKey := "admin@" + name

	for _, cluster := range cfg.Clusters {
		cluster.Server = server
		out.Clusters[name] = cluster
	}
	for _, auth := range cfg.AuthInfos {
		out.AuthInfos[userKey] = auth
	}
	for _, ctx := range cfg.Contexts {
		ctx.Cluster = name
		ctx.AuthInfo = userKey
		out.Contexts[name] = ctx
	}
	out.CurrentContext = name

	return out
}

// Write saves cfg to path, creating parent directories as needed. The
// file is written owner-only since it embeds client credentials.
func Write(cfg *clientcmdapi.Config, path string) error {
	if err := clientcmd.WriteToFile(*cfg, path); err != nil {
		return fmt.Errorf("failed to write kubeconfig to %s: %w", path, err)
	}
	return nil
}

// MergeInto folds incoming into the kubeconfig file at path. A missing
// file is created outright; an existing one goes through Merge so prior
// entries for the same server are replaced, not duplicated.
func MergeInto(incoming *clientcmdapi.Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to inspect %s: %w", path, err)
		}
		return Write(incoming, path)
	}

	existing, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("existing kubeconfig at %s is not parseable: %w", path, err)
	}

	Merge(existing, incoming)
	return Write(existing, path)
}
