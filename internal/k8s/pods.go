package k8s

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Pod is one row of `kubectl get pods -A -o wide`.
type Pod struct {
	Namespace string
	Name      string
	Ready     string
	Status    string
	Restarts  string
	Node      string
}

var (
	columnGap    = regexp.MustCompile(`\s{2,}`)
	restartsNote = regexp.MustCompile(`\([^)]*\)`)
)

// Pods lists every pod in the cluster.
func (c *Client) Pods(ctx context.Context) ([]Pod, error) {
	out, err := c.kubectl(ctx, "get pods -A -o wide --no-headers")
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return ParsePods(out), nil
}

// ParsePods parses the wide all-namespaces pod listing. Columns are
// separated on runs of two or more spaces because the RESTARTS column
// can contain a single-spaced annotation like "3 (5m ago)".
func ParsePods(output string) []Pod {
	var pods []Pod
	for _, rec := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := columnGap.Split(rec, -1)
		if len(fields) < 9 {
			continue
		}
		pods = append(pods, Pod{
			Namespace: fields[0],
			Name:      fields[1],
			Ready:     fields[2],
			Status:    fields[3],
			Restarts:  strings.TrimSpace(restartsNote.ReplaceAllString(fields[4], "")),
			Node:      fields[7],
		})
	}
	return pods
}

// IsHealthy reports whether the pod is fully ready or ran to
// completion.
func (p Pod) IsHealthy() bool {
	switch p.Status {
	case "Succeeded", "Completed":
		return true
	case "Running":
		parts := strings.SplitN(p.Ready, "/", 2)
		return len(parts) == 2 && parts[0] == parts[1]
	default:
		return false
	}
}

// UnhealthyPods filters the listing down to pods needing attention.
func UnhealthyPods(pods []Pod) []Pod {
	var bad []Pod
	for _, p := range pods {
		if !p.IsHealthy() {
			bad = append(bad, p)
		}
	}
	return bad
}
