package upgrade

import (
	"fmt"
	"strings"

	"github.com/k3pilot/k3pilot/internal/config"
)

// Step is one unit of the rollout: a single control plane, or a batch
// of workers handled together.
type Step struct {
	Role  config.NodeKind
	Nodes []string
}

// Plan is the ordered rollout. It is generated once from the
// descriptor and consumed strictly in order; the orchestrator halts on
// a failed control-plane step instead of skipping it.
type Plan struct {
	Target string
	Steps  []Step
}

// BuildPlan partitions the fleet deterministically: every control
// plane individually in descriptor order, then the workers chunked
// into batches of batchSize in descriptor order. batchSize zero or
// negative falls back to the descriptor's setting.
func BuildPlan(c *config.Cluster, target string, batchSize int) Plan {
	if batchSize <= 0 {
		batchSize = c.Operations.UpgradeBatchSize
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	p := Plan{Target: target}
	for _, cp := range c.ControlPlanes {
		p.Steps = append(p.Steps, Step{Role: config.KindControlPlane, Nodes: []string{cp}})
	}
	for start := 0; start < len(c.Workers); start += batchSize {
		end := min(start+batchSize, len(c.Workers))
		p.Steps = append(p.Steps, Step{
			Role:  config.KindWorker,
			Nodes: append([]string(nil), c.Workers[start:end]...),
		})
	}
	return p
}

// Describe renders the plan for review, one line per step.
func (p Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "upgrade to %s in %d step(s)\n", p.Target, len(p.Steps))
	for i, st := range p.Steps {
		fmt.Fprintf(&b, "%3d. %-13s %s\n", i+1, st.Role, strings.Join(st.Nodes, ", "))
	}
	return b.String()
}
