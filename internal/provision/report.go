package provision

import (
	"fmt"
	"time"
)

// Status classifies a single step outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Verdict classifies a whole workflow run.
type Verdict string

const (
	// VerdictComplete means every step succeeded, possibly with
	// warnings.
	VerdictComplete Verdict = "complete"

	// VerdictPartial means the workflow ran to the end but some steps
	// failed, as in a backup fan-out with one unreachable node.
	VerdictPartial Verdict = "partial-failure"

	// VerdictAborted means the workflow stopped before reaching the
	// end, as in a control-plane upgrade failure.
	VerdictAborted Verdict = "aborted"
)

// Outcome records one step of a workflow against one node. Node is
// empty for cluster-level steps.
type Outcome struct {
	Node   string
	Step   string
	Status Status
	Detail string
	Err    error
}

// Report collects the outcomes of a workflow run.
type Report struct {
	Workflow string
	Cluster  string
	Started  time.Time
	Finished time.Time
	Verdict  Verdict
	Outcomes []Outcome
}

// NewReport starts a report for the given workflow and cluster.
func NewReport(workflow, cluster string) *Report {
	return &Report{
		Workflow: workflow,
		Cluster:  cluster,
		Started:  time.Now(),
	}
}

// OK records a successful step.
func (r *Report) OK(node, step, detail string) {
	r.Outcomes = append(r.Outcomes, Outcome{Node: node, Step: step, Status: StatusOK, Detail: detail})
}

// Warn records a step that succeeded with a warning.
func (r *Report) Warn(node, step, detail string) {
	r.Outcomes = append(r.Outcomes, Outcome{Node: node, Step: step, Status: StatusWarning, Detail: detail})
}

// Fail records a failed step.
func (r *Report) Fail(node, step string, err error) {
	r.Outcomes = append(r.Outcomes, Outcome{Node: node, Step: step, Status: StatusFailed, Detail: err.Error(), Err: err})
}

// Skip records a step that was not attempted.
func (r *Report) Skip(node, step, detail string) {
	r.Outcomes = append(r.Outcomes, Outcome{Node: node, Step: step, Status: StatusSkipped, Detail: detail})
}

// Failures returns the failed outcomes.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Warnings returns the warning outcomes.
func (r *Report) Warnings() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusWarning {
			out = append(out, o)
		}
	}
	return out
}

// HasFailures reports whether any step failed.
func (r *Report) HasFailures() bool {
	return len(r.Failures()) > 0
}

// Finish stamps the end time and sets the verdict.
func (r *Report) Finish(v Verdict) *Report {
	r.Finished = time.Now()
	r.Verdict = v
	return r
}

// Resolve stamps the end time and derives the verdict from the
// outcomes. Workflows that hard-stop mid-run call Finish with
// VerdictAborted instead.
func (r *Report) Resolve() *Report {
	if r.HasFailures() {
		return r.Finish(VerdictPartial)
	}
	return r.Finish(VerdictComplete)
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Err returns nil for a complete run and an error summarizing the
// verdict otherwise.
func (r *Report) Err() error {
	switch r.Verdict {
	case VerdictComplete:
		return nil
	case VerdictPartial:
		return fmt.Errorf("%s finished with %d failed step(s)", r.Workflow, len(r.Failures()))
	default:
		return fmt.Errorf("%s aborted with %d failed step(s)", r.Workflow, len(r.Failures()))
	}
}
