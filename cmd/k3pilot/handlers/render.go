package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/k3pilot/k3pilot/internal/gateway"
	"github.com/k3pilot/k3pilot/internal/k8s"
	"github.com/k3pilot/k3pilot/internal/provision"
)

var (
	reportColorGreen  = lipgloss.Color("#22c55e")
	reportColorRed    = lipgloss.Color("#ef4444")
	reportColorYellow = lipgloss.Color("#eab308")
	reportColorDim    = lipgloss.Color("#6b7280")
	reportColorWhite  = lipgloss.Color("#f9fafb")
)

var (
	reportTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(reportColorWhite)

	reportDimStyle = lipgloss.NewStyle().
			Foreground(reportColorDim)

	reportGreenStyle = lipgloss.NewStyle().
				Foreground(reportColorGreen)

	reportYellowStyle = lipgloss.NewStyle().
				Foreground(reportColorYellow)

	reportRedStyle = lipgloss.NewStyle().
			Foreground(reportColorRed)
)

// renderReport produces a lipgloss-styled run report string.
func renderReport(rep *provision.Report) string {
	if rep == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(reportTitleStyle.Render(fmt.Sprintf("  k3pilot %s: %s", rep.Workflow, rep.Cluster)))
	b.WriteString("\n")
	b.WriteString(reportDimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	for _, o := range rep.Outcomes {
		b.WriteString(renderOutcome(o))
	}

	b.WriteString("\n")
	b.WriteString(renderVerdict(rep))
	if hint := renderHint(rep); hint != "" {
		b.WriteString("  " + reportDimStyle.Render(hint) + "\n")
	}
	b.WriteString("\n")

	return b.String()
}

// renderHint returns a next-step suggestion for aborted runs, derived
// from the first failed step's error.
func renderHint(rep *provision.Report) string {
	if rep.Verdict != provision.VerdictAborted {
		return ""
	}
	fails := rep.Failures()
	if len(fails) == 0 {
		return ""
	}
	return hintFor(fails[0].Err)
}

// hintFor maps a hard-stop cause to operator advice. It returns ""
// when no specific advice applies.
func hintFor(err error) string {
	var gate *provision.HealthGateError
	if errors.As(err, &gate) {
		if len(gate.NotReady) > 0 {
			return fmt.Sprintf("Recover the not-ready node(s) %s before rerunning.", strings.Join(gate.NotReady, ", "))
		}
		return "Recover the unhealthy pods before rerunning."
	}
	var wt *k8s.WaitTimeoutError
	if errors.As(err, &wt) {
		return fmt.Sprintf("The cluster did not settle waiting for %s. Inspect it with kubectl before retrying.", wt.What)
	}
	var conn *gateway.ConnectError
	if errors.As(err, &conn) {
		return fmt.Sprintf("Verify %s is reachable at %s and the configured key is accepted.", conn.Node, conn.Addr)
	}
	var cmd *gateway.CommandError
	if errors.As(err, &cmd) {
		return fmt.Sprintf("The failing command's last output lines are shown above. Inspect %s directly for the rest.", cmd.Node)
	}
	return ""
}

// renderOutcome renders one step line with its status mark.
func renderOutcome(o provision.Outcome) string {
	subject := o.Step
	if o.Node != "" {
		subject = o.Node + " " + o.Step
	}

	line := fmt.Sprintf("%-34s %s", subject, o.Detail)
	if o.Status == provision.StatusSkipped {
		line = reportDimStyle.Render(line)
	}
	return fmt.Sprintf("  %s %s\n", statusMark(o.Status), line)
}

// statusMark returns the styled one-character marker for a status.
func statusMark(s provision.Status) string {
	switch s {
	case provision.StatusOK:
		return reportGreenStyle.Render("✓")
	case provision.StatusWarning:
		return reportYellowStyle.Render("!")
	case provision.StatusFailed:
		return reportRedStyle.Render("✗")
	default:
		return reportDimStyle.Render("·")
	}
}

// renderVerdict renders the closing line for the run.
func renderVerdict(rep *provision.Report) string {
	took := rep.Duration().Round(time.Second)

	switch rep.Verdict {
	case provision.VerdictComplete:
		return "  " + reportGreenStyle.Render(fmt.Sprintf("%s complete in %s", rep.Workflow, took)) + "\n"
	case provision.VerdictPartial:
		return "  " + reportYellowStyle.Render(fmt.Sprintf("%s finished in %s with %d failed step(s)",
			rep.Workflow, took, len(rep.Failures()))) + "\n"
	default:
		return "  " + reportRedStyle.Render(fmt.Sprintf("%s aborted after %s", rep.Workflow, took)) + "\n"
	}
}
