package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// RunRenderer prints the progress and outcome of a run
type RunRenderer struct {
	out io.Writer
}

// NewRunRenderer creates a new run renderer
func NewRunRenderer(out io.Writer) *RunRenderer {
	return &RunRenderer{out: out}
}

// PrintBanner announces the plan about to run
func (r *RunRenderer) PrintBanner(ev *usecase.PlanEvent) {
	record := ev.Record
	counts := map[models.StepStatus]int{}
	for _, step := range ev.Plan.Steps {
		if sr, ok := record.Steps[step.Name]; ok {
			counts[sr.Status]++
		}
	}

	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%s %s %s %s %s\n",
		headerStyle.Sprint("🚀 Deploying"), nameStyle.Sprint(ev.Plan.Name),
		labelStyle.Sprint("to"), nameStyle.Sprint(record.Network),
		mutedStyle.Sprintf("(chain %d)", record.ChainID))
	fmt.Fprintf(r.out, "   %s %s\n", labelStyle.Sprint("Run:"), mutedStyle.Sprint(record.RunID))

	var parts []string
	for _, status := range []models.StepStatus{models.StepVerified, models.StepDeployed, models.StepFailed, models.StepPending} {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	fmt.Fprintf(r.out, "   %s %d (%s)\n\n", labelStyle.Sprint("Steps:"), len(ev.Plan.Steps), strings.Join(parts, ", "))
}

// PrintStep prints the line of a finished or failed step
func (r *RunRenderer) PrintStep(event usecase.ProgressEvent) {
	ev, ok := event.Metadata.(*usecase.StepEvent)
	if !ok {
		return
	}
	counter := mutedStyle.Sprintf("[%d/%d]", event.Current, event.Total)

	if ev.Err != nil {
		fmt.Fprintf(r.out, "%s %s %s %s\n", counter, failedStyle.Sprint("✗"), nameStyle.Sprint(ev.Step.Name), failedStyle.Sprint(ev.Err.Error()))
		return
	}

	address := ""
	if ev.Record != nil {
		address = ev.Record.Address
	}
	line := fmt.Sprintf("%s %s %-16s %-16s %s %s", counter, successStyle.Sprint("✓"),
		nameStyle.Sprint(ev.Step.Name), contractStyle.Sprint(ev.Step.Contract),
		addressStyle.Sprint(address), outcomeLabel(ev.Outcome))
	if ev.Outcome == models.OutcomeDeployed && ev.Record != nil && ev.Record.TxHash != "" {
		line += " " + mutedStyle.Sprint("tx "+shortHash(ev.Record.TxHash))
	}
	fmt.Fprintln(r.out, line)
}

// PrintInterrupted reports a run stopped between steps
func (r *RunRenderer) PrintInterrupted(event usecase.ProgressEvent) {
	fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Interrupted after %d of %d step(s), progress is saved", event.Current, event.Total)))
}

// RenderResult prints the final address manifest
func (r *RunRenderer) RenderResult(result *usecase.RunPlanResult) error {
	if result == nil || result.Result == nil {
		return fmt.Errorf("no run result to render")
	}
	res := result.Result

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, headerStyle.Sprint("Deployment Summary"))
	t := newTable(r.out, table.Row{"STEP", "CONTRACT", "ADDRESS", "OUTCOME"})
	for _, step := range res.Steps {
		t.AppendRow(table.Row{
			nameStyle.Sprint(step.Name),
			contractStyle.Sprint(step.Contract),
			addressStyle.Sprint(step.Address.Hex()),
			outcomeLabel(step.Outcome),
		})
	}
	t.Render()

	if result.Plan != nil {
		for _, step := range result.Plan.Steps {
			if pc := step.Postcondition; pc != nil {
				fmt.Fprintf(r.out, "  %s %s.%s = %s\n",
					labelStyle.Sprint("Expected"), step.Name, pc.Method, pc.Expected)
			}
		}
	}
	if result.ManifestPath != "" {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Manifest:"), result.ManifestPath)
	}

	fmt.Fprintln(r.out)
	deployed := res.Count(models.OutcomeDeployed)
	switch {
	case deployed == 0:
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Nothing to deploy, all %d step(s) already in place", len(res.Steps))))
	case result.Resumed:
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Resumed run completed, %d contract(s) deployed", deployed)))
	default:
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Run completed, %d contract(s) deployed", deployed)))
	}
	return nil
}

// RenderFailure prints the per-step state of a run that stopped
func (r *RunRenderer) RenderFailure(result *usecase.RunPlanResult) {
	if result == nil || result.Record == nil {
		return
	}
	fmt.Fprintln(r.out)
	NewStatusRenderer(r.out).RenderRecord(&usecase.StatusEntry{Record: result.Record, Plan: result.Plan})
}
