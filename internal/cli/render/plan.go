package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// PlanRenderer prints a plan preview
type PlanRenderer struct {
	out io.Writer
}

// NewPlanRenderer creates a new plan renderer
func NewPlanRenderer(out io.Writer) *PlanRenderer {
	return &PlanRenderer{out: out}
}

// Render prints the steps of the plan with their recorded status
func (r *PlanRenderer) Render(preview *usecase.PlanPreview) error {
	fmt.Fprintf(r.out, "%s %s %s %s\n",
		headerStyle.Sprint("Plan"), nameStyle.Sprint(preview.Plan.Name),
		labelStyle.Sprint("on"), nameStyle.Sprint(preview.Network))
	sender := preview.Sender
	if sender == "" {
		sender = mutedStyle.Sprint("(no sender key configured)")
	}
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Sprint("Sender:"), sender)
	if preview.Record != nil {
		fmt.Fprintf(r.out, "%s %s\n", labelStyle.Sprint("Run:"), mutedStyle.Sprint(preview.Record.RunID))
	}
	fmt.Fprintln(r.out)

	t := newTable(r.out, table.Row{"", "#", "STEP", "CONTRACT", "ARGS", "STATUS", "ADDRESS"})
	for i, ps := range preview.Steps {
		address := ps.Address
		if address == "" {
			address = mutedStyle.Sprint("-")
		}
		contract := ps.Step.Contract
		if contract == "" {
			contract = mutedStyle.Sprint("(existing)")
		}
		t.AppendRow(table.Row{
			statusIcon(ps.Status),
			i + 1,
			nameStyle.Sprint(ps.Step.Name),
			contractStyle.Sprint(contract),
			formatRawArgs(ps.Step),
			statusLabel(ps.Status),
			addressStyle.Sprint(address),
		})
	}
	t.Render()

	var checks []string
	for _, ps := range preview.Steps {
		if pc := ps.Step.Postcondition; pc != nil {
			checks = append(checks, fmt.Sprintf("  %s %s.%s() == %s",
				labelStyle.Sprint("check"), ps.Step.Name, pc.Method, pc.Expected))
		}
	}
	if len(checks) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, strings.Join(checks, "\n"))
	}
	return nil
}

func formatRawArgs(step *models.Step) string {
	if step.Address != "" {
		return mutedStyle.Sprint("adopts " + step.Address)
	}
	if len(step.RawArgs) == 0 {
		return mutedStyle.Sprint("-")
	}
	parts := make([]string, len(step.RawArgs))
	for i, arg := range step.RawArgs {
		parts[i] = fmt.Sprint(arg)
	}
	return strings.Join(parts, ", ")
}

var _ Renderer[*usecase.PlanPreview] = (*PlanRenderer)(nil)
