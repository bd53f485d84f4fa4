package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// StatusRenderer prints persisted records as per-step tables
type StatusRenderer struct {
	out io.Writer
}

// NewStatusRenderer creates a new status renderer
func NewStatusRenderer(out io.Writer) *StatusRenderer {
	return &StatusRenderer{out: out}
}

// Render prints every entry
func (r *StatusRenderer) Render(entries []*usecase.StatusEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No deployment records found")
		return nil
	}
	for i, entry := range entries {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		r.RenderRecord(entry)
	}
	return nil
}

// RenderRecord prints one record with its steps
func (r *StatusRenderer) RenderRecord(entry *usecase.StatusEntry) {
	record := entry.Record
	state := pendingStyle.Sprint("incomplete")
	if record.Completed {
		state = successStyle.Sprint("completed")
	} else if len(record.Failed()) > 0 {
		state = failedStyle.Sprint("failed")
	}

	fmt.Fprintf(r.out, "%s %s %s %s %s\n",
		nameStyle.Sprint(record.Plan), labelStyle.Sprint("on"), nameStyle.Sprint(record.Network),
		mutedStyle.Sprintf("(chain %d)", record.ChainID), state)
	fmt.Fprintf(r.out, "%s %s  %s %s\n",
		labelStyle.Sprint("Run:"), mutedStyle.Sprint(record.RunID),
		labelStyle.Sprint("Updated:"), mutedStyle.Sprint(record.UpdatedAt.Local().Format("2006-01-02 15:04:05")))

	t := newTable(r.out, table.Row{"", "STEP", "CONTRACT", "STATUS", "ADDRESS", "TX"})
	var failures []*models.StepRecord
	for _, sr := range entry.OrderedSteps() {
		address := sr.Address
		if address == "" {
			address = mutedStyle.Sprint("-")
		}
		t.AppendRow(table.Row{
			statusIcon(sr.Status),
			nameStyle.Sprint(sr.Name),
			contractStyle.Sprint(sr.Contract),
			statusLabel(sr.Status),
			addressStyle.Sprint(address),
			mutedStyle.Sprint(shortHash(sr.TxHash)),
		})
		if sr.Status == models.StepFailed {
			failures = append(failures, sr)
		}
	}
	t.Render()

	for _, sr := range failures {
		fmt.Fprintf(r.out, "  %s %s (%s): %s\n",
			failedStyle.Sprint("✗"), sr.Name, string(sr.FailureKind), sr.Error)
	}
}
