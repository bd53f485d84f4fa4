package render

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	headerStyle   = color.New(color.Bold, color.FgHiWhite)
	labelStyle    = color.New(color.FgHiBlack)
	nameStyle     = color.New(color.FgCyan, color.Bold)
	contractStyle = color.New(color.FgWhite)
	addressStyle  = color.New(color.FgWhite)
	mutedStyle    = color.New(color.Faint)
	successStyle  = color.New(color.FgGreen)
	pendingStyle  = color.New(color.FgYellow)
	failedStyle   = color.New(color.FgRed)
	infoStyle     = color.New(color.FgBlue)
)

var titleCase = cases.Title(language.English)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	if len(message) > 0 {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	return color.New(color.FgRed).Sprintf("❌ %s", message)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

func statusIcon(status models.StepStatus) string {
	switch status {
	case models.StepVerified:
		return successStyle.Sprint("✓")
	case models.StepDeployed:
		return infoStyle.Sprint("●")
	case models.StepFailed:
		return failedStyle.Sprint("✗")
	default:
		return pendingStyle.Sprint("○")
	}
}

func statusLabel(status models.StepStatus) string {
	label := titleCase.String(string(status))
	switch status {
	case models.StepVerified:
		return successStyle.Sprint(label)
	case models.StepDeployed:
		return infoStyle.Sprint(label)
	case models.StepFailed:
		return failedStyle.Sprint(label)
	default:
		return pendingStyle.Sprint(label)
	}
}

func outcomeLabel(outcome models.StepOutcome) string {
	label := titleCase.String(string(outcome))
	switch outcome {
	case models.OutcomeDeployed:
		return successStyle.Sprint(label)
	case models.OutcomeAdopted:
		return infoStyle.Sprint(label)
	default:
		return mutedStyle.Sprint(label)
	}
}

// shortHash abbreviates a transaction hash for tables
func shortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:8] + "…" + hash[len(hash)-4:]
}

// newTable returns a borderless table writer in the style used across commands
func newTable(out io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateRows = false
	t.Style().Format.Header = text.FormatDefault
	t.Style().Box = table.BoxStyle{
		PaddingLeft:  "  ",
		PaddingRight: " ",
	}
	if header != nil {
		styled := make(table.Row, len(header))
		for i, h := range header {
			styled[i] = labelStyle.Sprint(h)
		}
		t.AppendHeader(styled)
	}
	return t
}
