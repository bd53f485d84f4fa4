package progress

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// SpinnerProgressReporter shows a spinner while a step waits on the chain
type SpinnerProgressReporter struct {
	spinner *spinner.Spinner
	out     io.Writer
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
// writing to stderr
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return newSpinnerProgressReporter(os.Stderr)
}

func newSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false
	return &SpinnerProgressReporter{spinner: s, out: out}
}

// OnProgress starts the spinner for events that wait on the chain and stops
// it for everything else
func (r *SpinnerProgressReporter) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	if !event.Spinner {
		r.Stop()
		return
	}
	if !r.spinner.Active() {
		r.spinner.Start()
	}
	r.spinner.Suffix = " " + spinnerMessage(event)
}

// Stop stops the spinner if it is running
func (r *SpinnerProgressReporter) Stop() {
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.pause(func() { color.New(color.FgCyan).Fprintln(r.out, message) })
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.pause(func() { color.New(color.FgRed).Fprintln(r.out, message) })
}

// pause stops the spinner around fn so output is not interleaved
func (r *SpinnerProgressReporter) pause(fn func()) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	fn()
	if wasActive {
		r.spinner.Start()
	}
}

func spinnerMessage(event usecase.ProgressEvent) string {
	switch event.Stage {
	case usecase.StageStepDeploying:
		return "Deploying " + event.Message + "..."
	case usecase.StageStepVerifying:
		return "Checking postcondition of " + event.Message + "..."
	default:
		return event.Message
	}
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
