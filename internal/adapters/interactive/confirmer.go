package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// ConfirmerAdapter asks yes/no questions on the terminal
type ConfirmerAdapter struct {
	config *config.RuntimeConfig
	// prompt is swapped in tests
	prompt func(label string) (string, error)
}

// NewConfirmerAdapter creates a new confirmer adapter
func NewConfirmerAdapter(cfg *config.RuntimeConfig) *ConfirmerAdapter {
	return &ConfirmerAdapter{config: cfg, prompt: runPrompt}
}

// Confirm returns true when the operator answers yes
func (c *ConfirmerAdapter) Confirm(_ context.Context, prompt string) (bool, error) {
	if c.config.AssumeYes {
		return true, nil
	}
	if c.config.NonInteractive {
		return false, fmt.Errorf("confirmation required in non-interactive mode, pass --yes to proceed")
	}

	label := color.New(color.FgYellow, color.Bold).Sprint(prompt)
	_, err := c.prompt(label)
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return true, nil
}

func runPrompt(label string) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	return p.Run()
}

// Ensure the adapter implements the interface
var _ usecase.Confirmer = (*ConfirmerAdapter)(nil)
