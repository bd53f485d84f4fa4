package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/catapult/internal/domain"
)

// AddressBook maps step names to the addresses resolved so far in a run
type AddressBook map[string]common.Address

// Address returns the address of a resolved step. Asking for a step that has
// no address yet is an UnresolvedDependencyError.
func (b AddressBook) Address(step string) (common.Address, error) {
	addr, ok := b[step]
	if !ok {
		return common.Address{}, &domain.UnresolvedDependencyError{
			Reference: step,
			Reason:    "no address resolved for this step",
		}
	}
	return addr, nil
}

// ArgsFunc derives constructor arguments from previously resolved addresses
type ArgsFunc func(book AddressBook) ([]any, error)

// StaticArgs returns an ArgsFunc that ignores the address book
func StaticArgs(args ...any) ArgsFunc {
	return func(AddressBook) ([]any, error) {
		return args, nil
	}
}

// Postcondition is a read-only call whose formatted result must equal Expected
type Postcondition struct {
	Method   string   `json:"method" yaml:"call"`
	Args     []any    `json:"args,omitempty" yaml:"args,omitempty"` // As written, placeholders included
	Resolve  ArgsFunc `json:"-" yaml:"-"`                           // nil means Args are passed as they are
	Expected string   `json:"expected" yaml:"expect"`
}

// ResolveArgs produces the call arguments once the address book is known
func (p *Postcondition) ResolveArgs(book AddressBook) ([]any, error) {
	if p.Resolve == nil {
		return p.Args, nil
	}
	return p.Resolve(book)
}

// Matches reports whether a formatted call result satisfies the postcondition
func (p *Postcondition) Matches(actual string) bool {
	expected := strings.TrimSpace(p.Expected)
	actual = strings.TrimSpace(actual)
	if strings.HasPrefix(expected, "0x") || strings.HasPrefix(expected, "0X") {
		return strings.EqualFold(expected, actual)
	}
	return expected == actual
}

// Step is one unit of deployment work producing exactly one contract address
type Step struct {
	Name          string
	Contract      string         // Blueprint name
	Args          ArgsFunc       // nil means no constructor arguments
	RawArgs       []any          // Arguments as written in the plan file, for display
	DependsOn     []string       // Steps read by Args, checked statically
	Postcondition *Postcondition // Optional
	Address       string         // Pre-supplied address, adopts an existing deployment
}

// ResolveArgs runs the args function against the address book
func (s *Step) ResolveArgs(book AddressBook) ([]any, error) {
	if s.Args == nil {
		return nil, nil
	}
	args, err := s.Args(book)
	if err != nil {
		var unresolved *domain.UnresolvedDependencyError
		if errors.As(err, &unresolved) && unresolved.Step == "" {
			unresolved.Step = s.Name
		}
		return nil, err
	}
	return args, nil
}

// Plan is an ordered sequence of deployment steps
type Plan struct {
	Name  string
	Steps []*Step
}

// Validate checks step names and that every dependency points at an earlier step
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: plan name is required", domain.ErrInvalidPlan)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: at least one step is required", domain.ErrInvalidPlan)
	}

	position := make(map[string]int, len(p.Steps))
	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("%w: step %d has no name", domain.ErrInvalidPlan, i+1)
		}
		if step.Contract == "" && step.Address == "" {
			return fmt.Errorf("%w: step %q must name a contract", domain.ErrInvalidPlan, step.Name)
		}
		if step.Address != "" && !common.IsHexAddress(step.Address) {
			return fmt.Errorf("%w: step %q has an invalid address %q", domain.ErrInvalidPlan, step.Name, step.Address)
		}
		if step.Contract == "" && step.Postcondition != nil {
			return fmt.Errorf("%w: step %q has a postcondition but no contract to read its ABI from", domain.ErrInvalidPlan, step.Name)
		}
		if _, dup := position[step.Name]; dup {
			return fmt.Errorf("%w: duplicate step name %q", domain.ErrInvalidPlan, step.Name)
		}
		position[step.Name] = i
	}

	for i, step := range p.Steps {
		for _, dep := range step.DependsOn {
			at, exists := position[dep]
			switch {
			case !exists:
				return &domain.UnresolvedDependencyError{Step: step.Name, Reference: dep, Reason: "no such step in the plan"}
			case at == i:
				return &domain.UnresolvedDependencyError{Step: step.Name, Reference: dep, Reason: "a step cannot depend on itself"}
			case at > i:
				return &domain.UnresolvedDependencyError{Step: step.Name, Reference: dep, Reason: "declared later in the plan"}
			}
		}
	}

	return nil
}

// StepNames returns the step names in plan order
func (p *Plan) StepNames() []string {
	names := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		names[i] = step.Name
	}
	return names
}
