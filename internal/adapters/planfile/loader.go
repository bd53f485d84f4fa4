package planfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
	"gopkg.in/yaml.v3"
)

var (
	stepRefPattern = regexp.MustCompile(`^\$\{steps\.([A-Za-z0-9_\-]+)\}$`)
	envRefPattern  = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)\}`)
)

const senderRef = "${sender}"

// PlanFile is the YAML representation of a deployment plan
type PlanFile struct {
	Name  string     `yaml:"name"`
	Steps []StepFile `yaml:"steps"`
}

// StepFile is one entry of the steps list
type StepFile struct {
	Name          string                `yaml:"name"`
	Contract      string                `yaml:"contract"`
	Args          []any                 `yaml:"args"`
	DependsOn     []string              `yaml:"depends_on"`
	Address       string                `yaml:"address"`
	Postcondition *models.Postcondition `yaml:"postcondition"`
}

// Loader reads plan files relative to the project root
type Loader struct {
	projectRoot string
}

// NewLoader creates a new plan file loader
func NewLoader(cfg *config.RuntimeConfig) *Loader {
	return &Loader{projectRoot: cfg.ProjectRoot}
}

// LoadPlan parses a plan file and turns placeholders into argument functions
func (l *Loader) LoadPlan(ctx context.Context, path string, vars usecase.PlanVars) (*models.Plan, error) {
	if !filepath.IsAbs(path) && l.projectRoot != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = filepath.Join(l.projectRoot, path)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var file PlanFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", domain.ErrInvalidPlan, filepath.Base(path), err)
	}
	if file.Name == "" {
		base := filepath.Base(path)
		file.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return Build(&file, vars)
}

// Build converts a decoded plan file into a plan
func Build(file *PlanFile, vars usecase.PlanVars) (*models.Plan, error) {
	stepNames := lo.Map(file.Steps, func(s StepFile, _ int) string { return s.Name })

	plan := &models.Plan{Name: file.Name}
	for _, sf := range file.Steps {
		args := expandEnv(sf.Args)

		refs := collectRefs(args)
		for _, ref := range refs {
			if !lo.Contains(stepNames, ref) {
				return nil, &domain.UnresolvedDependencyError{
					Step:      sf.Name,
					Reference: ref,
					Reason:    unknownStepReason(ref, stepNames),
				}
			}
		}

		step := &models.Step{
			Name:      sf.Name,
			Contract:  sf.Contract,
			RawArgs:   sf.Args,
			DependsOn: lo.Uniq(append(append([]string{}, sf.DependsOn...), refs...)),
			Address:   strings.TrimSpace(expandEnvString(sf.Address)),
		}
		if len(args) > 0 {
			step.Args = argsFunc(args, vars.Sender)
		}
		if pc := sf.Postcondition; pc != nil {
			if pc.Method == "" {
				return nil, fmt.Errorf("%w: step %q postcondition has no call", domain.ErrInvalidPlan, sf.Name)
			}
			pcArgs := expandEnv(pc.Args)
			for _, ref := range collectRefs(pcArgs) {
				if !lo.Contains(stepNames, ref) {
					return nil, &domain.UnresolvedDependencyError{
						Step:      sf.Name,
						Reference: ref,
						Reason:    unknownStepReason(ref, stepNames),
					}
				}
			}
			step.Postcondition = &models.Postcondition{
				Method:   pc.Method,
				Args:     pc.Args,
				Expected: expandEnvString(pc.Expected),
			}
			if len(pcArgs) > 0 {
				step.Postcondition.Resolve = argsFunc(pcArgs, vars.Sender)
			}
		}
		plan.Steps = append(plan.Steps, step)
	}

	return plan, nil
}

// argsFunc resolves step and sender placeholders when the step runs
func argsFunc(template []any, sender common.Address) models.ArgsFunc {
	return func(book models.AddressBook) ([]any, error) {
		return resolveValues(template, book, sender)
	}
}

func resolveValues(values []any, book models.AddressBook, sender common.Address) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		resolved, err := resolveValue(v, book, sender)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func resolveValue(v any, book models.AddressBook, sender common.Address) (any, error) {
	switch val := v.(type) {
	case string:
		if m := stepRefPattern.FindStringSubmatch(val); m != nil {
			return book.Address(m[1])
		}
		if val == senderRef {
			if sender == (common.Address{}) {
				return nil, &domain.UnresolvedDependencyError{Reference: "sender", Reason: "no sender key configured for this network"}
			}
			return sender, nil
		}
		return val, nil
	case []any:
		return resolveValues(val, book, sender)
	default:
		return v, nil
	}
}

// collectRefs lists the step names referenced by ${steps.X} placeholders
func collectRefs(values []any) []string {
	var refs []string
	for _, v := range values {
		switch val := v.(type) {
		case string:
			if m := stepRefPattern.FindStringSubmatch(val); m != nil {
				refs = append(refs, m[1])
			}
		case []any:
			refs = append(refs, collectRefs(val)...)
		}
	}
	return lo.Uniq(refs)
}

func expandEnv(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch val := v.(type) {
		case string:
			out[i] = expandEnvString(val)
		case []any:
			out[i] = expandEnv(val)
		default:
			out[i] = v
		}
	}
	return out
}

func expandEnvString(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envRefPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

func unknownStepReason(ref string, stepNames []string) string {
	matches := fuzzy.Find(ref, stepNames)
	if len(matches) == 0 {
		return "no such step in the plan"
	}
	suggestions := lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return fmt.Sprintf("no such step in the plan (did you mean %s?)", strings.Join(suggestions, ", "))
}

var _ usecase.PlanLoader = (*Loader)(nil)
