package planfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

var (
	sender  = common.HexToAddress("0x5e4d000000000000000000000000000000000001")
	factory = common.HexToAddress("0x3333333333333333333333333333333333333333")
	wrapper = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_Finswap(t *testing.T) {
	t.Setenv("CATAPULT_TEST_WFTC_ADDRESS", "")
	loader := NewLoader(&config.RuntimeConfig{})

	plan, err := loader.LoadPlan(context.Background(), "testdata/finswap.yaml", usecase.PlanVars{Sender: sender})
	require.NoError(t, err)
	require.NoError(t, plan.Validate())

	assert.Equal(t, "finswap", plan.Name)
	assert.Equal(t, []string{"TokenWrapper", "Multicall", "Factory", "Router"}, plan.StepNames())

	wrapperStep := plan.Steps[0]
	assert.Empty(t, wrapperStep.Address, "unset env leaves the step to be deployed")
	assert.Nil(t, wrapperStep.Args)

	factoryStep := plan.Steps[2]
	args, err := factoryStep.ResolveArgs(models.AddressBook{})
	require.NoError(t, err)
	assert.Equal(t, []any{sender}, args)
	require.NotNil(t, factoryStep.Postcondition)
	assert.Equal(t, "pairCodeHash", factoryStep.Postcondition.Method)
	assert.Equal(t, "0xf301e7bb3b6c11c1d9ec3155aa16db5dfafdea975903e184ad76a07835715010", factoryStep.Postcondition.Expected)

	router := plan.Steps[3]
	assert.ElementsMatch(t, []string{"Factory", "TokenWrapper"}, router.DependsOn)
	assert.Equal(t, []any{"${steps.Factory}", "${steps.TokenWrapper}"}, router.RawArgs)

	args, err = router.ResolveArgs(models.AddressBook{"Factory": factory, "TokenWrapper": wrapper})
	require.NoError(t, err)
	assert.Equal(t, []any{factory, wrapper}, args)

	_, err = router.ResolveArgs(models.AddressBook{"Factory": factory})
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
}

func TestLoader_PreSuppliedAddressFromEnv(t *testing.T) {
	t.Setenv("CATAPULT_TEST_WFTC_ADDRESS", wrapper.Hex())

	plan, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), "testdata/finswap.yaml", usecase.PlanVars{Sender: sender})
	require.NoError(t, err)
	assert.Equal(t, wrapper.Hex(), plan.Steps[0].Address)
}

func TestLoader_DefaultsNameToFileName(t *testing.T) {
	path := writePlan(t, `
steps:
  - name: Token
    contract: ERC20
    args: ["Token", "TKN", 18, [1, 2]]
`)
	plan, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{})
	require.NoError(t, err)
	assert.Equal(t, "plan", plan.Name)

	args, err := plan.Steps[0].ResolveArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"Token", "TKN", 18, []any{1, 2}}, args)
}

func TestLoader_RelativeToProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "deploy.yaml"), []byte("name: x\nsteps:\n  - name: A\n    contract: A\n"), 0644))

	plan, err := NewLoader(&config.RuntimeConfig{ProjectRoot: root}).LoadPlan(context.Background(), "deploy.yaml", usecase.PlanVars{})
	require.NoError(t, err)
	assert.Equal(t, "x", plan.Name)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		msg     string
	}{
		{
			name:    "invalid yaml",
			content: "steps: [",
			wantErr: domain.ErrInvalidPlan,
		},
		{
			name: "unknown step with suggestion",
			content: `
name: p
steps:
  - name: Factory
    contract: F
  - name: Router
    contract: R
    args: ["${steps.Factry}"]
`,
			wantErr: domain.ErrUnresolvedDependency,
			msg:     "did you mean Factory?",
		},
		{
			name: "postcondition without call",
			content: `
name: p
steps:
  - name: A
    contract: A
    postcondition:
      expect: "1"
`,
			wantErr: domain.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), writePlan(t, tt.content), usecase.PlanVars{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestLoader_ForwardReferenceFailsValidation(t *testing.T) {
	path := writePlan(t, `
name: p
steps:
  - name: Router
    contract: R
    args: ["${steps.Factory}"]
  - name: Factory
    contract: F
`)
	plan, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{})
	require.NoError(t, err)

	err = plan.Validate()
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "declared later")
}

func TestLoader_MissingSender(t *testing.T) {
	path := writePlan(t, `
name: p
steps:
  - name: Factory
    contract: F
    args: ["${sender}"]
`)
	plan, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{})
	require.NoError(t, err)

	_, err = plan.Steps[0].ResolveArgs(models.AddressBook{})
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "sender")
}

func TestLoader_PostconditionArgsResolveWhenChecked(t *testing.T) {
	path := writePlan(t, `
name: p
steps:
  - name: TokenWrapper
    contract: WFTC
  - name: Factory
    contract: F
    postcondition:
      call: allowance
      args: ["${sender}", "${steps.TokenWrapper}"]
      expect: "0"
`)
	// Previewing a plan needs no sender key
	plan, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{})
	require.NoError(t, err)

	pc := plan.Steps[1].Postcondition
	require.NotNil(t, pc)
	assert.Equal(t, []any{"${sender}", "${steps.TokenWrapper}"}, pc.Args)

	_, err = pc.ResolveArgs(models.AddressBook{"TokenWrapper": wrapper})
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "sender")

	plan, err = NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{Sender: sender})
	require.NoError(t, err)
	args, err := plan.Steps[1].Postcondition.ResolveArgs(models.AddressBook{"TokenWrapper": wrapper})
	require.NoError(t, err)
	assert.Equal(t, []any{sender, wrapper}, args)
}

func TestLoader_PostconditionUnknownStep(t *testing.T) {
	path := writePlan(t, `
name: p
steps:
  - name: Factory
    contract: F
    postcondition:
      call: balanceOf
      args: ["${steps.Fatcory}"]
      expect: "0"
`)
	_, err := NewLoader(&config.RuntimeConfig{}).LoadPlan(context.Background(), path, usecase.PlanVars{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnresolvedDependency)
}
