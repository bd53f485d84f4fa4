package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// StepOutcome tells what a run did with a step
type StepOutcome string

const (
	OutcomeDeployed   StepOutcome = "deployed"   // A transaction created the contract in this run
	OutcomeAdopted    StepOutcome = "adopted"    // Pre-supplied or recovered from a mined transaction
	OutcomeReused     StepOutcome = "reused"     // Already verified by an earlier run
	OutcomeReverified StepOutcome = "reverified" // Deployed earlier, postcondition checked in this run
)

// ResolvedStep is one entry of the final address manifest
type ResolvedStep struct {
	Name     string         `json:"name"`
	Contract string         `json:"contract"`
	Address  common.Address `json:"address"`
	TxHash   string         `json:"txHash,omitempty"`
	Outcome  StepOutcome    `json:"outcome"`
}

// DeploymentResult is the address manifest returned by a successful run
type DeploymentResult struct {
	Plan    string          `json:"plan"`
	Network string          `json:"network"`
	ChainID uint64          `json:"chainId"`
	RunID   string          `json:"runId"`
	Steps   []*ResolvedStep `json:"steps"`
}

// Addresses returns the manifest as a step name to address map
func (r *DeploymentResult) Addresses() map[string]common.Address {
	out := make(map[string]common.Address, len(r.Steps))
	for _, step := range r.Steps {
		out[step.Name] = step.Address
	}
	return out
}

// Count returns how many steps ended with the given outcome
func (r *DeploymentResult) Count(outcome StepOutcome) int {
	n := 0
	for _, step := range r.Steps {
		if step.Outcome == outcome {
			n++
		}
	}
	return n
}
