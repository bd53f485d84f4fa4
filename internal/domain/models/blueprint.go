package models

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Blueprint is a compiled contract ready to be instantiated on chain
type Blueprint struct {
	Name     string
	ABI      *abi.ABI
	Bytecode []byte
	Source   string // Artifact path the blueprint was read from
}

// DeployReceipt describes a confirmed (or submitted) deployment transaction
type DeployReceipt struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
}

// PendingDeployment is a submitted creation transaction that may not be mined yet
type PendingDeployment struct {
	TxHash  common.Hash
	Address common.Address // Where the contract lands once mined
}

// TxState is what the node knows about a transaction without a receipt
type TxState string

const (
	TxUnknown TxState = "unknown" // Never seen or dropped from the pool
	TxPending TxState = "pending"
	TxMined   TxState = "mined"
)
