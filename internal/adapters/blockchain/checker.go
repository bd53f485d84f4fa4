package blockchain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// codeCheckTimeout bounds a single eth_getCode lookup
const codeCheckTimeout = 10 * time.Second

// HasCode reports whether a contract is deployed at address
func (d *Deployer) HasCode(ctx context.Context, address common.Address) (bool, error) {
	backend, _, err := d.connect(ctx)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, codeCheckTimeout)
	defer cancel()

	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check code at %s: %w", address.Hex(), err)
	}
	return len(code) > 0, nil
}
