package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ERC20 interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

type erc20Caller struct {
	contract *Contract
}

// NewERC20 binds the ERC-20 read surface of token to caller.
func NewERC20(caller ContractCaller, token common.Address) ERC20 {
	return &erc20Caller{contract: NewContract(caller, token, ERC20ABI)}
}

func (e *erc20Caller) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return e.contract.CallBig(ctx, "balanceOf", owner)
}

// EncodeTransfer returns call data for transfer(to, amount).
// Encoding is deterministic for identical inputs.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, amount)
}
