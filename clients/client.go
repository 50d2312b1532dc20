package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zest-protocol/dashboard/types"
)

// ContractCaller executes read-only eth_call requests.
type ContractCaller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Client is the read-only JSON-RPC surface of one chain.
type Client interface {
	ContractCaller
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	GetNetwork() types.Network
	Close()
}
