package clients

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zest-protocol/dashboard/types"
)

var _ Client = (*EVMClient)(nil)

const defaultCallTimeout = 10 * time.Second

// EVMClient reads balances and contract state over JSON-RPC
type EVMClient struct {
	rpcURL  string
	network types.Network
	client  *ethclient.Client
	timeout time.Duration
}

func NewEVMClient(ctx context.Context, network types.Network, rpcURL string, timeout time.Duration) (*EVMClient, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url for %s is empty", network)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", network, err)
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &EVMClient{
		network: network,
		rpcURL:  rpcURL,
		client:  client,
		timeout: timeout,
	}, nil
}

// Close implements Client.
func (e *EVMClient) Close() {
	e.client.Close()
}

// GetNetwork implements Client.
func (e *EVMClient) GetNetwork() types.Network {
	return e.network
}

// NativeBalance returns eth_getBalance at the latest block.
func (e *EVMClient) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	bal, err := e.client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance %s on %s: %w", owner.Hex(), e.network, err)
	}
	return bal, nil
}

// TokenBalance returns balanceOf(owner) on an ERC-20 token.
func (e *EVMClient) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return NewERC20(e, token).BalanceOf(ctx, owner)
}

// CallContract performs an eth_call against the latest block.
func (e *EVMClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}
	out, err := e.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s on %s: %w", to.Hex(), e.network, err)
	}
	return out, nil
}

// Backend exposes the underlying RPC client for transaction submission.
func (e *EVMClient) Backend() *ethclient.Client {
	return e.client
}
