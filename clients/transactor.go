package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/zest-protocol/dashboard/utils"
)

// TxBackend is the write surface of an RPC client. *ethclient.Client satisfies it.
type TxBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Transactor signs and submits transactions from a single key.
type Transactor struct {
	backend      TxBackend
	key          *ecdsa.PrivateKey
	from         common.Address
	pollInterval time.Duration

	mu      sync.Mutex
	chainID *big.Int
}

func NewTransactor(backend TxBackend, hexKey string) (*Transactor, error) {
	if strings.TrimSpace(hexKey) == "" {
		return nil, ErrNoSigner
	}
	key, err := utils.PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	return &Transactor{
		backend:      backend,
		key:          key,
		from:         utils.AddressFromPrivateKey(key),
		pollInterval: 2 * time.Second,
	}, nil
}

// From returns the signer address.
func (t *Transactor) From() common.Address {
	return t.from
}

// Send signs a legacy transaction calling to with data and submits it.
// Nonce assignment is serialised per Transactor.
func (t *Transactor) Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.chainID == nil {
		id, err := t.backend.ChainID(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("chain id: %w", err)
		}
		t.chainID = id
	}

	nonce, err := t.backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  t.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gas += gas / 5

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(t.chainID), t.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash(), nil
}

// WaitMined polls for the receipt of hash until ctx ends.
// A receipt with failed status is returned together with ErrTxReverted.
func (t *Transactor) WaitMined(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == gethtypes.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%s: %w", hash.Hex(), ErrTxReverted)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
