package naming

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/zest-protocol/dashboard/clients"
)

// Registrar mints names on the L2 registrar.
type Registrar interface {
	Available(ctx context.Context, label string) (bool, error)
	// Owner returns the current holder of a minted label.
	Owner(ctx context.Context, label string) (common.Address, error)
	// Register submits the registration and waits for it to be mined.
	Register(ctx context.Context, label string, owner common.Address) (common.Hash, error)
}

// L2Registrar talks to the registrar contract on the registrar chain.
type L2Registrar struct {
	caller   clients.ContractCaller
	contract *clients.Contract
	tx       *clients.Transactor
}

// NewL2Registrar binds the registrar at address. tx may be nil, in which
// case only availability checks work.
func NewL2Registrar(caller clients.ContractCaller, address common.Address, tx *clients.Transactor) *L2Registrar {
	return &L2Registrar{
		caller:   caller,
		contract: clients.NewContract(caller, address, clients.L2RegistrarABI),
		tx:       tx,
	}
}

func (r *L2Registrar) Available(ctx context.Context, label string) (bool, error) {
	return r.contract.CallBool(ctx, "available", label)
}

// Owner reads ownerOf(node) from the registry behind the registrar, where
// node is keccak256(baseNode, keccak256(label)).
func (r *L2Registrar) Owner(ctx context.Context, label string) (common.Address, error) {
	registryAddr, err := r.contract.CallAddress(ctx, "registry")
	if err != nil {
		return common.Address{}, fmt.Errorf("registrar registry: %w", err)
	}
	registry := clients.NewContract(r.caller, registryAddr, clients.L2RegistryABI)

	out, err := registry.Call(ctx, "baseNode")
	if err != nil {
		return common.Address{}, fmt.Errorf("registry base node: %w", err)
	}
	base, ok := out[0].([32]byte)
	if !ok {
		return common.Address{}, fmt.Errorf("registry base node: unexpected output type %T", out[0])
	}
	node := crypto.Keccak256(base[:], crypto.Keccak256([]byte(label)))

	owner, err := registry.CallAddress(ctx, "ownerOf", new(big.Int).SetBytes(node))
	if err != nil {
		return common.Address{}, fmt.Errorf("registry owner of %s: %w", label, err)
	}
	return owner, nil
}

func (r *L2Registrar) Register(ctx context.Context, label string, owner common.Address) (common.Hash, error) {
	if r.tx == nil {
		return common.Hash{}, clients.ErrNoSigner
	}
	data, err := r.contract.Pack("register", label, owner)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := r.tx.Send(ctx, r.contract.Address(), data, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("register %s: %w", label, err)
	}
	if _, err := r.tx.WaitMined(ctx, hash); err != nil {
		return hash, fmt.Errorf("register %s: %w", label, err)
	}
	return hash, nil
}
