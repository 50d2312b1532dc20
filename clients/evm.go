package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Contract pairs an address with its ABI for packing and eth_call.
type Contract struct {
	caller  ContractCaller
	address common.Address
	abi     abi.ABI
}

func NewContract(caller ContractCaller, address common.Address, def abi.ABI) *Contract {
	return &Contract{caller: caller, address: address, abi: def}
}

func (c *Contract) Address() common.Address {
	return c.address
}

// Pack encodes a call to method with args.
func (c *Contract) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

// Call runs method read-only and returns the decoded outputs.
func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	if c.caller == nil {
		return nil, fmt.Errorf("call %s: no chain client", method)
	}
	data, err := c.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	raw, err := c.caller.CallContract(ctx, c.address, data)
	if err != nil {
		return nil, err
	}
	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// CallInto runs method read-only and decodes a tuple result into v.
func (c *Contract) CallInto(ctx context.Context, v interface{}, method string, args ...interface{}) error {
	if c.caller == nil {
		return fmt.Errorf("call %s: no chain client", method)
	}
	data, err := c.Pack(method, args...)
	if err != nil {
		return err
	}
	raw, err := c.caller.CallContract(ctx, c.address, data)
	if err != nil {
		return err
	}
	if err := c.abi.UnpackIntoInterface(v, method, raw); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

// CallBig runs a method returning a single uint256.
func (c *Contract) CallBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return n, nil
}

// CallAddress runs a method returning a single address.
func (c *Contract) CallAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return addr, nil
}

// CallBool runs a method returning a single bool.
func (c *Contract) CallBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	b, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return b, nil
}

// CallString runs a method returning a single string.
func (c *Contract) CallString(ctx context.Context, method string, args ...interface{}) (string, error) {
	out, err := c.Call(ctx, method, args...)
	if err != nil {
		return "", err
	}
	if len(out) != 1 {
		return "", fmt.Errorf("%s: expected 1 output, got %d", method, len(out))
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return s, nil
}
