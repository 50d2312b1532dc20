package protocol

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/storage"
)

var (
	owner    = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	manager  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	pool     = common.HexToAddress("0x1000000000000000000000000000000000000002")
	swapAddr = common.HexToAddress("0x1000000000000000000000000000000000000003")
	zestAddr = common.HexToAddress("0x1000000000000000000000000000000000000004")
	usdtAddr = common.HexToAddress("0x1000000000000000000000000000000000000005")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

// fakeCaller answers eth_call by contract address and method selector.
type fakeCaller struct {
	mu        sync.Mutex
	responses map[string][]byte
	err       error
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[string][]byte)}
}

func callKey(to common.Address, selector []byte) string {
	return to.Hex() + ":" + hexutil.Encode(selector)
}

func (f *fakeCaller) on(def abi.ABI, to common.Address, method string, outputs ...interface{}) {
	m := def.Methods[method]
	packed, err := m.Outputs.Pack(outputs...)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[callKey(to, m.ID)] = packed
}

func (f *fakeCaller) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.responses[callKey(to, data[:4])]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", callKey(to, data[:4]))
	}
	return out, nil
}

func newBackends(t *testing.T) (*storage.Store, *settlement.Ledger) {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, settlement.NewLedger(store, nil, nil)
}
