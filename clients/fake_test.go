package clients

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// fakeCaller answers eth_call by contract address and method selector.
type fakeCaller struct {
	mu        sync.Mutex
	responses map[string][]byte
	calls     [][]byte
	err       error
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{responses: make(map[string][]byte)}
}

func callKey(to common.Address, selector []byte) string {
	return to.Hex() + ":" + hexutil.Encode(selector)
}

func (f *fakeCaller) on(def abi.ABI, to common.Address, method string, outputs ...interface{}) {
	m, ok := def.Methods[method]
	if !ok {
		panic("unknown method " + method)
	}
	packed, err := m.Outputs.Pack(outputs...)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[callKey(to, m.ID)] = packed
}

// onCall answers method only when it is called with exactly args. It takes
// precedence over on.
func (f *fakeCaller) onCall(def abi.ABI, to common.Address, method string, args []interface{}, outputs ...interface{}) {
	data, err := def.Pack(method, args...)
	if err != nil {
		panic(err)
	}
	packed, err := def.Methods[method].Outputs.Pack(outputs...)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[callKey(to, data)] = packed
}

func (f *fakeCaller) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, data)
	if f.err != nil {
		return nil, f.err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("short call data")
	}
	if out, ok := f.responses[callKey(to, data)]; ok {
		return out, nil
	}
	out, ok := f.responses[callKey(to, data[:4])]
	if !ok {
		return nil, fmt.Errorf("unexpected call %s", callKey(to, data[:4]))
	}
	return out, nil
}
