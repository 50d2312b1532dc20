package clients

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var poolAddress = common.HexToAddress("0x2000000000000000000000000000000000000002")

func TestEncodeTransfer(t *testing.T) {
	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	data, err := EncodeTransfer(to, big.NewInt(1000))
	require.NoError(t, err)

	require.Len(t, data, 4+32+32)
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(data[:4]))
	assert.Equal(t, to, common.BytesToAddress(data[4:36]))
	assert.Equal(t, int64(1000), new(big.Int).SetBytes(data[36:]).Int64())

	again, err := EncodeTransfer(to, big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestContractCallBig(t *testing.T) {
	caller := newFakeCaller()
	caller.on(StabilityPoolABI, poolAddress, "totalDeposited", big.NewInt(42))

	c := NewContract(caller, poolAddress, StabilityPoolABI)
	got, err := c.CallBig(context.Background(), "totalDeposited")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int64())
}

func TestContractCallInto(t *testing.T) {
	caller := newFakeCaller()
	caller.on(StabilityPoolABI, poolAddress, "deposits", big.NewInt(7), big.NewInt(1700000000))

	var out struct {
		Amount          *big.Int
		LastYieldUpdate *big.Int
	}
	c := NewContract(caller, poolAddress, StabilityPoolABI)
	err := c.CallInto(context.Background(), &out, "deposits", common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.Amount.Int64())
	assert.Equal(t, int64(1700000000), out.LastYieldUpdate.Int64())
}

func TestContractCallErrors(t *testing.T) {
	t.Run("caller error", func(t *testing.T) {
		caller := newFakeCaller()
		caller.err = errors.New("rpc down")
		c := NewContract(caller, poolAddress, StabilityPoolABI)
		_, err := c.CallBig(context.Background(), "totalYield")
		assert.EqualError(t, err, "rpc down")
	})

	t.Run("no client", func(t *testing.T) {
		c := NewContract(nil, poolAddress, StabilityPoolABI)
		_, err := c.CallBig(context.Background(), "totalYield")
		assert.Error(t, err)
	})

	t.Run("unknown method", func(t *testing.T) {
		c := NewContract(newFakeCaller(), poolAddress, StabilityPoolABI)
		_, err := c.Pack("missing")
		assert.Error(t, err)
	})
}

func TestERC20BalanceOf(t *testing.T) {
	token := common.HexToAddress("0x3000000000000000000000000000000000000003")
	caller := newFakeCaller()
	caller.on(ERC20ABI, token, "balanceOf", big.NewInt(5))

	bal, err := NewERC20(caller, token).BalanceOf(context.Background(), common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Int64())
}
