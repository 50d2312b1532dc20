package protocol

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
)

func newCDPService(t *testing.T, caller *fakeCaller) (*CDPService, *storage.Store, *time.Time) {
	t.Helper()
	store, ledger := newBackends(t)
	svc := NewCDPService(caller, manager, store, ledger, nil, nil)
	now := time.Unix(1700000000, 0).UTC()
	svc.now = func() time.Time { return now }
	return svc, store, &now
}

func TestPrepareCDP(t *testing.T) {
	svc, _, _ := newCDPService(t, newFakeCaller())

	tx, err := svc.Prepare(OpenCDPRequest{
		Owner:        owner.Hex(),
		Collateral:   "0.5",
		Debt:         "1000",
		InterestRate: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, manager.Hex(), tx.To)
	assert.Equal(t, "500000000000000000", tx.Value)

	data, err := hexutil.Decode(tx.Data)
	require.NoError(t, err)
	method := clients.CDPManagerABI.Methods["openCDP"]
	assert.Equal(t, method.ID, data[:4])

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", args[0].(*big.Int).String())
	assert.Equal(t, ether(1000).String(), args[1].(*big.Int).String())
	assert.Equal(t, "5", args[2].(*big.Int).String())
}

func TestPrepareCDPValidation(t *testing.T) {
	svc, _, _ := newCDPService(t, newFakeCaller())

	_, err := svc.Prepare(OpenCDPRequest{Owner: "nope", Collateral: "1", Debt: "1"})
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = svc.Prepare(OpenCDPRequest{Owner: owner.Hex(), Collateral: "-1", Debt: "1"})
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = svc.Prepare(OpenCDPRequest{Owner: owner.Hex(), Collateral: "1", Debt: "1", InterestRate: -1})
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestRecordCDPAndInterest(t *testing.T) {
	ctx := context.Background()
	svc, store, now := newCDPService(t, newFakeCaller())
	hash := txHash(7)

	pos, err := svc.Record(ctx, OpenCDPRequest{Owner: owner.Hex(), Collateral: "1", Debt: "100", InterestRate: 5}, hash)
	require.NoError(t, err)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, hash, pos.TxHash)

	rows, _, err := store.ListTransactions(ctx, storage.TxFilter{Type: string(types.TxCDP)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, owner.Hex(), rows[0].From)
	assert.Equal(t, manager.Hex(), rows[0].To)
	assert.Equal(t, "1", rows[0].Amount)

	*now = now.Add(20 * time.Second)
	interest, err := svc.Interest(ctx, owner.Hex())
	require.NoError(t, err)
	assert.Equal(t, pos.ID, interest.CDPID)
	assert.Equal(t, int64(20), interest.TimePassed)
	assert.Equal(t, "1", interest.AccruedInterest)
	assert.Equal(t, "101", interest.CurrentDebt)

	_, err = svc.Interest(ctx, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	assert.True(t, types.IsCode(err, types.ErrNotFound))
}

func TestRecordCDPRejectsBadHash(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newCDPService(t, newFakeCaller())

	_, err := svc.Record(ctx, OpenCDPRequest{Owner: owner.Hex(), Collateral: "1", Debt: "1"}, "0xdead")
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, total, err := store.ListCDPs(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetCDPMergesChainState(t *testing.T) {
	ctx := context.Background()
	caller := newFakeCaller()
	caller.on(clients.CDPManagerABI, manager, "getCDP",
		ether(2), ether(150), big.NewInt(5), big.NewInt(1700000000), false)
	svc, _, _ := newCDPService(t, caller)

	_, err := svc.Record(ctx, OpenCDPRequest{Owner: owner.Hex(), Collateral: "2", Debt: "150", InterestRate: 5}, txHash(1))
	require.NoError(t, err)

	pos, err := svc.Get(ctx, owner.Hex())
	require.NoError(t, err)
	assert.Equal(t, "2", pos.OnChainCollateral)
	assert.Equal(t, "150", pos.OnChainDebt)
	assert.Equal(t, "150", pos.Debt)

	caller.err = errors.New("rpc down")
	_, err = svc.Get(ctx, owner.Hex())
	assert.True(t, types.IsCode(err, types.ErrChain))

	_, err = svc.Get(ctx, "bad")
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestListCDPs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newCDPService(t, newFakeCaller())
	for i := 1; i <= 3; i++ {
		_, err := svc.Record(ctx, OpenCDPRequest{Owner: owner.Hex(), Collateral: "1", Debt: "1"}, txHash(i))
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, types.PageQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.CDPs, 1)

	_, err = svc.List(ctx, types.PageQuery{Page: 1, Limit: 101})
	assert.True(t, types.IsCode(err, types.ErrValidation))
}
