package settlement

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
)

func hashOf(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	l := NewLedger(store, nil, nil)
	clock := time.Unix(1700000000, 0).UTC()
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l
}

func TestRecordDefaults(t *testing.T) {
	l := newLedger(t)

	entry, err := l.Record(context.Background(), Entry{
		Type:   types.TxENSRegister,
		From:   "0xa",
		To:     "bob.zest",
		TxHash: hashOf(1),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "0", entry.Amount)
	assert.Equal(t, types.TxStatusCompleted, entry.Status)
	assert.Equal(t, types.TxENSRegister, entry.Type)
}

func TestRecordValidation(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	_, err := l.Record(ctx, Entry{Type: "BRIDGE", TxHash: hashOf(1)})
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = l.Record(ctx, Entry{Type: types.TxSwap, TxHash: "0x1234"})
	assert.True(t, types.IsCode(err, types.ErrValidation))

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func seed(t *testing.T, l *Ledger) {
	t.Helper()
	entries := []Entry{
		{Type: types.TxPayment, From: "0xa", To: "0xb", Amount: "1", TxHash: hashOf(1)},
		{Type: types.TxSwap, From: "0xa", To: "ZEST", Amount: "2", TxHash: hashOf(2)},
		{Type: types.TxPayment, From: "0xc", To: "0xa", Amount: "3", TxHash: hashOf(3)},
		{Type: types.TxCDP, From: "0xc", To: "CDP", Amount: "4", TxHash: hashOf(4)},
	}
	for _, e := range entries {
		_, err := l.Record(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	l := newLedger(t)
	seed(t, l)

	page, err := l.List(context.Background(), Query{PageQuery: types.PageQuery{Page: 1, Limit: 3}})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Total: 4, Page: 1, Limit: 3, TotalPages: 2}, page.Pagination)
	require.Len(t, page.Transactions, 3)
	assert.Equal(t, hashOf(4), page.Transactions[0].TxHash)

	page, err = l.List(context.Background(), Query{PageQuery: types.PageQuery{Page: 2, Limit: 3}})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, hashOf(1), page.Transactions[0].TxHash)
}

func TestListFilters(t *testing.T) {
	l := newLedger(t)
	seed(t, l)
	ctx := context.Background()

	page, err := l.List(ctx, Query{Address: "0xa"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Pagination.Total)
	assert.Equal(t, types.DefaultLimit, page.Pagination.Limit)

	page, err = l.List(ctx, Query{From: "0xc", Type: string(types.TxPayment)})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, "3", page.Transactions[0].Amount)

	_, err = l.List(ctx, Query{Type: "BRIDGE"})
	assert.True(t, types.IsCode(err, types.ErrValidation))

	_, err = l.List(ctx, Query{PageQuery: types.PageQuery{Page: 1, Limit: 500}})
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestByAddressAndType(t *testing.T) {
	l := newLedger(t)
	seed(t, l)
	ctx := context.Background()

	rows, err := l.ByAddress(ctx, "0xb")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, hashOf(1), rows[0].TxHash)

	_, err = l.ByAddress(ctx, "")
	assert.True(t, types.IsCode(err, types.ErrValidation))

	rows, err = l.ByType(ctx, "PAYMENT")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = l.ByType(ctx, "payment")
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestStats(t *testing.T) {
	l := newLedger(t)
	seed(t, l)

	stats, err := l.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Total)
	assert.Equal(t, map[string]int64{"PAYMENT": 2, "SWAP": 1, "CDP": 1}, stats.ByType)
}
