package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/types"
)

func TestPriceFeedMock(t *testing.T) {
	feed := NewPriceFeed(nil, manager, true, nil)
	fixed := time.Unix(1700000000, 0).UTC()
	feed.now = func() time.Time { return fixed }

	all, err := feed.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Prices{CBTC: MockCBTCPrice, ZEST: 1, USDT: 1, UpdatedAt: fixed}, all)

	p, err := feed.Price(context.Background(), "cbtc")
	require.NoError(t, err)
	assert.Equal(t, &Price{Token: "cBTC", Price: MockCBTCPrice}, p)
}

func TestPriceFeedOracle(t *testing.T) {
	caller := newFakeCaller()
	caller.on(clients.CDPManagerABI, manager, "cBTCPrice", ether(91000))
	feed := NewPriceFeed(caller, manager, false, nil)

	p, err := feed.Price(context.Background(), "cBTC")
	require.NoError(t, err)
	assert.Equal(t, 91000.0, p.Price)

	p, err = feed.Price(context.Background(), "usdt")
	require.NoError(t, err)
	assert.Equal(t, &Price{Token: "USDT", Price: 1}, p)

	_, err = feed.Price(context.Background(), "DOGE")
	assert.True(t, types.IsCode(err, types.ErrValidation))

	caller.err = errors.New("rpc down")
	_, err = feed.All(context.Background())
	assert.True(t, types.IsCode(err, types.ErrChain))
}
