package protocol

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/types"
	"golang.org/x/sync/errgroup"
)

// MockCBTCPrice is served when the price feed runs in mock mode.
const MockCBTCPrice = 85000.0

// Price is the USD price of one token.
type Price struct {
	Token string  `json:"token"`
	Price float64 `json:"price"`
}

// Prices is a snapshot of every token price.
type Prices struct {
	CBTC      float64   `json:"cBTC"`
	ZEST      float64   `json:"ZEST"`
	USDT      float64   `json:"USDT"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PriceFeed serves USD prices. cBTC comes from the CDP manager oracle;
// ZEST and USDT are pegged at 1.0.
type PriceFeed struct {
	manager *clients.Contract
	mock    bool
	metrics metrics.Recorder
	now     func() time.Time
}

func NewPriceFeed(caller clients.ContractCaller, manager common.Address, mock bool, rec metrics.Recorder) *PriceFeed {
	return &PriceFeed{
		manager: clients.NewContract(caller, manager, clients.CDPManagerABI),
		mock:    mock,
		metrics: metrics.OrNoop(rec),
		now:     time.Now,
	}
}

// Price returns the price of token, matched case-insensitively.
func (p *PriceFeed) Price(ctx context.Context, token string) (*Price, error) {
	var asset types.Asset
	for _, a := range types.Assets {
		if strings.EqualFold(token, string(a)) {
			asset = a
		}
	}
	if asset == "" {
		return nil, types.NewError(types.ErrValidation, "unsupported token "+token, nil)
	}

	price, err := p.price(ctx, asset)
	if err != nil {
		return nil, err
	}
	return &Price{Token: string(asset), Price: price}, nil
}

// All returns every price, read concurrently.
func (p *PriceFeed) All(ctx context.Context) (*Prices, error) {
	out := &Prices{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.CBTC, err = p.price(gctx, types.AssetCBTC)
		return err
	})
	g.Go(func() (err error) {
		out.ZEST, err = p.price(gctx, types.AssetZEST)
		return err
	})
	g.Go(func() (err error) {
		out.USDT, err = p.price(gctx, types.AssetUSDT)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.UpdatedAt = p.now().UTC()
	return out, nil
}

func (p *PriceFeed) price(ctx context.Context, asset types.Asset) (float64, error) {
	if asset != types.AssetCBTC {
		return 1.0, nil
	}
	if p.mock {
		return MockCBTCPrice, nil
	}

	start := time.Now()
	raw, err := p.manager.CallBig(ctx, "cBTCPrice")
	metrics.Since(p.metrics, "chain_cbtc_price", start, metrics.StatusOf(err))
	if err != nil {
		return 0, chainError("failed to read cBTC price", err)
	}
	return decimal.NewFromBigInt(raw, -types.Decimals).InexactFloat64(), nil
}
