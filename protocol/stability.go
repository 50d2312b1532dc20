package protocol

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
	"golang.org/x/sync/errgroup"
)

// DepositStore persists stability pool deposits.
type DepositStore interface {
	CreateStabilityDeposit(ctx context.Context, d *storage.StabilityDeposit) error
	FindDepositByDepositor(ctx context.Context, depositor string) (*storage.StabilityDeposit, error)
	ListStabilityDeposits(ctx context.Context, offset, limit int) ([]storage.StabilityDeposit, int64, error)
}

// DepositRequest deposits Amount ZEST on behalf of Depositor.
type DepositRequest struct {
	Depositor string `json:"depositor" validate:"required,address"`
	Amount    string `json:"amount" validate:"required,amount"`
}

// WithdrawRequest withdraws Amount ZEST of Owner's shares to Receiver.
type WithdrawRequest struct {
	Amount   string `json:"amount" validate:"required,amount"`
	Receiver string `json:"receiver" validate:"required,address"`
	Owner    string `json:"owner" validate:"required,address"`
}

// Deposit is a stored deposit, optionally merged with pool state.
type Deposit struct {
	ID              string     `json:"id"`
	Depositor       string     `json:"depositor"`
	Amount          string     `json:"amount"`
	TxHash          string     `json:"txHash,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	OnChainAmount   string     `json:"onChainAmount,omitempty"`
	Yield           string     `json:"yield,omitempty"`
	LastYieldUpdate *time.Time `json:"lastYieldUpdate,omitempty"`
}

// DepositPage is a page of stored deposits.
type DepositPage struct {
	Deposits   []Deposit `json:"deposits"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

type poolDeposit struct {
	Amount          *big.Int
	LastYieldUpdate *big.Int
}

// StabilityService prepares pool deposits and withdrawals and reads pool state.
type StabilityService struct {
	pool    *clients.Contract
	store   DepositStore
	ledger  settlement.Recorder
	log     logger.Logger
	metrics metrics.Recorder
}

func NewStabilityService(caller clients.ContractCaller, address common.Address, store DepositStore, ledger settlement.Recorder, log logger.Logger, rec metrics.Recorder) *StabilityService {
	return &StabilityService{
		pool:    clients.NewContract(caller, address, clients.StabilityPoolABI),
		store:   store,
		ledger:  ledger,
		log:     logger.OrNoop(log),
		metrics: metrics.OrNoop(rec),
	}
}

func (s *StabilityService) PrepareDeposit(req DepositRequest) (*types.TxPayload, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	amount, err := toBase("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	data, err := s.pool.Pack("deposit", amount, common.HexToAddress(req.Depositor))
	if err != nil {
		return nil, err
	}
	return payload(s.pool.Address(), nil, data), nil
}

func (s *StabilityService) PrepareWithdraw(req WithdrawRequest) (*types.TxPayload, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	amount, err := toBase("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	data, err := s.pool.Pack("withdraw", amount, common.HexToAddress(req.Receiver), common.HexToAddress(req.Owner))
	if err != nil {
		return nil, err
	}
	return payload(s.pool.Address(), nil, data), nil
}

// Record stores the deposit and appends a STABILITY_DEPOSIT ledger entry.
func (s *StabilityService) Record(ctx context.Context, req DepositRequest, txHash string) (*Deposit, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkTxHash(txHash); err != nil {
		return nil, err
	}

	depositor := common.HexToAddress(req.Depositor).Hex()
	row := &storage.StabilityDeposit{
		Depositor: depositor,
		Amount:    req.Amount,
		TxHash:    txHash,
	}
	if err := s.store.CreateStabilityDeposit(ctx, row); err != nil {
		return nil, err
	}
	if _, err := s.ledger.Record(ctx, settlement.Entry{
		Type:   types.TxStabilityDeposit,
		From:   depositor,
		To:     s.pool.Address().Hex(),
		Amount: req.Amount,
		TxHash: txHash,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncCounter("stability_deposit", map[string]string{"status": "recorded"})
	s.log.Info("stability deposit recorded", map[string]any{"depositor": depositor, "tx_hash": txHash})
	return toDeposit(row), nil
}

// Get returns the newest deposit of depositor merged with deposits() and
// yieldEarned() read concurrently.
func (s *StabilityService) Get(ctx context.Context, depositor string) (*Deposit, error) {
	addr, err := utils.ValidateAddress(depositor)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid depositor address", err)
	}
	row, err := s.store.FindDepositByDepositor(ctx, addr.Hex())
	if errors.Is(err, storage.ErrNotFound) && depositor != addr.Hex() {
		row, err = s.store.FindDepositByDepositor(ctx, depositor)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewError(types.ErrNotFound, "deposit not found", err)
	}
	if err != nil {
		return nil, err
	}

	var (
		onChain poolDeposit
		yield   *big.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.pool.CallInto(gctx, &onChain, "deposits", addr)
	})
	g.Go(func() error {
		v, err := s.pool.CallBig(gctx, "yieldEarned", addr)
		yield = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, chainError("failed to read stability pool deposit", err)
	}

	out := toDeposit(row)
	out.OnChainAmount = formatEther(onChain.Amount)
	out.Yield = formatEther(yield)
	if onChain.LastYieldUpdate != nil {
		t := time.Unix(onChain.LastYieldUpdate.Int64(), 0).UTC()
		out.LastYieldUpdate = &t
	}
	return out, nil
}

func (s *StabilityService) List(ctx context.Context, q types.PageQuery) (*DepositPage, error) {
	q, err := pageOf(q)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.store.ListStabilityDeposits(ctx, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]Deposit, 0, len(rows))
	for i := range rows {
		out = append(out, *toDeposit(&rows[i]))
	}
	p := types.NewPagination(total, q.Page, q.Limit)
	return &DepositPage{Deposits: out, Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.Pages}, nil
}

// TotalDeposits returns totalDeposited() in ZEST.
func (s *StabilityService) TotalDeposits(ctx context.Context) (string, error) {
	return s.readEther(ctx, "totalDeposited")
}

// TotalYield returns totalYield() in ZEST.
func (s *StabilityService) TotalYield(ctx context.Context) (string, error) {
	return s.readEther(ctx, "totalYield")
}

// SharePrice returns the price of one sZEST share in ZEST.
func (s *StabilityService) SharePrice(ctx context.Context) (string, error) {
	price, err := s.sharePrice(ctx)
	if err != nil {
		return "", err
	}
	return formatEther(price), nil
}

// CalculateSZEST returns how many shares amount ZEST buys at the current price.
func (s *StabilityService) CalculateSZEST(ctx context.Context, amount string) (string, error) {
	base, err := toBase("amount", amount)
	if err != nil {
		return "", err
	}
	price, err := s.sharePrice(ctx)
	if err != nil {
		return "", err
	}
	if price.Sign() == 0 {
		return "", types.NewError(types.ErrUnavailable, "share price is zero", nil)
	}
	shares := new(big.Int).Mul(base, wad)
	shares.Quo(shares, price)
	return formatEther(shares), nil
}

// sharePrice is totalAssets*1e18/totalSupply, or 1e18 for an empty pool.
func (s *StabilityService) sharePrice(ctx context.Context) (*big.Int, error) {
	var assets, supply *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		assets, err = s.pool.CallBig(gctx, "totalAssets")
		return err
	})
	g.Go(func() (err error) {
		supply, err = s.pool.CallBig(gctx, "totalSupply")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, chainError("failed to read share price", err)
	}
	if supply.Sign() == 0 {
		return new(big.Int).Set(wad), nil
	}
	price := new(big.Int).Mul(assets, wad)
	return price.Quo(price, supply), nil
}

func (s *StabilityService) readEther(ctx context.Context, method string) (string, error) {
	start := time.Now()
	v, err := s.pool.CallBig(ctx, method)
	metrics.Since(s.metrics, "chain_"+method, start, metrics.StatusOf(err))
	if err != nil {
		return "", chainError("failed to read "+method, err)
	}
	return formatEther(v), nil
}

func toDeposit(row *storage.StabilityDeposit) *Deposit {
	return &Deposit{
		ID:        row.ID,
		Depositor: row.Depositor,
		Amount:    row.Amount,
		TxHash:    row.TxHash,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
