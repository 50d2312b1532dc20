package protocol

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

// interestDenominator turns rate*seconds into a fraction of the debt.
const interestDenominator = 10000

// CDPStore persists positions opened through the dashboard.
type CDPStore interface {
	CreateCDP(ctx context.Context, cdp *storage.CDP) error
	FindCDPByOwner(ctx context.Context, owner string) (*storage.CDP, error)
	ListCDPs(ctx context.Context, owner string, offset, limit int) ([]storage.CDP, int64, error)
}

// OpenCDPRequest describes a position to open. Collateral is in cBTC and
// debt in ZEST, both in human units.
type OpenCDPRequest struct {
	Owner        string `json:"owner" validate:"required,address"`
	Collateral   string `json:"collateral" validate:"required,amount"`
	Debt         string `json:"debt" validate:"required,amount"`
	InterestRate int64  `json:"interestRate" validate:"min=0"`
}

// Position is a stored CDP, optionally merged with its on-chain state.
type Position struct {
	ID                string    `json:"id"`
	Owner             string    `json:"owner"`
	Collateral        string    `json:"collateral"`
	Debt              string    `json:"debt"`
	InterestRate      int64     `json:"interestRate"`
	LastAccrual       time.Time `json:"lastAccrual"`
	IsLiquidated      bool      `json:"isLiquidated"`
	TxHash            string    `json:"txHash,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	OnChainCollateral string    `json:"onChainCollateral,omitempty"`
	OnChainDebt       string    `json:"onChainDebt,omitempty"`
}

// PositionPage is a page of stored positions.
type PositionPage struct {
	CDPs       []Position `json:"cdps"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}

// Interest is the interest accrued on a position since its last accrual.
type Interest struct {
	CDPID           string `json:"cdpId"`
	AccruedInterest string `json:"accruedInterest"`
	TimePassed      int64  `json:"timePassed"`
	CurrentDebt     string `json:"currentDebt"`
}

// onChainCDP mirrors the getCDP tuple.
type onChainCDP struct {
	Collateral   *big.Int
	Debt         *big.Int
	InterestRate *big.Int
	LastAccrual  *big.Int
	IsLiquidated bool
}

// CDPService prepares and records CDP openings.
type CDPService struct {
	manager *clients.Contract
	store   CDPStore
	ledger  settlement.Recorder
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewCDPService creates a new CDP service bound to the manager at address
func NewCDPService(caller clients.ContractCaller, address common.Address, store CDPStore, ledger settlement.Recorder, log logger.Logger, rec metrics.Recorder) *CDPService {
	return &CDPService{
		manager: clients.NewContract(caller, address, clients.CDPManagerABI),
		store:   store,
		ledger:  ledger,
		log:     logger.OrNoop(log),
		metrics: metrics.OrNoop(rec),
		now:     time.Now,
	}
}

// Prepare encodes openCDP. The collateral travels as the call value.
func (s *CDPService) Prepare(req OpenCDPRequest) (*types.TxPayload, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	collateral, err := toBase("collateral", req.Collateral)
	if err != nil {
		return nil, err
	}
	debt, err := toBase("debt", req.Debt)
	if err != nil {
		return nil, err
	}

	data, err := s.manager.Pack("openCDP", collateral, debt, big.NewInt(req.InterestRate))
	if err != nil {
		return nil, err
	}
	return payload(s.manager.Address(), collateral, data), nil
}

// Record stores the opened position and appends a CDP ledger entry.
func (s *CDPService) Record(ctx context.Context, req OpenCDPRequest, txHash string) (*Position, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkTxHash(txHash); err != nil {
		return nil, err
	}

	now := s.now()
	row := &storage.CDP{
		Owner:        req.Owner,
		Collateral:   req.Collateral,
		Debt:         req.Debt,
		InterestRate: req.InterestRate,
		LastAccrual:  now,
		TxHash:       txHash,
	}
	if err := s.store.CreateCDP(ctx, row); err != nil {
		return nil, err
	}

	if _, err := s.ledger.Record(ctx, settlement.Entry{
		Type:   types.TxCDP,
		From:   req.Owner,
		To:     s.manager.Address().Hex(),
		Amount: req.Collateral,
		TxHash: txHash,
	}); err != nil {
		return nil, err
	}

	s.metrics.IncCounter("cdp", map[string]string{"status": "recorded"})
	s.log.Info("cdp recorded", map[string]any{"owner": req.Owner, "tx_hash": txHash})
	return toPosition(row), nil
}

// Get returns the newest position of owner merged with getCDP(owner).
func (s *CDPService) Get(ctx context.Context, owner string) (*Position, error) {
	row, err := s.find(ctx, owner)
	if err != nil {
		return nil, err
	}

	var chain onChainCDP
	start := time.Now()
	err = s.manager.CallInto(ctx, &chain, "getCDP", common.HexToAddress(row.Owner))
	metrics.Since(s.metrics, "chain_get_cdp", start, metrics.StatusOf(err))
	if err != nil {
		return nil, chainError("failed to read cdp", err)
	}

	pos := toPosition(row)
	pos.OnChainCollateral = formatEther(chain.Collateral)
	pos.OnChainDebt = formatEther(chain.Debt)
	return pos, nil
}

func (s *CDPService) List(ctx context.Context, q types.PageQuery) (*PositionPage, error) {
	q, err := pageOf(q)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.store.ListCDPs(ctx, "", q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}

	out := make([]Position, 0, len(rows))
	for i := range rows {
		out = append(out, *toPosition(&rows[i]))
	}
	p := types.NewPagination(total, q.Page, q.Limit)
	return &PositionPage{CDPs: out, Total: p.Total, Page: p.Page, Limit: p.Limit, TotalPages: p.Pages}, nil
}

// Interest computes debt * rate * seconds / 10000 from the stored position.
func (s *CDPService) Interest(ctx context.Context, owner string) (*Interest, error) {
	row, err := s.find(ctx, owner)
	if err != nil {
		return nil, err
	}

	debt, err := decimal.NewFromString(row.Debt)
	if err != nil {
		return nil, types.NewError(types.ErrStore, "stored debt is not a decimal", err)
	}
	elapsed := int64(s.now().Sub(row.LastAccrual) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}

	interest := debt.
		Mul(decimal.NewFromInt(row.InterestRate)).
		Mul(decimal.NewFromInt(elapsed)).
		Div(decimal.NewFromInt(interestDenominator))

	return &Interest{
		CDPID:           row.ID,
		AccruedInterest: interest.String(),
		TimePassed:      elapsed,
		CurrentDebt:     debt.Add(interest).String(),
	}, nil
}

func (s *CDPService) find(ctx context.Context, owner string) (*storage.CDP, error) {
	addr, err := utils.ValidateAddress(owner)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid owner address", err)
	}
	row, err := s.store.FindCDPByOwner(ctx, owner)
	if errors.Is(err, storage.ErrNotFound) && owner != addr.Hex() {
		row, err = s.store.FindCDPByOwner(ctx, addr.Hex())
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewError(types.ErrNotFound, "cdp not found", err)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func toPosition(row *storage.CDP) *Position {
	return &Position{
		ID:           row.ID,
		Owner:        row.Owner,
		Collateral:   row.Collateral,
		Debt:         row.Debt,
		InterestRate: row.InterestRate,
		LastAccrual:  row.LastAccrual,
		IsLiquidated: row.IsLiquidated,
		TxHash:       row.TxHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
