package protocol

import (
	"context"
	"fmt"
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

// SwapLedger is the ledger surface swaps are recorded in and listed from.
type SwapLedger interface {
	settlement.Recorder
	List(ctx context.Context, q settlement.Query) (*settlement.Page, error)
	Search(ctx context.Context, f storage.TxFilter) ([]types.LedgerEntry, error)
}

// SwapRequest swaps Amount of FromToken into ToToken.
type SwapRequest struct {
	Swapper   string `json:"swapper" validate:"required,address"`
	Amount    string `json:"amount" validate:"required,amount"`
	FromToken string `json:"fromToken" validate:"required,oneof=USDT ZEST"`
	ToToken   string `json:"toToken" validate:"required,oneof=USDT ZEST,nefield=FromToken"`
}

// RateQuery asks for the output of swapping Amount.
type RateQuery struct {
	FromToken string `json:"fromToken" validate:"required,oneof=USDT ZEST"`
	ToToken   string `json:"toToken" validate:"required,oneof=USDT ZEST,nefield=FromToken"`
	Amount    string `json:"amount" validate:"required,amount"`
}

// Rate is a quote for a swap.
type Rate struct {
	FromToken    string  `json:"fromToken"`
	ToToken      string  `json:"toToken"`
	Amount       string  `json:"amount"`
	OutputAmount string  `json:"outputAmount"`
	Rate         float64 `json:"rate"`
}

// SwapQuery filters List.
type SwapQuery struct {
	types.PageQuery
	Swapper string `json:"swapper"`
	ToToken string `json:"toToken"`
}

// SwapService prepares ZEST/USDT swaps and quotes rates.
type SwapService struct {
	swap    *clients.Contract
	tokens  map[types.Asset]common.Address
	ledger  SwapLedger
	log     logger.Logger
	metrics metrics.Recorder
}

// NewSwapService binds the swap contract in c. A zero swap address keeps
// preparation working and quotes every swap at 1.0.
func NewSwapService(caller clients.ContractCaller, c Contracts, ledger SwapLedger, log logger.Logger, rec metrics.Recorder) *SwapService {
	return &SwapService{
		swap: clients.NewContract(caller, c.Swap, clients.SwapABI),
		tokens: map[types.Asset]common.Address{
			types.AssetZEST: c.ZEST,
			types.AssetUSDT: c.USDT,
		},
		ledger:  ledger,
		log:     logger.OrNoop(log),
		metrics: metrics.OrNoop(rec),
	}
}

func (s *SwapService) Prepare(req SwapRequest) (*types.TxPayload, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	amount, err := toBase("amount", req.Amount)
	if err != nil {
		return nil, err
	}

	method := "swapZestForUsdt"
	if types.Asset(req.FromToken) == types.AssetUSDT {
		method = "swapUsdtForZest"
	}
	data, err := s.swap.Pack(method, amount)
	if err != nil {
		return nil, err
	}
	return payload(s.swap.Address(), nil, data), nil
}

// Record appends a SWAP ledger entry from the swapper to the bought token.
func (s *SwapService) Record(ctx context.Context, req SwapRequest, txHash string) (*types.LedgerEntry, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := checkTxHash(txHash); err != nil {
		return nil, err
	}
	swapper := common.HexToAddress(req.Swapper).Hex()
	entry, err := s.ledger.Record(ctx, settlement.Entry{
		Type:   types.TxSwap,
		From:   swapper,
		To:     req.ToToken,
		Amount: req.Amount,
		TxHash: txHash,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncCounter("swap", map[string]string{"status": "recorded"})
	s.log.Info("swap recorded", map[string]any{"swapper": swapper, "from": req.FromToken, "to": req.ToToken, "tx_hash": txHash})
	return entry, nil
}

// Rate quotes getOutputAmount for q.
func (s *SwapService) Rate(ctx context.Context, q RateQuery) (*Rate, error) {
	if err := utils.ValidateStruct(q); err != nil {
		return nil, err
	}
	amount, err := toBase("amount", q.Amount)
	if err != nil {
		return nil, err
	}

	out := &Rate{FromToken: q.FromToken, ToToken: q.ToToken, Amount: q.Amount}
	if s.swap.Address() == (common.Address{}) {
		out.OutputAmount = q.Amount
		out.Rate = 1.0
		return out, nil
	}

	start := time.Now()
	output, err := s.swap.CallBig(ctx, "getOutputAmount",
		s.tokens[types.Asset(q.FromToken)], s.tokens[types.Asset(q.ToToken)], amount)
	metrics.Since(s.metrics, "chain_swap_rate", start, metrics.StatusOf(err))
	if err != nil {
		return nil, chainError("failed to read swap output", err)
	}

	out.OutputAmount = formatEther(output)
	if amount.Sign() > 0 {
		in := decimal.NewFromBigInt(amount, 0)
		out.Rate = decimal.NewFromBigInt(output, 0).Div(in).InexactFloat64()
	}
	return out, nil
}

// BySwapper returns every swap recorded for swapper, newest first.
// Addresses match in any letter case.
func (s *SwapService) BySwapper(ctx context.Context, swapper string) ([]types.LedgerEntry, error) {
	if swapper == "" {
		return nil, types.NewError(types.ErrValidation, "swapper is required", nil)
	}
	checksummed := utils.NormalizeAddress(swapper)
	if checksummed == "" {
		return s.ledger.Search(ctx, storage.TxFilter{Type: string(types.TxSwap), From: swapper})
	}
	entries, err := s.ledger.Search(ctx, storage.TxFilter{Type: string(types.TxSwap), From: checksummed})
	if err != nil || len(entries) > 0 || checksummed == swapper {
		return entries, err
	}
	return s.ledger.Search(ctx, storage.TxFilter{Type: string(types.TxSwap), From: swapper})
}

func (s *SwapService) List(ctx context.Context, q SwapQuery) (*settlement.Page, error) {
	page, err := pageOf(q.PageQuery)
	if err != nil {
		return nil, err
	}
	switch types.Asset(q.ToToken) {
	case "", types.AssetUSDT, types.AssetZEST:
	default:
		return nil, types.NewError(types.ErrValidation, fmt.Sprintf("toToken must be one of [USDT ZEST], got %q", q.ToToken), nil)
	}
	return s.ledger.List(ctx, settlement.Query{
		PageQuery: page,
		From:      swapperFilter(q.Swapper),
		To:        q.ToToken,
		Type:      string(types.TxSwap),
	})
}

func swapperFilter(swapper string) string {
	if checksummed := utils.NormalizeAddress(swapper); checksummed != "" {
		return checksummed
	}
	return swapper
}
