package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
	"golang.org/x/sync/errgroup"
)

// DefaultExpiresIn is the lifetime of a request created without expiresIn.
const DefaultExpiresIn int64 = 3600

// BalanceReader is the read-only chain surface used for balances.
type BalanceReader interface {
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Names resolves identifiers and finds display names for addresses.
type Names interface {
	Resolve(ctx context.Context, identifier string) (common.Address, error)
	LookupAddress(ctx context.Context, address string) (string, error)
}

// Store persists payment requests and their ledger rows.
type Store interface {
	CreatePaymentRequest(ctx context.Context, req *storage.PaymentRequest) error
	GetPaymentRequest(ctx context.Context, id string) (*storage.PaymentRequest, error)
	CompletePaymentRequest(ctx context.Context, id, status, txHash string, entry *storage.Transaction, now time.Time) (*storage.PaymentRequest, error)
	ListPaymentRequests(ctx context.Context, f storage.PaymentFilter) ([]storage.PaymentRequest, int64, error)
}

// Config wires the payment service.
type Config struct {
	Chain BalanceReader
	Names Names
	Store Store

	// ZEST and USDT are the token contracts on the payment chain.
	ZEST common.Address
	USDT common.Address

	// Timeout bounds each chain read. Zero means 10s.
	Timeout time.Duration
	Logger  logger.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
}

// Service implements the payment request flow
type Service struct {
	chain   BalanceReader
	names   Names
	store   Store
	tokens  map[types.Asset]common.Address
	timeout time.Duration
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewService creates a new payment service
func NewService(cfg Config) *Service {
	if cfg.Chain == nil || cfg.Names == nil || cfg.Store == nil {
		panic("payment: chain, names and store are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		chain: cfg.Chain,
		names: cfg.Names,
		store: cfg.Store,
		tokens: map[types.Asset]common.Address{
			types.AssetZEST: cfg.ZEST,
			types.AssetUSDT: cfg.USDT,
		},
		timeout: timeout,
		log:     logger.OrNoop(cfg.Logger),
		metrics: metrics.OrNoop(cfg.Metrics),
		now:     now,
	}
}

// CreateRequest is the body of a new payment request
type CreateRequest struct {
	Amount      string `json:"amount" validate:"required,amount"`
	Token       string `json:"token" validate:"required,oneof=cBTC ZEST USDT"`
	Description string `json:"description,omitempty" validate:"max=512"`
	FromAddress string `json:"fromAddress" validate:"required"`
	ExpiresIn   *int64 `json:"expiresIn,omitempty" validate:"omitempty,min=1"`
}

// RequestCreated is returned by CreateRequest
type RequestCreated struct {
	RequestID string `json:"requestId"`
	QRData    string `json:"qrData"`
	ExpiresAt int64  `json:"expiresAt"`
}

type qrPayload struct {
	RequestID string `json:"requestId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// PreparedPayment is the unsigned transfer plus the request it pays
type PreparedPayment struct {
	types.TxPayload
	Token       types.Asset `json:"token"`
	Amount      string      `json:"amount"`
	Description string      `json:"description"`
	FromAddress string      `json:"fromAddress"`
	RequestID   string      `json:"requestId"`
}

// HistoryQuery filters the payment history
type HistoryQuery struct {
	types.PageQuery
	FromAddress string `json:"fromAddress"`
	Status      string `json:"status"`
}

// History is a page of payment requests
type History struct {
	Payments   []types.PaymentRequest `json:"payments"`
	Pagination types.Pagination       `json:"pagination"`
}

// GetBalances resolves identifier and reads every asset balance concurrently.
// Any failed read fails the whole call.
func (s *Service) GetBalances(ctx context.Context, identifier string) (*types.BalanceSnapshot, error) {
	start := time.Now()
	snap, err := s.getBalances(ctx, identifier)
	metrics.Since(s.metrics, "payment_balances", start, metrics.StatusOf(err))
	return snap, err
}

func (s *Service) getBalances(ctx context.Context, identifier string) (*types.BalanceSnapshot, error) {
	owner, err := s.names.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	g, gctx := errgroup.WithContext(readCtx)

	var cbtc, zest, usdt *big.Int
	g.Go(func() error {
		bal, err := s.chain.NativeBalance(gctx, owner)
		if err != nil {
			return balanceError(types.AssetCBTC, err)
		}
		cbtc = bal
		return nil
	})
	g.Go(func() error {
		bal, err := s.chain.TokenBalance(gctx, s.tokens[types.AssetZEST], owner)
		if err != nil {
			return balanceError(types.AssetZEST, err)
		}
		zest = bal
		return nil
	})
	g.Go(func() error {
		bal, err := s.chain.TokenBalance(gctx, s.tokens[types.AssetUSDT], owner)
		if err != nil {
			return balanceError(types.AssetUSDT, err)
		}
		usdt = bal
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.Error("balance read failed", map[string]any{"address": owner.Hex(), "error": err})
		return nil, err
	}

	return &types.BalanceSnapshot{
		Address: owner.Hex(),
		CBTC:    cbtc.String(),
		ZEST:    zest.String(),
		USDT:    usdt.String(),
	}, nil
}

func balanceError(asset types.Asset, err error) error {
	return types.NewError(types.ErrBalanceRead, fmt.Sprintf("failed to read %s balance", asset), err)
}

// CreateRequest validates and stores a new PENDING payment request.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequest) (*RequestCreated, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := utils.ValidateAmountWithDecimals(in.Amount, types.Decimals); err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid amount", err)
	}
	asset, err := types.ParseAsset(in.Token)
	if err != nil {
		return nil, err
	}
	ttl := DefaultExpiresIn
	if in.ExpiresIn != nil {
		ttl = *in.ExpiresIn
	}
	if ttl < 1 {
		return nil, types.NewError(types.ErrValidation, "expiresIn must be at least 1 second", nil)
	}

	now := s.now()
	expiresAt := now.Unix() + ttl
	row := &storage.PaymentRequest{
		Amount:      in.Amount,
		Token:       string(asset),
		Description: in.Description,
		FromAddress: in.FromAddress,
		Status:      string(types.PaymentPending),
		ExpiresAt:   time.Unix(expiresAt, 0).UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreatePaymentRequest(ctx, row); err != nil {
		return nil, err
	}

	qr, err := json.Marshal(qrPayload{RequestID: row.ID, ExpiresAt: expiresAt})
	if err != nil {
		return nil, fmt.Errorf("encode qr data: %w", err)
	}

	s.metrics.IncCounter("payment_request", map[string]string{"status": "created"})
	s.log.Info("payment request created", map[string]any{
		"request_id": row.ID,
		"token":      row.Token,
		"amount":     row.Amount,
		"expires_at": expiresAt,
	})
	return &RequestCreated{RequestID: row.ID, QRData: string(qr), ExpiresAt: expiresAt}, nil
}

// GetRequest returns the stored request.
func (s *Service) GetRequest(ctx context.Context, id string) (*types.PaymentRequest, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPaymentRequest(row), nil
}

// PreparePayment builds the transfer that pays request id.
func (s *Service) PreparePayment(ctx context.Context, id string) (*PreparedPayment, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.Status != string(types.PaymentPending) {
		return nil, types.NewError(types.ErrInvalidState, "payment request is not pending", nil)
	}
	if !s.now().Before(row.ExpiresAt) {
		return nil, types.NewError(types.ErrExpired, "payment request has expired", nil)
	}

	receiver, err := s.names.Resolve(ctx, row.FromAddress)
	if err != nil {
		return nil, err
	}

	display := row.FromAddress
	if name, err := s.names.LookupAddress(ctx, receiver.Hex()); err != nil {
		s.log.Warn("reverse lookup failed", map[string]any{"address": receiver.Hex(), "error": err})
	} else if name != "" {
		display = name
	}

	base, err := utils.ParseAmountWithDecimals(row.Amount, types.Decimals)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, "stored amount cannot be scaled", err)
	}

	payload, err := s.buildPayload(types.Asset(row.Token), receiver, base)
	if err != nil {
		return nil, err
	}

	s.metrics.IncCounter("payment_request", map[string]string{"status": "prepared"})
	return &PreparedPayment{
		TxPayload:   payload,
		Token:       types.Asset(row.Token),
		Amount:      row.Amount,
		Description: row.Description,
		FromAddress: display,
		RequestID:   row.ID,
	}, nil
}

func (s *Service) buildPayload(asset types.Asset, receiver common.Address, base *big.Int) (types.TxPayload, error) {
	switch asset.Standard() {
	case types.TokenStandardNative:
		return types.TxPayload{To: receiver.Hex(), Value: base.String(), Data: "0x"}, nil
	case types.TokenStandardERC20:
		token, ok := s.tokens[asset]
		if !ok {
			return types.TxPayload{}, types.NewError(types.ErrValidation, fmt.Sprintf("unsupported token %q", asset), nil)
		}
		data, err := clients.EncodeTransfer(receiver, base)
		if err != nil {
			return types.TxPayload{}, fmt.Errorf("encode transfer: %w", err)
		}
		return types.TxPayload{To: token.Hex(), Value: "0", Data: hexutil.Encode(data)}, nil
	}
	return types.TxPayload{}, types.NewError(types.ErrValidation, fmt.Sprintf("unsupported token %q", asset), nil)
}

// RecordCompletion marks request id COMPLETED with txHash and appends a
// PAYMENT ledger entry. The prior status is not checked, so recording the
// same request twice appends two entries.
func (s *Service) RecordCompletion(ctx context.Context, id, txHash string) (*types.PaymentRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewError(types.ErrValidation, "requestId is required", nil)
	}
	if err := utils.ValidateTransactionHash(txHash); err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid txHash", err)
	}

	entry := &storage.Transaction{
		Type:   string(types.TxPayment),
		Status: string(types.TxStatusCompleted),
	}
	row, err := s.store.CompletePaymentRequest(ctx, id, string(types.PaymentCompleted), txHash, entry, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, types.NewError(types.ErrNotFound, "payment request not found", err)
		}
		return nil, err
	}

	s.metrics.IncCounter("payment_request", map[string]string{"status": "completed"})
	s.log.Info("payment recorded", map[string]any{"request_id": id, "tx_hash": txHash})
	return toPaymentRequest(row), nil
}

// History lists requests newest first.
func (s *Service) History(ctx context.Context, q HistoryQuery) (*History, error) {
	if q.Page == 0 {
		q.Page = types.DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = types.DefaultLimit
	}
	if err := utils.ValidateStruct(q); err != nil {
		return nil, err
	}
	if q.Status != "" && !types.PaymentStatus(q.Status).Valid() {
		return nil, types.NewError(types.ErrValidation,
			fmt.Sprintf("status must be one of [%s %s %s]", types.PaymentPending, types.PaymentCompleted, types.PaymentExpired), nil)
	}

	rows, total, err := s.store.ListPaymentRequests(ctx, storage.PaymentFilter{
		FromAddress: q.FromAddress,
		Status:      q.Status,
		Offset:      q.Offset(),
		Limit:       q.Limit,
	})
	if err != nil {
		return nil, err
	}

	payments := make([]types.PaymentRequest, 0, len(rows))
	for i := range rows {
		payments = append(payments, *toPaymentRequest(&rows[i]))
	}
	return &History{
		Payments:   payments,
		Pagination: types.NewPagination(total, q.Page, q.Limit),
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*storage.PaymentRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, types.NewError(types.ErrValidation, "requestId is required", nil)
	}
	row, err := s.store.GetPaymentRequest(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.NewError(types.ErrNotFound, "payment request not found", err)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func toPaymentRequest(row *storage.PaymentRequest) *types.PaymentRequest {
	return &types.PaymentRequest{
		ID:          row.ID,
		Amount:      row.Amount,
		Token:       types.Asset(row.Token),
		Description: row.Description,
		FromAddress: row.FromAddress,
		Status:      types.PaymentStatus(row.Status),
		ExpiresAt:   row.ExpiresAt,
		TxHash:      row.TxHash,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
