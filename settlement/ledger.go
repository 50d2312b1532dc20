// Package settlement keeps the ledger of on-chain actions the dashboard has
// seen settle. Entries are asserted by callers and never re-verified.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

// Store is the ledger persistence.
type Store interface {
	AppendTransaction(ctx context.Context, tx *storage.Transaction) error
	ListTransactions(ctx context.Context, f storage.TxFilter) ([]storage.Transaction, int64, error)
	CountTransactionsByType(ctx context.Context) (map[string]int64, int64, error)
}

// Recorder appends settled actions to the ledger.
type Recorder interface {
	Record(ctx context.Context, entry Entry) (*types.LedgerEntry, error)
}

// Ledger answers ledger queries and appends entries.
type Ledger struct {
	store   Store
	log     logger.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewLedger creates a new ledger over store
func NewLedger(store Store, log logger.Logger, rec metrics.Recorder) *Ledger {
	return &Ledger{
		store:   store,
		log:     logger.OrNoop(log),
		metrics: metrics.OrNoop(rec),
		now:     time.Now,
	}
}

// Entry is a settled action to record.
type Entry struct {
	Type   types.TxType
	From   string
	To     string
	Amount string
	TxHash string
	Status types.TxStatus
}

// Query filters List. Address matches either side of an entry.
type Query struct {
	types.PageQuery
	Address string `json:"address"`
	From    string `json:"from"`
	To      string `json:"to"`
	Type    string `json:"type" validate:"omitempty,oneof=PAYMENT SWAP STAKE CDP STABILITY_DEPOSIT ENS_REGISTER"`
}

// Pagination describes a page of ledger entries
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// Page is one page of ledger entries
type Page struct {
	Transactions []types.LedgerEntry `json:"transactions"`
	Pagination   Pagination          `json:"pagination"`
}

// Stats counts entries overall and per type
type Stats struct {
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"byType"`
}

// Record validates entry and appends it.
func (l *Ledger) Record(ctx context.Context, entry Entry) (*types.LedgerEntry, error) {
	if !entry.Type.Valid() {
		return nil, types.NewError(types.ErrValidation, fmt.Sprintf("unknown transaction type %q", entry.Type), nil)
	}
	if err := utils.ValidateTransactionHash(entry.TxHash); err != nil {
		return nil, types.NewError(types.ErrValidation, "invalid txHash", err)
	}
	if entry.Amount == "" {
		entry.Amount = "0"
	}
	if entry.Status == "" {
		entry.Status = types.TxStatusCompleted
	}

	row := &storage.Transaction{
		Type:      string(entry.Type),
		From:      entry.From,
		To:        entry.To,
		Amount:    entry.Amount,
		TxHash:    entry.TxHash,
		Status:    string(entry.Status),
		CreatedAt: l.now(),
	}
	if err := l.store.AppendTransaction(ctx, row); err != nil {
		l.metrics.IncCounter("ledger_append", map[string]string{"status": "error"})
		return nil, err
	}

	l.metrics.IncCounter("ledger_append", map[string]string{"status": "ok"})
	l.log.Debug("ledger entry recorded", map[string]any{"type": row.Type, "tx_hash": row.TxHash})
	return toEntry(row), nil
}

// List returns a page of entries, newest first.
func (l *Ledger) List(ctx context.Context, q Query) (*Page, error) {
	if q.Page == 0 {
		q.Page = types.DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = types.DefaultLimit
	}
	if err := utils.ValidateStruct(q); err != nil {
		return nil, err
	}

	rows, total, err := l.store.ListTransactions(ctx, storage.TxFilter{
		Address: q.Address,
		From:    q.From,
		To:      q.To,
		Type:    q.Type,
		Offset:  q.Offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	p := types.NewPagination(total, q.Page, q.Limit)
	return &Page{
		Transactions: toEntries(rows),
		Pagination: Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.Pages,
		},
	}, nil
}

// ByAddress returns every entry sent from or to address, newest first.
func (l *Ledger) ByAddress(ctx context.Context, address string) ([]types.LedgerEntry, error) {
	if address == "" {
		return nil, types.NewError(types.ErrValidation, "address is required", nil)
	}
	return l.Search(ctx, storage.TxFilter{Address: address})
}

// ByType returns every entry of type t, newest first.
func (l *Ledger) ByType(ctx context.Context, t string) ([]types.LedgerEntry, error) {
	if !types.TxType(t).Valid() {
		return nil, types.NewError(types.ErrValidation, fmt.Sprintf("unknown transaction type %q", t), nil)
	}
	return l.Search(ctx, storage.TxFilter{Type: t})
}

// Search returns every entry matching f, newest first. Offset and Limit
// in f are honoured when set.
func (l *Ledger) Search(ctx context.Context, f storage.TxFilter) ([]types.LedgerEntry, error) {
	rows, _, err := l.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	return toEntries(rows), nil
}

func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	byType, total, err := l.store.CountTransactionsByType(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Total: total, ByType: byType}, nil
}

func toEntries(rows []storage.Transaction) []types.LedgerEntry {
	out := make([]types.LedgerEntry, 0, len(rows))
	for i := range rows {
		out = append(out, *toEntry(&rows[i]))
	}
	return out
}

func toEntry(row *storage.Transaction) *types.LedgerEntry {
	return &types.LedgerEntry{
		ID:        row.ID,
		Type:      types.TxType(row.Type),
		From:      row.From,
		To:        row.To,
		Amount:    row.Amount,
		TxHash:    row.TxHash,
		Status:    types.TxStatus(row.Status),
		CreatedAt: row.CreatedAt,
	}
}
