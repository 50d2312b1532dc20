package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is the relational store behind every service.
type Store struct {
	db *gorm.DB
}

// Open connects using driver and dsn and migrates the schema.
func Open(driver, dsn string, debug bool) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(level)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PaymentFilter narrows ListPaymentRequests. Zero fields match everything.
type PaymentFilter struct {
	FromAddress string
	Status      string
	Offset      int
	Limit       int
}

func (s *Store) CreatePaymentRequest(ctx context.Context, req *PaymentRequest) error {
	return wrap("create payment request", s.db.WithContext(ctx).Create(req).Error)
}

func (s *Store) GetPaymentRequest(ctx context.Context, id string) (*PaymentRequest, error) {
	var req PaymentRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, wrap("get payment request", err)
	}
	return &req, nil
}

// CompletePaymentRequest sets status and txHash on the request and appends
// entry to the ledger in one transaction. Prior status is not checked.
// entry.From and entry.Amount are filled from the request.
func (s *Store) CompletePaymentRequest(ctx context.Context, id, status, txHash string, entry *Transaction, now time.Time) (*PaymentRequest, error) {
	var req PaymentRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			return err
		}
		req.Status = status
		req.TxHash = txHash
		req.UpdatedAt = now
		if err := tx.Model(&req).Updates(map[string]interface{}{
			"status":     status,
			"tx_hash":    txHash,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}

		entry.From = req.FromAddress
		entry.Amount = req.Amount
		entry.TxHash = txHash
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, wrap("complete payment request", err)
	}
	return &req, nil
}

func (s *Store) ListPaymentRequests(ctx context.Context, f PaymentFilter) ([]PaymentRequest, int64, error) {
	q := s.db.WithContext(ctx).Model(&PaymentRequest{})
	if f.FromAddress != "" {
		q = q.Where("from_address = ?", f.FromAddress)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrap("count payment requests", err)
	}

	var rows []PaymentRequest
	if err := paginate(q, f.Offset, f.Limit).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, wrap("list payment requests", err)
	}
	return rows, total, nil
}

// TxFilter narrows ListTransactions. Address matches either side.
type TxFilter struct {
	Address string
	From    string
	To      string
	Type    string
	Offset  int
	Limit   int
}

func (s *Store) AppendTransaction(ctx context.Context, tx *Transaction) error {
	return wrap("append transaction", s.db.WithContext(ctx).Create(tx).Error)
}

func (s *Store) ListTransactions(ctx context.Context, f TxFilter) ([]Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&Transaction{})
	if f.Address != "" {
		q = q.Where("from_address = ? OR to_address = ?", f.Address, f.Address)
	}
	if f.From != "" {
		q = q.Where("from_address = ?", f.From)
	}
	if f.To != "" {
		q = q.Where("to_address = ?", f.To)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrap("count transactions", err)
	}

	var rows []Transaction
	if err := paginate(q, f.Offset, f.Limit).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, wrap("list transactions", err)
	}
	return rows, total, nil
}

// CountTransactionsByType returns per-type counts and the overall total.
func (s *Store) CountTransactionsByType(ctx context.Context) (map[string]int64, int64, error) {
	var rows []struct {
		Type  string
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&Transaction{}).
		Select("type, count(*) as count").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, wrap("count transactions by type", err)
	}

	byType := make(map[string]int64, len(rows))
	var total int64
	for _, r := range rows {
		byType[r.Type] = r.Count
		total += r.Count
	}
	return byType, total, nil
}

func (s *Store) CreateENSName(ctx context.Context, name *ENSName) error {
	return wrap("create ens name", s.db.WithContext(ctx).Create(name).Error)
}

// FindENSNameByOwner returns the newest name owned by owner, ignoring case.
func (s *Store) FindENSNameByOwner(ctx context.Context, owner string) (*ENSName, error) {
	var name ENSName
	err := s.db.WithContext(ctx).
		Where("LOWER(owner) = ?", strings.ToLower(owner)).
		Order("created_at desc").
		First(&name).Error
	if err != nil {
		return nil, wrap("find ens name", err)
	}
	return &name, nil
}

// UpsertKYCVerification stores the latest verification of a user.
func (s *Store) UpsertKYCVerification(ctx context.Context, v *KYCVerification) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "nationality", "date_of_birth", "status", "updated_at"}),
	}).Create(v).Error
	return wrap("upsert kyc verification", err)
}

func (s *Store) GetKYCVerification(ctx context.Context, userID string) (*KYCVerification, error) {
	var v KYCVerification
	if err := s.db.WithContext(ctx).First(&v, "user_id = ?", userID).Error; err != nil {
		return nil, wrap("get kyc verification", err)
	}
	return &v, nil
}

func (s *Store) CreateCDP(ctx context.Context, cdp *CDP) error {
	return wrap("create cdp", s.db.WithContext(ctx).Create(cdp).Error)
}

// FindCDPByOwner returns the newest position of owner.
func (s *Store) FindCDPByOwner(ctx context.Context, owner string) (*CDP, error) {
	var cdp CDP
	err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at desc").
		First(&cdp).Error
	if err != nil {
		return nil, wrap("find cdp", err)
	}
	return &cdp, nil
}

func (s *Store) ListCDPs(ctx context.Context, owner string, offset, limit int) ([]CDP, int64, error) {
	q := s.db.WithContext(ctx).Model(&CDP{})
	if owner != "" {
		q = q.Where("owner = ?", owner)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrap("count cdps", err)
	}
	var rows []CDP
	if err := paginate(q, offset, limit).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, wrap("list cdps", err)
	}
	return rows, total, nil
}

func (s *Store) CreateStabilityDeposit(ctx context.Context, d *StabilityDeposit) error {
	return wrap("create stability deposit", s.db.WithContext(ctx).Create(d).Error)
}

// FindDepositByDepositor returns the newest deposit of depositor.
func (s *Store) FindDepositByDepositor(ctx context.Context, depositor string) (*StabilityDeposit, error) {
	var d StabilityDeposit
	err := s.db.WithContext(ctx).
		Where("depositor = ?", depositor).
		Order("created_at desc").
		First(&d).Error
	if err != nil {
		return nil, wrap("find stability deposit", err)
	}
	return &d, nil
}

func (s *Store) ListStabilityDeposits(ctx context.Context, offset, limit int) ([]StabilityDeposit, int64, error) {
	q := s.db.WithContext(ctx).Model(&StabilityDeposit{})
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, wrap("count stability deposits", err)
	}
	var rows []StabilityDeposit
	if err := paginate(q, offset, limit).Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, 0, wrap("list stability deposits", err)
	}
	return rows, total, nil
}

// paginate applies offset/limit; limit <= 0 returns every row.
func paginate(q *gorm.DB, offset, limit int) *gorm.DB {
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}
