package storage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRequest persists a payment request. Rows are never deleted.
type PaymentRequest struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	Amount      string `gorm:"not null"`
	Token       string `gorm:"size:8;not null"`
	Description string
	FromAddress string    `gorm:"index;not null"`
	Status      string    `gorm:"size:16;index;not null"`
	ExpiresAt   time.Time `gorm:"not null"`
	TxHash      string    `gorm:"size:66"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

// Transaction is an append-only ledger row.
type Transaction struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Type      string    `gorm:"size:32;index;not null"`
	From      string    `gorm:"column:from_address;index"`
	To        string    `gorm:"column:to_address;index"`
	Amount    string    `gorm:"not null"`
	TxHash    string    `gorm:"size:66;index"`
	Status    string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"index"`
}

// ENSName records a name registered through the L2 registrar.
type ENSName struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Name      string `gorm:"uniqueIndex;not null"`
	Owner     string `gorm:"index;not null"`
	TxHash    string `gorm:"size:66"`
	CreatedAt time.Time
}

// KYCVerification is the latest verification outcome per user.
type KYCVerification struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	UserID      string `gorm:"uniqueIndex;not null"`
	Name        string
	Nationality string
	DateOfBirth string
	Status      string `gorm:"size:16;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CDP mirrors a collateralized debt position opened through the dashboard.
type CDP struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Owner        string    `gorm:"index;not null"`
	Collateral   string    `gorm:"not null"`
	Debt         string    `gorm:"not null"`
	InterestRate int64     `gorm:"not null"`
	LastAccrual  time.Time `gorm:"not null"`
	IsLiquidated bool
	TxHash       string    `gorm:"size:66"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// StabilityDeposit mirrors a stability pool deposit.
type StabilityDeposit struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Depositor string    `gorm:"index;not null"`
	Amount    string    `gorm:"not null"`
	TxHash    string    `gorm:"size:66"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (m *PaymentRequest) BeforeCreate(*gorm.DB) error   { m.ID = ensureID(m.ID); return nil }
func (m *Transaction) BeforeCreate(*gorm.DB) error      { m.ID = ensureID(m.ID); return nil }
func (m *ENSName) BeforeCreate(*gorm.DB) error          { m.ID = ensureID(m.ID); return nil }
func (m *KYCVerification) BeforeCreate(*gorm.DB) error  { m.ID = ensureID(m.ID); return nil }
func (m *CDP) BeforeCreate(*gorm.DB) error              { m.ID = ensureID(m.ID); return nil }
func (m *StabilityDeposit) BeforeCreate(*gorm.DB) error { m.ID = ensureID(m.ID); return nil }

func ensureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// AutoMigrate performs all schema migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&PaymentRequest{},
		&Transaction{},
		&ENSName{},
		&KYCVerification{},
		&CDP{},
		&StabilityDeposit{},
	)
}
