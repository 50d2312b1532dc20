package types

import (
	"fmt"
	"time"
)

// Asset represents the fixed set of assets the dashboard moves and reads
type Asset string

const (
	AssetCBTC Asset = "cBTC" // native coin on Citrea
	AssetZEST Asset = "ZEST"
	AssetUSDT Asset = "USDT"
)

// Assets lists every supported asset in display order.
var Assets = []Asset{AssetCBTC, AssetZEST, AssetUSDT}

// TokenStandard represents how an asset is transferred on chain
type TokenStandard string

const (
	TokenStandardNative TokenStandard = "native"
	TokenStandardERC20  TokenStandard = "erc20"
)

// Decimals is the fixed scaling used for every asset amount.
const Decimals = 18

func (a Asset) Valid() bool {
	switch a {
	case AssetCBTC, AssetZEST, AssetUSDT:
		return true
	}
	return false
}

func (a Asset) Standard() TokenStandard {
	if a == AssetCBTC {
		return TokenStandardNative
	}
	return TokenStandardERC20
}

func (a Asset) String() string {
	return string(a)
}

// ParseAsset returns the asset for symbol or a validation error.
func ParseAsset(symbol string) (Asset, error) {
	a := Asset(symbol)
	if !a.Valid() {
		return "", NewError(ErrValidation, fmt.Sprintf("unsupported token %q", symbol), nil)
	}
	return a, nil
}

// PaymentStatus is the lifecycle state of a payment request
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentExpired   PaymentStatus = "EXPIRED"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentCompleted || s == PaymentExpired
}

// TxType tags a ledger entry by the action that produced it
type TxType string

const (
	TxPayment          TxType = "PAYMENT"
	TxSwap             TxType = "SWAP"
	TxStake            TxType = "STAKE"
	TxCDP              TxType = "CDP"
	TxStabilityDeposit TxType = "STABILITY_DEPOSIT"
	TxENSRegister      TxType = "ENS_REGISTER"
)

func (t TxType) Valid() bool {
	switch t {
	case TxPayment, TxSwap, TxStake, TxCDP, TxStabilityDeposit, TxENSRegister:
		return true
	}
	return false
}

// TxStatus is the caller-asserted status of a ledger entry
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusCompleted TxStatus = "COMPLETED"
	TxStatusFailed    TxStatus = "FAILED"
)

// KYCStatus is the verification state of a user
type KYCStatus string

const (
	KYCNotVerified KYCStatus = "NOT_VERIFIED"
	KYCVerified    KYCStatus = "VERIFIED"
)

// PaymentRequest is a request for funds addressed to FromAddress.
// FromAddress is the receiver of the payment, stored as supplied.
type PaymentRequest struct {
	ID          string        `json:"id"`
	Amount      string        `json:"amount"`
	Token       Asset         `json:"token"`
	Description string        `json:"description,omitempty"`
	FromAddress string        `json:"fromAddress"`
	Status      PaymentStatus `json:"status"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	TxHash      string        `json:"txHash,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// LedgerEntry is one completed on-chain action recorded by the backend
type LedgerEntry struct {
	ID        string    `json:"id"`
	Type      TxType    `json:"type"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Amount    string    `json:"amount"`
	TxHash    string    `json:"txHash"`
	Status    TxStatus  `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pagination describes a page of a listing
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// PageQuery is the common page/limit pair used by listings
type PageQuery struct {
	Page  int `json:"page" validate:"min=1"`
	Limit int `json:"limit" validate:"min=1,max=100"`
}

// Offset returns the number of rows to skip.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)
