package utils

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	hexPattern    = regexp.MustCompile("^[0-9a-fA-F]+$")
	amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// MaxAmountBits bounds a scaled amount to what a uint256 slot holds.
const MaxAmountBits = 256

// maxAmountLength fits the 78 digits of 2^256-1, a point and 18 decimals.
const maxAmountLength = 97

// ValidateAmount checks if an amount string is a plain non-negative decimal.
// Signs, exponents and surrounding spaces are rejected.
func ValidateAmount(amount string) (*decimal.Decimal, error) {
	if strings.TrimSpace(amount) == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	if len(amount) > maxAmountLength {
		return nil, fmt.Errorf("amount is too long")
	}
	if !amountPattern.MatchString(amount) {
		return nil, fmt.Errorf("invalid amount format: %q is not a plain decimal", amount)
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	return &dec, nil
}

// ValidateAmountWithDecimals checks amount like ValidateAmount and also
// rejects more fractional digits than decimals can hold, or a base-unit
// value wider than MaxAmountBits.
func ValidateAmountWithDecimals(amount string, decimals int) (*decimal.Decimal, error) {
	_, dec, err := scaleAmount(amount, decimals)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// ParseAmountWithDecimals converts a human-unit amount to base units.
// It fails instead of truncating when amount has too many fractional digits.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	base, _, err := scaleAmount(amount, decimals)
	if err != nil {
		return nil, err
	}
	return base, nil
}

func scaleAmount(amount string, decimals int) (*big.Int, *decimal.Decimal, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return nil, nil, err
	}
	shifted := dec.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, nil, fmt.Errorf("amount has more than %d decimal places", decimals)
	}
	base := shifted.BigInt()
	if base.BitLen() > MaxAmountBits {
		return nil, nil, fmt.Errorf("amount exceeds %d bits in base units", MaxAmountBits)
	}
	return base, dec, nil
}

// FormatAmountFromBigInt formats a base-unit amount as a decimal string
func FormatAmountFromBigInt(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// ValidateTransactionHash checks an EVM transaction hash (0x + 64 hex).
func ValidateTransactionHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}
	if !strings.HasPrefix(hash, "0x") {
		return fmt.Errorf("transaction hash must start with 0x")
	}
	if len(hash) != 66 {
		return fmt.Errorf("transaction hash must be 66 characters long")
	}
	if !isHexString(hash[2:]) {
		return fmt.Errorf("transaction hash must be valid hex")
	}
	return nil
}

// ValidateAddress checks an account address and returns its checksummed form.
// Single-case input is accepted as is; mixed-case input must carry a
// valid EIP-55 checksum.
func ValidateAddress(address string) (common.Address, error) {
	if address == "" {
		return common.Address{}, fmt.Errorf("address cannot be empty")
	}
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return common.Address{}, fmt.Errorf("address must start with 0x")
	}
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("address must be 20 bytes of hex")
	}

	addr := common.HexToAddress(address)
	body := address[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return common.Address{}, fmt.Errorf("bad address checksum")
		}
	}
	return addr, nil
}

// IsAddress reports whether address passes ValidateAddress.
func IsAddress(address string) bool {
	_, err := ValidateAddress(address)
	return err == nil
}

// Helper function to check if a string is valid hexadecimal
func isHexString(s string) bool {
	return hexPattern.MatchString(s)
}
