package utils

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zest-protocol/dashboard/types"
)

func TestValidateAmount(t *testing.T) {
	for _, ok := range []string{"0", "1", "1.5", "0.000000000000000001"} {
		_, err := ValidateAmount(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "  ", "-1", "abc", "1.2.3", "1e3", "1E-2", "+1", ".5", "1.", " 1", strings.Repeat("9", 98)} {
		_, err := ValidateAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAmountWithDecimals(t *testing.T) {
	got, err := ParseAmountWithDecimals("1.5", 18)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, want, got)

	got, err = ParseAmountWithDecimals("2", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2000000), got)

	_, err = ParseAmountWithDecimals("0.0000000000000000001", 18)
	assert.Error(t, err)
}

func TestParseAmountWithDecimalsBounds(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	got, err := ParseAmountWithDecimals(maxUint256.String(), 0)
	require.NoError(t, err)
	assert.Equal(t, maxUint256, got)

	over := new(big.Int).Add(maxUint256, big.NewInt(1)).String()
	_, err = ParseAmountWithDecimals(over, 0)
	assert.ErrorContains(t, err, "256 bits")

	_, err = ParseAmountWithDecimals("1"+strings.Repeat("0", 60), 18)
	assert.Error(t, err)
	_, err = ValidateAmountWithDecimals("1"+strings.Repeat("0", 60), 18)
	assert.Error(t, err)

	_, err = ParseAmountWithDecimals("1e2000000000", 18)
	assert.ErrorContains(t, err, "plain decimal")
}

func TestFormatAmountFromBigInt(t *testing.T) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", FormatAmountFromBigInt(v, 18))
	assert.Equal(t, "0", FormatAmountFromBigInt(nil, 18))
	assert.Equal(t, "0", FormatAmountFromBigInt(new(big.Int), 18))
}

func TestValidateTransactionHash(t *testing.T) {
	assert.NoError(t, ValidateTransactionHash("0x"+strings.Repeat("a", 64)))
	assert.Error(t, ValidateTransactionHash(""))
	assert.Error(t, ValidateTransactionHash(strings.Repeat("a", 66)))
	assert.Error(t, ValidateTransactionHash("0x"+strings.Repeat("a", 63)))
	assert.Error(t, ValidateTransactionHash("0x"+strings.Repeat("z", 64)))
}

func TestValidateAddress(t *testing.T) {
	const checksummed = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

	addr, err := ValidateAddress(strings.ToLower(checksummed))
	require.NoError(t, err)
	assert.Equal(t, checksummed, addr.Hex())

	_, err = ValidateAddress(checksummed)
	assert.NoError(t, err)

	_, err = ValidateAddress("0xd8da6BF26964aF9D7eEd9e03E53415D37aA96045")
	assert.Error(t, err, "bad checksum")

	for _, bad := range []string{"", "d8dA6BF26964aF9D7eEd9e03E53415D37aA96045", "0x1234", "vitalik.eth"} {
		assert.False(t, IsAddress(bad), bad)
	}
}

func TestDecodeJSONValidates(t *testing.T) {
	var body struct {
		Amount  string `json:"amount" validate:"required,amount"`
		Address string `json:"address" validate:"required,address"`
		TxHash  string `json:"txHash" validate:"omitempty,txhash"`
	}

	err := DecodeJSON(strings.NewReader(`{"amount":"1","address":"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"}`), &body)
	require.NoError(t, err)

	err = DecodeJSON(strings.NewReader(`{"amount":"-1","address":"nope","txHash":"0x1"}`), &body)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrValidation))
	assert.Contains(t, err.Error(), "amount")
	assert.Contains(t, err.Error(), "address")
	assert.Contains(t, err.Error(), "txHash")

	err = DecodeJSON(strings.NewReader(""), &body)
	assert.True(t, types.IsCode(err, types.ErrValidation))

	err = DecodeJSON(strings.NewReader("{"), &body)
	assert.True(t, types.IsCode(err, types.ErrValidation))
}

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := PrivateKeyFromHex("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", AddressFromPrivateKey(key).Hex())

	_, err = PrivateKeyFromHex("")
	assert.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", NormalizeAddress("0xd8da6bf26964af9d7eed9e03e53415d37aa96045"))
	assert.Empty(t, NormalizeAddress("0x12"))
}
