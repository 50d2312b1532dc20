// Package protocol prepares and records calls against the Zest contracts:
// the CDP manager, the stability pool and the ZEST/USDT swap. It also
// serves the price feed.
//
// Prepared calls are returned unsigned. The wallet signs and submits them,
// then reports the transaction hash back through the Record methods.
package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/utils"
)

// Contracts holds the deployed addresses the services call.
type Contracts struct {
	CDPManager    common.Address
	StabilityPool common.Address
	Swap          common.Address
	ZEST          common.Address
	USDT          common.Address
}

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(types.Decimals), nil)

// toBase scales a human-unit amount to 18-decimal base units.
func toBase(field, amount string) (*big.Int, error) {
	v, err := utils.ParseAmountWithDecimals(amount, types.Decimals)
	if err != nil {
		return nil, types.NewError(types.ErrValidation, fmt.Sprintf("invalid %s", field), err)
	}
	return v, nil
}

func formatEther(v *big.Int) string {
	return utils.FormatAmountFromBigInt(v, types.Decimals)
}

func payload(to common.Address, value *big.Int, data []byte) *types.TxPayload {
	if value == nil {
		value = new(big.Int)
	}
	return &types.TxPayload{
		To:    to.Hex(),
		Value: value.String(),
		Data:  hexutil.Encode(data),
	}
}

func chainError(op string, err error) error {
	return types.NewError(types.ErrChain, op, err)
}

func checkTxHash(txHash string) error {
	if err := utils.ValidateTransactionHash(txHash); err != nil {
		return types.NewError(types.ErrValidation, "invalid txHash", err)
	}
	return nil
}

// pageOf fills page defaults and validates q.
func pageOf(q types.PageQuery) (types.PageQuery, error) {
	if q.Page == 0 {
		q.Page = types.DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = types.DefaultLimit
	}
	if err := utils.ValidateStruct(q); err != nil {
		return q, err
	}
	return q, nil
}
