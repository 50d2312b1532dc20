package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zest-protocol/dashboard/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// json names in error messages
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister("amount", validateAmountTag)
	mustRegister("address", validateAddressTag)
	mustRegister("txhash", validateTxHashTag)
}

func mustRegister(tag string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// ValidateStruct runs tag validation and maps failures to a validation error.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return types.NewError(types.ErrValidation, describeValidation(err), nil)
	}
	return nil
}

// DecodeJSON parses a JSON body into v and validates it.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return types.NewError(types.ErrValidation, "request body is required", nil)
		}
		return types.NewError(types.ErrValidation, fmt.Sprintf("failed to parse request body: %v", err), nil)
	}
	return ValidateStruct(v)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Sprintf("validation failed: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "amount":
			msgs = append(msgs, fmt.Sprintf("%s must be a non-negative decimal with at most %d decimals", fe.Field(), types.Decimals))
		case "address":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid address", fe.Field()))
		case "txhash":
			msgs = append(msgs, fmt.Sprintf("%s must be a 0x-prefixed 32-byte hash", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func validateAmountTag(fl validator.FieldLevel) bool {
	_, err := ValidateAmountWithDecimals(fl.Field().String(), types.Decimals)
	return err == nil
}

func validateAddressTag(fl validator.FieldLevel) bool {
	return IsAddress(fl.Field().String())
}

func validateTxHashTag(fl validator.FieldLevel) bool {
	return ValidateTransactionHash(fl.Field().String()) == nil
}
