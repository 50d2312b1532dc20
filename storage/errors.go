package storage

import (
	"errors"

	"github.com/zest-protocol/dashboard/types"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// wrap maps driver errors onto ErrNotFound or a STORE_ERROR.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return types.NewError(types.ErrStore, op, err)
}
