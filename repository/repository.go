// Package repository holds the gorm backed stores for cryptos, platforms,
// holdings and the daily balance series.
package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrStaleQuantity means a holding changed between read and write
var ErrStaleQuantity = errors.New("holding quantity changed concurrently")

// IsNotFound reports whether err means the record does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation.
// The connection must be opened with gorm.Config{TranslateError: true}.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
