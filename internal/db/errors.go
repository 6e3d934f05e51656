package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// IsDuplicate recognizes unique-constraint violations from both postgres and
// sqlite, with or without gorm error translation. The find-or-create paths
// use it to detect a lost creation race and re-fetch instead of failing.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
