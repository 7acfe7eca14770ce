package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Custom errors specific to tenant stores
var ErrSenderNotFound = fmt.Errorf("no staff sender available")
var ErrSchemaIncompatible = fmt.Errorf("tenant schema lacks reminder support")
var ErrUnknownTenant = fmt.Errorf("unknown tenant")

const (
	pqUndefinedTable  = "42P01"
	pqUndefinedColumn = "42703"
)

// IsSchemaError reports whether err is a missing relation/column error, or already
// classified as ErrSchemaIncompatible.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSchemaIncompatible) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUndefinedTable || pqErr.Code == pqUndefinedColumn
	}
	return false
}
