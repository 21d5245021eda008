// Package dberr normalizes driver errors into the repo sentinels.
package dberr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	perrors "github.com/yungbote/ferag-backend/internal/pkg/errors"
)

var (
	ErrNotFound = perrors.ErrNotFound
	ErrConflict = perrors.ErrConflict
)

const pgUniqueViolation = "23505"

// Map wraps not-found and unique-violation errors with ErrNotFound and
// ErrConflict. Other errors pass through unchanged.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
