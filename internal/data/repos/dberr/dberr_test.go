package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMap(t *testing.T) {
	assert.Nil(t, Map(nil))
	assert.True(t, errors.Is(Map(gorm.ErrRecordNotFound), ErrNotFound))
	assert.True(t, errors.Is(Map(gorm.ErrRecordNotFound), gorm.ErrRecordNotFound))
	assert.True(t, errors.Is(Map(gorm.ErrDuplicatedKey), ErrConflict))

	pg := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.True(t, errors.Is(Map(pg), ErrConflict))

	other := &pgconn.PgError{Code: "23503"}
	assert.False(t, errors.Is(Map(other), ErrConflict))
	assert.Equal(t, error(other), Map(other))
}
