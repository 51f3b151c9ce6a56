package repo

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(gorm.ErrRecordNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", pgx.ErrNoRows)))
	assert.False(t, IsNotFound(fmt.Errorf("other")))
}

func TestPgErrorHelpers(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsCheckViolation(unique))

	code, msg := PgDetails(unique)
	if assert.NotNil(t, code) {
		assert.Equal(t, "23505", *code)
		assert.Equal(t, "duplicate key", *msg)
	}
	code, msg = PgDetails(fmt.Errorf("plain"))
	assert.Nil(t, code)
	assert.Nil(t, msg)

	assert.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	assert.NoError(t, err)
	b, _ := NewToken()
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
