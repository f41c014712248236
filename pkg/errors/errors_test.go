package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesTypeAndCode(t *testing.T) {
	enriched := ErrNoMigrationPath.Clone().WithDetail("from", "0.1.0")
	wrapped := fmt.Errorf("load: %w", enriched)

	assert.True(t, errors.Is(wrapped, ErrNoMigrationPath))
	assert.False(t, errors.Is(wrapped, ErrMigrationPathTooLong))
	assert.True(t, IsMigration(wrapped))
	assert.Empty(t, ErrNoMigrationPath.Details, "clone must not leak details into the sentinel")
}

func TestNewFieldError(t *testing.T) {
	err := NewFieldError("name", "required", "name is required")

	assert.Equal(t, "name", err.Field())
	assert.Equal(t, "required", err.Constraint())
	assert.True(t, IsValidation(err))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	assert.False(t, v.HasErrors())
	assert.Nil(t, v.First())

	v.Add("name", "required", "name is required")
	v.Add("strength", "lte", "strength must be at most 1")
	v.Add("strength", "gte", "strength must be at least 0")

	require.True(t, v.HasErrors())
	assert.Equal(t, "name", v.First().Field())
	assert.Contains(t, v.Error(), "name: name is required")
	assert.Len(t, v.ToMap()["strength"], 2)

	var err error = v
	assert.True(t, IsValidation(err))
	assert.True(t, errors.Is(err, ErrValidation))

	got, ok := AsValidationErrors(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	assert.Len(t, got.Errors, 3)
}

func TestNewPersistenceError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewPersistenceError("filestore", "save", cause)

	assert.True(t, IsPersistence(err))
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "filestore", err.Details["backend"])
}
