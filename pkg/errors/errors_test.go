package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError(map[string]string{
		"title":  "is required",
		"author": "is required",
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "validation failed: author is required; title is required", err.Error())

	wrapped := fmt.Errorf("create book: %w", err)
	var vErr *ValidationError
	assert.True(t, errors.As(wrapped, &vErr))
	assert.Equal(t, "is required", vErr.Fields["title"])
}

func TestFieldError(t *testing.T) {
	err := FieldError("rental_price", "must be between 0 and 10000")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, err.Fields, 1)
}
