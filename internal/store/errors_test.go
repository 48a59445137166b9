package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("lookup: %w", ErrNotFound), true},
		{"review state not found", ErrReviewStateNotFound, true},
		{"submission not found", ErrSubmissionNotFound, true},
		{"collection not found", fmt.Errorf("catalog: %w", ErrCollectionNotFound), true},
		{"duplicate is not not-found", ErrReviewStateExists, false},
		{
			"store error wrapping not found",
			NewStoreError("submission", "get", "missing", ErrSubmissionNotFound),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(ErrDuplicate))
	assert.True(t, IsDuplicateError(ErrReviewStateExists))
	assert.True(t, IsDuplicateError(fmt.Errorf("create: %w", ErrReviewStateExists)))
	assert.False(t, IsDuplicateError(ErrNotFound))
	assert.False(t, IsDuplicateError(nil))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreError("review_state", "update", "failed to update review state", cause)

	assert.Equal(t,
		"update operation on review_state failed: failed to update review state: connection reset",
		err.Error())
	assert.ErrorIs(t, err, cause)

	var se *StoreError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &se))
	assert.Equal(t, "review_state", se.Entity)

	noCause := NewStoreError("submission", "create", "invalid", nil)
	assert.Equal(t, "create operation on submission failed: invalid", noCause.Error())
	assert.Nil(t, noCause.Unwrap())
}
