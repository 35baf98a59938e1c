package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnsupportedType,
		ErrInvalidConfig,
		ErrMissingManifest,
		ErrDuplicateChunk,
		ErrMissingColumn,
		ErrAuthRequired,
		ErrAuthInvalid,
		ErrForbidden,
		ErrLLMUnavailable,
		ErrEmbeddingUnavailable,
	}

	for i, a := range all {
		assert.NotEmpty(t, a.Error())
		for j, b := range all {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
		}
	}
}

func TestErrorWrappingSurvivesFormatting(t *testing.T) {
	wrapped := fmt.Errorf("partition merged: %w", ErrMissingManifest)

	assert.ErrorIs(t, wrapped, ErrMissingManifest)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
}
