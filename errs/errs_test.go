package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfUnwrapsThroughFmtErrorf(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("context: %w", Key(cause))

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindKey, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorsIsUnwrapsToSentinel(t *testing.T) {
	sentinel := errors.New("not found")
	wrapped := Trust(sentinel)

	assert.True(t, errors.Is(wrapped, sentinel))
}

func TestErrorMessageIncludesKindAndCause(t *testing.T) {
	err := Signature(errors.New("expired"))
	assert.Equal(t, "signature_error: expired", err.Error())
}
