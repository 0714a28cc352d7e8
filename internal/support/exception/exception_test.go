package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/recordhub/internal/support/exception"
)

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("store", "failed to connect", originalErr, true)

	assert.Equal(t, "store", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.Equal(t, "[store] failed to connect: db connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("store", "task %d not found", 10)
	assert.False(t, be1.IsRetryable())
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, "[store] task 10 not found", be1.Error())

	be2 := exception.NewBatchErrorf("queue", "dequeue failed", true)
	assert.True(t, be2.IsRetryable())

	cause := errors.New("io error")
	be3 := exception.NewBatchErrorf("storage", "read %s failed", "a.csv", true, cause)
	assert.True(t, be3.IsRetryable())
	assert.Equal(t, cause, be3.Unwrap())
	assert.Equal(t, "read a.csv failed", be3.Message)
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(exception.NewBatchError("queue", "x", nil, true)))
	assert.False(t, exception.IsTemporary(exception.NewBatchError("loader", "x", nil, false)))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: i/o timeout")))

	wrapped := fmt.Errorf("run: %w", exception.NewBatchError("store", "lost", errors.New("connection reset by peer"), false))
	assert.True(t, exception.IsTemporary(wrapped))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "clean", exception.ExtractErrorMessage(fmt.Errorf("ctx: %w", exception.NewBatchError("m", "clean", errors.New("noise"), false))))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}

func TestLoadError(t *testing.T) {
	err := exception.NewLoadError(3, "Country", "country", "Narnia", exception.ErrCountry)

	assert.Equal(t, `row 3: column "Country": invalid country ("Narnia")`, err.Error())
	assert.True(t, errors.Is(err, exception.ErrCountry))
	assert.True(t, exception.IsLoadError(fmt.Errorf("load: %w", err)))
}

func TestValidationError(t *testing.T) {
	err := &exception.ValidationError{
		Row:  5,
		Kind: "funding",
		Fields: []exception.FieldError{
			{Field: "Type", Value: "LOAN", Rule: "fundingtype"},
			{Field: "Title", Rule: "required"},
		},
	}

	assert.Equal(t, `row 5: funding record failed validation: Type: fundingtype ("LOAN"); Title: required`, err.Error())
	assert.True(t, exception.IsLoadError(err))
	assert.False(t, exception.IsLoadError(errors.New("other")))
}
