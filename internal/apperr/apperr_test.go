package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("variant %d not found", 7)))
	assert.Equal(t, KindInvalidState, KindOf(InvalidState("cannot go from %s to %s", "A", "B")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("while shipping: %w", InsufficientStock(42, decimal.NewFromInt(3)))
	assert.Equal(t, KindInsufficientStock, KindOf(err))

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, int64(42), e.VariantID)
	assert.True(t, e.Shortfall.Equal(decimal.NewFromInt(3)))
}

func TestRetryableUnwraps(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := Retryable(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindRetryable, KindOf(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{InvalidInput("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{InvalidState("locked"), http.StatusUnprocessableEntity},
		{InsufficientStock(1, decimal.NewFromInt(1)), http.StatusUnprocessableEntity},
		{InsufficientAvailability(1, decimal.NewFromInt(1)), http.StatusUnprocessableEntity},
		{Conflict("dup"), http.StatusConflict},
		{Retryable(errors.New("x")), http.StatusConflict},
		{New(KindUnauthorized, "no token"), http.StatusUnauthorized},
		{New(KindForbidden, "no role"), http.StatusForbidden},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("untyped"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock(9, decimal.RequireFromString("2.5"))
	assert.Contains(t, err.Error(), "variant 9")
	assert.Contains(t, err.Error(), "2.5")
}
