package inventory

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAvailable(t *testing.T) {
	tests := []struct {
		name     string
		rec      Record
		expected int
	}{
		{"no reservations", Record{Quantity: 10}, 10},
		{"partially reserved", Record{Quantity: 10, Reserved: 3}, 7},
		{"fully reserved", Record{Quantity: 5, Reserved: 5}, 0},
		{"empty", Record{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.rec.Available())
		})
	}
}

func TestCheckQuantity(t *testing.T) {
	require.NoError(t, CheckQuantity(1, MaxLineQuantity))
	require.NoError(t, CheckQuantity(MaxLineQuantity, MaxLineQuantity))

	require.ErrorIs(t, CheckQuantity(0, MaxLineQuantity), ErrInvalidQuantity)
	require.ErrorIs(t, CheckQuantity(-1, MaxLineQuantity), ErrInvalidQuantity)
	require.ErrorIs(t, CheckQuantity(MaxLineQuantity+1, MaxLineQuantity), ErrInvalidQuantity)

	// Path-specific bounds: the same quantity can be fine for checkout and
	// rejected on re-order.
	require.NoError(t, CheckQuantity(11, MaxLineQuantity))
	require.ErrorIs(t, CheckQuantity(11, 10), ErrInvalidQuantity)
}

func TestInsufficientStockError(t *testing.T) {
	err := error(&InsufficientStockError{VariantID: 7, Requested: 5, Available: 2})

	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, "variant 7: requested 5, only 2 available", err.Error())

	wrapped := errors.Wrap(err, "reserve")
	require.ErrorIs(t, wrapped, ErrInsufficientStock)

	var isErr *InsufficientStockError
	require.ErrorAs(t, wrapped, &isErr)
	assert.Equal(t, int64(7), isErr.VariantID)
}
