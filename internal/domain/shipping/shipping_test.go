package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPolicyCalculator(t *testing.T) {
	calc := NewPolicyCalculator(
		decimal.RequireFromString("500000"),
		decimal.RequireFromString("30000"),
	)

	tests := []struct {
		name     string
		subtotal string
		expected string
	}{
		{"below threshold", "499999.99", "30000"},
		{"at threshold", "500000", "0"},
		{"above threshold", "750000", "0"},
		{"zero subtotal", "0", "30000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := calc.Calculate("D1", "W1", decimal.RequireFromString(tt.subtotal))
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.expected)),
				"expected %s, got %s", tt.expected, fee)
		})
	}
}
