package pricing

import (
	"testing"

	"proteinwatch/models"

	"github.com/stretchr/testify/assert"
)

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name         string
		price        float64
		discountType string
		value        float64
		want         float64
	}{
		{"percentage", 50, models.DiscountPercentage, 10, 45},
		{"percentage rounds", 19.99, models.DiscountPercentage, 15, 16.99},
		{"absolute", 50, models.DiscountAbsolute, 5, 45},
		{"absolute floors at zero", 5, models.DiscountAbsolute, 10, 0},
		{"no discount type", 50, "", 10, 50},
		{"unknown type untouched", 50, "bogo", 10, 50},
		{"zero value untouched", 50, models.DiscountPercentage, 0, 50},
		{"zero price untouched", 0, models.DiscountAbsolute, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyDiscount(tt.price, tt.discountType, tt.value))
		})
	}
}

func TestProteinPrice(t *testing.T) {
	// 1000 g at 80 g protein per 100 g holds 800 g protein;
	// €24 buys 800 g, so 100 g costs €3.
	assert.Equal(t, 3.0, ProteinPrice(24, 1000, 80))

	assert.Equal(t, 0.0, ProteinPrice(0, 1000, 80))
	assert.Equal(t, 0.0, ProteinPrice(24, 0, 80))
	assert.Equal(t, 0.0, ProteinPrice(24, 1000, 0))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 19.99, Round2(19.994))
	assert.Equal(t, 3.46, Round2(3.456))
	assert.Equal(t, 0.1, Round2(0.1))
}
