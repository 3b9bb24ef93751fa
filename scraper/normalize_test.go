package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"plain decimal", "19.99", 19.99},
		{"comma decimal", "19,99", 19.99},
		{"euro prefix", "€19,99", 19.99},
		{"euro with space", "€ 24,50", 24.5},
		{"pound prefix", "£12.49", 12.49},
		{"dollar prefix", "$9.99", 9.99},
		{"thousands separator", "1.234,56", 1234.56},
		{"period thousands with period decimal", "1.234.56", 1234.56},
		{"whole number", "45", 45},
		{"surrounding whitespace", "  29,95  ", 29.95},
		{"interpreter accumulation", "19.99", 19.99},
		{"text around number", "Nu voor 34,90!", 34.9},
		{"empty string", "", 0},
		{"no digits", "Uitverkocht", 0},
		{"lone period", ".", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanPrice(tt.raw))
		})
	}
}

func TestCleanPriceNeverPanicsOnGarbage(t *testing.T) {
	for _, raw := range []string{"...", ",,,", "€€€", "1.2.3.4.5", "€,.", "−19,99"} {
		assert.GreaterOrEqual(t, CleanPrice(raw), 0.0, "input %q", raw)
	}
}
