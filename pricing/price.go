package pricing

import (
	"math"

	"proteinwatch/models"
)

// Round2 rounds to two decimal places, the canonical price precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyDiscount applies the product's standing discount terms to a scraped
// price. Unknown or empty discount types leave the price untouched; the
// result never goes below zero.
func ApplyDiscount(price float64, discountType string, value float64) float64 {
	if value <= 0 || price <= 0 {
		return price
	}
	switch discountType {
	case models.DiscountPercentage:
		price -= price * value / 100
	case models.DiscountAbsolute:
		price -= value
	default:
		return price
	}
	if price < 0 {
		price = 0
	}
	return Round2(price)
}

// ProteinPrice computes the price per 100 g of protein: the number the
// whole comparison site ranks on. Zero when the price or the nutrition
// fields are missing.
func ProteinPrice(price, amount, proteinPer100g float64) float64 {
	if price <= 0 || amount <= 0 || proteinPer100g <= 0 {
		return 0
	}
	proteinGrams := amount * proteinPer100g / 100
	return Round2(price / proteinGrams * 100)
}
