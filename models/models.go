package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Product represents one supplement listing being monitored for price changes.
// price always holds the last value considered safe to publish; when the
// anomaly guard quarantines a scrape, the candidate goes into
// provisional_price and waits for operator confirmation.
type Product struct {
	ID               string          `json:"id" db:"id"`
	Name             string          `json:"name" db:"name"`
	Brand            string          `json:"brand" db:"brand"`
	URL              string          `json:"url" db:"url"`
	Recipe           []Action        `json:"recipe" db:"recipe"`
	CookieLocators   []string        `json:"cookie_locators" db:"cookie_locators"`
	Amount           float64         `json:"amount" db:"amount"`
	ProteinPer100g   float64         `json:"protein_per_100g" db:"protein_per_100g"`
	DiscountType     string          `json:"discount_type" db:"discount_type"`
	DiscountValue    float64         `json:"discount_value" db:"discount_value"`
	Price            float64         `json:"price" db:"price"`
	ProvisionalPrice sql.NullFloat64 `json:"-" db:"provisional_price"`
	ProteinPrice     float64         `json:"protein_price" db:"protein_price"`
	Warning          bool            `json:"warning" db:"warning"`
	Enabled          bool            `json:"enabled" db:"enabled"`
	ScrapeEnabled    bool            `json:"scrape_enabled" db:"scrape_enabled"`
	TrustpilotURL    string          `json:"trustpilot_url" db:"trustpilot_url"`
	TrustpilotScore  sql.NullFloat64 `json:"-" db:"trustpilot_score"`
	CountTop10       int             `json:"count_top10" db:"count_top10"`
	CountClicked     int             `json:"count_clicked" db:"count_clicked"`
	LastScrapedAt    *time.Time      `json:"last_scraped_at" db:"last_scraped_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// Discount types accepted on a product record.
const (
	DiscountPercentage = "percentage"
	DiscountAbsolute   = "absolute"
)

// HasNutritionData reports whether the fields needed for protein-price math
// are present. Zero means the operator never filled them in.
func (p *Product) HasNutritionData() bool {
	return p.Amount > 0 && p.ProteinPer100g > 0
}

// HasProvisionalPrice reports whether a quarantined price is awaiting review.
func (p *Product) HasProvisionalPrice() bool {
	return p.ProvisionalPrice.Valid
}

// Publishable reports whether the product should be part of the published
// feed: enabled and not flagged for operator attention.
func (p *Product) Publishable() bool {
	return p.Enabled && !p.Warning
}

// MarshalJSON flattens the sql.Null* fields to plain nullable JSON numbers.
func (p *Product) MarshalJSON() ([]byte, error) {
	type Alias Product
	return json.Marshal(&struct {
		*Alias
		ProvisionalPrice *float64 `json:"provisional_price"`
		TrustpilotScore  *float64 `json:"trustpilot_score"`
	}{
		Alias:            (*Alias)(p),
		ProvisionalPrice: nullFloatPtr(p.ProvisionalPrice),
		TrustpilotScore:  nullFloatPtr(p.TrustpilotScore),
	})
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if v.Valid {
		f := v.Float64
		return &f
	}
	return nil
}

// PriceEntry is one point of a product's price history.
type PriceEntry struct {
	ID        int       `json:"id" db:"id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Price     float64   `json:"price" db:"price"`
	CheckedAt time.Time `json:"checked_at" db:"checked_at"`
}

// CreateProductRequest is the dashboard payload for adding a product.
type CreateProductRequest struct {
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	URL            string   `json:"url"`
	Recipe         []Action `json:"recipe"`
	Amount         float64  `json:"amount"`
	ProteinPer100g float64  `json:"protein_per_100g"`
	TrustpilotURL  string   `json:"trustpilot_url"`
}

// TestScraperRequest runs an ad-hoc recipe against a URL without touching
// the catalog. Used by the dashboard's recipe editor.
type TestScraperRequest struct {
	URL            string   `json:"url"`
	Actions        []Action `json:"actions"`
	CookieLocators []string `json:"cookie_locators"`
}
