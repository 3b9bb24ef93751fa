package models

import (
	"fmt"
	"time"
)

// ScrapeError describes a failed scrape attempt: what went wrong, the
// 0-based index of the recipe action that failed, and an optional
// base64-encoded diagnostic screenshot.
type ScrapeError struct {
	Message    string `json:"message"`
	Index      int    `json:"index"`
	Screenshot string `json:"screenshot,omitempty"`
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("action %d failed: %s", e.Index, e.Message)
}

// ScrapeOutcome is the per-product result of one scrape run. It lives only
// for the duration of the batch; its effects are persisted on the product
// record, not the outcome itself.
type ScrapeOutcome struct {
	ProductID        string       `json:"product_id"`
	ProductName      string       `json:"product_name"`
	URL              string       `json:"url"`
	RawText          string       `json:"raw_text"`
	Price            float64      `json:"price"`
	Quarantined      bool         `json:"quarantined"`
	UsedFallback     bool         `json:"used_fallback"`
	GeneratedActions []Action     `json:"generated_actions,omitempty"`
	Error            *ScrapeError `json:"error,omitempty"`
}

// Warning is one entry of the batch report fed to the notifier. Severity is
// the product's click count: a broken scraper on a popular product matters
// more than one nobody looks at.
type Warning struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Severity  int    `json:"severity"`
}

// BatchReport summarizes a full catalog run for notification and publishing.
type BatchReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Outcomes   []ScrapeOutcome `json:"outcomes"`
	Warnings   []Warning       `json:"warnings"`
	Published  bool            `json:"published"`
}
