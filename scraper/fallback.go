package scraper

import (
	"context"
	"log"
	"time"

	"proteinwatch/models"

	"github.com/google/uuid"
)

// FallbackResult is what AI recovery produced. A zero Price means the
// fallback failed; Actions is non-nil only when the proposed selector was
// verified live, in which case it is a one-step replacement recipe the
// operator may choose to persist.
type FallbackResult struct {
	Price   float64
	Actions []models.Action
}

// FallbackExtractor recovers a price when the deterministic recipe failed
// or extracted nothing usable. It sanitizes the rendered markup, asks the
// oracle for a price and selector, and verifies the selector against the
// live page before trusting anything.
type FallbackExtractor struct {
	oracle  PriceExtractionOracle
	timeout time.Duration
}

func NewFallbackExtractor(oracle PriceExtractionOracle, timeout time.Duration) *FallbackExtractor {
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	return &FallbackExtractor{oracle: oracle, timeout: timeout}
}

// Recover never propagates a failure: anything going wrong inside degrades
// to a zero result so the product is simply marked with a warning.
func (f *FallbackExtractor) Recover(ctx context.Context, sess Session) FallbackResult {
	if f.oracle == nil {
		return FallbackResult{}
	}

	html, err := sess.HTML()
	if err != nil {
		log.Printf("fallback: failed to capture page markup: %v", err)
		return FallbackResult{}
	}

	cleaned, err := SanitizeHTML(html)
	if err != nil {
		log.Printf("fallback: failed to sanitize markup: %v", err)
		return FallbackResult{}
	}

	suggestion, err := f.oracle.ExtractPrice(ctx, cleaned)
	if err != nil {
		log.Printf("fallback: oracle call failed: %v", err)
		return FallbackResult{}
	}

	strategy := models.LocatorStrategy(suggestion.SelectorType)
	if strategy != models.LocatorCSS && strategy != models.LocatorXPath {
		strategy = models.LocatorXPath
	}

	el, err := sess.Locate(strategy, suggestion.Selector, f.timeout)
	if err != nil {
		log.Printf("fallback: proposed selector %q did not resolve live: %v", suggestion.Selector, err)
		return FallbackResult{}
	}

	// Selector verified. Prefer what the live page says over the model's
	// textual guess; fall back to the guess when the live read is unusable.
	price := 0.0
	if text, err := el.Text(); err == nil {
		price = CleanPrice(text)
	} else {
		log.Printf("fallback: failed to read verified element: %v", err)
	}
	if price <= 0 {
		price = CleanPrice(suggestion.Price)
	}

	actions := []models.Action{{
		ID:       uuid.NewString(),
		Kind:     models.ActionExtractText,
		Strategy: strategy,
		Locator:  suggestion.Selector,
	}}

	log.Printf("fallback: recovered price %.2f via %s selector %q", price, strategy, suggestion.Selector)
	return FallbackResult{Price: price, Actions: actions}
}
