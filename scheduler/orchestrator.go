package scheduler

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"proteinwatch/models"
	"proteinwatch/pricing"
	"proteinwatch/scraper"
)

// ErrRunInProgress is returned when a batch is requested while another one
// is still in flight. Scheduled and manual triggers both hit this.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// Catalog is the slice of the product store the orchestrator needs.
type Catalog interface {
	GetScrapeEnabledProducts() ([]models.Product, error)
	UpdateProduct(id string, fields map[string]any) error
	AddPriceHistory(productID string, price float64) error
	IncrementTopTen(productID string) error
}

// Orchestrator runs the full scrape-execute-and-reconcile pipeline over the
// enabled catalog: one isolated browser session per product, serialized, with
// per-product failures isolated from the batch.
type Orchestrator struct {
	catalog      Catalog
	sessions     scraper.SessionProvider
	interp       *scraper.Interpreter
	fallback     *scraper.FallbackExtractor
	guard        *pricing.AnomalyGuard
	dashboardURL string

	running atomic.Bool
}

func NewOrchestrator(
	catalog Catalog,
	sessions scraper.SessionProvider,
	interp *scraper.Interpreter,
	fallback *scraper.FallbackExtractor,
	guard *pricing.AnomalyGuard,
	dashboardURL string,
) *Orchestrator {
	return &Orchestrator{
		catalog:      catalog,
		sessions:     sessions,
		interp:       interp,
		fallback:     fallback,
		guard:        guard,
		dashboardURL: dashboardURL,
	}
}

// Running reports whether a batch is currently in flight.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// RunBatch scrapes every enabled product and persists the results. Only a
// catalog-store failure escapes; every per-product failure is converted
// into that product's outcome and the batch runs to completion. A second
// concurrent call returns ErrRunInProgress.
func (o *Orchestrator) RunBatch(ctx context.Context) (*models.BatchReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	products, err := o.catalog.GetScrapeEnabledProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %v", err)
	}

	report := &models.BatchReport{StartedAt: time.Now()}
	log.Printf("starting scrape run for %d products", len(products))

	for i := range products {
		p := &products[i]
		outcome := o.scrapeProduct(ctx, p)
		o.persist(p)
		report.Outcomes = append(report.Outcomes, outcome)
		if p.Warning {
			report.Warnings = append(report.Warnings, models.Warning{
				ProductID: p.ID,
				Name:      p.Name,
				URL:       fmt.Sprintf("%s/%s", o.dashboardURL, p.ID),
				Severity:  p.CountClicked,
			})
		}
	}

	for _, id := range pricing.TopTen(products) {
		if err := o.catalog.IncrementTopTen(id); err != nil {
			log.Printf("failed to record top-10 appearance for %s: %v", id, err)
		}
	}

	report.FinishedAt = time.Now()
	log.Printf("scrape run finished: %d outcomes, %d warnings (took %v)",
		len(report.Outcomes), len(report.Warnings), report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// scrapeProduct runs one product through cookie handling, the interpreter,
// the AI fallback, and the pricing steps. It mutates p with the reconciled
// price, warning flag and protein price; the caller persists.
func (o *Orchestrator) scrapeProduct(ctx context.Context, p *models.Product) models.ScrapeOutcome {
	outcome := models.ScrapeOutcome{ProductID: p.ID, ProductName: p.Name, URL: p.URL}
	log.Printf("scraping %s (%s)", p.Name, p.URL)

	sess, err := o.sessions.OpenSession(p.URL)
	if err != nil {
		outcome.Error = &models.ScrapeError{Message: fmt.Sprintf("failed to open session: %v", err), Index: -1}
		o.reconcile(p, &outcome, 0)
		return outcome
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("failed to close session for %s: %v", p.Name, err)
		}
	}()

	if res := scraper.ResolveCookieBanner(sess, p.CookieLocators, o.interp.Timeout); res.Outcome == scraper.CookieDismissFailed {
		log.Printf("cookie banner dismissal failed for %s, continuing anyway: %v", p.Name, res.Err)
	}

	raw, stepErr := o.interp.Run(sess, p.Recipe)
	outcome.RawText = raw
	price := scraper.CleanPrice(raw)

	if stepErr != nil {
		// Screenshot is a best-effort attachment; its own failure must not
		// mask the original error.
		if shot, err := sess.Screenshot(); err == nil {
			stepErr.Screenshot = base64.StdEncoding.EncodeToString(shot)
		} else {
			log.Printf("failed to capture diagnostic screenshot for %s: %v", p.Name, err)
		}
		outcome.Error = stepErr
		log.Printf("recipe failed for %s at action %d: %s", p.Name, stepErr.Index, stepErr.Message)
	} else {
		log.Printf("collected price for %s -> [%s] -> [%.2f]", p.Name, raw, price)
	}

	if stepErr != nil || price == 0 {
		outcome.UsedFallback = true
		recovered := o.fallback.Recover(ctx, sess)
		if recovered.Price > 0 {
			price = recovered.Price
			outcome.GeneratedActions = recovered.Actions
			log.Printf("AI fallback recovered price %.2f for %s", price, p.Name)
		}
	}

	o.reconcile(p, &outcome, price)
	return outcome
}

// reconcile applies discount terms, runs the anomaly guard against the last
// trusted price, recomputes the protein price and the warning flag.
func (o *Orchestrator) reconcile(p *models.Product, outcome *models.ScrapeOutcome, scraped float64) {
	price := pricing.ApplyDiscount(pricing.Round2(scraped), p.DiscountType, p.DiscountValue)

	decision := o.guard.Evaluate(p.Price, price)
	outcome.Quarantined = decision.Quarantined
	if decision.Quarantined {
		p.ProvisionalPrice = sql.NullFloat64{Float64: decision.Provisional, Valid: true}
		log.Printf("quarantined price for %s: %.2f -> %.2f is a %.1f%% drop, keeping %.2f",
			p.Name, p.Price, decision.Provisional, decision.DropPercent, p.Price)
	} else {
		p.Price = decision.Price
		p.ProvisionalPrice = sql.NullFloat64{}
	}

	p.ProteinPrice = pricing.ProteinPrice(p.Price, p.Amount, p.ProteinPer100g)
	p.Warning = pricing.ClassifyWarning(p.Price, p.HasNutritionData(), decision.Quarantined)
	outcome.Price = p.Price
}

// persist writes the reconciled fields back to the store. Each product's
// update is independent; a failed write is logged and the batch moves on.
func (o *Orchestrator) persist(p *models.Product) {
	now := time.Now()
	fields := map[string]any{
		"price":             p.Price,
		"provisional_price": nullableFloat(p.ProvisionalPrice),
		"protein_price":     p.ProteinPrice,
		"warning":           p.Warning,
		"last_scraped_at":   now,
	}
	if err := o.catalog.UpdateProduct(p.ID, fields); err != nil {
		log.Printf("failed to persist %s: %v", p.Name, err)
		return
	}
	if err := o.catalog.AddPriceHistory(p.ID, p.Price); err != nil {
		log.Printf("failed to append price history for %s: %v", p.Name, err)
	}
	p.LastScrapedAt = &now
}

func nullableFloat(v sql.NullFloat64) any {
	if v.Valid {
		return v.Float64
	}
	return nil
}
