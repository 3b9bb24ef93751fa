package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"proteinwatch/models"
	"proteinwatch/pricing"
	"proteinwatch/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products []models.Product
	loadErr  error

	updates map[string]map[string]any
	history map[string][]float64
	topTens []string
	release chan struct{}
}

func newFakeCatalog(products ...models.Product) *fakeCatalog {
	return &fakeCatalog{
		products: products,
		updates:  make(map[string]map[string]any),
		history:  make(map[string][]float64),
	}
}

func (c *fakeCatalog) GetScrapeEnabledProducts() ([]models.Product, error) {
	if c.release != nil {
		<-c.release
	}
	return c.products, c.loadErr
}

func (c *fakeCatalog) UpdateProduct(id string, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates[id] = fields
	return nil
}

func (c *fakeCatalog) AddPriceHistory(productID string, price float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[productID] = append(c.history[productID], price)
	return nil
}

func (c *fakeCatalog) IncrementTopTen(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topTens = append(c.topTens, productID)
	return nil
}

type stubElement struct {
	text string
	err  error
}

func (e *stubElement) Click() error                     { return e.err }
func (e *stubElement) Text() (string, error)            { return e.text, e.err }
func (e *stubElement) TextNodes() (string, error)       { return e.text, e.err }
func (e *stubElement) SelectByLabel(label string) error { return e.err }

type stubSession struct {
	elements map[string]*stubElement
	html     string
}

func (s *stubSession) Locate(strategy models.LocatorStrategy, expr string, timeout time.Duration) (scraper.Element, error) {
	if el, ok := s.elements[expr]; ok {
		return el, nil
	}
	return nil, errors.New("locator did not resolve")
}

func (s *stubSession) HTML() (string, error)       { return s.html, nil }
func (s *stubSession) Screenshot() ([]byte, error) { return []byte("png"), nil }
func (s *stubSession) Close() error                { return nil }

// stubProvider maps product URLs to scripted sessions.
type stubProvider struct {
	sessions map[string]*stubSession
}

func (p *stubProvider) OpenSession(url string) (scraper.Session, error) {
	if sess, ok := p.sessions[url]; ok {
		return sess, nil
	}
	return nil, errors.New("connection refused")
}

func (p *stubProvider) Close() error { return nil }

type stubOracle struct {
	suggestion *scraper.OracleSuggestion
	err        error
}

func (o *stubOracle) ExtractPrice(ctx context.Context, cleanedHTML string) (*scraper.OracleSuggestion, error) {
	return o.suggestion, o.err
}

func testOrchestrator(catalog *fakeCatalog, provider *stubProvider, oracle scraper.PriceExtractionOracle) *Orchestrator {
	interp := scraper.NewInterpreter(5*time.Millisecond, 1, time.Millisecond)
	fallback := scraper.NewFallbackExtractor(oracle, 5*time.Millisecond)
	guard := pricing.NewAnomalyGuard(30)
	return NewOrchestrator(catalog, provider, interp, fallback, guard, "http://dash/products")
}

func TestRunBatchMixedOutcomes(t *testing.T) {
	recipe := []models.Action{{Kind: models.ActionExtractText, Locator: `//span[@id='price']`}}
	catalog := newFakeCatalog(
		models.Product{ID: "a", Name: "Whey A", URL: "http://a", Recipe: recipe,
			Price: 20, Amount: 1000, ProteinPer100g: 80},
		models.Product{ID: "b", Name: "Whey B", URL: "http://b", Recipe: recipe,
			Price: 30, Amount: 1000, ProteinPer100g: 75},
		models.Product{ID: "c", Name: "Whey C", URL: "http://c", Recipe: recipe,
			Price: 25, Amount: 500, ProteinPer100g: 70},
	)
	provider := &stubProvider{sessions: map[string]*stubSession{
		// A: deterministic recipe works.
		"http://a": {elements: map[string]*stubElement{`//span[@id='price']`: {text: "€21,50"}}},
		// B: recipe broken, AI fallback finds the price elsewhere.
		"http://b": {
			html:     "<html><body><div class='p'>€27,00</div></body></html>",
			elements: map[string]*stubElement{".p": {text: "€27,00"}},
		},
		// C: page does not even open.
	}}
	oracle := &stubOracle{suggestion: &scraper.OracleSuggestion{
		Price: "27,00", SelectorType: "css", Selector: ".p",
	}}

	report, err := testOrchestrator(catalog, provider, oracle).RunBatch(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Outcomes, 3)

	a, b, c := report.Outcomes[0], report.Outcomes[1], report.Outcomes[2]

	assert.Equal(t, 21.5, a.Price)
	assert.False(t, a.UsedFallback)
	assert.Nil(t, a.Error)

	assert.Equal(t, 27.0, b.Price)
	assert.True(t, b.UsedFallback)
	require.Len(t, b.GeneratedActions, 1)
	assert.Equal(t, ".p", b.GeneratedActions[0].Locator)

	// C keeps its old price quarantined and is flagged.
	assert.True(t, c.Quarantined)
	assert.Equal(t, 25.0, c.Price)
	require.NotNil(t, c.Error)
	assert.Equal(t, -1, c.Error.Index)

	// Every product was persisted, failures included.
	assert.Len(t, catalog.updates, 3)
	assert.True(t, catalog.updates["c"]["warning"].(bool))
	assert.Len(t, catalog.history["a"], 1)

	// Only the two healthy products can appear in the top ten.
	assert.ElementsMatch(t, []string{"a", "b"}, catalog.topTens)

	// Warning carries the dashboard deep link.
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "http://dash/products/c", report.Warnings[0].URL)
}

func TestRunBatchQuarantineKeepsOldPrice(t *testing.T) {
	recipe := []models.Action{{Kind: models.ActionExtractText, Locator: `//span[@id='price']`}}
	catalog := newFakeCatalog(models.Product{
		ID: "a", Name: "Whey A", URL: "http://a", Recipe: recipe,
		Price: 100, Amount: 1000, ProteinPer100g: 80,
	})
	provider := &stubProvider{sessions: map[string]*stubSession{
		"http://a": {elements: map[string]*stubElement{`//span[@id='price']`: {text: "€2,99"}}},
	}}

	report, err := testOrchestrator(catalog, provider, &stubOracle{err: errors.New("no oracle")}).
		RunBatch(context.Background())

	require.NoError(t, err)
	outcome := report.Outcomes[0]
	assert.True(t, outcome.Quarantined)
	assert.Equal(t, 100.0, outcome.Price)

	fields := catalog.updates["a"]
	assert.Equal(t, 100.0, fields["price"])
	assert.Equal(t, 2.99, fields["provisional_price"])
	assert.True(t, fields["warning"].(bool))
}

func TestRunBatchRejectsConcurrentRun(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.release = make(chan struct{})
	orch := testOrchestrator(catalog, &stubProvider{}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := orch.RunBatch(context.Background())
		assert.NoError(t, err)
	}()

	// Wait until the first run holds the flag.
	require.Eventually(t, orch.Running, time.Second, time.Millisecond)

	_, err := orch.RunBatch(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(catalog.release)
	<-done

	// The flag is released once the run finishes.
	assert.False(t, orch.Running())
}

func TestRunBatchCatalogFailure(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.loadErr = errors.New("connection reset")

	_, err := testOrchestrator(catalog, &stubProvider{}, nil).RunBatch(context.Background())

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrRunInProgress))
}

func TestRunBatchAppliesDiscountBeforeGuard(t *testing.T) {
	recipe := []models.Action{{Kind: models.ActionExtractText, Locator: `//span[@id='price']`}}
	catalog := newFakeCatalog(models.Product{
		ID: "a", Name: "Whey A", URL: "http://a", Recipe: recipe,
		Price: 25, Amount: 1000, ProteinPer100g: 80,
		DiscountType: models.DiscountPercentage, DiscountValue: 10,
	})
	provider := &stubProvider{sessions: map[string]*stubSession{
		"http://a": {elements: map[string]*stubElement{`//span[@id='price']`: {text: "€30,00"}}},
	}}

	report, err := testOrchestrator(catalog, provider, nil).RunBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 27.0, report.Outcomes[0].Price)
	// Protein price follows the discounted value: 27 / 800 g * 100.
	assert.Equal(t, 3.38, catalog.updates["a"]["protein_price"])
}
