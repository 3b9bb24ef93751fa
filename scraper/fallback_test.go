package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"proteinwatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOracle struct {
	suggestion *OracleSuggestion
	err        error
	calls      int
	sawHTML    string
}

func (o *fakeOracle) ExtractPrice(ctx context.Context, cleanedHTML string) (*OracleSuggestion, error) {
	o.calls++
	o.sawHTML = cleanedHTML
	return o.suggestion, o.err
}

func TestFallbackPrefersLivePriceOverGuess(t *testing.T) {
	oracle := &fakeOracle{suggestion: &OracleSuggestion{
		Price:        "18,00",
		SelectorType: "css",
		Selector:     ".price-tag",
	}}
	sess := &fakeSession{
		html: "<html><body><span class='price-tag'>€19,99</span></body></html>",
		elements: map[string]*fakeElement{
			".price-tag": {text: "€19,99"},
		},
	}

	res := NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	assert.Equal(t, 19.99, res.Price)
	require.Len(t, res.Actions, 1)
	action := res.Actions[0]
	assert.NotEmpty(t, action.ID)
	assert.Equal(t, models.ActionExtractText, action.Kind)
	assert.Equal(t, models.LocatorCSS, action.Strategy)
	assert.Equal(t, ".price-tag", action.Locator)
}

func TestFallbackUsesGuessWhenLiveReadUnusable(t *testing.T) {
	oracle := &fakeOracle{suggestion: &OracleSuggestion{
		Price:        "21,50",
		SelectorType: "xpath",
		Selector:     `//span[@id='p']`,
	}}
	sess := &fakeSession{
		html: "<html><body><span id='p'></span></body></html>",
		elements: map[string]*fakeElement{
			`//span[@id='p']`: {textErr: errors.New("node detached")},
		},
	}

	res := NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	assert.Equal(t, 21.5, res.Price)
	require.Len(t, res.Actions, 1)
}

func TestFallbackUnverifiedSelectorYieldsNothing(t *testing.T) {
	oracle := &fakeOracle{suggestion: &OracleSuggestion{
		Price:        "15,00",
		SelectorType: "css",
		Selector:     ".does-not-exist",
	}}
	sess := &fakeSession{html: "<html><body></body></html>"}

	res := NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	// An unverifiable selector means the guessed price is not trusted either.
	assert.Zero(t, res.Price)
	assert.Nil(t, res.Actions)
}

func TestFallbackOracleFailureDegradesToZero(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("rate limited")}
	sess := &fakeSession{html: "<html><body></body></html>"}

	res := NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	assert.Zero(t, res.Price)
	assert.Nil(t, res.Actions)
}

func TestFallbackWithoutOracleIsNoop(t *testing.T) {
	sess := &fakeSession{html: "<html></html>"}

	res := NewFallbackExtractor(nil, 10*time.Millisecond).Recover(context.Background(), sess)

	assert.Zero(t, res.Price)
	// The page is never even captured.
	assert.Empty(t, sess.locates)
}

func TestFallbackSendsSanitizedMarkup(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("stop here")}
	sess := &fakeSession{
		html: "<html><head><script>track()</script></head><body><p>€9,99</p><footer>links</footer></body></html>",
	}

	NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	require.Equal(t, 1, oracle.calls)
	assert.NotContains(t, oracle.sawHTML, "track()")
	assert.NotContains(t, oracle.sawHTML, "footer")
	assert.Contains(t, oracle.sawHTML, "€9,99")
}

func TestFallbackInvalidStrategyDefaultsToXPath(t *testing.T) {
	oracle := &fakeOracle{suggestion: &OracleSuggestion{
		Price:        "10,00",
		SelectorType: "jquery",
		Selector:     `//span[@id='p']`,
	}}
	sess := &fakeSession{
		html: "<html><body><span id='p'>10,00</span></body></html>",
		elements: map[string]*fakeElement{
			`//span[@id='p']`: {text: "10,00"},
		},
	}

	res := NewFallbackExtractor(oracle, 10*time.Millisecond).Recover(context.Background(), sess)

	require.Len(t, res.Actions, 1)
	assert.Equal(t, models.LocatorXPath, res.Actions[0].Strategy)
	assert.Equal(t, 10.0, res.Price)
}
