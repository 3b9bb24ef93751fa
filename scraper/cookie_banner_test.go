package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveCookieBannerNotFound(t *testing.T) {
	sess := &fakeSession{}

	res := ResolveCookieBanner(sess, nil, 10*time.Millisecond)

	assert.Equal(t, CookieNotFound, res.Outcome)
	// Every default candidate was tried.
	assert.Len(t, sess.locates, len(defaultCookieLocators))
}

func TestResolveCookieBannerOperatorLocatorsFirst(t *testing.T) {
	button := &fakeElement{}
	sess := &fakeSession{elements: map[string]*fakeElement{
		`//button[@id='shop-consent']`: button,
	}}

	res := ResolveCookieBanner(sess, []string{`//button[@id='shop-consent']`}, 10*time.Millisecond)

	assert.Equal(t, CookieDismissed, res.Outcome)
	assert.Equal(t, `//button[@id='shop-consent']`, res.Locator)
	assert.Equal(t, 1, button.clicks)
	// No default locator was consulted once the operator's matched.
	assert.Equal(t, []string{`//button[@id='shop-consent']`}, sess.locates)
}

func TestResolveCookieBannerDefaultFallback(t *testing.T) {
	button := &fakeElement{}
	sess := &fakeSession{elements: map[string]*fakeElement{
		`//button[@id='onetrust-accept-btn-handler']`: button,
	}}

	res := ResolveCookieBanner(sess, []string{`//button[@id='never-matches']`}, 10*time.Millisecond)

	assert.Equal(t, CookieDismissed, res.Outcome)
	assert.Equal(t, 1, button.clicks)
}

func TestResolveCookieBannerClickFailure(t *testing.T) {
	button := &fakeElement{clickErr: errors.New("covered by another element")}
	sess := &fakeSession{elements: map[string]*fakeElement{
		`//button[contains(., 'Accepteer')]`: button,
	}}

	res := ResolveCookieBanner(sess, nil, 10*time.Millisecond)

	assert.Equal(t, CookieDismissFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestCookieOutcomeString(t *testing.T) {
	assert.Equal(t, "not_found", CookieNotFound.String())
	assert.Equal(t, "dismissed", CookieDismissed.String())
	assert.Equal(t, "dismiss_failed", CookieDismissFailed.String())
}
