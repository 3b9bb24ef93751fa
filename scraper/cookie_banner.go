package scraper

import (
	"log"
	"time"

	"proteinwatch/models"
)

// CookieOutcome says what happened to the consent overlay before
// interpretation started. None of these is fatal to the caller.
type CookieOutcome int

const (
	CookieNotFound CookieOutcome = iota
	CookieDismissed
	CookieDismissFailed
)

func (o CookieOutcome) String() string {
	switch o {
	case CookieDismissed:
		return "dismissed"
	case CookieDismissFailed:
		return "dismiss_failed"
	default:
		return "not_found"
	}
}

// CookieResult records which locator matched and, when the click failed,
// why. Kept for diagnostics only.
type CookieResult struct {
	Outcome CookieOutcome
	Locator string
	Err     error
}

// defaultCookieLocators covers the consent frameworks seen across the
// retailers in the catalog. Dutch shops first.
var defaultCookieLocators = []string{
	`//button[@id='onetrust-accept-btn-handler']`,
	`//button[contains(., 'Accepteer')]`,
	`//button[contains(., 'Alles accepteren')]`,
	`//button[contains(., 'Akkoord')]`,
	`//button[contains(., 'Accept all')]`,
	`//button[contains(., 'Accept')]`,
	`//div[@id='cookiescript_accept']`,
	`//a[contains(@class, 'cookie') and contains(., 'OK')]`,
}

// ResolveCookieBanner tries to dismiss a consent overlay: operator-supplied
// locators first, then the built-in defaults, each with half the element
// timeout. Best effort by contract; it never blocks the recipe.
func ResolveCookieBanner(sess Session, operatorLocators []string, timeout time.Duration) CookieResult {
	candidates := make([]string, 0, len(operatorLocators)+len(defaultCookieLocators))
	candidates = append(candidates, operatorLocators...)
	candidates = append(candidates, defaultCookieLocators...)

	for _, locator := range candidates {
		el, err := sess.Locate(models.LocatorXPath, locator, timeout/2)
		if err != nil {
			continue
		}
		if err := el.Click(); err != nil {
			log.Printf("cookie banner found at %s but dismiss failed: %v", locator, err)
			return CookieResult{Outcome: CookieDismissFailed, Locator: locator, Err: err}
		}
		// Give the overlay time to animate away.
		time.Sleep(time.Second)
		log.Printf("cookie banner dismissed via %s", locator)
		return CookieResult{Outcome: CookieDismissed, Locator: locator}
	}
	return CookieResult{Outcome: CookieNotFound}
}
