package scraper

import (
	"fmt"
	"log"
	"strings"
	"time"

	"proteinwatch/models"
)

const (
	DefaultElementTimeout = 5 * time.Second
	DefaultRetryAttempts  = 3
	DefaultRetryBackoff   = time.Second
)

// Interpreter executes a product's recipe against a live session. Actions
// run strictly in list order; each action gets a bounded number of attempts
// with linear backoff before the whole interpretation is aborted.
type Interpreter struct {
	Timeout     time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

func NewInterpreter(timeout time.Duration, maxAttempts int, backoffBase time.Duration) *Interpreter {
	if timeout <= 0 {
		timeout = DefaultElementTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRetryAttempts
	}
	if backoffBase <= 0 {
		backoffBase = DefaultRetryBackoff
	}
	return &Interpreter{Timeout: timeout, MaxAttempts: maxAttempts, BackoffBase: backoffBase}
}

// Run executes the recipe and returns the accumulated raw price text.
// Extracted text becomes the price; a second extraction is appended after a
// literal "." so a price split across a whole-number node and a fraction
// node ("19" then "99") comes out as "19.99". On failure the returned error
// carries the 0-based index of the action that exhausted its retries; no
// later action runs.
func (in *Interpreter) Run(sess Session, actions []models.Action) (string, *models.ScrapeError) {
	if len(actions) == 0 {
		return "", &models.ScrapeError{Message: "recipe is empty", Index: -1}
	}

	price := ""
	for i, action := range actions {
		if err := action.Validate(); err != nil {
			return "", &models.ScrapeError{Message: err.Error(), Index: i}
		}

		updated, err := in.runWithRetry(sess, action)
		if err != nil {
			return "", &models.ScrapeError{Message: err.Error(), Index: i}
		}
		if action.Kind == models.ActionExtractText {
			price = accumulate(price, updated)
		}
	}
	return price, nil
}

// runWithRetry attempts a single action up to the retry ceiling, sleeping
// attempt * backoff between tries.
func (in *Interpreter) runWithRetry(sess Session, action models.Action) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= in.MaxAttempts; attempt++ {
		text, err := in.perform(sess, action)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Printf("attempt %d/%d failed for %s action: %v", attempt, in.MaxAttempts, action.Kind, err)
		if attempt < in.MaxAttempts {
			time.Sleep(time.Duration(attempt) * in.BackoffBase)
		}
	}
	return "", lastErr
}

func (in *Interpreter) perform(sess Session, action models.Action) (string, error) {
	switch action.Kind {
	case models.ActionWait:
		time.Sleep(action.WaitDuration())
		return "", nil

	case models.ActionClick:
		el, err := sess.Locate(action.EffectiveStrategy(), action.Locator, in.Timeout)
		if err != nil {
			return "", err
		}
		return "", el.Click()

	case models.ActionSelectOption:
		el, err := sess.Locate(action.EffectiveStrategy(), action.Locator, in.Timeout)
		if err != nil {
			return "", err
		}
		return "", el.SelectByLabel(action.OptionLabel)

	case models.ActionExtractText:
		return in.extractText(sess, action)

	default:
		return "", fmt.Errorf("unknown action kind %q", action.Kind)
	}
}

func (in *Interpreter) extractText(sess Session, action models.Action) (string, error) {
	locator := action.Locator
	textOnly := action.TextNodeOnly

	// Recipes authored against raw XPath may target the text node directly;
	// resolve the parent element and concatenate its text children instead.
	if action.EffectiveStrategy() == models.LocatorXPath && strings.HasSuffix(locator, "/text()") {
		locator = strings.TrimSuffix(locator, "/text()")
		textOnly = true
	}

	el, err := sess.Locate(action.EffectiveStrategy(), locator, in.Timeout)
	if err != nil {
		return "", err
	}
	if textOnly {
		return el.TextNodes()
	}
	return el.Text()
}

func accumulate(price, text string) string {
	if price == "" {
		return text
	}
	return price + "." + text
}
