package scraper

import (
	"fmt"
	"log"
	"os"
	"time"

	"proteinwatch/models"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Session is one isolated browser context for a single product's scrape
// attempt. Implementations must not share cookies or storage between
// sessions.
type Session interface {
	Locate(strategy models.LocatorStrategy, expr string, timeout time.Duration) (Element, error)
	HTML() (string, error)
	Screenshot() ([]byte, error)
	Close() error
}

// Element is a located page node the interpreter can act on.
type Element interface {
	Click() error
	Text() (string, error)
	// TextNodes concatenates the element's direct text-node children,
	// skipping nested element text. Needed for prices split across markup.
	TextNodes() (string, error)
	SelectByLabel(label string) error
}

// SessionProvider opens isolated sessions against live pages.
type SessionProvider interface {
	OpenSession(url string) (Session, error)
	Close() error
}

// stealthScript masks the usual automation giveaways before any page
// script runs.
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {
		get: () => undefined,
	});
	Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['nl-NL', 'nl', 'en'],
	});
	window.chrome = { runtime: {} };
`

// Engine owns the shared headless browser and hands out isolated
// per-product sessions backed by incognito contexts.
type Engine struct {
	browser    *rod.Browser
	navTimeout time.Duration
}

// NewEngine launches the browser. Uses the system Chromium when one is
// installed (the Docker image ships one), auto-detects otherwise.
func NewEngine(browserBin string) (*Engine, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false)

	if browserBin != "" {
		l = l.Bin(browserBin)
	} else if _, err := os.Stat("/usr/bin/chromium-browser"); err == nil {
		l = l.Bin("/usr/bin/chromium-browser")
		log.Printf("Using system Chromium")
	} else {
		log.Printf("Using auto-detected Chromium")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	return &Engine{browser: browser, navTimeout: 30 * time.Second}, nil
}

// OpenSession creates a fresh incognito context, applies the stealth
// overrides, navigates and waits for the load event.
func (e *Engine) OpenSession(url string) (Session, error) {
	ctx, err := e.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create incognito context: %v", err)
	}

	page, err := ctx.Page(proto.TargetCreateTarget{})
	if err != nil {
		disposeContext(ctx)
		return nil, fmt.Errorf("failed to open page: %v", err)
	}

	sess := &rodSession{ctx: ctx, page: page}
	if err := sess.prepare(url, e.navTimeout); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// Close shuts the shared browser down.
func (e *Engine) Close() error {
	if e.browser != nil {
		return e.browser.Close()
	}
	return nil
}

type rodSession struct {
	ctx  *rod.Browser
	page *rod.Page
}

func (s *rodSession) prepare(url string, navTimeout time.Duration) error {
	if _, err := s.page.EvalOnNewDocument(stealthScript); err != nil {
		return fmt.Errorf("failed to install stealth script: %v", err)
	}
	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1920, Height: 1080, DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("failed to set viewport: %v", err)
	}

	nav := s.page.Timeout(navTimeout)
	if err := nav.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %v", url, err)
	}
	if err := nav.WaitLoad(); err != nil {
		return fmt.Errorf("failed to load %s: %v", url, err)
	}
	return nil
}

func (s *rodSession) Locate(strategy models.LocatorStrategy, expr string, timeout time.Duration) (Element, error) {
	page := s.page.Timeout(timeout)

	var el *rod.Element
	var err error
	switch strategy {
	case models.LocatorCSS:
		el, err = page.Element(expr)
	case models.LocatorXPath, "":
		el, err = page.ElementX(expr)
	default:
		return nil, fmt.Errorf("unknown locator strategy %q", strategy)
	}
	if err != nil {
		return nil, fmt.Errorf("locator %q (%s) did not resolve: %v", expr, strategy, err)
	}
	return &rodElement{el: el, timeout: timeout}, nil
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

func (s *rodSession) Screenshot() ([]byte, error) {
	return s.page.Screenshot(false, nil)
}

func (s *rodSession) Close() error {
	pageErr := s.page.Close()
	if err := disposeContext(s.ctx); err != nil {
		return err
	}
	return pageErr
}

func disposeContext(ctx *rod.Browser) error {
	return proto.TargetDisposeBrowserContext{
		BrowserContextID: ctx.BrowserContextID,
	}.Call(ctx)
}

type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *rodElement) Click() error {
	el := e.el.Timeout(e.timeout)
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("element never became visible: %v", err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll element into view: %v", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %v", err)
	}
	return nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) TextNodes() (string, error) {
	res, err := e.el.Eval(`() => Array.from(this.childNodes)
		.filter(node => node.nodeType === Node.TEXT_NODE)
		.map(node => node.textContent.trim())
		.join("")`)
	if err != nil {
		return "", fmt.Errorf("failed to read text nodes: %v", err)
	}
	return res.Value.Str(), nil
}

func (e *rodElement) SelectByLabel(label string) error {
	if err := e.el.Select([]string{label}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("failed to select option %q: %v", label, err)
	}
	return nil
}
