package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelector matches everything that costs tokens without helping
// the model find a price.
const nonContentSelector = "script, style, iframe, img, svg, link, meta, noscript, footer, header, nav, aside"

// SanitizeHTML strips non-content nodes from a rendered page and returns
// the remaining body markup, ready to hand to the extraction oracle.
func SanitizeHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse page markup: %v", err)
	}

	doc.Find(nonContentSelector).Remove()

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize cleaned markup: %v", err)
	}
	return strings.TrimSpace(body), nil
}
