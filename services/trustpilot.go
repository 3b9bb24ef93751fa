package services

import (
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"proteinwatch/models"
	"proteinwatch/repository"
	"proteinwatch/scraper"
)

const trustpilotScoreXPath = `//*[@id="business-unit-title"]/div/div/p`

// TrustpilotService refreshes review scores for every product that carries a
// Trustpilot URL. Scores are fetched once per review page and shared across
// products pointing at the same page.
type TrustpilotService struct {
	repo     *repository.ProductRepository
	sessions scraper.SessionProvider
	interp   *scraper.Interpreter
}

func NewTrustpilotService(repo *repository.ProductRepository, sessions scraper.SessionProvider, interp *scraper.Interpreter) *TrustpilotService {
	return &TrustpilotService{repo: repo, sessions: sessions, interp: interp}
}

// RefreshAll scrapes each distinct review page once and writes the score to
// every product referencing it. Per-page failures are logged and skipped so
// one broken page cannot stall the rest.
func (t *TrustpilotService) RefreshAll() error {
	products, err := t.repo.GetProducts()
	if err != nil {
		return fmt.Errorf("failed to load products for Trustpilot refresh: %v", err)
	}

	scores := make(map[string]float64)
	updated := 0
	for i := range products {
		p := &products[i]
		if p.TrustpilotURL == "" {
			continue
		}
		page := reviewPageURL(p.TrustpilotURL)
		score, ok := scores[page]
		if !ok {
			score, err = t.fetchScore(page)
			if err != nil {
				log.Printf("Trustpilot refresh failed for %s: %v", page, err)
				continue
			}
			scores[page] = score
		}
		err := t.repo.UpdateProduct(p.ID, map[string]any{"trustpilot_score": score})
		if err != nil {
			log.Printf("failed to store Trustpilot score for %s: %v", p.Name, err)
			continue
		}
		updated++
	}
	log.Printf("Trustpilot refresh done, %d products updated from %d pages", updated, len(scores))
	return nil
}

func (t *TrustpilotService) fetchScore(page string) (float64, error) {
	sess, err := t.sessions.OpenSession(page)
	if err != nil {
		return 0, fmt.Errorf("failed to open review page: %v", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("failed to close Trustpilot session: %v", err)
		}
	}()

	recipe := []models.Action{{
		ID:       "trustpilot-score",
		Kind:     models.ActionExtractText,
		Strategy: models.LocatorXPath,
		Locator:  trustpilotScoreXPath,
	}}
	raw, scrapeErr := t.interp.Run(sess, recipe)
	if scrapeErr != nil {
		return 0, fmt.Errorf("failed to read score: %s", scrapeErr.Message)
	}

	score, err := parseTrustpilotScore(raw)
	if err != nil {
		return 0, err
	}
	return score, nil
}

// reviewPageURL turns a stored shop URL or bare domain into the full
// Trustpilot review page address. Already-complete review URLs pass through.
func reviewPageURL(stored string) string {
	s := strings.TrimSpace(stored)
	if strings.Contains(s, "trustpilot.com/review/") {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host
	}
	s = strings.TrimPrefix(s, "www.")
	return "https://www.trustpilot.com/review/" + s
}

func parseTrustpilotScore(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	fields := strings.Fields(cleaned)
	for _, f := range fields {
		score, err := strconv.ParseFloat(f, 64)
		if err == nil && score >= 0 && score <= 5 {
			return score, nil
		}
	}
	return 0, fmt.Errorf("no score found in %q", raw)
}
