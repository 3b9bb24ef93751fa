package scheduler

import (
	"context"
	"fmt"
	"log"

	"proteinwatch/models"
)

// Feed is the publishing side of the product store.
type Feed interface {
	GetProducts() ([]models.Product, error)
}

// Publisher pushes the curated product feed to the content system.
type Publisher interface {
	PublishAll(products []models.Product) error
}

// Notifier delivers the batch report to operators.
type Notifier interface {
	SendWarningReport(report *models.BatchReport) error
}

// Pipeline glues a scrape run to its downstream effects: the warning email
// and, when the run looks healthy, republishing the feed. Too many warnings
// means the batch itself is suspect (a site-wide layout change, a broken
// browser), and stale published data beats garbage.
type Pipeline struct {
	Orchestrator *Orchestrator
	Feed         Feed
	Publisher    Publisher
	Notifier     Notifier
	MaxWarnings  int
}

// ScrapeAndPublish runs a full batch, reports warnings, and republishes the
// feed unless the warning count crosses the publish gate.
func (pl *Pipeline) ScrapeAndPublish(ctx context.Context) (*models.BatchReport, error) {
	report, err := pl.Orchestrator.RunBatch(ctx)
	if err != nil {
		return nil, err
	}

	if pl.Notifier != nil {
		if err := pl.Notifier.SendWarningReport(report); err != nil {
			log.Printf("failed to send warning report: %v", err)
		}
	}

	if len(report.Warnings) >= pl.MaxWarnings {
		log.Printf("too many warnings (%d >= %d), not publishing", len(report.Warnings), pl.MaxWarnings)
		return report, nil
	}

	if pl.Publisher != nil {
		products, err := pl.Feed.GetProducts()
		if err != nil {
			return report, fmt.Errorf("failed to load products for publishing: %v", err)
		}
		if err := pl.Publisher.PublishAll(products); err != nil {
			return report, fmt.Errorf("failed to publish feed: %v", err)
		}
		report.Published = true
		log.Println("scrape run healthy, feed republished")
	}
	return report, nil
}
