package scheduler

import (
	"context"
	"errors"
	"log"

	"github.com/robfig/cron/v3"
)

// TrustpilotRefresher refreshes review scores outside the main scrape loop.
type TrustpilotRefresher interface {
	RefreshAll() error
}

// CatalogBackup snapshots the product catalog to durable storage.
type CatalogBackup interface {
	Run() error
}

// Scheduler owns the cron wiring: four scrape-and-publish runs a day, a
// weekly catalog backup, and a weekly Trustpilot refresh. Triggers that land
// while a run is in flight are skipped, not queued.
type Scheduler struct {
	cron       *cron.Cron
	pipeline   *Pipeline
	trustpilot TrustpilotRefresher
	backup     CatalogBackup
}

func NewScheduler(pipeline *Pipeline, trustpilot TrustpilotRefresher, backup CatalogBackup) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		pipeline:   pipeline,
		trustpilot: trustpilot,
		backup:     backup,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc("0 0 0,6,12,18 * * *", s.runScrape); err != nil {
		log.Printf("Failed to schedule scrape runs: %v", err)
		return
	}
	if s.trustpilot != nil {
		if _, err := s.cron.AddFunc("0 10 13 * * 0", s.runTrustpilot); err != nil {
			log.Printf("Failed to schedule Trustpilot refresh: %v", err)
		}
	}
	if s.backup != nil {
		if _, err := s.cron.AddFunc("0 0 13 * * 0", s.runBackup); err != nil {
			log.Printf("Failed to schedule catalog backup: %v", err)
		}
	}

	s.cron.Start()
	log.Println("Scheduler started: scrape runs at 00:00/06:00/12:00/18:00, backup Sunday 13:00, Trustpilot refresh Sunday 13:10")
}

// Stop stops the cron loop. A run already in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) runScrape() {
	log.Println("Scheduled scrape run starting")
	if _, err := s.pipeline.ScrapeAndPublish(context.Background()); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			log.Println("Previous scrape run still in progress, skipping this trigger")
			return
		}
		log.Printf("Scheduled scrape run failed: %v", err)
	}
}

func (s *Scheduler) runBackup() {
	if err := s.backup.Run(); err != nil {
		log.Printf("Catalog backup failed: %v", err)
	}
}

func (s *Scheduler) runTrustpilot() {
	log.Println("Scheduled Trustpilot refresh starting")
	if err := s.trustpilot.RefreshAll(); err != nil {
		log.Printf("Trustpilot refresh failed: %v", err)
	}
}
