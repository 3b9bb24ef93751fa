package main

import (
	"log"
	"net/http"
	"strings"

	"proteinwatch/config"
	"proteinwatch/database"
	"proteinwatch/handlers"
	"proteinwatch/middleware"
	"proteinwatch/pricing"
	"proteinwatch/repository"
	"proteinwatch/scheduler"
	"proteinwatch/scraper"
	"proteinwatch/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	repo := repository.NewProductRepository()

	// Initialize the browser engine shared by all scraping work
	engine, err := scraper.NewEngine(cfg.BrowserBin)
	if err != nil {
		log.Fatalf("Failed to start browser engine: %v", err)
	}
	defer engine.Close()

	interp := scraper.NewInterpreter(cfg.ElementTimeout, cfg.RetryAttempts, cfg.RetryBackoffBase)

	var oracle scraper.PriceExtractionOracle
	if cfg.OpenAIKey != "" {
		oracle = scraper.NewOpenAIOracle(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAITimeout)
	} else {
		log.Println("OPENAI_API_KEY not set, AI price fallback disabled")
	}
	fallback := scraper.NewFallbackExtractor(oracle, cfg.OpenAITimeout)

	guard := pricing.NewAnomalyGuard(cfg.MaxDropPercent)

	orchestrator := scheduler.NewOrchestrator(repo, engine, interp, fallback, guard, cfg.DashboardURL)

	publisher := services.NewWordpressPublisher(cfg.WordpressURL, cfg.WordpressUser, cfg.WordpressAppPass)
	notifier := services.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.ReportFrom, splitList(cfg.ReportTo))
	trustpilot := services.NewTrustpilotService(repo, engine, interp)
	backup := services.NewBackupService(repo, cfg.BackupDir)

	pipeline := &scheduler.Pipeline{
		Orchestrator: orchestrator,
		Feed:         repo,
		Publisher:    publisher,
		Notifier:     notifier,
		MaxWarnings:  cfg.MaxWarnings,
	}

	// Scheduled runs: scrapes four times a day, backup and Trustpilot weekly
	sched := scheduler.NewScheduler(pipeline, trustpilot, backup)
	sched.Start()
	defer sched.Stop()

	h := handlers.NewHandlers(repo, engine, interp, pipeline, cfg)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(20))

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/status", h.Status).Methods("GET")

	r.HandleFunc("/products", h.GetProducts).Methods("GET")
	r.HandleFunc("/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	r.HandleFunc("/products/{id}", h.UpdateProduct).Methods("PATCH")
	r.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	r.HandleFunc("/products/{id}/history", h.GetPriceHistory).Methods("GET")
	r.HandleFunc("/products/{id}/confirm-price", h.ConfirmPrice).Methods("POST")

	r.HandleFunc("/product-clicked/{id}", h.ProductClicked).Methods("POST")
	r.HandleFunc("/scrape-all", h.ScrapeAll).Methods("POST")
	r.HandleFunc("/test-scraper", h.TestScraper).Methods("POST")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   splitList(cfg.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := cfg.Host + ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, c.Handler(r)))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
