package handlers

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"proteinwatch/config"
	"proteinwatch/models"
	"proteinwatch/pricing"
	"proteinwatch/scheduler"
	"proteinwatch/scraper"

	"github.com/gorilla/mux"
)

// ProductStore is the slice of the repository the HTTP layer needs.
type ProductStore interface {
	GetProducts() ([]models.Product, error)
	GetProductByID(id string) (*models.Product, error)
	CreateProduct(req *models.CreateProductRequest) (*models.Product, error)
	UpdateProduct(id string, fields map[string]any) error
	DeleteProduct(id string) error
	GetPriceHistory(productID string, limit int) ([]models.PriceEntry, error)
	AddPriceHistory(productID string, price float64) error
	IncrementClicked(productID string) error
}

type Handlers struct {
	repo     ProductStore
	sessions scraper.SessionProvider
	interp   *scraper.Interpreter
	pipeline *scheduler.Pipeline
	cfg      *config.Config
}

func NewHandlers(repo ProductStore, sessions scraper.SessionProvider, interp *scraper.Interpreter, pipeline *scheduler.Pipeline, cfg *config.Config) *Handlers {
	return &Handlers{
		repo:     repo,
		sessions: sessions,
		interp:   interp,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "proteinwatch",
		"running":   h.pipeline.Orchestrator.Running(),
	}
	writeJSON(w, http.StatusOK, response)
}

// Status reports catalog health: counts, warning load, and whether a
// scrape run is in flight.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetProducts()
	if err != nil {
		log.Printf("Failed to get products for status: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	warnings := 0
	provisional := 0
	for i := range products {
		if products[i].Warning {
			warnings++
		}
		if products[i].HasProvisionalPrice() {
			provisional++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":          time.Now(),
		"total_products":     len(products),
		"warnings":           warnings,
		"provisional_prices": provisional,
		"scrape_running":     h.pipeline.Orchestrator.Running(),
	})
}

// GetProducts returns the full catalog
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetProducts()
	if err != nil {
		log.Printf("Failed to get products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProduct adds a new product to the catalog
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.URL == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "URL and name are required")
		return
	}
	for i := range req.Recipe {
		if err := req.Recipe[i].Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	product, err := h.repo.CreateProduct(&req)
	if err != nil {
		log.Printf("Failed to create product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// GetProduct returns a single product by ID
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProduct applies a partial update to a product
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	if err := h.repo.UpdateProduct(id, fields); err != nil {
		log.Printf("Failed to update product %s: %v", id, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct removes a product from the catalog
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.repo.DeleteProduct(id); err != nil {
		log.Printf("Failed to delete product %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// GetPriceHistory returns recorded prices for a product, newest first
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	history, err := h.repo.GetPriceHistory(id, limit)
	if err != nil {
		log.Printf("Failed to get price history for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to get price history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// ConfirmPrice promotes a quarantined provisional price to the real price.
// The protein price and warning flag are recomputed from the promoted value.
func (h *Handlers) ConfirmPrice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if !product.HasProvisionalPrice() {
		writeError(w, http.StatusConflict, "Product has no provisional price to confirm")
		return
	}

	price := product.ProvisionalPrice.Float64
	proteinPrice := pricing.ProteinPrice(price, product.Amount, product.ProteinPer100g)
	warning := pricing.ClassifyWarning(price, product.HasNutritionData(), false)

	err = h.repo.UpdateProduct(id, map[string]any{
		"price":             price,
		"provisional_price": nil,
		"protein_price":     proteinPrice,
		"warning":           warning,
	})
	if err != nil {
		log.Printf("Failed to confirm price for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to confirm price")
		return
	}
	if err := h.repo.AddPriceHistory(id, price); err != nil {
		log.Printf("Failed to record confirmed price for %s: %v", id, err)
	}

	product.Price = price
	product.ProvisionalPrice = sql.NullFloat64{}
	product.ProteinPrice = proteinPrice
	product.Warning = warning
	writeJSON(w, http.StatusOK, product)
}

// ProductClicked records an outbound click on a product link
func (h *Handlers) ProductClicked(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.repo.IncrementClicked(id); err != nil {
		log.Printf("Failed to record click for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to record click")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Click recorded"})
}

// ScrapeAll kicks off a full scrape-and-publish run in the background.
// Returns 409 when a run is already in progress.
func (h *Handlers) ScrapeAll(w http.ResponseWriter, r *http.Request) {
	if h.pipeline.Orchestrator.Running() {
		writeError(w, http.StatusConflict, "A scrape run is already in progress")
		return
	}

	go func() {
		report, err := h.pipeline.ScrapeAndPublish(context.Background())
		if err != nil {
			log.Printf("Manual scrape run failed: %v", err)
			return
		}
		log.Printf("Manual scrape run finished: %d products, %d warnings, published=%v",
			len(report.Outcomes), len(report.Warnings), report.Published)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Scrape run started"})
}

// TestScraper runs an ad-hoc recipe against a URL without touching the
// catalog. Used by the dashboard's recipe editor to debug recipes.
func (h *Handlers) TestScraper(w http.ResponseWriter, r *http.Request) {
	var req models.TestScraperRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	sess, err := h.sessions.OpenSession(req.URL)
	if err != nil {
		log.Printf("Test scrape failed to open %s: %v", req.URL, err)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "Failed to open page: " + err.Error(),
		})
		return
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("Failed to close test session: %v", err)
		}
	}()

	cookie := scraper.ResolveCookieBanner(sess, req.CookieLocators, h.cfg.ElementTimeout)
	log.Printf("Test scrape cookie banner: %s", cookie.Outcome)

	raw, scrapeErr := h.interp.Run(sess, req.Actions)
	if scrapeErr != nil {
		response := map[string]interface{}{
			"success":      false,
			"error":        scrapeErr.Message,
			"failed_index": scrapeErr.Index,
		}
		if shot, err := sess.Screenshot(); err == nil {
			response["screenshot"] = base64.StdEncoding.EncodeToString(shot)
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"raw_text": raw,
		"price":    scraper.CleanPrice(raw),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
