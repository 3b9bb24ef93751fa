package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"proteinwatch/database"
	"proteinwatch/models"
)

type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

const productColumns = `id, name, brand, url, recipe, cookie_locators, amount, protein_per_100g,
	discount_type, discount_value, price, provisional_price, protein_price, warning,
	enabled, scrape_enabled, trustpilot_url, trustpilot_score, count_top10, count_clicked,
	last_scraped_at, created_at, updated_at`

// updatableColumns is the whitelist for partial updates. Anything else in a
// partial-update map is rejected rather than silently dropped.
var updatableColumns = map[string]bool{
	"name":              true,
	"brand":             true,
	"url":               true,
	"recipe":            true,
	"cookie_locators":   true,
	"amount":            true,
	"protein_per_100g":  true,
	"discount_type":     true,
	"discount_value":    true,
	"price":             true,
	"provisional_price": true,
	"protein_price":     true,
	"warning":           true,
	"enabled":           true,
	"scrape_enabled":    true,
	"trustpilot_url":    true,
	"trustpilot_score":  true,
	"last_scraped_at":   true,
}

func scanProduct(scanner interface{ Scan(dest ...any) error }) (*models.Product, error) {
	var p models.Product
	var recipeJSON, cookieJSON []byte
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Brand, &p.URL, &recipeJSON, &cookieJSON,
		&p.Amount, &p.ProteinPer100g, &p.DiscountType, &p.DiscountValue,
		&p.Price, &p.ProvisionalPrice, &p.ProteinPrice, &p.Warning,
		&p.Enabled, &p.ScrapeEnabled, &p.TrustpilotURL, &p.TrustpilotScore,
		&p.CountTop10, &p.CountClicked, &p.LastScrapedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(recipeJSON, &p.Recipe); err != nil {
		return nil, fmt.Errorf("failed to decode recipe for product %s: %v", p.ID, err)
	}
	if err := json.Unmarshal(cookieJSON, &p.CookieLocators); err != nil {
		return nil, fmt.Errorf("failed to decode cookie locators for product %s: %v", p.ID, err)
	}
	return &p, nil
}

// GetProducts returns all products, newest first.
func (r *ProductRepository) GetProducts() ([]models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY created_at DESC`, productColumns)

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %v", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// GetScrapeEnabledProducts returns the subset of the catalog included in a
// scrape run: enabled products whose scraping has not been paused.
func (r *ProductRepository) GetScrapeEnabledProducts() ([]models.Product, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE enabled = TRUE AND scrape_enabled = TRUE ORDER BY created_at ASC`,
		productColumns,
	)

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape-enabled products: %v", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, *p)
	}

	return products, rows.Err()
}

// GetProductByID returns a single product.
func (r *ProductRepository) GetProductByID(id string) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(database.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %v", err)
	}
	return p, nil
}

// CreateProduct inserts a new product with an empty price and history.
func (r *ProductRepository) CreateProduct(req *models.CreateProductRequest) (*models.Product, error) {
	recipeJSON, err := json.Marshal(req.Recipe)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recipe: %v", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO products (name, brand, url, recipe, amount, protein_per_100g, trustpilot_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, productColumns)

	p, err := scanProduct(database.DB.QueryRow(query,
		req.Name, req.Brand, req.URL, recipeJSON, req.Amount, req.ProteinPer100g, req.TrustpilotURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %v", err)
	}
	return p, nil
}

// UpdateProduct applies a partial update: only the fields present in the map
// are written. Recipe and cookie locator values are JSON-encoded.
func (r *ProductRepository) UpdateProduct(id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	// Deterministic order keeps the statement stable for identical updates.
	names := make([]string, 0, len(fields))
	for name := range fields {
		if !updatableColumns[name] {
			return fmt.Errorf("field %q is not updatable", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	setClauses := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	args = append(args, id)
	for i, name := range names {
		value := fields[name]
		if name == "recipe" || name == "cookie_locators" {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %v", name, err)
			}
			value = encoded
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", name, i+2))
		args = append(args, value)
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(names)+2))
	args = append(args, time.Now())

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $1`, strings.Join(setClauses, ", "))
	result, err := database.DB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %v", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("product not found")
	}
	return nil
}

// DeleteProduct removes a product and its history.
func (r *ProductRepository) DeleteProduct(id string) error {
	_, err := database.DB.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %v", err)
	}
	return nil
}

// AddPriceHistory appends a price point to the history.
func (r *ProductRepository) AddPriceHistory(productID string, price float64) error {
	_, err := database.DB.Exec(
		`INSERT INTO price_history (product_id, price, checked_at) VALUES ($1, $2, $3)`,
		productID, price, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to add price history: %v", err)
	}
	return nil
}

// GetPriceHistory returns the most recent price points for a product.
func (r *ProductRepository) GetPriceHistory(productID string, limit int) ([]models.PriceEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := database.DB.Query(`
		SELECT id, product_id, price, checked_at
		FROM price_history
		WHERE product_id = $1
		ORDER BY checked_at DESC
		LIMIT $2`, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %v", err)
	}
	defer rows.Close()

	var history []models.PriceEntry
	for rows.Next() {
		var entry models.PriceEntry
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.Price, &entry.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %v", err)
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}

// IncrementTopTen records one more appearance in the cheapest-protein top 10.
func (r *ProductRepository) IncrementTopTen(productID string) error {
	_, err := database.DB.Exec(
		`UPDATE products SET count_top10 = count_top10 + 1 WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to increment top-10 count: %v", err)
	}
	return nil
}

// IncrementClicked records one outbound click on the product.
func (r *ProductRepository) IncrementClicked(productID string) error {
	_, err := database.DB.Exec(
		`UPDATE products SET count_clicked = count_clicked + 1 WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to increment click count: %v", err)
	}
	return nil
}
