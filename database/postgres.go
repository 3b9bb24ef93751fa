package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

// InitDatabase initializes the database connection
func InitDatabase() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			recipe JSONB NOT NULL DEFAULT '[]',
			cookie_locators JSONB NOT NULL DEFAULT '[]',
			amount DECIMAL(10,2) NOT NULL DEFAULT 0,
			protein_per_100g DECIMAL(5,2) NOT NULL DEFAULT 0,
			discount_type VARCHAR(20) NOT NULL DEFAULT '',
			discount_value DECIMAL(10,2) NOT NULL DEFAULT 0,
			price DECIMAL(10,2) NOT NULL DEFAULT 0,
			provisional_price DECIMAL(10,2),
			protein_price DECIMAL(10,2) NOT NULL DEFAULT 0,
			warning BOOLEAN NOT NULL DEFAULT FALSE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			scrape_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			trustpilot_url TEXT NOT NULL DEFAULT '',
			trustpilot_score DECIMAL(3,1),
			count_top10 INTEGER NOT NULL DEFAULT 0,
			count_clicked INTEGER NOT NULL DEFAULT 0,
			last_scraped_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id SERIAL PRIMARY KEY,
			product_id UUID REFERENCES products(id) ON DELETE CASCADE,
			price DECIMAL(10,2) NOT NULL,
			checked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_scrape ON products (enabled, scrape_enabled)
		WHERE enabled = TRUE AND scrape_enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, checked_at)`,
	}

	for _, query := range queries {
		_, err := DB.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
