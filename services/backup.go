package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"proteinwatch/models"
)

// BackupCatalog is the read side the backup job needs.
type BackupCatalog interface {
	GetProducts() ([]models.Product, error)
}

// BackupService dumps the full product catalog to a timestamped JSON file.
// Recipes are hand-authored and slow to rebuild; the weekly snapshot is the
// recovery path when the database is lost or a bad edit wipes them.
type BackupService struct {
	catalog BackupCatalog
	dir     string
}

func NewBackupService(catalog BackupCatalog, dir string) *BackupService {
	return &BackupService{catalog: catalog, dir: dir}
}

// Run writes one snapshot file. Old snapshots are never pruned here;
// retention is the host's concern.
func (b *BackupService) Run() error {
	products, err := b.catalog.GetProducts()
	if err != nil {
		return fmt.Errorf("failed to load products for backup: %v", err)
	}

	data, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %v", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %v", err)
	}

	path := filepath.Join(b.dir, fmt.Sprintf("products_backup_%d.json", time.Now().UnixMilli()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup: %v", err)
	}

	log.Printf("catalog backup created at %s (%d products)", path, len(products))
	return nil
}
