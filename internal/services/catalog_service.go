package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/voyis/gallery-backend/internal/models"
	"gorm.io/gorm"
)

// ErrImageNotFound is returned when a filename resolves to no catalog row.
var ErrImageNotFound = errors.New("image not found")

// CatalogService is the single source of truth for what the gallery
// contains. Rows are insert-only; there are no update or delete paths.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// Ping verifies the catalog is reachable. Ingestion refuses to start
// without it.
func (s *CatalogService) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	return nil
}

// Insert persists a new row and assigns its ID. Row writes are atomic:
// a record is either fully visible to List or not at all.
func (s *CatalogService) Insert(img *models.Image) error {
	if err := s.db.Create(img).Error; err != nil {
		return fmt.Errorf("failed to create image record: %w", err)
	}
	return nil
}

// List returns every record, newest first, ties broken by ID so
// insertion order wins within the same timestamp.
func (s *CatalogService) List() ([]models.Image, error) {
	var images []models.Image
	if err := s.db.Order("created_at DESC, id DESC").Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

// FindLatestByFilename resolves a human filename to its most recent
// record. Filenames are not unique; the newest row wins.
func (s *CatalogService) FindLatestByFilename(filename string) (*models.Image, error) {
	var img models.Image
	err := s.db.Where("filename = ?", filename).
		Order("created_at DESC, id DESC").
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// DBTime returns the database clock, used by the status endpoint.
func (s *CatalogService) DBTime() (string, error) {
	var now string
	if err := s.db.Raw("SELECT CURRENT_TIMESTAMP").Scan(&now).Error; err != nil {
		return "", err
	}
	return now, nil
}
