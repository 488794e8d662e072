package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/voyis/gallery-backend/internal/models"
	"github.com/voyis/gallery-backend/internal/pkg/imaging"
)

// ErrInvalidRect is returned for a non-positive or out-of-bounds crop
// rectangle.
var ErrInvalidRect = errors.New("invalid crop rectangle")

// CropRect is a rectangle in source-image pixel coordinates. Callers
// working from an on-screen selection must scale it by
// sourceDimension/displayedDimension before calling Crop; display
// coordinates are never accepted here.
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropService derives a new gallery entity from a rectangular region
// of an existing one.
type CropService struct {
	catalog *CatalogService
	blobs   *BlobStore
	proc    *imaging.Processor
}

func NewCropService(catalog *CatalogService, blobs *BlobStore, proc *imaging.Processor) *CropService {
	return &CropService{
		catalog: catalog,
		blobs:   blobs,
		proc:    proc,
	}
}

// Crop extracts rect from the named source image, stores the result as
// a new blob in the source's format, and inserts an independent
// catalog row. Returns the derivative's filename; callers re-list to
// see the full record. No stage leaves a row pointing at a missing
// blob: if the insert fails the fresh blob is removed.
func (s *CropService) Crop(ctx context.Context, sourceFilename string, rect CropRect) (string, error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return "", ErrInvalidRect
	}

	record, err := s.catalog.FindLatestByFilename(sourceFilename)
	if err != nil {
		return "", err
	}

	src, err := s.blobs.Open(record.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to open source blob %s: %w", record.StorageKey, err)
	}
	region := image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height)
	data, _, err := s.proc.Crop(src, region)
	src.Close()
	if err != nil {
		if errors.Is(err, imaging.ErrRectOutOfBounds) {
			return "", ErrInvalidRect
		}
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	newName := deriveCropName(record.Filename)
	key := s.blobs.BuildObjectKey(newName)
	_, size, checksum, err := s.blobs.Save(ctx, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to store crop: %w", err)
	}

	// A successful re-encode of a valid region is never corrupted, but
	// the recorded dimensions come from probing the stored bytes.
	width, height, err := s.proc.Probe(bytes.NewReader(data))
	if err != nil {
		_ = s.blobs.Remove(key)
		return "", fmt.Errorf("failed to probe cropped image: %w", err)
	}

	derivative := &models.Image{
		Filename:     newName,
		StorageKey:   key,
		DeclaredType: ImageContentType(newName),
		SizeBytes:    size,
		Width:        &width,
		Height:       &height,
		IsCorrupted:  false,
		Checksum:     checksum,
	}
	if err := s.catalog.Insert(derivative); err != nil {
		_ = s.blobs.Remove(key)
		return "", err
	}

	return newName, nil
}

// deriveCropName builds the derivative's human filename from the
// source basename. The timestamp keeps listings readable; uniqueness
// comes from the uuid object key, not from this name.
func deriveCropName(sourceFilename string) string {
	ext := filepath.Ext(sourceFilename)
	base := strings.TrimSuffix(sourceFilename, ext)
	return fmt.Sprintf("%s_crop_%d%s", base, time.Now().UnixMilli(), ext)
}
