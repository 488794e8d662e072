package services

import (
	"archive/zip"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// ExportService packages a named subset of blobs into a zip archive.
type ExportService struct {
	catalog *CatalogService
	blobs   *BlobStore
}

func NewExportService(catalog *CatalogService, blobs *BlobStore) *ExportService {
	return &ExportService{
		catalog: catalog,
		blobs:   blobs,
	}
}

// WriteZip streams an archive of the named files to w, one entry at a
// time, so a large batch never sits in memory whole. Names with no
// catalog row or no blob on disk are skipped silently. A cancelled
// context (client gone) stops the loop.
func (s *ExportService) WriteZip(ctx context.Context, names []string, w io.Writer) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		record, err := s.catalog.FindLatestByFilename(name)
		if errors.Is(err, ErrImageNotFound) {
			log.Printf("Export: skipping unknown file %s", name)
			continue
		}
		if err != nil {
			_ = zw.Close()
			return err
		}

		f, err := s.blobs.Open(record.StorageKey)
		if os.IsNotExist(err) {
			log.Printf("Export: blob missing for %s (%s)", name, record.StorageKey)
			continue
		}
		if err != nil {
			_ = zw.Close()
			return err
		}

		entry, err := zw.Create(record.Filename)
		if err != nil {
			f.Close()
			_ = zw.Close()
			return err
		}
		if _, err := io.Copy(entry, f); err != nil {
			f.Close()
			_ = zw.Close()
			return fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
		f.Close()
	}

	return zw.Close()
}
