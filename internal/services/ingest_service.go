package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/voyis/gallery-backend/internal/config"
	"github.com/voyis/gallery-backend/internal/models"
	"github.com/voyis/gallery-backend/internal/pkg/imaging"
	"github.com/voyis/gallery-backend/pkg/validation"
)

// ErrEmptyBatch is returned when an upload request carries no files.
var ErrEmptyBatch = errors.New("no files uploaded")

// FileOutcome is the fate of a single file within a batch.
type FileOutcome string

const (
	// OutcomeStored means the blob is on disk and its row is in the catalog.
	OutcomeStored FileOutcome = "stored"
	// OutcomeCorrupted means stored and cataloged, but the decode probe
	// failed. Corruption is reported, not rejected.
	OutcomeCorrupted FileOutcome = "corrupted"
	// OutcomeRejected means the file failed the extension/type filter
	// and was never stored.
	OutcomeRejected FileOutcome = "rejected"
	// OutcomePersistFailed means the store or catalog write failed; a
	// blob may remain on disk without a row.
	OutcomePersistFailed FileOutcome = "persist_failed"
)

// UploadFile is one member of an upload batch.
type UploadFile struct {
	Filename     string
	DeclaredType string
	Data         []byte
}

// FileResult records what happened to one file.
type FileResult struct {
	Filename string
	Outcome  FileOutcome
	Record   *models.Image
	Err      error
}

// BatchSummary is the upload response. TotalFiles counts files that
// passed the filter stage; rejected files are not counted.
type BatchSummary struct {
	Success        bool         `json:"success"`
	Message        string       `json:"message"`
	TotalFiles     int          `json:"totalFiles"`
	CorruptedCount int          `json:"corruptedCount"`
	TotalSize      string       `json:"totalSize"`
	FileList       []string     `json:"fileList"`
	Results        []FileResult `json:"-"`
}

// IngestService turns an upload batch into stored blobs plus catalog
// rows, tolerating per-file failure.
type IngestService struct {
	cfg     *config.Config
	catalog *CatalogService
	blobs   *BlobStore
	proc    *imaging.Processor
}

func NewIngestService(cfg *config.Config, catalog *CatalogService, blobs *BlobStore, proc *imaging.Processor) *IngestService {
	return &IngestService{
		cfg:     cfg,
		catalog: catalog,
		blobs:   blobs,
		proc:    proc,
	}
}

// Ingest runs the batch through filter, store, probe and persist
// stages. Files are independent: store/probe/persist fan out under a
// concurrency cap, and each file keeps the strict per-file order of
// blob write, then probe, then row insert, so a listed row always has
// its blob on disk.
func (s *IngestService) Ingest(ctx context.Context, files []UploadFile) (*BatchSummary, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}

	// The catalog must be reachable before any blob is written.
	if err := s.catalog.Ping(ctx); err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))

	sem := make(chan struct{}, s.probeConcurrency())
	done := make(chan int, len(files))

	for i, f := range files {
		go func(idx int, f UploadFile) {
			sem <- struct{}{}
			defer func() { <-sem; done <- idx }()
			results[idx] = s.ingestOne(ctx, f)
		}(i, f)
	}

	for range files {
		<-done
	}

	return summarize(results), nil
}

func (s *IngestService) probeConcurrency() int {
	if s.cfg.ProbeConcurrency < 1 {
		return 1
	}
	return s.cfg.ProbeConcurrency
}

func (s *IngestService) ingestOne(ctx context.Context, f UploadFile) FileResult {
	name := validation.SanitizeFilename(f.Filename)

	// Filter stage: extension AND declared type must both be in the
	// allow-set. A rejected file is skipped, not a batch failure.
	if !validation.IsAllowedExt(name) || !validation.IsAllowedMediaType(f.DeclaredType) {
		return FileResult{
			Filename: name,
			Outcome:  OutcomeRejected,
			Err:      fmt.Errorf("unsupported file type: %s (%s)", name, f.DeclaredType),
		}
	}
	if int64(len(f.Data)) > s.cfg.UploadMaxImageSize {
		return FileResult{
			Filename: name,
			Outcome:  OutcomeRejected,
			Err:      fmt.Errorf("file too large: %d bytes (max %d)", len(f.Data), s.cfg.UploadMaxImageSize),
		}
	}

	if err := ctx.Err(); err != nil {
		return FileResult{Filename: name, Outcome: OutcomePersistFailed, Err: err}
	}

	// Store stage.
	key := s.blobs.BuildObjectKey(name)
	_, size, checksum, err := s.blobs.Save(ctx, key, bytes.NewReader(f.Data))
	if err != nil {
		log.Printf("Ingest: failed to store %s: %v", name, err)
		return FileResult{Filename: name, Outcome: OutcomePersistFailed, Err: err}
	}

	// Probe stage. A decode failure marks the file corrupted; the blob
	// stays and still gets a row.
	record := &models.Image{
		Filename:     name,
		StorageKey:   key,
		DeclaredType: f.DeclaredType,
		SizeBytes:    size,
		Checksum:     checksum,
	}
	width, height, probeErr := s.proc.Probe(bytes.NewReader(f.Data))
	if probeErr != nil {
		record.IsCorrupted = true
	} else {
		record.Width = &width
		record.Height = &height
	}

	// Persist stage. A failed insert leaves the blob on disk; the
	// orphan is logged, not compensated.
	if err := s.catalog.Insert(record); err != nil {
		log.Printf("Ingest: failed to persist %s (blob %s remains on disk): %v", name, key, err)
		return FileResult{Filename: name, Outcome: OutcomePersistFailed, Record: record, Err: err}
	}

	outcome := OutcomeStored
	if record.IsCorrupted {
		outcome = OutcomeCorrupted
	}
	return FileResult{Filename: name, Outcome: outcome, Record: record}
}

func summarize(results []FileResult) *BatchSummary {
	summary := &BatchSummary{
		Success:  true,
		FileList: []string{},
		Results:  results,
	}

	var totalBytes int64
	for _, r := range results {
		switch r.Outcome {
		case OutcomeRejected:
			continue
		case OutcomeCorrupted:
			summary.CorruptedCount++
			summary.FileList = append(summary.FileList, r.Filename)
		case OutcomeStored:
			summary.FileList = append(summary.FileList, r.Filename)
		}
		summary.TotalFiles++
		if r.Record != nil {
			totalBytes += r.Record.SizeBytes
		}
	}

	summary.TotalSize = formatMB(totalBytes)
	summary.Message = fmt.Sprintf("%d file(s) uploaded", len(summary.FileList))
	return summary
}

func formatMB(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
}
