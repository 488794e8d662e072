package services

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/voyis/gallery-backend/internal/config"
	"github.com/voyis/gallery-backend/internal/models"
	"github.com/voyis/gallery-backend/internal/pkg/imaging"
	"golang.org/x/image/tiff"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	cfg     *config.Config
	catalog *CatalogService
	blobs   *BlobStore
	proc    *imaging.Processor
	db      *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory SQLite is per-connection; keep the pool at one so
	// concurrent inserts all see the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		Env:                 "test",
		UploadsPath:         t.TempDir(),
		UploadMaxImageSize:  10 * 1024 * 1024,
		UploadMaxBatchFiles: 20,
		ProbeConcurrency:    3,
	}

	return &testEnv{
		cfg:     cfg,
		catalog: NewCatalogService(db),
		blobs:   NewBlobStore(cfg),
		proc:    imaging.NewProcessor(90),
		db:      db,
	}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func makeTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}
