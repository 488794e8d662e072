package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/voyis/gallery-backend/internal/config"
	"github.com/voyis/gallery-backend/internal/services"
)

type GalleryHandler struct {
	cfg     *config.Config
	catalog *services.CatalogService
	blobs   *services.BlobStore
	ingest  *services.IngestService
	crops   *services.CropService
	exports *services.ExportService
}

func NewGalleryHandler(cfg *config.Config, catalog *services.CatalogService, blobs *services.BlobStore, ingest *services.IngestService, crops *services.CropService, exports *services.ExportService) *GalleryHandler {
	return &GalleryHandler{
		cfg:     cfg,
		catalog: catalog,
		blobs:   blobs,
		ingest:  ingest,
		crops:   crops,
		exports: exports,
	}
}

// Status reports server liveness plus the database clock
// GET /api/status
func (h *GalleryHandler) Status(c *gin.Context) {
	dbTime, err := h.catalog.DBTime()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "Server is running",
		"db_time": dbTime,
	})
}

// imageView is the gallery projection of a catalog row. Type is purely
// extension-derived; it says how the client should render the tile,
// not whether the probe succeeded.
type imageView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	IsCorrupted bool   `json:"isCorrupted"`
	Width       *int   `json:"width"`
	Height      *int   `json:"height"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// ListImages returns every catalog entry, newest first
// GET /api/images
func (h *GalleryHandler) ListImages(c *gin.Context) {
	records, err := h.catalog.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve images"})
		return
	}

	views := make([]imageView, len(records))
	for i, rec := range records {
		views[i] = imageView{
			ID:          rec.ID,
			Name:        rec.Filename,
			URL:         h.cfg.APIUrl + "/uploads/" + rec.Filename,
			Type:        typeTag(rec.Filename),
			IsCorrupted: rec.IsCorrupted,
			Width:       rec.Width,
			Height:      rec.Height,
			SizeBytes:   rec.SizeBytes,
		}
	}

	c.JSON(http.StatusOK, views)
}

// Upload ingests a multipart batch under the form field "images"
// POST /api/upload
func (h *GalleryHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(h.cfg.UploadMaxImageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to parse multipart form"})
		return
	}

	form := c.Request.MultipartForm
	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No files uploaded"})
		return
	}
	if len(fileHeaders) > h.cfg.UploadMaxBatchFiles {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "too many files in one batch",
		})
		return
	}

	files := make([]services.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to open uploaded file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to read uploaded file"})
			return
		}
		files = append(files, services.UploadFile{
			Filename:     fh.Filename,
			DeclaredType: fh.Header.Get("Content-Type"),
			Data:         data,
		})
	}

	summary, err := h.ingest.Ingest(c.Request.Context(), files)
	if err != nil {
		if errors.Is(err, services.ErrEmptyBatch) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No files uploaded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// DownloadZip streams a zip of the named files
// GET /api/download-zip?files=a.jpg,b.png
func (h *GalleryHandler) DownloadZip(c *gin.Context) {
	filesParam := c.Query("files")
	if strings.TrimSpace(filesParam) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "files query parameter is required"})
		return
	}

	names := strings.Split(filesParam, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="images.zip"`)

	if err := h.exports.WriteZip(c.Request.Context(), names, c.Writer); err != nil {
		// Headers are gone already; all we can do is log and cut the stream.
		log.Printf("DownloadZip: %v", err)
	}
}

type cropRequest struct {
	Filename string `json:"filename" binding:"required"`
	services.CropRect
}

// Crop extracts a source-pixel rectangle into a new gallery entry
// POST /api/crop
func (h *GalleryHandler) Crop(c *gin.Context) {
	var req cropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "filename, x, y, width and height are required"})
		return
	}

	newFilename, err := h.crops.Crop(c.Request.Context(), req.Filename, req.CropRect)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRect):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "crop rectangle must be positive and inside the source image"})
		case errors.Is(err, services.ErrImageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "source image not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Crop saved",
		"newFilename": newFilename,
	})
}

// ServeBlob serves a stored image's raw bytes by filename
// GET /uploads/:filename
func (h *GalleryHandler) ServeBlob(c *gin.Context) {
	name := c.Param("filename")

	record, err := h.catalog.FindLatestByFilename(name)
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve image"})
		return
	}

	path := h.blobs.Path(record.StorageKey)
	c.Header("Content-Type", services.ImageContentType(path))
	c.Header("Content-Disposition", `inline; filename="`+record.Filename+`"`)
	c.File(path)
}

func typeTag(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return "tif"
	default:
		return "standard"
	}
}
