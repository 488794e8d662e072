package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/voyis/gallery-backend/internal/config"
)

// BlobStore keeps image files in a flat local directory. Blobs are
// addressed by a generated object key, never by the human filename, so
// re-uploading the same name can never overwrite existing bytes. The
// catalog owns the key-to-filename mapping.
type BlobStore struct {
	cfg *config.Config
}

func NewBlobStore(cfg *config.Config) *BlobStore {
	_ = os.MkdirAll(cfg.UploadsPath, 0o755)
	return &BlobStore{cfg: cfg}
}

// BuildObjectKey creates a fresh storage key for a blob. Only the
// extension of the original name is carried over.
func (s *BlobStore) BuildObjectKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("images/%s%s", uuid.New().String(), ext)
}

// Save writes a stream under key and returns the absolute path, byte
// size and sha256 checksum. The write goes through a temp file and a
// rename, so a blob is either fully on disk or absent.
func (s *BlobStore) Save(ctx context.Context, key string, r io.Reader) (string, int64, string, error) {
	absPath := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", 0, "", err
	}

	tmp := absPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return "", 0, "", err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hasher), r)
	if err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := f.Sync(); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return "", 0, "", err
	}

	checksum := hex.EncodeToString(hasher.Sum(nil))
	return absPath, n, checksum, nil
}

// Path returns the absolute on-disk path for a key.
func (s *BlobStore) Path(key string) string {
	return filepath.Join(s.cfg.UploadsPath, filepath.FromSlash(key))
}

// Open opens the blob for reading. The caller closes it.
func (s *BlobStore) Open(key string) (*os.File, error) {
	return os.Open(s.Path(key))
}

// Remove deletes a blob. Used only to roll back a failed crop before
// its catalog row exists; there is no delete API.
func (s *BlobStore) Remove(key string) error {
	return os.Remove(s.Path(key))
}

// ImageContentType returns the content type for a stored image path
// based on its extension.
func ImageContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}
