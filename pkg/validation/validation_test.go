package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowedExt(t *testing.T) {
	for _, name := range []string{"a.jpg", "b.JPEG", "c.png", "d.tif", "e.TIFF"} {
		assert.True(t, IsAllowedExt(name), name)
	}
	for _, name := range []string{"a.gif", "b.webp", "c.txt", "noext", "d.png.exe"} {
		assert.False(t, IsAllowedExt(name), name)
	}
}

func TestIsAllowedMediaType(t *testing.T) {
	for _, mt := range []string{"image/jpeg", "image/png", "IMAGE/TIFF", "image/png; charset=binary"} {
		assert.True(t, IsAllowedMediaType(mt), mt)
	}
	for _, mt := range []string{"image/gif", "text/plain", "application/octet-stream", ""} {
		assert.False(t, IsAllowedMediaType(mt), mt)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "photo.png", SanitizeFilename("photo.png"))
	assert.Equal(t, "photo.png", SanitizeFilename("../../tmp/photo.png"))
	assert.Equal(t, "photo.png", SanitizeFilename("  photo.png\x00"))
	assert.Equal(t, "unnamed", SanitizeFilename(""))
	assert.Equal(t, "unnamed", SanitizeFilename("   "))
	assert.Equal(t, "unnamed", SanitizeFilename("../.."))
}
