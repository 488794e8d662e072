package validation

import (
	"path/filepath"
	"strings"
)

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/tiff": true,
	"image/tif":  true,
}

// IsAllowedExt reports whether the filename's extension is in the
// upload allow-set (jpg/jpeg/png/tif/tiff).
func IsAllowedExt(filename string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(filename))]
}

// IsAllowedMediaType reports whether the client-declared media type is
// in the upload allow-set. The declared type is trusted only this far;
// content is never re-validated against it.
func IsAllowedMediaType(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return allowedMediaTypes[mt]
}

// SanitizeFilename strips any path components and null bytes from a
// client-supplied filename.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimSpace(name)
	name = filepath.Base(filepath.Clean(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "unnamed"
	}
	return name
}
