package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var supportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsRasterImage checks if the filename has a common raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// SanitizeFilename strips any directory components and whitespace from an
// uploaded filename so it is safe to embed in a stored filename.
func SanitizeFilename(name string) string {
	base := filepath.Base(filepath.ToSlash(name))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == ".." || base == "/" || base == "" {
		return "upload"
	}
	return base
}

// StoredNames holds the filenames generated for one submission. All three
// share a timestamp and random token so concurrent uploads of the same
// filename never collide and a stored pair can be correlated on disk.
type StoredNames struct {
	Original string
	Detected string
	Scratch  string
}

// NewStoredNames generates the filename set for an uploaded image.
func NewStoredNames(originalFilename string) StoredNames {
	ts := time.Now().Unix()
	token := strings.Split(uuid.NewString(), "-")[0]
	base := SanitizeFilename(originalFilename)

	return StoredNames{
		Original: fmt.Sprintf("%d_%s_%s", ts, token, base),
		Detected: fmt.Sprintf("%d_%s_detected_%s", ts, token, base),
		Scratch:  fmt.Sprintf("temp_%d_%s_%s", ts, token, base),
	}
}
