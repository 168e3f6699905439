package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "road.jpg", SanitizeFilename("road.jpg"))
	assert.Equal(t, "road.jpg", SanitizeFilename("../../road.jpg"))
	assert.Equal(t, "road.jpg", SanitizeFilename("/tmp/road.jpg"))
	assert.Equal(t, "my_road.jpg", SanitizeFilename("my road.jpg"))
	assert.Equal(t, "upload", SanitizeFilename(""))
	assert.Equal(t, "upload", SanitizeFilename(".."))
}

func TestNewStoredNames(t *testing.T) {
	names := NewStoredNames("pothole photo.jpg")

	assert.True(t, strings.HasSuffix(names.Original, "_pothole_photo.jpg"))
	assert.True(t, strings.HasSuffix(names.Detected, "_detected_pothole_photo.jpg"))
	assert.True(t, strings.HasPrefix(names.Scratch, "temp_"))

	// the original/detected pair shares its timestamp+token prefix
	prefix := strings.TrimSuffix(names.Original, "pothole_photo.jpg")
	assert.True(t, strings.HasPrefix(names.Detected, prefix))
	assert.True(t, strings.HasPrefix(names.Scratch, "temp_"+prefix))
}

func TestNewStoredNamesUnique(t *testing.T) {
	a := NewStoredNames("same.jpg")
	b := NewStoredNames("same.jpg")
	assert.NotEqual(t, a.Original, b.Original)
	assert.NotEqual(t, a.Scratch, b.Scratch)
}

func TestIsRasterImage(t *testing.T) {
	assert.True(t, IsRasterImage("photo.jpg"))
	assert.True(t, IsRasterImage("photo.PNG"))
	assert.False(t, IsRasterImage("notes.txt"))
	assert.False(t, IsRasterImage("photo"))
}
