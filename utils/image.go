package utils

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// ValidateImage confirms the uploaded bytes decode as a raster image before
// any detector runs or anything touches disk.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("image data is empty")
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	return nil
}

// CaptureTime extracts the capture timestamp from the image's EXIF data.
// returns false when the upload carries no usable EXIF timestamp
func CaptureTime(data []byte) (time.Time, bool) {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	taken, err := exifData.DateTime()
	if err != nil {
		log.Printf("exif: could not read capture time: %v", err)
		return time.Time{}, false
	}
	return taken, true
}
