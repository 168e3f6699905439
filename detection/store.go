package detection

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Storage is the persistence boundary for detection imagery: scratch files
// written for the duration of one classification, plus the per-category
// original and annotated storage areas.
type Storage interface {
	// SaveScratch writes a temporary file used only while detectors run.
	// returns the full path of the written file
	SaveScratch(filename string, data []byte) (string, error)
	// SaveOriginal stores the uploaded image under <base>/<category>/original
	SaveOriginal(category, filename string, data []byte) (string, error)
	// DetectedPath resolves the destination path for an annotated image
	// under <base>/<category>/detected without writing anything
	DetectedPath(category, filename string) (string, error)
	// Remove deletes a stored file; a missing file is not an error
	Remove(path string) error
}

// LocalStorage implements Storage on the local filesystem with the fixed
// layout <base>/<category>/original and <base>/<category>/detected.
type LocalStorage struct {
	basePath     string
	originalDirs map[string]string
	detectedDirs map[string]string
}

// NewLocalStorage creates a local store rooted at basePath and ensures the
// per-category directories exist.
func NewLocalStorage(basePath string, originalDirs, detectedDirs map[string]string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	for _, dirs := range []map[string]string{originalDirs, detectedDirs} {
		for category, dir := range dirs {
			if !strings.HasPrefix(filepath.Clean(dir), absBasePath) {
				return nil, fmt.Errorf("storage directory for category '%s' resolves outside base path '%s'", category, absBasePath)
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
			}
		}
	}

	log.Printf("storage: initialized local storage at %s", absBasePath)
	return &LocalStorage{
		basePath:     absBasePath,
		originalDirs: originalDirs,
		detectedDirs: detectedDirs,
	}, nil
}

func (ls *LocalStorage) SaveScratch(filename string, data []byte) (string, error) {
	scratchPath := filepath.Join(ls.basePath, filename)
	if !strings.HasPrefix(filepath.Clean(scratchPath), ls.basePath) {
		return "", fmt.Errorf("invalid scratch filename '%s'", filename)
	}
	if err := os.WriteFile(scratchPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write scratch file '%s': %w", scratchPath, err)
	}
	return scratchPath, nil
}

func (ls *LocalStorage) SaveOriginal(category, filename string, data []byte) (string, error) {
	dir, ok := ls.originalDirs[category]
	if !ok {
		return "", fmt.Errorf("no original storage area configured for category '%s'", category)
	}
	savePath := filepath.Join(dir, filename)
	if err := os.WriteFile(savePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write original image '%s': %w", savePath, err)
	}
	log.Printf("storage: saved original image to %s", savePath)
	return savePath, nil
}

func (ls *LocalStorage) DetectedPath(category, filename string) (string, error) {
	dir, ok := ls.detectedDirs[category]
	if !ok {
		return "", fmt.Errorf("no detected storage area configured for category '%s'", category)
	}
	return filepath.Join(dir, filename), nil
}

// Remove deletes a stored file. Missing files are treated as already
// removed so a retried or partial cleanup never fails the caller.
func (ls *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored file '%s': %w", path, err)
	}
	if err == nil {
		log.Printf("storage: deleted %s", path)
	}
	return nil
}
