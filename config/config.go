package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultOriginalSubDir = "original"
	DefaultDetectedSubDir = "detected"
)

const (
	defaultDetectorInputSize   = 640
	defaultConfidenceThreshold = 0.5
	defaultJWTExpirationHours  = 24
)

// defaultPotholeClassNames is the severity class table of the bundled
// pothole model, overridable through POTHOLE_CLASS_NAMES.
var defaultPotholeClassNames = []string{"Low", "Medium", "High"}

type Config struct {
	// database path
	DatabasePath string

	// detection imagery storage configuration
	StoragePath         string // primary root for stored imagery
	PotholeOriginalPath string // full-calculated path for uploaded pothole images
	PotholeDetectedPath string // full-calculated path for annotated pothole images
	WasteOriginalPath   string // full-calculated path for uploaded waste images
	WasteDetectedPath   string // full-calculated path for annotated waste images

	// detection model paths (DNN)
	PotholeModelPath  string
	PotholeConfigPath string
	WasteModelPath    string
	WasteConfigPath   string

	// detector settings
	PotholeClassNames   []string
	DetectorInputSize   int
	ConfidenceThreshold float32

	// auth settings
	JWTSecret          string
	JWTExpirationHours int
}

// StorageDirs returns every directory the server must be able to write to.
func (c Config) StorageDirs() []string {
	return []string{
		c.PotholeOriginalPath,
		c.PotholeDetectedPath,
		c.WasteOriginalPath,
		c.WasteDetectedPath,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float32) float32 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 32)
	if err != nil || val <= 0 || val > 1 {
		log.Printf("Warning: Invalid %s '%s'. Using default %g. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return float32(val)
}

func getEnvListOrDefault(envVar string, defaultVal []string) []string {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	var names []string
	for _, part := range strings.Split(valStr, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return defaultVal
	}
	return names
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "civiceye.db")

	storage := getEnvOrDefault("STORAGE_PATH", filepath.Join(".", "storage"))
	absStorage, err := filepath.Abs(storage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for storage '%s': %w", storage, err)
	}

	originalSubDir := getEnvOrDefault("ORIGINAL_SUBDIR", DefaultOriginalSubDir)
	detectedSubDir := getEnvOrDefault("DETECTED_SUBDIR", DefaultDetectedSubDir)

	potholeModel := getEnvOrDefault("POTHOLE_MODEL_PATH", "./models/pothole.onnx")
	potholeConfig := getEnvOrDefault("POTHOLE_CONFIG_PATH", "")
	wasteModel := getEnvOrDefault("WASTE_MODEL_PATH", "./models/waste.onnx")
	wasteConfig := getEnvOrDefault("WASTE_CONFIG_PATH", "")

	cfg := Config{
		DatabasePath:        dbPath,
		StoragePath:         absStorage,
		PotholeOriginalPath: filepath.Join(absStorage, "pothole", originalSubDir),
		PotholeDetectedPath: filepath.Join(absStorage, "pothole", detectedSubDir),
		WasteOriginalPath:   filepath.Join(absStorage, "waste", originalSubDir),
		WasteDetectedPath:   filepath.Join(absStorage, "waste", detectedSubDir),
		PotholeModelPath:    potholeModel,
		PotholeConfigPath:   potholeConfig,
		WasteModelPath:      wasteModel,
		WasteConfigPath:     wasteConfig,
		PotholeClassNames:   getEnvListOrDefault("POTHOLE_CLASS_NAMES", defaultPotholeClassNames),
		DetectorInputSize:   getEnvIntOrDefault("DETECTOR_INPUT_SIZE", defaultDetectorInputSize),
		ConfidenceThreshold: getEnvFloatOrDefault("CONFIDENCE_THRESHOLD", defaultConfidenceThreshold),
		JWTSecret:           getEnvOrDefault("SECRET_KEY", "key123"),
		JWTExpirationHours:  getEnvIntOrDefault("JWT_EXPIRATION_HOURS", defaultJWTExpirationHours),
	}

	return cfg, nil
}
