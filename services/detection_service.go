package services

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/civiceye/civiceyebackend/detection"
	"github.com/civiceye/civiceyebackend/models"
	"github.com/civiceye/civiceyebackend/repository"
	"github.com/civiceye/civiceyebackend/utils"
)

// Classifier produces a normalized outcome for an uploaded image, or nil
// when no model matches.
type Classifier interface {
	Classify(imageData []byte, originalFilename string) (*detection.Outcome, error)
}

// Submission carries the validated request metadata for one detection.
type Submission struct {
	UserID    uint
	ImageData []byte
	Filename  string
	Latitude  float64
	Longitude float64
	Location  string
}

// DetectionService turns a classification outcome plus submission metadata
// into a persisted detection aggregate.
type DetectionService struct {
	classifier Classifier
	repo       repository.DetectionRepositoryInterface
	store      detection.Storage
}

func NewDetectionService(classifier Classifier, repo repository.DetectionRepositoryInterface, store detection.Storage) *DetectionService {
	return &DetectionService{classifier: classifier, repo: repo, store: store}
}

// CreateDetection classifies the submitted image and commits the resulting
// aggregate. A nil detection with nil error means neither model matched.
func (s *DetectionService) CreateDetection(sub Submission) (*models.Detection, error) {
	outcome, err := s.classifier.Classify(sub.ImageData, sub.Filename)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return nil, nil
	}

	capturedAt, ok := utils.CaptureTime(sub.ImageData)
	if !ok {
		capturedAt = time.Now().UTC()
	}

	det := &models.Detection{
		UserID:            sub.UserID,
		Category:          outcome.Category,
		ImageName:         outcome.ImageName,
		ImagePath:         outcome.ImagePath,
		DetectedImagePath: outcome.DetectedImagePath,
		Latitude:          sub.Latitude,
		Longitude:         sub.Longitude,
		Location:          sub.Location,
		Timestamp:         capturedAt,
		Department:        outcome.DepartmentName(),
		DetectionStatus:   outcome.Status,
		Images: []models.StoredImage{
			{
				ID:                uuid.NewString(),
				UploadedFilename:  outcome.ImageName,
				AnnotatedFilename: outcome.DetectedImageName,
				Timestamp:         capturedAt.Format(models.TimeFormat),
			},
		},
	}

	switch outcome.Category {
	case detection.CategoryPothole:
		severity := outcome.Severity
		det.PotholeSeverity = &severity
	case detection.CategoryWaste:
		category := outcome.WasteCategory
		det.WasteCategory = &category
	}

	if err := s.repo.Create(det, outcome.TagName(), outcome.Category); err != nil {
		// the transaction rolled back; the stored files must not outlive it
		s.removeStoredFiles(outcome)
		return nil, err
	}

	return det, nil
}

func (s *DetectionService) removeStoredFiles(outcome *detection.Outcome) {
	for _, path := range []string{outcome.ImagePath, outcome.DetectedImagePath} {
		if err := s.store.Remove(path); err != nil {
			log.Printf("service: failed to remove stored file after rollback: %v", err)
		}
	}
}
