package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/civiceye/civiceyebackend/detection"
	"github.com/civiceye/civiceyebackend/models"
	"github.com/civiceye/civiceyebackend/repository"
)

// fakeClassifier returns a canned outcome, simulating a pipeline that has
// already stored the image files.
type fakeClassifier struct {
	outcome *detection.Outcome
	err     error
}

func (f *fakeClassifier) Classify(imageData []byte, originalFilename string) (*detection.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome == nil {
		return nil, nil
	}
	out := *f.outcome
	return &out, nil
}

func setupService(t *testing.T, classifier Classifier) (*DetectionService, *gorm.DB, detection.Storage) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Detection{},
		&models.Department{},
		&models.Tag{},
		&models.DetectionDepartment{},
		&models.DetectionTag{},
		&models.StoredImage{},
	))

	base := t.TempDir()
	store, err := detection.NewLocalStorage(base,
		map[string]string{
			models.CategoryPothole: filepath.Join(base, "pothole", "original"),
			models.CategoryWaste:   filepath.Join(base, "waste", "original"),
		},
		map[string]string{
			models.CategoryPothole: filepath.Join(base, "pothole", "detected"),
			models.CategoryWaste:   filepath.Join(base, "waste", "detected"),
		},
	)
	require.NoError(t, err)

	repo := repository.NewGormDetectionRepository(db, store)
	return NewDetectionService(classifier, repo, store), db, store
}

func createServiceUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: "reporter@example.com", Role: models.RoleUser}
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateDetectionPothole(t *testing.T) {
	outcome := detection.NewPotholeOutcome("High")
	outcome.ImageName = "road.jpg"
	outcome.ImagePath = "/stored/road.jpg"
	outcome.DetectedImageName = "road_detected.jpg"
	outcome.DetectedImagePath = "/stored/road_detected.jpg"

	svc, db, _ := setupService(t, &fakeClassifier{outcome: outcome})
	user := createServiceUser(t, db)

	before := time.Now().UTC()
	det, err := svc.CreateDetection(Submission{
		UserID:    user.ID,
		ImageData: []byte("not a real jpeg, no exif"),
		Filename:  "road.jpg",
		Latitude:  27.7,
		Longitude: 85.3,
		Location:  "Baneshwor",
	})
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, models.CategoryPothole, det.Category)
	assert.Equal(t, user.ID, det.UserID)
	assert.Equal(t, 27.7, det.Latitude)
	assert.Equal(t, 85.3, det.Longitude)
	assert.Equal(t, "Baneshwor", det.Location)
	assert.Equal(t, "Pothole detected", det.DetectionStatus)
	assert.Equal(t, detection.RoadDepartment, det.Department)
	require.NotNil(t, det.PotholeSeverity)
	assert.Equal(t, "High", *det.PotholeSeverity)
	assert.Nil(t, det.WasteCategory)
	assert.Equal(t, []string{"High"}, det.TagNames())
	// the image had no EXIF data so the timestamp falls back to now
	assert.False(t, det.Timestamp.Before(before))

	var deptCount, tagCount int64
	require.NoError(t, db.Model(&models.Department{}).Count(&deptCount).Error)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tagCount).Error)
	assert.EqualValues(t, 1, deptCount)
	assert.EqualValues(t, 1, tagCount)

	require.Len(t, det.Images, 1)
	assert.Equal(t, "road.jpg", det.Images[0].UploadedFilename)
	assert.Equal(t, "road_detected.jpg", det.Images[0].AnnotatedFilename)
	assert.NotEmpty(t, det.Images[0].ID)
}

func TestCreateDetectionWaste(t *testing.T) {
	outcome := detection.NewWasteOutcome(3)
	outcome.ImageName = "bottle.jpg"
	outcome.ImagePath = "/stored/bottle.jpg"

	svc, db, _ := setupService(t, &fakeClassifier{outcome: outcome})
	user := createServiceUser(t, db)

	det, err := svc.CreateDetection(Submission{
		UserID:    user.ID,
		ImageData: []byte("img"),
		Filename:  "bottle.jpg",
		Latitude:  1,
		Longitude: 2,
		Location:  "riverside",
	})
	require.NoError(t, err)
	require.NotNil(t, det)

	assert.Equal(t, models.CategoryWaste, det.Category)
	assert.Equal(t, "Plastic detected", det.DetectionStatus)
	assert.Equal(t, detection.WasteDepartment, det.Department)
	require.NotNil(t, det.WasteCategory)
	assert.Equal(t, "Plastic", *det.WasteCategory)
	assert.Nil(t, det.PotholeSeverity)
	assert.Equal(t, []string{"Plastic"}, det.TagNames())
}

func TestCreateDetectionNoMatch(t *testing.T) {
	svc, db, _ := setupService(t, &fakeClassifier{outcome: nil})
	user := createServiceUser(t, db)

	det, err := svc.CreateDetection(Submission{
		UserID:    user.ID,
		ImageData: []byte("img"),
		Filename:  "clean.jpg",
	})
	require.NoError(t, err)
	assert.Nil(t, det)

	var count int64
	require.NoError(t, db.Model(&models.Detection{}).Count(&count).Error)
	assert.Zero(t, count, "a non-detection must not leave database rows")
}

func TestCreateDetectionClassifierError(t *testing.T) {
	svc, db, _ := setupService(t, &fakeClassifier{err: errors.New("model unavailable")})
	user := createServiceUser(t, db)

	det, err := svc.CreateDetection(Submission{UserID: user.ID, ImageData: []byte("img")})
	assert.Error(t, err)
	assert.Nil(t, det)

	var count int64
	require.NoError(t, db.Model(&models.Detection{}).Count(&count).Error)
	assert.Zero(t, count)
}

// failingRepo rejects every create so the rollback path runs.
type failingRepo struct {
	repository.DetectionRepositoryInterface
}

func (f *failingRepo) Create(det *models.Detection, tagName, tagType string) error {
	return errors.New("constraint violation")
}

func TestCreateDetectionRollbackRemovesStoredFiles(t *testing.T) {
	svc, _, store := setupService(t, nil)

	imagePath, err := store.SaveOriginal(models.CategoryPothole, "road.jpg", []byte("img"))
	require.NoError(t, err)
	detectedPath, err := store.DetectedPath(models.CategoryPothole, "road_detected.jpg")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(detectedPath, []byte("boxed"), 0644))

	outcome := detection.NewPotholeOutcome("High")
	outcome.ImageName = "road.jpg"
	outcome.ImagePath = imagePath
	outcome.DetectedImageName = "road_detected.jpg"
	outcome.DetectedImagePath = detectedPath

	svc.classifier = &fakeClassifier{outcome: outcome}
	svc.repo = &failingRepo{}

	det, err := svc.CreateDetection(Submission{UserID: 1, ImageData: []byte("img")})
	assert.Error(t, err)
	assert.Nil(t, det)
	assert.NoFileExists(t, imagePath)
	assert.NoFileExists(t, detectedPath)
}
