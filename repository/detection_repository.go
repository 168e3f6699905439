package repository

import (
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civiceye/civiceyebackend/detection"
	"github.com/civiceye/civiceyebackend/models"
)

// GormDetectionRepository persists detection aggregates through GORM and
// removes stored image files through the detection storage.
type GormDetectionRepository struct {
	db    *gorm.DB
	store detection.Storage
}

func NewGormDetectionRepository(db *gorm.DB, store detection.Storage) DetectionRepositoryInterface {
	return &GormDetectionRepository{db: db, store: store}
}

// ensureDepartment looks up or creates a department by name. The unique
// constraint plus DoNothing-then-relookup makes concurrent first references
// to the same name converge on a single row.
func ensureDepartment(tx *gorm.DB, name string) (*models.Department, error) {
	dept := models.Department{Name: name}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&dept).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create department %s: %w", name, err)
	}
	if dept.ID == 0 {
		if err := tx.Where("name = ?", name).First(&dept).Error; err != nil {
			return nil, fmt.Errorf("failed to look up department %s after conflict: %w", name, err)
		}
	}
	return &dept, nil
}

// ensureTag looks up or creates a tag by name, same contract as
// ensureDepartment.
func ensureTag(tx *gorm.DB, name, tagType string) (*models.Tag, error) {
	tag := models.Tag{Name: name, Type: tagType}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&tag).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tag %s: %w", name, err)
	}
	if tag.ID == 0 {
		if err := tx.Where("name = ?", name).First(&tag).Error; err != nil {
			return nil, fmt.Errorf("failed to look up tag %s after conflict: %w", name, err)
		}
	}
	return &tag, nil
}

// Create commits the detection row, its department link, its tag link and
// its stored-image records as one unit. Either every row is durable or
// none is.
func (r *GormDetectionRepository) Create(det *models.Detection, tagName, tagType string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		dept, err := ensureDepartment(tx, det.Department)
		if err != nil {
			return err
		}
		tag, err := ensureTag(tx, tagName, tagType)
		if err != nil {
			return err
		}

		if err := tx.Create(det).Error; err != nil {
			return fmt.Errorf("failed to create detection: %w", err)
		}

		deptLink := models.DetectionDepartment{DetectionID: det.ID, DepartmentID: dept.ID}
		if err := tx.Create(&deptLink).Error; err != nil {
			return fmt.Errorf("failed to link detection %d to department %d: %w", det.ID, dept.ID, err)
		}

		tagLink := models.DetectionTag{DetectionID: det.ID, TagID: tag.ID}
		if err := tx.Create(&tagLink).Error; err != nil {
			return fmt.Errorf("failed to link detection %d to tag %d: %w", det.ID, tag.ID, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return r.withLinks().First(det, det.ID).Error
}

func (r *GormDetectionRepository) withLinks() *gorm.DB {
	return r.db.
		Preload("Departments.Department").
		Preload("Tags.Tag").
		Preload("Images")
}

func (r *GormDetectionRepository) ListByOwner(userID uint) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.withLinks().Where("user_id = ?", userID).Order("id ASC").Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list detections for user %d: %w", userID, err)
	}
	return detections, nil
}

func (r *GormDetectionRepository) ListByOwnerAndCategory(userID uint, category string) ([]models.Detection, error) {
	var detections []models.Detection
	err := r.withLinks().Where("user_id = ? AND category = ?", userID, category).Order("id ASC").Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s detections for user %d: %w", category, userID, err)
	}
	return detections, nil
}

func (r *GormDetectionRepository) GetByOwner(userID, id uint) (*models.Detection, error) {
	var det models.Detection
	err := r.withLinks().Where("user_id = ? AND id = ?", userID, id).First(&det).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get detection %d for user %d: %w", id, userID, err)
	}
	return &det, nil
}

// UpdateLocation mutates only the location field of an owned detection.
func (r *GormDetectionRepository) UpdateLocation(userID, id uint, location string) (*models.Detection, error) {
	result := r.db.Model(&models.Detection{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("location", location)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update location of detection %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByOwner(userID, id)
}

// deleteRows removes the detection and every dependent row in one
// transaction.
func (r *GormDetectionRepository) deleteRows(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("detection_id = ?", id).Delete(&models.DetectionDepartment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("detection_id = ?", id).Delete(&models.DetectionTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("detection_id = ?", id).Delete(&models.StoredImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Detection{}, id).Error
	})
}

// removeFiles deletes the detection's stored images from disk. Failures are
// logged and tolerated; the row deletion has already committed.
func (r *GormDetectionRepository) removeFiles(det *models.Detection) {
	for _, path := range []string{det.ImagePath, det.DetectedImagePath} {
		if err := r.store.Remove(path); err != nil {
			log.Printf("repository: failed to remove stored file for detection %d: %v", det.ID, err)
		}
	}
}

func (r *GormDetectionRepository) Delete(userID, id uint) error {
	det, err := r.GetByOwner(userID, id)
	if err != nil {
		return err
	}

	if err := r.deleteRows(det.ID); err != nil {
		return fmt.Errorf("failed to delete detection %d: %w", det.ID, err)
	}

	r.removeFiles(det)
	return nil
}

func (r *GormDetectionRepository) DeleteAllByOwnerAndCategory(userID uint, category string) (int64, error) {
	detections, err := r.ListByOwnerAndCategory(userID, category)
	if err != nil {
		return 0, err
	}

	var deleted int64
	for i := range detections {
		det := &detections[i]
		if err := r.deleteRows(det.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete detection %d during bulk delete: %w", det.ID, err)
		}
		r.removeFiles(det)
		deleted++
	}
	return deleted, nil
}
