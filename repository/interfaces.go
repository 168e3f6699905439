package repository

import (
	"github.com/civiceye/civiceyebackend/models"
)

// DetectionRepositoryInterface defines owner-scoped persistence for
// detection aggregates. Every read, update and delete is filtered to rows
// belonging to the given user; there is no cross-owner visibility.
type DetectionRepositoryInterface interface {
	// Create persists the detection, its department and tag links and its
	// stored-image records in one transaction, creating the department and
	// tag rows on first reference. The detection is reloaded with all its
	// links before returning.
	Create(detection *models.Detection, tagName, tagType string) error
	ListByOwner(userID uint) ([]models.Detection, error)
	ListByOwnerAndCategory(userID uint, category string) ([]models.Detection, error)
	GetByOwner(userID, id uint) (*models.Detection, error)
	// UpdateLocation mutates only the location field.
	UpdateLocation(userID, id uint, location string) (*models.Detection, error)
	// Delete removes the detection, its links and its stored files. File
	// removal failures never abort the row deletion.
	Delete(userID, id uint) error
	// DeleteAllByOwnerAndCategory removes every matching detection and
	// returns the number removed.
	DeleteAllByOwnerAndCategory(userID uint, category string) (int64, error)
}

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}
