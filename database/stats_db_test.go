package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/civiceye/civiceyebackend/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitGormDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrateModels(db))
	return db
}

func TestInitGormDBMigrates(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"users", "detections", "department", "tag", "detection_department", "detection_tag", "image"} {
		assert.True(t, db.Migrator().HasTable(table), "expected table %s to exist", table)
	}
}

func TestGetOwnerSummary(t *testing.T) {
	db := openTestDB(t)

	user := &models.User{Email: "a@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	other := &models.User{Email: "b@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)

	seed := []models.Detection{
		{UserID: user.ID, Category: models.CategoryPothole, ImageName: "a", ImagePath: "a", Location: "x", Department: "Road Department", DetectionStatus: "Pothole detected"},
		{UserID: user.ID, Category: models.CategoryPothole, ImageName: "b", ImagePath: "b", Location: "x", Department: "Road Department", DetectionStatus: "Pothole detected"},
		{UserID: user.ID, Category: models.CategoryWaste, ImageName: "c", ImagePath: "c", Location: "x", Department: "Waste Management Department", DetectionStatus: "Glass detected"},
		{UserID: other.ID, Category: models.CategoryWaste, ImageName: "d", ImagePath: "d", Location: "x", Department: "Waste Management Department", DetectionStatus: "Glass detected"},
	}
	for i := range seed {
		require.NoError(t, db.Create(&seed[i]).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)

	summary, err := GetOwnerSummary(sqlDB, user.ID)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, models.CategoryPothole, summary[0].Category)
	assert.Equal(t, "Road Department", summary[0].Department)
	assert.EqualValues(t, 2, summary[0].Count)

	assert.Equal(t, models.CategoryWaste, summary[1].Category)
	assert.EqualValues(t, 1, summary[1].Count)
}

func TestGetOwnerSummaryEmpty(t *testing.T) {
	db := openTestDB(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	summary, err := GetOwnerSummary(sqlDB, 999)
	require.NoError(t, err)
	assert.Empty(t, summary)
}
