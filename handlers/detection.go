package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/civiceye/civiceyebackend/database"
	"github.com/civiceye/civiceyebackend/models"
	"github.com/civiceye/civiceyebackend/repository"
	"github.com/civiceye/civiceyebackend/services"
	"github.com/civiceye/civiceyebackend/utils"
)

const maxUploadBytes = 32 << 20

type DetectionHandler struct {
	Service *services.DetectionService
	Repo    repository.DetectionRepositoryInterface
	StatsDB *sql.DB
}

func currentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

func isValidCategory(category string) bool {
	return category == models.CategoryPothole || category == models.CategoryWaste
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Create accepts a multipart submission (image + latitude + longitude +
// location), classifies it and persists the detection aggregate. A valid
// submission matching neither model is a success with no detection, not an
// error.
func (dh *DetectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing required field: image")
		return
	}
	defer file.Close()

	if !utils.IsRasterImage(header.Filename) {
		writeError(w, http.StatusBadRequest, "Unsupported image file type")
		return
	}

	latStr := r.FormValue("latitude")
	lonStr := r.FormValue("longitude")
	location := strings.TrimSpace(r.FormValue("location"))
	if latStr == "" || lonStr == "" || location == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	latitude, latErr := strconv.ParseFloat(latStr, 64)
	longitude, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "Invalid latitude/longitude")
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		log.Printf("Error reading uploaded image %s: %v", header.Filename, err)
		writeError(w, http.StatusBadRequest, "Failed to read uploaded image")
		return
	}
	if err := utils.ValidateImage(imageData); err != nil {
		writeError(w, http.StatusBadRequest, "Uploaded file is not a valid image")
		return
	}

	det, err := dh.Service.CreateDetection(services.Submission{
		UserID:    user.ID,
		ImageData: imageData,
		Filename:  header.Filename,
		Latitude:  latitude,
		Longitude: longitude,
		Location:  location,
	})
	if err != nil {
		log.Printf("Error creating detection for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process detection")
		return
	}
	if det == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No pothole or waste detected!"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": capitalize(det.Category) + " detected successfully.",
		"data":    det.Serialize(),
	})
}

// ListMine returns every detection owned by the requesting user.
func (dh *DetectionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	detections, err := dh.Repo.ListByOwner(user.ID)
	if err != nil {
		log.Printf("Error listing detections for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve detections")
		return
	}

	writeJSON(w, http.StatusOK, serializeAll(detections))
}

// GetMine serves GET /my/{key}, where key is either a detection ID or a
// category name.
func (dh *DetectionHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	key := chi.URLParam(r, "key")

	if id, err := strconv.ParseUint(key, 10, 32); err == nil {
		det, err := dh.Repo.GetByOwner(user.ID, uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeError(w, http.StatusNotFound, "Record not found")
			} else {
				log.Printf("Error getting detection %d for user %d: %v", id, user.ID, err)
				writeError(w, http.StatusInternalServerError, "Failed to retrieve detection")
			}
			return
		}
		writeJSON(w, http.StatusOK, det.Serialize())
		return
	}

	if !isValidCategory(key) {
		writeError(w, http.StatusBadRequest, "Invalid detection category")
		return
	}

	detections, err := dh.Repo.ListByOwnerAndCategory(user.ID, key)
	if err != nil {
		log.Printf("Error listing %s detections for user %d: %v", key, user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve detections")
		return
	}

	writeJSON(w, http.StatusOK, serializeAll(detections))
}

// UpdateMine changes the location of an owned detection. Nothing else is
// mutable through this endpoint.
func (dh *DetectionHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid detection ID format")
		return
	}

	var req struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Location) == "" {
		writeError(w, http.StatusBadRequest, "Location is required")
		return
	}

	det, err := dh.Repo.UpdateLocation(user.ID, uint(id), req.Location)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Record not found")
		} else {
			log.Printf("Error updating location of detection %d for user %d: %v", id, user.ID, err)
			writeError(w, http.StatusInternalServerError, "Failed to update detection")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": capitalize(det.Category) + " location updated",
		"data":    det.Serialize(),
	})
}

// DeleteMine serves DELETE /my/{key}: a detection ID removes one record,
// a category name removes all of the user's records in that category.
func (dh *DetectionHandler) DeleteMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	key := chi.URLParam(r, "key")

	if id, err := strconv.ParseUint(key, 10, 32); err == nil {
		if err := dh.Repo.Delete(user.ID, uint(id)); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				writeError(w, http.StatusNotFound, "Record not found")
			} else {
				log.Printf("Error deleting detection %d for user %d: %v", id, user.ID, err)
				writeError(w, http.StatusInternalServerError, "Failed to delete detection")
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Detection deleted successfully"})
		return
	}

	if !isValidCategory(key) {
		writeError(w, http.StatusBadRequest, "Invalid detection category")
		return
	}

	count, err := dh.Repo.DeleteAllByOwnerAndCategory(user.ID, key)
	if err != nil {
		log.Printf("Error bulk deleting %s detections for user %d: %v", key, user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete detections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "All your " + key + " records deleted",
		"deleted_count": count,
	})
}

// Summary returns per-category detection counts for the requesting user.
func (dh *DetectionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	summary, err := database.GetOwnerSummary(dh.StatsDB, user.ID)
	if err != nil {
		log.Printf("Error building summary for user %d: %v", user.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	if summary == nil {
		summary = []database.CategorySummary{}
	}

	writeJSON(w, http.StatusOK, summary)
}

func serializeAll(detections []models.Detection) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(detections))
	for i := range detections {
		out = append(out, detections[i].Serialize())
	}
	return out
}
