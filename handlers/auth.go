package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/civiceye/civiceyebackend/config"
	"github.com/civiceye/civiceyebackend/models"
	"github.com/civiceye/civiceyebackend/repository"
)

type AuthHandler struct {
	UserRepo repository.UserRepositoryInterface
	Cfg      config.Config
}

func NewAuthHandler(userRepo repository.UserRepositoryInterface, cfg config.Config) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Cfg: cfg}
}

type RegisterPayload struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	OrganizationName string `json:"organization_name"`
}

// Register creates a new reporting account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if payload.Email == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	if _, err := h.UserRepo.GetByEmail(payload.Email); err == nil {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking existing email %s: %v", payload.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	role := payload.Role
	if role == "" {
		role = models.RoleUser
	}

	newUser := &models.User{
		Email:            payload.Email,
		Role:             role,
		OrganizationName: payload.OrganizationName,
	}
	if err := newUser.SetPassword(payload.Password); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := h.UserRepo.Create(newUser); err != nil {
		log.Printf("Error creating user %s: %v", payload.Email, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := h.UserRepo.GetByEmail(payload.Email)
	if err != nil || !user.CheckPassword(payload.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	expirationTime := time.Now().Add(time.Duration(h.Cfg.JWTExpirationHours) * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "civiceyebackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Login successful",
		"token":      tokenString,
		"expires_at": expirationTime,
		"user":       user.Serialize(),
	})
}

// Profile returns the authenticated user from the request context.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		writeError(w, http.StatusInternalServerError, "Could not retrieve user from context")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Access granted",
		"user":    user.Serialize(),
	})
}
