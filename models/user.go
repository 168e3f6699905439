package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser         = "user"
	RoleOrganization = "organization"
	RoleAdmin        = "admin"
)

// TimeFormat is the fixed timestamp layout used in every serialized response.
const TimeFormat = "2006-01-02 15:04:05"

// User represents a reporting citizen or organization account.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`

	// user | organization | admin
	Role             string `json:"role" gorm:"size:50;default:user"`
	OrganizationName string `json:"organization_name,omitempty" gorm:"size:150"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Detections []Detection `json:"-" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// Serialize returns the response representation of the user. The password
// hash is never included.
func (u *User) Serialize() map[string]interface{} {
	return map[string]interface{}{
		"id":                u.ID,
		"email":             u.Email,
		"role":              u.Role,
		"organization_name": u.OrganizationName,
		"created_at":        u.CreatedAt.Format(TimeFormat),
		"updated_at":        u.UpdatedAt.Format(TimeFormat),
	}
}
