// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// User represents an account on the network.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:100" json:"first_name"`
	LastName    string    `gorm:"size:100" json:"last_name"`
	Username    string    `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber *string   `gorm:"uniqueIndex;size:32" json:"phone_number,omitempty"`
	Password    string    `gorm:"not null" json:"-"`
	Bio         string    `gorm:"type:text" json:"bio"`
	Avatar      string    `json:"avatar"`
	DeviceToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName is the name used in human-readable notification text.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}
