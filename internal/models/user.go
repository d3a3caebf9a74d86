package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is the base identity. Role is assigned when the account is created
// alongside its profile and never changes afterwards.
type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Username     string   `json:"username" gorm:"uniqueIndex;not null;size:150" validate:"required,max=150"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	FirstName    string   `json:"first_name" gorm:"not null;size:50" validate:"required,person_name,max=50"`
	LastName     *string  `json:"last_name" gorm:"size:50" validate:"omitempty,person_name,max=50"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;size:10;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName is "First Last", or just the first name when no last name is set.
func (u *User) DisplayName() string {
	if u.LastName == nil || *u.LastName == "" {
		return u.FirstName
	}
	return strings.TrimSpace(u.FirstName + " " + *u.LastName)
}
