package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProfileStatus string

const (
	StatusActive   ProfileStatus = "active"
	StatusInactive ProfileStatus = "inactive"
)

// Teacher extends a User with role=teacher. AssignedClass is the single
// source of truth for which class the teacher runs; class-scoped exams and
// student assignments are validated against it.
type Teacher struct {
	ID                    uint           `json:"id" gorm:"primaryKey"`
	UserID                uint           `json:"user_id" gorm:"uniqueIndex;not null"`
	Phone                 string         `json:"phone" gorm:"not null;size:10" validate:"required,phone_number"`
	SubjectSpecialization string         `json:"subject_specialization" gorm:"not null;size:100" validate:"required,max=100"`
	EmployeeID            string         `json:"employee_id" gorm:"uniqueIndex;not null;size:20" validate:"required,employee_id"`
	DateOfJoining         datatypes.Date `json:"date_of_joining" gorm:"not null"`
	Status                ProfileStatus  `json:"status" gorm:"not null;size:10;default:active" validate:"omitempty,oneof=active inactive"`
	AssignedClass         string         `json:"assigned_class" gorm:"not null;size:10;index" validate:"required,class_name"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User     User      `json:"user" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Students []Student `json:"-" gorm:"foreignKey:AssignedTeacherID"`
}

func (Teacher) TableName() string {
	return "teachers"
}
