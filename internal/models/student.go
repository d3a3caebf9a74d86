package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student extends a User with role=student. RollNumber is unique within a
// class, not globally. AssignedTeacherID is cleared (not cascaded) when the
// teacher is deleted.
type Student struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	UserID            uint           `json:"user_id" gorm:"uniqueIndex;not null"`
	Phone             string         `json:"phone" gorm:"not null;size:10" validate:"required,phone_number"`
	RollNumber        string         `json:"roll_number" gorm:"not null;size:3;uniqueIndex:idx_roll_number_class" validate:"required,roll_number"`
	StudentClass      string         `json:"student_class" gorm:"not null;size:10;uniqueIndex:idx_roll_number_class;index" validate:"required,class_name"`
	DateOfBirth       datatypes.Date `json:"date_of_birth" gorm:"not null"`
	AdmissionDate     datatypes.Date `json:"admission_date" gorm:"not null"`
	Status            ProfileStatus  `json:"status" gorm:"not null;size:10;default:active" validate:"omitempty,oneof=active inactive"`
	AssignedTeacherID *uint          `json:"assigned_teacher_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User            User     `json:"user" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AssignedTeacher *Teacher `json:"assigned_teacher,omitempty" gorm:"foreignKey:AssignedTeacherID;constraint:OnDelete:SET NULL"`
}

func (Student) TableName() string {
	return "students"
}
