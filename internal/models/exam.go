package models

import (
	"strings"
	"time"
)

type ExamScope string

const (
	ScopeSchool ExamScope = "school"
	ScopeClass  ExamScope = "class"
)

// Exam targets either a whole standard (scope=school, TargetStandard set) or
// a single class run by one teacher (scope=class, TargetClass + AssignedTeacher
// set). Exactly one of the two field-sets is populated; the authoring guard
// enforces this on every create and update.
type Exam struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Title             string    `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Scope             ExamScope `json:"scope" gorm:"not null;size:10;index"`
	TargetStandard    *string   `json:"target_standard" gorm:"size:10"`
	TargetClass       *string   `json:"target_class" gorm:"size:10"`
	AssignedTeacherID *uint     `json:"assigned_teacher_id" gorm:"index"`
	StartTime         time.Time `json:"start_time" gorm:"not null"`
	DurationMinutes   int       `json:"duration_minutes" gorm:"not null" validate:"required,min=1"`
	CreatedByID       uint      `json:"created_by_id" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	CreatedBy       User       `json:"created_by" gorm:"foreignKey:CreatedByID"`
	AssignedTeacher *Teacher   `json:"assigned_teacher,omitempty" gorm:"foreignKey:AssignedTeacherID;constraint:OnDelete:CASCADE"`
	Questions       []Question `json:"questions,omitempty" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// EndTime is the close of the submission window.
func (e *Exam) EndTime() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// ClosedAt reports whether the submission window has closed at the given
// instant. There is no lower bound: submitting before StartTime is permitted.
func (e *Exam) ClosedAt(at time.Time) bool {
	return at.After(e.EndTime())
}

// MatchesStandard reports whether a class identifier such as "10A" falls
// under this exam's target standard (prefix match on the standard component).
func (e *Exam) MatchesStandard(studentClass string) bool {
	if e.TargetStandard == nil {
		return false
	}
	return strings.HasPrefix(studentClass, *e.TargetStandard)
}

// Question belongs to exactly one exam: a prompt with four fixed options, one
// of which (1..4) is correct.
type Question struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	ExamID        uint   `json:"exam_id" gorm:"not null;index"`
	Text          string `json:"text" gorm:"type:text;not null" validate:"required"`
	Option1       string `json:"option1" gorm:"not null;size:255" validate:"required,max=255"`
	Option2       string `json:"option2" gorm:"not null;size:255" validate:"required,max=255"`
	Option3       string `json:"option3" gorm:"not null;size:255" validate:"required,max=255"`
	Option4       string `json:"option4" gorm:"not null;size:255" validate:"required,max=255"`
	CorrectOption int    `json:"correct_option" gorm:"not null" validate:"required,min=1,max=4"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam Exam `json:"-" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}
