package models

import "time"

// Submission is the single attempt of one student at one exam. The composite
// unique index on (exam_id, student_id) is part of the contract: two
// concurrent submits resolve to one success and one duplicate-key rejection
// at the store, regardless of interleaving.
type Submission struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ExamID      uint      `json:"exam_id" gorm:"not null;uniqueIndex:idx_exam_student"`
	StudentID   uint      `json:"student_id" gorm:"not null;uniqueIndex:idx_exam_student"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`
	Score       int       `json:"score" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    Exam     `json:"exam" gorm:"foreignKey:ExamID;constraint:OnDelete:CASCADE"`
	Student Student  `json:"student" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:SubmissionID"`
}

func (Submission) TableName() string {
	return "exam_submissions"
}

// Answer records one selected option. Answers exist only as part of their
// submission and are never mutated after creation.
type Answer struct {
	ID             uint `json:"id" gorm:"primaryKey"`
	SubmissionID   uint `json:"submission_id" gorm:"not null;index"`
	QuestionID     uint `json:"question_id" gorm:"not null;index"`
	SelectedOption int  `json:"selected_option" gorm:"not null" validate:"required,min=1,max=4"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Submission Submission `json:"-" gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE"`
	Question   Question   `json:"question" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Answer) TableName() string {
	return "answers"
}
