package validator

import (
	"time"

	"github.com/scholaris/school-service/internal/models"
)

// ===== AUTH DTOs =====

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=150"`
	Password string `json:"password" validate:"required,min=1"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ===== TEACHER PROFILE DTOs =====

type TeacherCreateRequest struct {
	Username              string               `json:"username" validate:"required,min=1,max=150"`
	Email                 string               `json:"email" validate:"required,email"`
	Password              string               `json:"password" validate:"required,min=8,max=128"`
	FirstName             string               `json:"first_name" validate:"required,person_name,max=150"`
	LastName              *string              `json:"last_name" validate:"omitempty,person_name,max=150"`
	Phone                 string               `json:"phone" validate:"required,phone_number"`
	SubjectSpecialization string               `json:"subject_specialization" validate:"required,max=100"`
	EmployeeID            string               `json:"employee_id" validate:"required,employee_id"`
	DateOfJoining         string               `json:"date_of_joining" validate:"required,datetime=2006-01-02"`
	AssignedClass         string               `json:"assigned_class" validate:"required,class_name"`
	Status                models.ProfileStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

type TeacherUpdateRequest struct {
	Email                 *string               `json:"email" validate:"omitempty,email"`
	FirstName             *string               `json:"first_name" validate:"omitempty,person_name,max=150"`
	LastName              *string               `json:"last_name" validate:"omitempty,person_name,max=150"`
	Phone                 *string               `json:"phone" validate:"omitempty,phone_number"`
	SubjectSpecialization *string               `json:"subject_specialization" validate:"omitempty,max=100"`
	DateOfJoining         *string               `json:"date_of_joining" validate:"omitempty,datetime=2006-01-02"`
	AssignedClass         *string               `json:"assigned_class" validate:"omitempty,class_name"`
	Status                *models.ProfileStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ===== STUDENT PROFILE DTOs =====

type StudentCreateRequest struct {
	Username          string               `json:"username" validate:"required,min=1,max=150"`
	Email             string               `json:"email" validate:"required,email"`
	Password          string               `json:"password" validate:"required,min=8,max=128"`
	FirstName         string               `json:"first_name" validate:"required,person_name,max=150"`
	LastName          *string              `json:"last_name" validate:"omitempty,person_name,max=150"`
	Phone             string               `json:"phone" validate:"required,phone_number"`
	RollNumber        string               `json:"roll_number" validate:"required,roll_number"`
	StudentClass      string               `json:"student_class" validate:"required,class_name"`
	DateOfBirth       string               `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	AdmissionDate     string               `json:"admission_date" validate:"required,datetime=2006-01-02"`
	Status            models.ProfileStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	AssignedTeacherID *uint                `json:"assigned_teacher_id"`
}

type StudentUpdateRequest struct {
	Email             *string               `json:"email" validate:"omitempty,email"`
	FirstName         *string               `json:"first_name" validate:"omitempty,person_name,max=150"`
	LastName          *string               `json:"last_name" validate:"omitempty,person_name,max=150"`
	Phone             *string               `json:"phone" validate:"omitempty,phone_number"`
	RollNumber        *string               `json:"roll_number" validate:"omitempty,roll_number"`
	StudentClass      *string               `json:"student_class" validate:"omitempty,class_name"`
	DateOfBirth       *string               `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	AdmissionDate     *string               `json:"admission_date" validate:"omitempty,datetime=2006-01-02"`
	Status            *models.ProfileStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	AssignedTeacherID *uint                 `json:"assigned_teacher_id"`
}

// ===== EXAM DTOs =====

type ExamCreateRequest struct {
	Title             string                  `json:"title" validate:"required,min=1,max=200"`
	Scope             models.ExamScope        `json:"scope" validate:"required,oneof=school class"`
	TargetStandard    *string                 `json:"target_standard" validate:"omitempty,standard_name"`
	TargetClass       *string                 `json:"target_class" validate:"omitempty,class_name"`
	AssignedTeacherID *uint                   `json:"assigned_teacher_id"`
	StartTime         time.Time               `json:"start_time" validate:"required"`
	DurationMinutes   int                     `json:"duration_minutes" validate:"required,exam_duration"`
	Questions         []QuestionCreateRequest `json:"questions" validate:"omitempty,dive"`
}

type ExamUpdateRequest struct {
	Title             *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Scope             *models.ExamScope `json:"scope" validate:"omitempty,oneof=school class"`
	TargetStandard    *string           `json:"target_standard" validate:"omitempty,standard_name"`
	TargetClass       *string           `json:"target_class" validate:"omitempty,class_name"`
	AssignedTeacherID *uint             `json:"assigned_teacher_id"`
	StartTime         *time.Time        `json:"start_time"`
	DurationMinutes   *int              `json:"duration_minutes" validate:"omitempty,exam_duration"`
}

type QuestionCreateRequest struct {
	Text          string `json:"text" validate:"required,min=1,max=2000"`
	Option1       string `json:"option1" validate:"required,max=255"`
	Option2       string `json:"option2" validate:"required,max=255"`
	Option3       string `json:"option3" validate:"required,max=255"`
	Option4       string `json:"option4" validate:"required,max=255"`
	CorrectOption int    `json:"correct_option" validate:"required,min=1,max=4"`
}

type QuestionUpdateRequest struct {
	Text          *string `json:"text" validate:"omitempty,min=1,max=2000"`
	Option1       *string `json:"option1" validate:"omitempty,max=255"`
	Option2       *string `json:"option2" validate:"omitempty,max=255"`
	Option3       *string `json:"option3" validate:"omitempty,max=255"`
	Option4       *string `json:"option4" validate:"omitempty,max=255"`
	CorrectOption *int    `json:"correct_option" validate:"omitempty,min=1,max=4"`
}

// ===== SUBMISSION DTOs =====

type AnswerSubmitRequest struct {
	QuestionID     uint `json:"question_id" validate:"required"`
	SelectedOption int  `json:"selected_option" validate:"required,min=1,max=4"`
}

type SubmissionCreateRequest struct {
	ExamID  uint                  `json:"exam_id" validate:"required"`
	Answers []AnswerSubmitRequest `json:"answers" validate:"omitempty,dive"`
}
