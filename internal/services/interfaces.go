package services

import (
	"context"
	"io"
	"time"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// ===== REQUEST DTOs =====

// Use business validator types
type LoginRequest = validator.LoginRequest
type PasswordResetRequest = validator.PasswordResetRequest
type PasswordResetConfirmRequest = validator.PasswordResetConfirmRequest

type CreateTeacherRequest = validator.TeacherCreateRequest
type UpdateTeacherRequest = validator.TeacherUpdateRequest
type CreateStudentRequest = validator.StudentCreateRequest
type UpdateStudentRequest = validator.StudentUpdateRequest

type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest

type CreateSubmissionRequest = validator.SubmissionCreateRequest
type SubmitAnswerRequest = validator.AnswerSubmitRequest

// ===== RESPONSE DTOs =====

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type TeacherResponse struct {
	*models.Teacher
}

type TeacherListResponse struct {
	Teachers []*TeacherResponse `json:"teachers"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type StudentResponse struct {
	*models.Student
}

type StudentListResponse struct {
	Students []*StudentResponse `json:"students"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type ExamResponse struct {
	*models.Exam
	QuestionCount int  `json:"question_count"`
	CanEdit       bool `json:"can_edit"`
	CanDelete     bool `json:"can_delete"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type SubmissionResponse struct {
	*models.Submission
	TotalQuestions int `json:"total_questions"`
}

// SubmissionResult is the flattened result row returned to students and
// teachers. One row per scored submission.
type SubmissionResult struct {
	SubmissionID   uint            `json:"submission_id"`
	ExamID         uint            `json:"exam_id"`
	ExamTitle      string          `json:"exam_title"`
	ExamCreatedBy  string          `json:"exam_created_by"`
	StudentID      uint            `json:"student_id"`
	StudentName    string          `json:"student_name"`
	StudentClass   string          `json:"student_class"`
	RollNumber     string          `json:"roll_number"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	Answers        []*AnswerResult `json:"answers,omitempty"`
}

// AnswerResult is the per-question breakdown inside a result row.
type AnswerResult struct {
	QuestionID     uint   `json:"question_id"`
	QuestionText   string `json:"question_text"`
	Option1        string `json:"option1"`
	Option2        string `json:"option2"`
	Option3        string `json:"option3"`
	Option4        string `json:"option4"`
	SelectedOption int    `json:"selected_option"`
	CorrectOption  int    `json:"correct_option"`
	IsCorrect      bool   `json:"is_correct"`
}

// ImportResult summarizes a roster import: how many rows landed, how many
// were rejected and why.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	RequestPasswordReset(ctx context.Context, req *PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req *PasswordResetConfirmRequest) error
}

type TeacherService interface {
	Create(ctx context.Context, req *CreateTeacherRequest, actorID uint) (*TeacherResponse, error)
	GetByID(ctx context.Context, id uint, actorID uint) (*TeacherResponse, error)
	List(ctx context.Context, filters repositories.TeacherFilters, actorID uint) (*TeacherListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTeacherRequest, actorID uint) (*TeacherResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error
}

type StudentService interface {
	Create(ctx context.Context, req *CreateStudentRequest, actorID uint) (*StudentResponse, error)
	GetByID(ctx context.Context, id uint, actorID uint) (*StudentResponse, error)
	List(ctx context.Context, filters repositories.StudentFilters, actorID uint) (*StudentListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateStudentRequest, actorID uint) (*StudentResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error
}

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, actorID uint) (*ExamResponse, error)
	GetByID(ctx context.Context, id uint, actorID uint) (*ExamResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, actorID uint) (*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters, actorID uint) (*ExamListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, actorID uint) (*ExamResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error

	AddQuestion(ctx context.Context, examID uint, req *CreateQuestionRequest, actorID uint) (*models.Question, error)
	UpdateQuestion(ctx context.Context, examID, questionID uint, req *UpdateQuestionRequest, actorID uint) (*models.Question, error)
	DeleteQuestion(ctx context.Context, examID, questionID uint, actorID uint) error
}

type EligibilityService interface {
	// EligibleStudents resolves the full set of students permitted to attempt
	// an exam, per its scope rules.
	EligibleStudents(ctx context.Context, examID uint, actorID uint) ([]*StudentResponse, error)

	// IsEligible answers the point question for one student.
	IsEligible(ctx context.Context, exam *models.Exam, student *models.Student) (bool, error)
}

type SubmissionService interface {
	Submit(ctx context.Context, req *CreateSubmissionRequest, actorID uint) (*SubmissionResponse, error)
	GetByID(ctx context.Context, id uint, actorID uint) (*models.Submission, error)
}

type ResultService interface {
	ByStudent(ctx context.Context, actorID uint) ([]*SubmissionResult, error)
	ByTeacher(ctx context.Context, actorID uint) ([]*SubmissionResult, error)
}

type ImportExportService interface {
	ImportStudentsXLSX(ctx context.Context, r io.Reader, actorID uint) (*ImportResult, error)
	ExportStudentsXLSX(ctx context.Context, filters repositories.StudentFilters, actorID uint) ([]byte, error)
	ExportResultsCSV(ctx context.Context, actorID uint) ([]byte, error)
}

// ServiceManager wires every service behind one lifecycle.
type ServiceManager interface {
	Auth() AuthService
	Teacher() TeacherService
	Student() StudentService
	Exam() ExamService
	Eligibility() EligibilityService
	Submission() SubmissionService
	Result() ResultService
	ImportExport() ImportExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
