package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/scholaris/school-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type TeacherFilters struct {
	Status        *models.ProfileStatus `json:"status"`
	AssignedClass *string               `json:"assigned_class"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

type StudentFilters struct {
	Status            *models.ProfileStatus `json:"status"`
	StudentClass      *string               `json:"student_class"`
	AssignedTeacherID *uint                 `json:"assigned_teacher_id"`
	Limit             int                   `json:"limit"`
	Offset            int                   `json:"offset"`
}

type ExamFilters struct {
	Scope             *models.ExamScope `json:"scope"`
	CreatedByID       *uint             `json:"created_by_id"`
	AssignedTeacherID *uint             `json:"assigned_teacher_id"`
	Limit             int               `json:"limit"`
	Offset            int               `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

// All methods take an optional tx; nil means the repository's own connection.

type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string, excludeID uint) (bool, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string, excludeID uint) (bool, error)
}

type TeacherRepository interface {
	Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Teacher, error)
	List(ctx context.Context, tx *gorm.DB, filters TeacherFilters) ([]*models.Teacher, int64, error)
	Update(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type StudentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Student, error)
	List(ctx context.Context, tx *gorm.DB, filters StudentFilters) ([]*models.Student, int64, error)
	Update(ctx context.Context, tx *gorm.DB, student *models.Student) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// ClearAssignedTeacher detaches all students of a teacher. Used when the
	// teacher profile is deleted: students keep existing with no teacher.
	ClearAssignedTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) error
}

type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	List(ctx context.Context, tx *gorm.DB, filters ExamFilters) ([]*models.Exam, int64, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// EligibleStudents materializes the set of students permitted to attempt
	// the exam per its scope rules.
	EligibleStudents(ctx context.Context, tx *gorm.DB, exam *models.Exam) ([]*models.Student, error)

	// IsEligible answers the same question for a single student as a point
	// query, without materializing the set.
	IsEligible(ctx context.Context, tx *gorm.DB, exam *models.Exam, studentID uint) (bool, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	GetByExam(ctx context.Context, tx *gorm.DB, examID uint) ([]*models.Question, error)
	Update(ctx context.Context, tx *gorm.DB, question *models.Question) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type SubmissionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	CreateAnswers(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error
	Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error)
	Exists(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error)

	// Result listings, ordered by (exam_id, student_id) for determinism,
	// preloaded with exam, student, user and answer/question details.
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Submission, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) ([]*models.Submission, error)
}
