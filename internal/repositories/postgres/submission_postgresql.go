package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/scholaris/school-service/internal/cache"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSubmissionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *SubmissionPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Create inserts a submission row. The unique (exam_id, student_id) index is
// the arbiter for concurrent submits: the loser surfaces ErrDuplicate.
func (s *SubmissionPostgreSQL) Create(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := s.getDB(tx)
	if err := db.WithContext(ctx).Create(submission).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || repositories.IsDuplicateError(err) {
			return fmt.Errorf("submission for exam %d by student %d: %w",
				submission.ExamID, submission.StudentID, repositories.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *SubmissionPostgreSQL) CreateAnswers(ctx context.Context, tx *gorm.DB, answers []*models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	db := s.getDB(tx)
	return db.WithContext(ctx).Create(answers).Error
}

func (s *SubmissionPostgreSQL) Update(ctx context.Context, tx *gorm.DB, submission *models.Submission) error {
	db := s.getDB(tx)
	return db.WithContext(ctx).Save(submission).Error
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	db := s.getDB(tx)
	var submission models.Submission
	if err := db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Submission, error) {
	db := s.getDB(tx)
	var submission models.Submission
	err := db.WithContext(ctx).
		Preload("Exam").
		Preload("Exam.CreatedBy").
		Preload("Student").
		Preload("Student.User").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id")
		}).
		Preload("Answers.Question").
		First(&submission, id).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, examID, studentID uint) (bool, error) {
	db := s.getDB(tx)

	// Existence checks are advisory: the unique index settles races, so a
	// short-lived cache is safe here.
	cacheKey := fmt.Sprintf("submission:exam:%d:student:%d", examID, studentID)
	var exists bool
	err := s.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &exists, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Submission{}).
			Where("exam_id = ? AND student_id = ?", examID, studentID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		return count > 0, nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SubmissionPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint) ([]*models.Submission, error) {
	db := s.getDB(tx)
	var submissions []*models.Submission
	err := db.WithContext(ctx).
		Preload("Exam").
		Preload("Exam.CreatedBy").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id")
		}).
		Preload("Answers.Question").
		Where("student_id = ?", studentID).
		Order("exam_id, student_id").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListByTeacher returns the submissions of all students currently assigned to
// the teacher, regardless of who authored the exam.
func (s *SubmissionPostgreSQL) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID uint) ([]*models.Submission, error) {
	db := s.getDB(tx)
	var submissions []*models.Submission
	err := db.WithContext(ctx).
		Joins("JOIN students ON students.id = exam_submissions.student_id").
		Where("students.assigned_teacher_id = ?", teacherID).
		Preload("Exam").
		Preload("Exam.CreatedBy").
		Preload("Student").
		Preload("Student.User").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.id")
		}).
		Preload("Answers.Question").
		Order("exam_submissions.exam_id, exam_submissions.student_id").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
