package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/scholaris/school-service/internal/cache"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (e *ExamPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

func (e *ExamPostgreSQL) Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Create(exam).Error; err != nil {
		return err
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID)
	return nil
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := e.getDB(tx)
	cacheKey := fmt.Sprintf("id:%d", id)
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		if err := db.WithContext(ctx).Preload("AssignedTeacher").First(&dbExam, id).Error; err != nil {
			return nil, err
		}
		return &dbExam, nil
	})
	if err != nil {
		return nil, err
	}

	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error) {
	db := e.getDB(tx)
	var exam models.Exam
	if err := db.WithContext(ctx).
		Preload("AssignedTeacher").
		Preload("CreatedBy").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	db := e.getDB(tx)
	var exams []*models.Exam
	var total int64

	query := db.WithContext(ctx).Model(&models.Exam{})
	if filters.Scope != nil {
		query = query.Where("scope = ?", *filters.Scope)
	}
	if filters.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filters.CreatedByID)
	}
	if filters.AssignedTeacherID != nil {
		query = query.Where("assigned_teacher_id = ?", *filters.AssignedTeacherID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("AssignedTeacher").Order("id").Find(&exams).Error; err != nil {
		return nil, 0, err
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Save(exam).Error; err != nil {
		return err
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID)
	return nil
}

func (e *ExamPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.Exam{}, id).Error; err != nil {
		return err
	}
	cache.InvalidateExamCache(ctx, e.cacheManager, id)
	return nil
}

// eligibilityQuery builds the WHERE clause shared by EligibleStudents and
// IsEligible: active students matched per the exam's scope rules.
func (e *ExamPostgreSQL) eligibilityQuery(ctx context.Context, db *gorm.DB, exam *models.Exam) (*gorm.DB, error) {
	query := db.WithContext(ctx).Model(&models.Student{}).Where("status = ?", models.StatusActive)

	switch exam.Scope {
	case models.ScopeSchool:
		if exam.TargetStandard == nil {
			return nil, fmt.Errorf("school-scoped exam %d has no target standard", exam.ID)
		}
		return query.Where("student_class LIKE ?", *exam.TargetStandard+"%"), nil
	case models.ScopeClass:
		if exam.AssignedTeacherID == nil || exam.TargetClass == nil {
			return nil, fmt.Errorf("class-scoped exam %d has no assigned teacher or target class", exam.ID)
		}
		return query.Where("assigned_teacher_id = ? AND student_class = ?",
			*exam.AssignedTeacherID, *exam.TargetClass), nil
	default:
		return nil, fmt.Errorf("exam %d has invalid scope %q", exam.ID, exam.Scope)
	}
}

func (e *ExamPostgreSQL) EligibleStudents(ctx context.Context, tx *gorm.DB, exam *models.Exam) ([]*models.Student, error) {
	query, err := e.eligibilityQuery(ctx, e.getDB(tx), exam)
	if err != nil {
		return nil, err
	}

	var students []*models.Student
	if err := query.Preload("User").Order("id").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

func (e *ExamPostgreSQL) IsEligible(ctx context.Context, tx *gorm.DB, exam *models.Exam, studentID uint) (bool, error) {
	query, err := e.eligibilityQuery(ctx, e.getDB(tx), exam)
	if err != nil {
		return false, err
	}

	var count int64
	if err := query.Where("id = ?", studentID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
