package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

type TeacherPostgreSQL struct {
	db *gorm.DB
}

func NewTeacherPostgreSQL(db *gorm.DB) repositories.TeacherRepository {
	return &TeacherPostgreSQL{db: db}
}

func (t *TeacherPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return t.db
}

func (t *TeacherPostgreSQL) Create(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	db := t.getDB(tx)
	if err := db.WithContext(ctx).Create(teacher).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.ErrDuplicate
		}
		return err
	}
	return nil
}

func (t *TeacherPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Teacher, error) {
	db := t.getDB(tx)
	var teacher models.Teacher
	if err := db.WithContext(ctx).Preload("User").First(&teacher, id).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (t *TeacherPostgreSQL) GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) (*models.Teacher, error) {
	db := t.getDB(tx)
	var teacher models.Teacher
	if err := db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func (t *TeacherPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TeacherFilters) ([]*models.Teacher, int64, error) {
	db := t.getDB(tx)
	var teachers []*models.Teacher
	var total int64

	query := db.WithContext(ctx).Model(&models.Teacher{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.AssignedClass != nil {
		query = query.Where("assigned_class = ?", *filters.AssignedClass)
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

	if err := query.Preload("User").Order("id").Find(&teachers).Error; err != nil {
		return nil, 0, err
	}

	return teachers, total, nil
}

func (t *TeacherPostgreSQL) Update(ctx context.Context, tx *gorm.DB, teacher *models.Teacher) error {
	db := t.getDB(tx)
	return db.WithContext(ctx).Save(teacher).Error
}

func (t *TeacherPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := t.getDB(tx)
	return db.WithContext(ctx).Delete(&models.Teacher{}, id).Error
}
