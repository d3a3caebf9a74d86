package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// teacherService manages teacher accounts. A teacher is a user plus a
// profile; both are created and deleted together in one transaction.
type teacherService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	eventPublisher events.EventPublisher
}

func NewTeacherService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, eventPublisher events.EventPublisher) TeacherService {
	return &teacherService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
	}
}

func (s *teacherService) Create(ctx context.Context, req *CreateTeacherRequest, actorID uint) (*TeacherResponse, error) {
	s.logger.Info("Creating teacher", "username", req.Username, "actor_id", actorID)

	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	if err := s.requireAdmin(ctx, actorID, 0, "teacher", "create"); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, req.Username, req.Email, 0); err != nil {
		return nil, err
	}

	dateOfJoining, err := parseDate(req.DateOfJoining)
	if err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusActive
	}

	var teacher *models.Teacher
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PasswordHash: passwordHash,
			Role:         models.RoleTeacher,
		}
		if err := txRepo.User().Create(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		teacher = &models.Teacher{
			UserID:                user.ID,
			Phone:                 req.Phone,
			SubjectSpecialization: req.SubjectSpecialization,
			EmployeeID:            req.EmployeeID,
			DateOfJoining:         dateOfJoining,
			Status:                status,
			AssignedClass:         req.AssignedClass,
		}
		if err := txRepo.Teacher().Create(ctx, nil, teacher); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateEmployee
			}
			return fmt.Errorf("failed to create teacher profile: %w", err)
		}
		teacher.User = *user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishProfileEvent(ctx, events.EventTeacherCreated, teacher.ID, teacher.UserID)

	s.logger.Info("Teacher created", "teacher_id", teacher.ID, "employee_id", teacher.EmployeeID)
	return &TeacherResponse{Teacher: teacher}, nil
}

func (s *teacherService) GetByID(ctx context.Context, id uint, actorID uint) (*TeacherResponse, error) {
	teacher, err := s.repo.Teacher().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}

	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor.Role != models.RoleAdmin && teacher.UserID != actorID {
		return nil, NewPermissionError(actorID, id, "teacher", "view", "not own profile")
	}

	return &TeacherResponse{Teacher: teacher}, nil
}

func (s *teacherService) List(ctx context.Context, filters repositories.TeacherFilters, actorID uint) (*TeacherListResponse, error) {
	if err := s.requireAdmin(ctx, actorID, 0, "teacher", "list"); err != nil {
		return nil, err
	}

	teachers, total, err := s.repo.Teacher().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}

	responses := make([]*TeacherResponse, len(teachers))
	for i, t := range teachers {
		responses[i] = &TeacherResponse{Teacher: t}
	}

	page, size := pageFromOffset(filters.Offset, filters.Limit)
	return &TeacherListResponse{
		Teachers: responses,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

func (s *teacherService) Update(ctx context.Context, id uint, req *UpdateTeacherRequest, actorID uint) (*TeacherResponse, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	if err := s.requireAdmin(ctx, actorID, id, "teacher", "update"); err != nil {
		return nil, err
	}

	teacher, err := s.repo.Teacher().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}

	if req.Email != nil && *req.Email != teacher.User.Email {
		taken, err := s.repo.User().ExistsByEmail(ctx, nil, *req.Email, teacher.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		userChanged := false
		if req.Email != nil {
			teacher.User.Email = *req.Email
			userChanged = true
		}
		if req.FirstName != nil {
			teacher.User.FirstName = *req.FirstName
			userChanged = true
		}
		if req.LastName != nil {
			teacher.User.LastName = req.LastName
			userChanged = true
		}
		if userChanged {
			if err := txRepo.User().Update(ctx, nil, &teacher.User); err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		if req.Phone != nil {
			teacher.Phone = *req.Phone
		}
		if req.SubjectSpecialization != nil {
			teacher.SubjectSpecialization = *req.SubjectSpecialization
		}
		if req.DateOfJoining != nil {
			d, err := parseDate(*req.DateOfJoining)
			if err != nil {
				return err
			}
			teacher.DateOfJoining = d
		}
		if req.AssignedClass != nil {
			teacher.AssignedClass = *req.AssignedClass
		}
		if req.Status != nil {
			teacher.Status = *req.Status
		}

		return txRepo.Teacher().Update(ctx, nil, teacher)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Teacher updated", "teacher_id", id, "actor_id", actorID)
	return &TeacherResponse{Teacher: teacher}, nil
}

// Delete removes the teacher profile and its user account together. Students
// of the teacher are detached first, never deleted.
func (s *teacherService) Delete(ctx context.Context, id uint, actorID uint) error {
	if err := s.requireAdmin(ctx, actorID, id, "teacher", "delete"); err != nil {
		return err
	}

	teacher, err := s.repo.Teacher().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("failed to get teacher: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Student().ClearAssignedTeacher(ctx, nil, teacher.ID); err != nil {
			return fmt.Errorf("failed to detach students: %w", err)
		}
		if err := txRepo.Teacher().Delete(ctx, nil, teacher.ID); err != nil {
			return fmt.Errorf("failed to delete teacher profile: %w", err)
		}
		if err := txRepo.User().Delete(ctx, nil, teacher.UserID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishProfileEvent(ctx, events.EventTeacherDeleted, teacher.ID, teacher.UserID)

	s.logger.Info("Teacher deleted", "teacher_id", id, "actor_id", actorID)
	return nil
}

// ===== HELPERS =====

func (s *teacherService) requireAdmin(ctx context.Context, actorID, resourceID uint, resource, action string) error {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, resourceID, resource, action, "admin role required")
	}
	return nil
}

func (s *teacherService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
	taken, err := s.repo.User().ExistsByUsername(ctx, nil, username, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return ErrDuplicateUsername
	}

	taken, err = s.repo.User().ExistsByEmail(ctx, nil, email, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

func (s *teacherService) publishProfileEvent(ctx context.Context, eventType string, profileID, userID uint) {
	if s.eventPublisher == nil {
		return
	}
	event := &events.Event{
		Type: eventType,
		Data: map[string]interface{}{
			"profile_id": profileID,
			"user_id":    userID,
		},
	}
	if err := s.eventPublisher.Publish(ctx, events.TopicProfiles, event); err != nil {
		s.logger.Error("Failed to publish profile event", "event_type", eventType, "error", err)
	}
}

// parseDate converts a 2006-01-02 request field into a stored date.
func parseDate(value string) (datatypes.Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return datatypes.Date{}, validator.ValidationErrors{{
			Field:   "date",
			Message: "must be a date in 2006-01-02 format",
			Value:   value,
			Rule:    "datetime",
		}}
	}
	return datatypes.Date(t), nil
}
