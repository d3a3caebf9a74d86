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

// studentService manages student accounts, mirroring the teacher lifecycle:
// user and profile live and die together.
type studentService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	eventPublisher events.EventPublisher
}

func NewStudentService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, eventPublisher events.EventPublisher) StudentService {
	return &studentService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
	}
}

func (s *studentService) Create(ctx context.Context, req *CreateStudentRequest, actorID uint) (*StudentResponse, error) {
	s.logger.Info("Creating student", "username", req.Username, "actor_id", actorID)

	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	if err := s.requireAdmin(ctx, actorID, 0, "create"); err != nil {
		return nil, err
	}

	if err := s.checkUnique(ctx, req.Username, req.Email, 0); err != nil {
		return nil, err
	}

	if err := s.checkTeacherAssignment(ctx, req.AssignedTeacherID, req.StudentClass); err != nil {
		return nil, err
	}

	dateOfBirth, err := parseDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	if err := checkStudentAge(dateOfBirth); err != nil {
		return nil, err
	}
	admissionDate, err := parseDate(req.AdmissionDate)
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

	var student *models.Student
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		user := &models.User{
			Username:     req.Username,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			PasswordHash: passwordHash,
			Role:         models.RoleStudent,
		}
		if err := txRepo.User().Create(ctx, nil, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		student = &models.Student{
			UserID:            user.ID,
			Phone:             req.Phone,
			RollNumber:        req.RollNumber,
			StudentClass:      req.StudentClass,
			DateOfBirth:       dateOfBirth,
			AdmissionDate:     admissionDate,
			Status:            status,
			AssignedTeacherID: req.AssignedTeacherID,
		}
		if err := txRepo.Student().Create(ctx, nil, student); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateRoll
			}
			return fmt.Errorf("failed to create student profile: %w", err)
		}
		student.User = *user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishProfileEvent(ctx, events.EventStudentCreated, student.ID, student.UserID)

	s.logger.Info("Student created",
		"student_id", student.ID,
		"roll_number", student.RollNumber,
		"student_class", student.StudentClass)
	return &StudentResponse{Student: student}, nil
}

func (s *studentService) GetByID(ctx context.Context, id uint, actorID uint) (*StudentResponse, error) {
	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if err := s.checkViewPermission(ctx, actorID, student); err != nil {
		return nil, err
	}

	return &StudentResponse{Student: student}, nil
}

func (s *studentService) List(ctx context.Context, filters repositories.StudentFilters, actorID uint) (*StudentListResponse, error) {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}

	switch actor.Role {
	case models.RoleAdmin:
		// Full roster access.
	case models.RoleTeacher:
		// Teachers see only their own students.
		teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actorID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrTeacherNotFound
			}
			return nil, fmt.Errorf("failed to get teacher profile: %w", err)
		}
		filters.AssignedTeacherID = &teacher.ID
	default:
		return nil, NewPermissionError(actorID, 0, "student", "list", "admin or teacher role required")
	}

	students, total, err := s.repo.Student().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	responses := make([]*StudentResponse, len(students))
	for i, st := range students {
		responses[i] = &StudentResponse{Student: st}
	}

	page, size := pageFromOffset(filters.Offset, filters.Limit)
	return &StudentListResponse{
		Students: responses,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

func (s *studentService) Update(ctx context.Context, id uint, req *UpdateStudentRequest, actorID uint) (*StudentResponse, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	if err := s.requireAdmin(ctx, actorID, id, "update"); err != nil {
		return nil, err
	}

	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if req.Email != nil && *req.Email != student.User.Email {
		taken, err := s.repo.User().ExistsByEmail(ctx, nil, *req.Email, student.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
	}

	// Re-validate teacher assignment against the effective class.
	effectiveClass := student.StudentClass
	if req.StudentClass != nil {
		effectiveClass = *req.StudentClass
	}
	effectiveTeacherID := student.AssignedTeacherID
	if req.AssignedTeacherID != nil {
		effectiveTeacherID = req.AssignedTeacherID
	}
	if err := s.checkTeacherAssignment(ctx, effectiveTeacherID, effectiveClass); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		userChanged := false
		if req.Email != nil {
			student.User.Email = *req.Email
			userChanged = true
		}
		if req.FirstName != nil {
			student.User.FirstName = *req.FirstName
			userChanged = true
		}
		if req.LastName != nil {
			student.User.LastName = req.LastName
			userChanged = true
		}
		if userChanged {
			if err := txRepo.User().Update(ctx, nil, &student.User); err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		if req.Phone != nil {
			student.Phone = *req.Phone
		}
		if req.RollNumber != nil {
			student.RollNumber = *req.RollNumber
		}
		if req.StudentClass != nil {
			student.StudentClass = *req.StudentClass
		}
		if req.DateOfBirth != nil {
			d, err := parseDate(*req.DateOfBirth)
			if err != nil {
				return err
			}
			if err := checkStudentAge(d); err != nil {
				return err
			}
			student.DateOfBirth = d
		}
		if req.AdmissionDate != nil {
			d, err := parseDate(*req.AdmissionDate)
			if err != nil {
				return err
			}
			student.AdmissionDate = d
		}
		if req.Status != nil {
			student.Status = *req.Status
		}
		if req.AssignedTeacherID != nil {
			student.AssignedTeacherID = req.AssignedTeacherID
		}

		if err := txRepo.Student().Update(ctx, nil, student); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateRoll
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student updated", "student_id", id, "actor_id", actorID)
	return &StudentResponse{Student: student}, nil
}

// Delete removes the student profile and its user account together.
// Submissions cascade away with the profile.
func (s *studentService) Delete(ctx context.Context, id uint, actorID uint) error {
	if err := s.requireAdmin(ctx, actorID, id, "delete"); err != nil {
		return err
	}

	student, err := s.repo.Student().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to get student: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Student().Delete(ctx, nil, student.ID); err != nil {
			return fmt.Errorf("failed to delete student profile: %w", err)
		}
		if err := txRepo.User().Delete(ctx, nil, student.UserID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publishProfileEvent(ctx, events.EventStudentDeleted, student.ID, student.UserID)

	s.logger.Info("Student deleted", "student_id", id, "actor_id", actorID)
	return nil
}

// ===== HELPERS =====

func (s *studentService) requireAdmin(ctx context.Context, actorID, resourceID uint, action string) error {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return NewPermissionError(actorID, resourceID, "student", action, "admin role required")
	}
	return nil
}

func (s *studentService) checkUnique(ctx context.Context, username, email string, excludeID uint) error {
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

// checkTeacherAssignment requires the assigned teacher to exist and to run
// the class the student is in.
func (s *studentService) checkTeacherAssignment(ctx context.Context, teacherID *uint, studentClass string) error {
	if teacherID == nil {
		return nil
	}
	teacher, err := s.repo.Teacher().GetByID(ctx, nil, *teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrTeacherNotFound
		}
		return fmt.Errorf("failed to get assigned teacher: %w", err)
	}
	if teacher.AssignedClass != studentClass {
		return validator.ValidationErrors{{
			Field:   "assigned_teacher_id",
			Message: fmt.Sprintf("teacher runs class %s, not %s", teacher.AssignedClass, studentClass),
			Value:   *teacherID,
			Rule:    "business_logic",
		}}
	}
	return nil
}

func (s *studentService) checkViewPermission(ctx context.Context, actorID uint, student *models.Student) error {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get actor: %w", err)
	}

	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if student.UserID == actorID {
			return nil
		}
		return NewPermissionError(actorID, student.ID, "student", "view", "not own profile")
	case models.RoleTeacher:
		teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actorID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTeacherNotFound
			}
			return fmt.Errorf("failed to get teacher profile: %w", err)
		}
		if student.AssignedTeacherID != nil && *student.AssignedTeacherID == teacher.ID {
			return nil
		}
		return NewPermissionError(actorID, student.ID, "student", "view", "student belongs to another teacher")
	default:
		return NewPermissionError(actorID, student.ID, "student", "view", "unknown role")
	}
}

func (s *studentService) publishProfileEvent(ctx context.Context, eventType string, profileID, userID uint) {
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

// minStudentAgeYears is the youngest a student may be at enrollment.
const minStudentAgeYears = 8

func checkStudentAge(dob datatypes.Date) error {
	if time.Time(dob).After(time.Now().AddDate(-minStudentAgeYears, 0, 0)) {
		return validator.ValidationErrors{{
			Field:   "date_of_birth",
			Message: fmt.Sprintf("student must be at least %d years old", minStudentAgeYears),
			Value:   time.Time(dob).Format("2006-01-02"),
			Rule:    "min_age",
		}}
	}
	return nil
}
