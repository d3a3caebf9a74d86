package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

// eligibilityService resolves which students may attempt an exam.
//
// School-wide exams admit every active student whose class falls under the
// target standard (prefix match, so standard "1" admits "1A" but the standard
// component is validated to full digits elsewhere). Class exams admit only the
// active students of the assigned teacher whose class matches the target.
type eligibilityService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewEligibilityService(repo repositories.Repository, logger *slog.Logger) EligibilityService {
	return &eligibilityService{
		repo:   repo,
		logger: logger,
	}
}

func (s *eligibilityService) EligibleStudents(ctx context.Context, examID uint, actorID uint) ([]*StudentResponse, error) {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if err := s.checkListPermission(ctx, actor, exam); err != nil {
		return nil, err
	}

	students, err := s.repo.Exam().EligibleStudents(ctx, nil, exam)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve eligible students: %w", err)
	}

	s.logger.Debug("Resolved eligible students",
		"exam_id", examID,
		"scope", exam.Scope,
		"count", len(students))

	responses := make([]*StudentResponse, len(students))
	for i, student := range students {
		responses[i] = &StudentResponse{Student: student}
	}
	return responses, nil
}

// IsEligible decides eligibility for one student. It delegates to the same
// repository predicate submission admission and visibility filtering use, so
// there is exactly one place the scope rules live.
func (s *eligibilityService) IsEligible(ctx context.Context, exam *models.Exam, student *models.Student) (bool, error) {
	if exam == nil || student == nil {
		return false, nil
	}
	return s.repo.Exam().IsEligible(ctx, nil, exam, student.ID)
}

// checkListPermission restricts the eligible-student listing to admins and
// the teacher the exam belongs to.
func (s *eligibilityService) checkListPermission(ctx context.Context, actor *models.User, exam *models.Exam) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actor.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTeacherNotFound
			}
			return fmt.Errorf("failed to get teacher profile: %w", err)
		}
		if exam.CreatedByID == actor.ID {
			return nil
		}
		if exam.AssignedTeacherID != nil && *exam.AssignedTeacherID == teacher.ID {
			return nil
		}
		return NewPermissionError(actor.ID, exam.ID, "exam", "list_eligible", "exam belongs to another teacher")
	default:
		return NewPermissionError(actor.ID, exam.ID, "exam", "list_eligible", "students cannot list eligibility")
	}
}
