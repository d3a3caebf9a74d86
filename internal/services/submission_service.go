package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

// submissionService runs the single-attempt submission pipeline. Checks run
// in a fixed order so callers get stable error precedence: role and student
// profile, exam existence, duplicate, eligibility, time window, then answer
// shape. The unique (exam_id, student_id) index remains the final arbiter
// for races that pass the duplicate pre-check.
type submissionService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	eventPublisher events.EventPublisher
	now            func() time.Time
}

func NewSubmissionService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, eventPublisher events.EventPublisher) SubmissionService {
	return &submissionService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, req *CreateSubmissionRequest, actorID uint) (*SubmissionResponse, error) {
	s.logger.Info("Submitting exam",
		"exam_id", req.ExamID,
		"actor_id", actorID,
		"answers_count", len(req.Answers))

	if verrs := s.validator.ValidateSubmissionCreate(req); verrs.HasErrors() {
		return nil, verrs
	}

	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor.Role != models.RoleStudent {
		return nil, ErrUnauthorizedRole
	}

	student, err := s.repo.Student().GetByUserID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student profile: %w", err)
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	// Duplicate outranks every later check: a repeat attempt reports the
	// earlier submission even after the window has closed.
	exists, err := s.repo.Submission().Exists(ctx, nil, exam.ID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if exists {
		return nil, ErrDuplicateSubmission
	}

	eligible, err := s.repo.Exam().IsEligible(ctx, nil, exam, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check eligibility: %w", err)
	}
	if !eligible {
		return nil, ErrNotEligible
	}

	submittedAt := s.now()
	if exam.ClosedAt(submittedAt) {
		return nil, ErrExamClosed
	}

	questions, err := s.repo.Question().GetByExam(ctx, nil, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	correctByQuestion := make(map[uint]int, len(questions))
	for _, q := range questions {
		correctByQuestion[q.ID] = q.CorrectOption
	}

	// Every answer must point at a question of this exam.
	score := 0
	for _, answer := range req.Answers {
		correct, ok := correctByQuestion[answer.QuestionID]
		if !ok {
			return nil, validator.ValidationErrors{{
				Field:   "answers",
				Message: fmt.Sprintf("question %d does not belong to exam %d", answer.QuestionID, exam.ID),
				Value:   answer.QuestionID,
				Rule:    "business_logic",
			}}
		}
		if answer.SelectedOption == correct {
			score++
		}
	}

	submission := &models.Submission{
		ExamID:      exam.ID,
		StudentID:   student.ID,
		SubmittedAt: submittedAt,
		Score:       score,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Submission().Create(ctx, nil, submission); err != nil {
			return err
		}

		answers := make([]*models.Answer, len(req.Answers))
		for i, a := range req.Answers {
			answers[i] = &models.Answer{
				SubmissionID:   submission.ID,
				QuestionID:     a.QuestionID,
				SelectedOption: a.SelectedOption,
			}
		}
		if err := txRepo.Submission().CreateAnswers(ctx, nil, answers); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.publishScoredEvent(ctx, submission, exam, len(questions))

	s.logger.Info("Exam submitted",
		"submission_id", submission.ID,
		"exam_id", exam.ID,
		"student_id", student.ID,
		"score", score,
		"total_questions", len(questions))

	return &SubmissionResponse{
		Submission:     submission,
		TotalQuestions: len(questions),
	}, nil
}

func (s *submissionService) GetByID(ctx context.Context, id uint, actorID uint) (*models.Submission, error) {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}

	submission, err := s.repo.Submission().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if err := s.checkViewPermission(ctx, actor, submission); err != nil {
		return nil, err
	}

	return submission, nil
}

// checkViewPermission lets the owning student, the student's current teacher
// and admins read a submission.
func (s *submissionService) checkViewPermission(ctx context.Context, actor *models.User, submission *models.Submission) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.repo.Student().GetByUserID(ctx, nil, actor.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrStudentNotFound
			}
			return fmt.Errorf("failed to get student profile: %w", err)
		}
		if submission.StudentID != student.ID {
			return NewPermissionError(actor.ID, submission.ID, "submission", "view", "not owned by student")
		}
		return nil
	case models.RoleTeacher:
		teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actor.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTeacherNotFound
			}
			return fmt.Errorf("failed to get teacher profile: %w", err)
		}
		if submission.Student.AssignedTeacherID == nil || *submission.Student.AssignedTeacherID != teacher.ID {
			return NewPermissionError(actor.ID, submission.ID, "submission", "view", "student belongs to another teacher")
		}
		return nil
	default:
		return NewPermissionError(actor.ID, submission.ID, "submission", "view", "unknown role")
	}
}

func (s *submissionService) publishScoredEvent(ctx context.Context, submission *models.Submission, exam *models.Exam, totalQuestions int) {
	if s.eventPublisher == nil {
		return
	}
	event := &events.Event{
		Type: events.EventSubmissionScored,
		Data: map[string]interface{}{
			"submission_id":   submission.ID,
			"exam_id":         exam.ID,
			"student_id":      submission.StudentID,
			"score":           submission.Score,
			"total_questions": totalQuestions,
		},
	}
	if err := s.eventPublisher.Publish(ctx, events.TopicSubmissions, event); err != nil {
		s.logger.Error("Failed to publish submission event",
			"submission_id", submission.ID,
			"error", err)
	}
}
