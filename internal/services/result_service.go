package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
)

// resultService aggregates scored submissions into flat result rows. Rows
// come back ordered by (exam_id, student_id) so repeated export runs are
// byte-stable.
type resultService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewResultService(repo repositories.Repository, logger *slog.Logger) ResultService {
	return &resultService{
		repo:   repo,
		logger: logger,
	}
}

// ByStudent returns the calling student's own results.
func (s *resultService) ByStudent(ctx context.Context, actorID uint) ([]*SubmissionResult, error) {
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

	submissions, err := s.repo.Submission().ListByStudent(ctx, nil, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return s.buildResults(ctx, submissions, student, actor)
}

// ByTeacher returns results for every student currently assigned to the
// calling teacher, across all exams those students submitted.
func (s *resultService) ByTeacher(ctx context.Context, actorID uint) ([]*SubmissionResult, error) {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	if actor.Role != models.RoleTeacher {
		return nil, ErrUnauthorizedRole
	}

	teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher profile: %w", err)
	}

	submissions, err := s.repo.Submission().ListByTeacher(ctx, nil, teacher.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return s.buildResults(ctx, submissions, nil, nil)
}

// buildResults flattens submissions into result rows. When ownStudent is set
// (student view) the student fields come from it instead of the preload.
func (s *resultService) buildResults(ctx context.Context, submissions []*models.Submission, ownStudent *models.Student, ownUser *models.User) ([]*SubmissionResult, error) {
	// Question counts per exam, resolved once per distinct exam.
	totals := make(map[uint]int)

	results := make([]*SubmissionResult, 0, len(submissions))
	for _, sub := range submissions {
		total, ok := totals[sub.ExamID]
		if !ok {
			questions, err := s.repo.Question().GetByExam(ctx, nil, sub.ExamID)
			if err != nil {
				return nil, fmt.Errorf("failed to count questions for exam %d: %w", sub.ExamID, err)
			}
			total = len(questions)
			totals[sub.ExamID] = total
		}

		row := &SubmissionResult{
			SubmissionID:   sub.ID,
			ExamID:         sub.ExamID,
			ExamTitle:      sub.Exam.Title,
			ExamCreatedBy:  sub.Exam.CreatedBy.Username,
			Score:          sub.Score,
			TotalQuestions: total,
			SubmittedAt:    sub.SubmittedAt.Truncate(time.Second),
		}

		for _, ans := range sub.Answers {
			row.Answers = append(row.Answers, &AnswerResult{
				QuestionID:     ans.QuestionID,
				QuestionText:   ans.Question.Text,
				Option1:        ans.Question.Option1,
				Option2:        ans.Question.Option2,
				Option3:        ans.Question.Option3,
				Option4:        ans.Question.Option4,
				SelectedOption: ans.SelectedOption,
				CorrectOption:  ans.Question.CorrectOption,
				IsCorrect:      ans.SelectedOption == ans.Question.CorrectOption,
			})
		}

		if ownStudent != nil {
			row.StudentID = ownStudent.ID
			row.StudentClass = ownStudent.StudentClass
			row.RollNumber = ownStudent.RollNumber
			if ownUser != nil {
				row.StudentName = ownUser.DisplayName()
			}
		} else {
			row.StudentID = sub.StudentID
			row.StudentClass = sub.Student.StudentClass
			row.RollNumber = sub.Student.RollNumber
			row.StudentName = sub.Student.User.DisplayName()
		}

		results = append(results, row)
	}

	return results, nil
}
