package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/validator"
)

// seedExamWithQuestions adds a school exam for standard 10 with three
// questions whose correct options are 1, 2, 3.
func seedExamWithQuestions(fx *schoolFixture, start time.Time, duration int) (*models.Exam, []*models.Question) {
	exam := fx.repo.addExam(&models.Exam{
		Title:           "Scored Exam",
		Scope:           models.ScopeSchool,
		TargetStandard:  strPtr("10"),
		StartTime:       start,
		DurationMinutes: duration,
		CreatedByID:     fx.admin.ID,
	})
	var questions []*models.Question
	for _, correct := range []int{1, 2, 3} {
		questions = append(questions, fx.repo.addQuestion(&models.Question{
			ExamID:        exam.ID,
			Text:          "Q",
			Option1:       "a",
			Option2:       "b",
			Option3:       "c",
			Option4:       "d",
			CorrectOption: correct,
		}))
	}
	return exam, questions
}

func newSubmissionServiceForTest(fx *schoolFixture, publisher events.EventPublisher, now func() time.Time) *submissionService {
	svc := &submissionService{
		repo:           fx.repo,
		logger:         testLogger(),
		validator:      validator.New(),
		eventPublisher: publisher,
		now:            now,
	}
	return svc
}

func TestSubmissionService_Submit_ScoresAndPublishes(t *testing.T) {
	fx := seedSchool()
	publisher := events.NewMockEventPublisher(testLogger())
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, publisher, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 60)

	req := &CreateSubmissionRequest{
		ExamID: exam.ID,
		Answers: []SubmitAnswerRequest{
			{QuestionID: questions[0].ID, SelectedOption: 1}, // correct
			{QuestionID: questions[1].ID, SelectedOption: 4}, // wrong
			{QuestionID: questions[2].ID, SelectedOption: 3}, // correct
		},
	}

	resp, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if resp.Score != 2 {
		t.Errorf("score = %d, want 2", resp.Score)
	}
	if resp.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", resp.TotalQuestions)
	}
	if !resp.SubmittedAt.Equal(now) {
		t.Errorf("submitted_at = %v, want %v", resp.SubmittedAt, now)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}
	if published[0].Type != events.EventSubmissionScored {
		t.Errorf("event type = %s", published[0].Type)
	}
}

func TestSubmissionService_Submit_NoAnswersScoresZero(t *testing.T) {
	fx := seedSchool()
	publisher := events.NewMockEventPublisher(testLogger())
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, publisher, func() time.Time { return now })

	exam, _ := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 60)

	// Walking out without answering anything still counts as the one
	// allowed attempt.
	resp, err := svc.Submit(context.Background(), &CreateSubmissionRequest{ExamID: exam.ID}, fx.studentAU.ID)
	if err != nil {
		t.Fatalf("blank submit: %v", err)
	}
	if resp.Score != 0 {
		t.Errorf("score = %d, want 0", resp.Score)
	}
	if resp.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", resp.TotalQuestions)
	}

	exists, _ := fx.repo.Submission().Exists(context.Background(), nil, exam.ID, fx.studentA.ID)
	if !exists {
		t.Error("blank submission must persist")
	}
	if len(publisher.GetPublishedEvents()) != 1 {
		t.Error("blank submission must still publish a scored event")
	}
}

func TestSubmissionService_Submit_Duplicate(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 60)

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	if _, err := svc.Submit(context.Background(), req, fx.studentAU.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestSubmissionService_Submit_DuplicateReportedAfterWindowCloses(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	clock := now
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return clock })

	exam, questions := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 30)

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	if _, err := svc.Submit(context.Background(), req, fx.studentAU.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// A repeat attempt after the window closes must report the earlier
	// submission, not the closed window.
	clock = now.Add(2 * time.Hour)
	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}
}

func TestSubmissionService_Submit_WindowClosed(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	// 30 minute exam that started an hour ago.
	exam, questions := seedExamWithQuestions(fx, now.Add(-time.Hour), 30)

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	if !errors.Is(err, ErrExamClosed) {
		t.Fatalf("expected ErrExamClosed, got %v", err)
	}
}

func TestSubmissionService_Submit_BeforeStartAllowed(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	// Window has an upper bound only: early submissions are accepted.
	exam, questions := seedExamWithQuestions(fx, now.Add(time.Hour), 30)

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	if _, err := svc.Submit(context.Background(), req, fx.studentAU.ID); err != nil {
		t.Fatalf("early submit should be accepted: %v", err)
	}
}

func TestSubmissionService_Submit_NotEligible(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now, 60)

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	// studentC is in standard 9, outside the exam's target standard 10.
	_, err := svc.Submit(context.Background(), req, fx.studentC.UserID)
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestSubmissionService_Submit_NonStudentRejected(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now, 60)
	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	if _, err := svc.Submit(context.Background(), req, fx.teacherU.ID); !errors.Is(err, ErrUnauthorizedRole) {
		t.Fatalf("expected ErrUnauthorizedRole, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), req, fx.admin.ID); !errors.Is(err, ErrUnauthorizedRole) {
		t.Fatalf("expected ErrUnauthorizedRole, got %v", err)
	}

	// The role check runs before the exam lookup, so a non-student cannot
	// learn whether an exam exists.
	missing := &CreateSubmissionRequest{
		ExamID:  99999,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}
	if _, err := svc.Submit(context.Background(), missing, fx.teacherU.ID); !errors.Is(err, ErrUnauthorizedRole) {
		t.Fatalf("expected ErrUnauthorizedRole for missing exam, got %v", err)
	}
}

func TestSubmissionService_Submit_UniqueIndexSettlesRace(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 60)

	// Blind the pre-check so both attempts reach the insert, as two
	// concurrent requests would before either commits.
	fx.repo.submissionExistsBlind = true

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	if _, err := svc.Submit(context.Background(), req, fx.studentAU.ID); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission from the unique index, got %v", err)
	}
}

func TestSubmissionService_Submit_ConcurrentAttemptsOneWins(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now.Add(-5*time.Minute), 60)
	fx.repo.submissionExistsBlind = true

	req := &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, duplicates int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateSubmission):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || duplicates != 1 {
		t.Fatalf("got %d successes and %d duplicates, want exactly one of each", successes, duplicates)
	}
}

func TestSubmissionService_Submit_ForeignQuestionRejected(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now, 60)
	otherExam := fx.repo.addExam(&models.Exam{
		Title:           "Other",
		Scope:           models.ScopeSchool,
		TargetStandard:  strPtr("10"),
		StartTime:       now,
		DurationMinutes: 60,
		CreatedByID:     fx.admin.ID,
	})
	foreign := fx.repo.addQuestion(&models.Question{
		ExamID: otherExam.ID, Text: "Q", Option1: "a", Option2: "b", Option3: "c", Option4: "d", CorrectOption: 1,
	})

	req := &CreateSubmissionRequest{
		ExamID: exam.ID,
		Answers: []SubmitAnswerRequest{
			{QuestionID: questions[0].ID, SelectedOption: 1},
			{QuestionID: foreign.ID, SelectedOption: 1},
		},
	}

	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}

	// Nothing was persisted.
	exists, _ := fx.repo.Submission().Exists(context.Background(), nil, exam.ID, fx.studentA.ID)
	if exists {
		t.Error("rejected submission must not persist")
	}
}

func TestSubmissionService_Submit_DuplicateAnswerRejected(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })

	exam, questions := seedExamWithQuestions(fx, now, 60)

	req := &CreateSubmissionRequest{
		ExamID: exam.ID,
		Answers: []SubmitAnswerRequest{
			{QuestionID: questions[0].ID, SelectedOption: 1},
			{QuestionID: questions[0].ID, SelectedOption: 2},
		},
	}

	_, err := svc.Submit(context.Background(), req, fx.studentAU.ID)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
}

func TestSubmissionService_GetByID_Permissions(t *testing.T) {
	fx := seedSchool()
	now := time.Now()
	svc := newSubmissionServiceForTest(fx, nil, func() time.Time { return now })
	ctx := context.Background()

	exam, questions := seedExamWithQuestions(fx, now, 60)
	resp, err := svc.Submit(ctx, &CreateSubmissionRequest{
		ExamID:  exam.ID,
		Answers: []SubmitAnswerRequest{{QuestionID: questions[0].ID, SelectedOption: 1}},
	}, fx.studentAU.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Owner, assigned teacher and admin may read it.
	if _, err := svc.GetByID(ctx, resp.ID, fx.studentAU.ID); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := svc.GetByID(ctx, resp.ID, fx.teacherU.ID); err != nil {
		t.Errorf("teacher read: %v", err)
	}
	if _, err := svc.GetByID(ctx, resp.ID, fx.admin.ID); err != nil {
		t.Errorf("admin read: %v", err)
	}

	// Another student may not.
	if _, err := svc.GetByID(ctx, resp.ID, fx.studentB.UserID); !IsPermissionError(err) {
		t.Errorf("expected permission error, got %v", err)
	}
}
