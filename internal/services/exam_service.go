package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scholaris/school-service/internal/events"
	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/validator"
)

type examService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.BusinessValidator
	eventPublisher events.EventPublisher
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.BusinessValidator, eventPublisher events.EventPublisher) ExamService {
	return &examService{
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: eventPublisher,
	}
}

// ===== EXAM CRUD =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, actorID uint) (*ExamResponse, error) {
	s.logger.Info("Creating exam", "title", req.Title, "actor_id", actorID)

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	// Scope and teacher assignment are derived from the actor's role, never
	// taken from the request: admins author school-wide exams, teachers
	// author class exams assigned to themselves.
	var ownProfile *models.Teacher
	switch actor.Role {
	case models.RoleAdmin:
		req.Scope = models.ScopeSchool
		req.AssignedTeacherID = nil
	case models.RoleTeacher:
		ownProfile, err = s.getOwnTeacherProfile(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		req.Scope = models.ScopeClass
		req.AssignedTeacherID = &ownProfile.ID
		req.TargetStandard = nil
	default:
		return nil, ErrUnauthorizedRole
	}

	if verrs := s.validator.ValidateExamCreate(req); verrs.HasErrors() {
		return nil, verrs
	}

	if ownProfile != nil && *req.TargetClass != ownProfile.AssignedClass {
		return nil, validator.ValidationErrors{{
			Field:   "target_class",
			Message: fmt.Sprintf("must be your own class %s", ownProfile.AssignedClass),
			Value:   *req.TargetClass,
			Rule:    "class_mismatch",
		}}
	}

	exam := &models.Exam{
		Title:             req.Title,
		Scope:             req.Scope,
		TargetStandard:    req.TargetStandard,
		TargetClass:       req.TargetClass,
		AssignedTeacherID: req.AssignedTeacherID,
		StartTime:         req.StartTime,
		DurationMinutes:   req.DurationMinutes,
		CreatedByID:       actor.ID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Exam().Create(ctx, nil, exam); err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}
		for i := range req.Questions {
			q := &models.Question{
				ExamID:        exam.ID,
				Text:          req.Questions[i].Text,
				Option1:       req.Questions[i].Option1,
				Option2:       req.Questions[i].Option2,
				Option3:       req.Questions[i].Option3,
				Option4:       req.Questions[i].Option4,
				CorrectOption: req.Questions[i].CorrectOption,
			}
			if err := txRepo.Question().Create(ctx, nil, q); err != nil {
				return fmt.Errorf("failed to create question %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishExamEvent(ctx, events.EventExamCreated, exam)

	s.logger.Info("Exam created",
		"exam_id", exam.ID,
		"scope", exam.Scope,
		"questions", len(req.Questions))

	return s.buildResponse(ctx, exam, actor)
}

func (s *examService) GetByID(ctx context.Context, id uint, actorID uint) (*ExamResponse, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if err := s.checkViewPermission(ctx, actor, exam); err != nil {
		return nil, err
	}

	return s.buildResponse(ctx, exam, actor)
}

// GetByIDWithQuestions returns the exam with its question list. Students get
// it only if eligible; correct options are blanked for them before the exam
// window closes.
func (s *examService) GetByIDWithQuestions(ctx context.Context, id uint, actorID uint) (*models.Exam, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if err := s.checkViewPermission(ctx, actor, exam); err != nil {
		return nil, err
	}

	if actor.Role == models.RoleStudent {
		for i := range exam.Questions {
			exam.Questions[i].CorrectOption = 0
		}
	}

	return exam, nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, actorID uint) (*ExamListResponse, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	// Teachers see only their own exams regardless of requested filters.
	if actor.Role == models.RoleTeacher {
		filters.CreatedByID = &actor.ID
	}

	exams, total, err := s.repo.Exam().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	responses := make([]*ExamResponse, 0, len(exams))
	for _, exam := range exams {
		resp, err := s.buildResponse(ctx, exam, actor)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	page, size := pageFromOffset(filters.Offset, filters.Limit)
	return &ExamListResponse{
		Exams: responses,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, actorID uint) (*ExamResponse, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	ownProfile, err := s.checkOwnership(ctx, actor, exam, "update")
	if err != nil {
		return nil, err
	}

	// Scope and teacher assignment are fixed at creation; a teacher's
	// standard field stays empty no matter what the request carries.
	req.Scope = nil
	req.AssignedTeacherID = nil
	if exam.Scope == models.ScopeClass {
		req.TargetStandard = nil
	}

	if verrs := s.validator.ValidateExamUpdate(req, exam); verrs.HasErrors() {
		return nil, verrs
	}

	if ownProfile != nil && req.TargetClass != nil && *req.TargetClass != ownProfile.AssignedClass {
		return nil, validator.ValidationErrors{{
			Field:   "target_class",
			Message: fmt.Sprintf("must be your own class %s", ownProfile.AssignedClass),
			Value:   *req.TargetClass,
			Rule:    "class_mismatch",
		}}
	}

	applyExamUpdate(exam, req)

	if err := s.repo.Exam().Update(ctx, nil, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.publishExamEvent(ctx, events.EventExamUpdated, exam)

	s.logger.Info("Exam updated", "exam_id", exam.ID, "actor_id", actorID)

	return s.buildResponse(ctx, exam, actor)
}

func (s *examService) Delete(ctx context.Context, id uint, actorID uint) error {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to get exam: %w", err)
	}

	if _, err := s.checkOwnership(ctx, actor, exam, "delete"); err != nil {
		return err
	}

	if err := s.repo.Exam().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.publishExamEvent(ctx, events.EventExamDeleted, exam)

	s.logger.Info("Exam deleted", "exam_id", id, "actor_id", actorID)
	return nil
}

// ===== QUESTION OPERATIONS =====

func (s *examService) AddQuestion(ctx context.Context, examID uint, req *CreateQuestionRequest, actorID uint) (*models.Question, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	_, exam, err := s.getActorAndEditableExam(ctx, actorID, examID, "add_question")
	if err != nil {
		return nil, err
	}

	question := &models.Question{
		ExamID:        exam.ID,
		Text:          req.Text,
		Option1:       req.Option1,
		Option2:       req.Option2,
		Option3:       req.Option3,
		Option4:       req.Option4,
		CorrectOption: req.CorrectOption,
	}

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question added", "exam_id", examID, "question_id", question.ID)
	return question, nil
}

func (s *examService) UpdateQuestion(ctx context.Context, examID, questionID uint, req *UpdateQuestionRequest, actorID uint) (*models.Question, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	_, _, err := s.getActorAndEditableExam(ctx, actorID, examID, "update_question")
	if err != nil {
		return nil, err
	}

	question, err := s.getExamQuestion(ctx, examID, questionID)
	if err != nil {
		return nil, err
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Option1 != nil {
		question.Option1 = *req.Option1
	}
	if req.Option2 != nil {
		question.Option2 = *req.Option2
	}
	if req.Option3 != nil {
		question.Option3 = *req.Option3
	}
	if req.Option4 != nil {
		question.Option4 = *req.Option4
	}
	if req.CorrectOption != nil {
		question.CorrectOption = *req.CorrectOption
	}

	if err := s.repo.Question().Update(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return question, nil
}

func (s *examService) DeleteQuestion(ctx context.Context, examID, questionID uint, actorID uint) error {
	_, _, err := s.getActorAndEditableExam(ctx, actorID, examID, "delete_question")
	if err != nil {
		return err
	}

	if _, err := s.getExamQuestion(ctx, examID, questionID); err != nil {
		return err
	}

	if err := s.repo.Question().Delete(ctx, nil, questionID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	s.logger.Info("Question deleted", "exam_id", examID, "question_id", questionID)
	return nil
}

// ===== HELPERS =====

func (s *examService) getActor(ctx context.Context, actorID uint) (*models.User, error) {
	actor, err := s.repo.User().GetByID(ctx, nil, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	return actor, nil
}

func (s *examService) getOwnTeacherProfile(ctx context.Context, userID uint) (*models.Teacher, error) {
	teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher profile: %w", err)
	}
	return teacher, nil
}

// checkOwnership gates update and delete. Ownership is scope-pinned: an admin
// mutates only school-wide exams they created, a teacher only class exams
// assigned to them. Returns the teacher's own profile when the actor is a
// teacher, for callers that need the assigned class.
func (s *examService) checkOwnership(ctx context.Context, actor *models.User, exam *models.Exam, action string) (*models.Teacher, error) {
	switch actor.Role {
	case models.RoleAdmin:
		if exam.Scope == models.ScopeSchool && exam.CreatedByID == actor.ID {
			return nil, nil
		}
	case models.RoleTeacher:
		teacher, err := s.getOwnTeacherProfile(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if exam.Scope == models.ScopeClass && exam.AssignedTeacherID != nil && *exam.AssignedTeacherID == teacher.ID {
			return teacher, nil
		}
	}
	return nil, NewPermissionError(actor.ID, exam.ID, "exam", action, "exam is not yours to modify")
}

// checkViewPermission lets admins and the owning/assigned teacher view any
// exam; students only see exams they are eligible for.
func (s *examService) checkViewPermission(ctx context.Context, actor *models.User, exam *models.Exam) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTeacher:
		if exam.CreatedByID == actor.ID {
			return nil
		}
		teacher, err := s.repo.Teacher().GetByUserID(ctx, nil, actor.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrTeacherNotFound
			}
			return fmt.Errorf("failed to get teacher profile: %w", err)
		}
		if exam.AssignedTeacherID != nil && *exam.AssignedTeacherID == teacher.ID {
			return nil
		}
		return NewPermissionError(actor.ID, exam.ID, "exam", "view", "exam belongs to another teacher")
	case models.RoleStudent:
		student, err := s.repo.Student().GetByUserID(ctx, nil, actor.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrStudentNotFound
			}
			return fmt.Errorf("failed to get student profile: %w", err)
		}
		eligible, err := s.repo.Exam().IsEligible(ctx, nil, exam, student.ID)
		if err != nil {
			return fmt.Errorf("failed to check eligibility: %w", err)
		}
		if !eligible {
			return NewPermissionError(actor.ID, exam.ID, "exam", "view", "student is not eligible for this exam")
		}
		return nil
	default:
		return NewPermissionError(actor.ID, exam.ID, "exam", "view", "unknown role")
	}
}

func (s *examService) getActorAndEditableExam(ctx context.Context, actorID, examID uint, action string) (*models.User, *models.Exam, error) {
	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, nil, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if _, err := s.checkOwnership(ctx, actor, exam, action); err != nil {
		return nil, nil, err
	}

	return actor, exam, nil
}

func (s *examService) getExamQuestion(ctx context.Context, examID, questionID uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.ExamID != examID {
		return nil, ErrQuestionNotFound
	}
	return question, nil
}

func (s *examService) buildResponse(ctx context.Context, exam *models.Exam, actor *models.User) (*ExamResponse, error) {
	questions, err := s.repo.Question().GetByExam(ctx, nil, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count questions: %w", err)
	}

	_, ownErr := s.checkOwnership(ctx, actor, exam, "update")
	canEdit := ownErr == nil
	return &ExamResponse{
		Exam:          exam,
		QuestionCount: len(questions),
		CanEdit:       canEdit,
		CanDelete:     canEdit,
	}, nil
}

func (s *examService) publishExamEvent(ctx context.Context, eventType string, exam *models.Exam) {
	if s.eventPublisher == nil {
		return
	}
	event := &events.Event{
		Type: eventType,
		Data: map[string]interface{}{
			"exam_id": exam.ID,
			"title":   exam.Title,
			"scope":   exam.Scope,
		},
	}
	if err := s.eventPublisher.Publish(ctx, events.TopicExams, event); err != nil {
		s.logger.Error("Failed to publish exam event", "event_type", eventType, "exam_id", exam.ID, "error", err)
	}
}

// applyExamUpdate merges the updatable fields. Scope and teacher assignment
// are never merged here; they are pinned by checkOwnership.
func applyExamUpdate(exam *models.Exam, req *UpdateExamRequest) {
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.TargetStandard != nil {
		exam.TargetStandard = req.TargetStandard
	}
	if req.TargetClass != nil {
		exam.TargetClass = req.TargetClass
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
}

func pageFromOffset(offset, limit int) (page, size int) {
	size = limit
	if size <= 0 {
		size = 20
	}
	page = offset/size + 1
	return page, size
}
