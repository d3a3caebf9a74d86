package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/services"
	"github.com/scholaris/school-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	examService        services.ExamService
	eligibilityService services.EligibilityService
}

func NewExamHandler(
	examService services.ExamService,
	eligibilityService services.EligibilityService,
	logger utils.Logger,
) *ExamHandler {
	return &ExamHandler{
		BaseHandler:        NewBaseHandler(logger),
		examService:        examService,
		eligibilityService: eligibilityService,
	}
}

// CreateExam creates a new exam, optionally with its questions
// @Summary Create exam
// @Description Creates an exam. School-scope exams target a standard, class-scope exams target one class and teacher.
// @Tags exams
// @Accept json
// @Produce json
// @Param exam body services.CreateExamRequest true "Exam data"
// @Success 201 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// GetExam retrieves an exam by ID
// @Summary Get exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} services.ExamResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [get]
func (h *ExamHandler) GetExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// GetExamWithQuestions retrieves an exam including its questions
// @Summary Get exam with questions
// @Description Returns the exam and its questions. Correct options are stripped for students.
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions [get]
func (h *ExamHandler) GetExamWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetByIDWithQuestions(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// ListExams lists exams with filters
// @Summary List exams
// @Description Teachers see only exams they created or are assigned to
// @Tags exams
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param scope query string false "Exam scope (school or class)"
// @Param assigned_teacher_id query uint false "Assigned teacher ID"
// @Success 200 {object} services.ExamListResponse
// @Failure 403 {object} ErrorResponse
// @Router /exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	exams, err := h.examService.List(c.Request.Context(), h.parseExamFilters(c), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exams)
}

// UpdateExam updates an existing exam
// @Summary Update exam
// @Description Updates an exam. Scope consistency is re-checked against the merged state.
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param exam body services.UpdateExamRequest true "Exam update data"
// @Success 200 {object} services.ExamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [put]
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// DeleteExam deletes an exam
// @Summary Delete exam
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id} [delete]
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting exam", "exam_id", id)

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetEligibleStudents resolves the students permitted to attempt an exam
// @Summary Get eligible students
// @Description Returns every active student matched by the exam's scope rules
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Success 200 {array} services.StudentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/eligible-students [get]
func (h *ExamHandler) GetEligibleStudents(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	students, err := h.eligibilityService.EligibleStudents(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// AddQuestion adds a question to an exam
// @Summary Add question
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions [post]
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	question, err := h.examService.AddQuestion(c.Request.Context(), examID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// UpdateQuestion updates a question on an exam
// @Summary Update question
// @Tags exams
// @Accept json
// @Produce json
// @Param id path uint true "Exam ID"
// @Param question_id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Question update data"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions/{question_id} [put]
func (h *ExamHandler) UpdateQuestion(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	question, err := h.examService.UpdateQuestion(c.Request.Context(), examID, questionID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question from an exam
// @Summary Delete question
// @Tags exams
// @Produce json
// @Param id path uint true "Exam ID"
// @Param question_id path uint true "Question ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /exams/{id}/questions/{question_id} [delete]
func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.examService.DeleteQuestion(c.Request.Context(), examID, questionID, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ExamHandler) parseExamFilters(c *gin.Context) repositories.ExamFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.ExamFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if scope := c.Query("scope"); scope != "" {
		examScope := models.ExamScope(scope)
		filters.Scope = &examScope
	}

	if teacherIDStr := c.Query("assigned_teacher_id"); teacherIDStr != "" {
		if teacherID, err := strconv.ParseUint(teacherIDStr, 10, 32); err == nil {
			id := uint(teacherID)
			filters.AssignedTeacherID = &id
		}
	}

	return filters
}
