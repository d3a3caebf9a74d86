package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scholaris/school-service/internal/models"
	"github.com/scholaris/school-service/internal/repositories"
	"github.com/scholaris/school-service/internal/services"
	"github.com/scholaris/school-service/internal/utils"
)

type TeacherHandler struct {
	BaseHandler
	teacherService services.TeacherService
}

func NewTeacherHandler(teacherService services.TeacherService, logger utils.Logger) *TeacherHandler {
	return &TeacherHandler{
		BaseHandler:    NewBaseHandler(logger),
		teacherService: teacherService,
	}
}

// CreateTeacher creates a teacher account with its profile
// @Summary Create teacher
// @Description Creates a user account with the teacher role and its profile
// @Tags teachers
// @Accept json
// @Produce json
// @Param teacher body services.CreateTeacherRequest true "Teacher data"
// @Success 201 {object} services.TeacherResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /teachers [post]
func (h *TeacherHandler) CreateTeacher(c *gin.Context) {
	var req services.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	teacher, err := h.teacherService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, teacher)
}

// GetTeacher retrieves a teacher by ID
// @Summary Get teacher
// @Tags teachers
// @Produce json
// @Param id path uint true "Teacher ID"
// @Success 200 {object} services.TeacherResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teachers/{id} [get]
func (h *TeacherHandler) GetTeacher(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	teacher, err := h.teacherService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, teacher)
}

// ListTeachers lists teachers with filters
// @Summary List teachers
// @Tags teachers
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param status query string false "Profile status"
// @Param assigned_class query string false "Assigned class"
// @Success 200 {object} services.TeacherListResponse
// @Failure 403 {object} ErrorResponse
// @Router /teachers [get]
func (h *TeacherHandler) ListTeachers(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	teachers, err := h.teacherService.List(c.Request.Context(), h.parseTeacherFilters(c), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, teachers)
}

// UpdateTeacher updates a teacher profile
// @Summary Update teacher
// @Tags teachers
// @Accept json
// @Produce json
// @Param id path uint true "Teacher ID"
// @Param teacher body services.UpdateTeacherRequest true "Teacher update data"
// @Success 200 {object} services.TeacherResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teachers/{id} [put]
func (h *TeacherHandler) UpdateTeacher(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	teacher, err := h.teacherService.Update(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, teacher)
}

// DeleteTeacher removes a teacher profile and its user account
// @Summary Delete teacher
// @Tags teachers
// @Produce json
// @Param id path uint true "Teacher ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) DeleteTeacher(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting teacher", "teacher_id", id)

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.teacherService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *TeacherHandler) parseTeacherFilters(c *gin.Context) repositories.TeacherFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.TeacherFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if status := c.Query("status"); status != "" {
		profileStatus := models.ProfileStatus(status)
		filters.Status = &profileStatus
	}

	if class := c.Query("assigned_class"); class != "" {
		filters.AssignedClass = &class
	}

	return filters
}
