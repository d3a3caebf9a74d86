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

type StudentHandler struct {
	BaseHandler
	studentService      services.StudentService
	importExportService services.ImportExportService
}

func NewStudentHandler(
	studentService services.StudentService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *StudentHandler {
	return &StudentHandler{
		BaseHandler:         NewBaseHandler(logger),
		studentService:      studentService,
		importExportService: importExportService,
	}
}

// CreateStudent creates a student account with its profile
// @Summary Create student
// @Description Creates a user account with the student role and its profile
// @Tags students
// @Accept json
// @Produce json
// @Param student body services.CreateStudentRequest true "Student data"
// @Success 201 {object} services.StudentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /students [post]
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req services.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

// GetStudent retrieves a student by ID
// @Summary Get student
// @Tags students
// @Produce json
// @Param id path uint true "Student ID"
// @Success 200 {object} services.StudentResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [get]
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// ListStudents lists students, scoped by the caller's role
// @Summary List students
// @Description Admins see all students; teachers see only their assigned students
// @Tags students
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param status query string false "Profile status"
// @Param student_class query string false "Class name"
// @Param assigned_teacher_id query uint false "Assigned teacher ID"
// @Success 200 {object} services.StudentListResponse
// @Failure 403 {object} ErrorResponse
// @Router /students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	students, err := h.studentService.List(c.Request.Context(), h.parseStudentFilters(c), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, students)
}

// UpdateStudent updates a student profile
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Param id path uint true "Student ID"
// @Param student body services.UpdateStudentRequest true "Student update data"
// @Success 200 {object} services.StudentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [put]
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, student)
}

// DeleteStudent removes a student profile and its user account
// @Summary Delete student
// @Tags students
// @Produce json
// @Param id path uint true "Student ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /students/{id} [delete]
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting student", "student_id", id)

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportStudents bulk-creates students from an XLSX roster
// @Summary Import students from XLSX
// @Description Uploads an XLSX roster and creates one student per row
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "XLSX roster file"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /students/import [post]
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Roster file is required", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Cannot read roster file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing student roster", "filename", fileHeader.Filename, "size", fileHeader.Size)

	result, err := h.importExportService.ImportStudentsXLSX(c.Request.Context(), file, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportStudents downloads the student roster as XLSX
// @Summary Export students to XLSX
// @Tags students
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param status query string false "Profile status"
// @Param student_class query string false "Class name"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /students/export [get]
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportStudentsXLSX(c.Request.Context(), h.parseStudentFilters(c), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="students.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *StudentHandler) parseStudentFilters(c *gin.Context) repositories.StudentFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.StudentFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if status := c.Query("status"); status != "" {
		profileStatus := models.ProfileStatus(status)
		filters.Status = &profileStatus
	}

	if class := c.Query("student_class"); class != "" {
		filters.StudentClass = &class
	}

	if teacherIDStr := c.Query("assigned_teacher_id"); teacherIDStr != "" {
		if teacherID, err := strconv.ParseUint(teacherIDStr, 10, 32); err == nil {
			id := uint(teacherID)
			filters.AssignedTeacherID = &id
		}
	}

	return filters
}
