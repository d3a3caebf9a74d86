package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scholaris/school-service/internal/services"
	"github.com/scholaris/school-service/internal/utils"
)

type SubmissionHandler struct {
	BaseHandler
	submissionService   services.SubmissionService
	resultService       services.ResultService
	importExportService services.ImportExportService
}

func NewSubmissionHandler(
	submissionService services.SubmissionService,
	resultService services.ResultService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:         NewBaseHandler(logger),
		submissionService:   submissionService,
		resultService:       resultService,
		importExportService: importExportService,
	}
}

// SubmitExam records a student's one-shot exam submission
// @Summary Submit exam
// @Description Scores and stores the student's answers. Each student gets exactly one submission per exam.
// @Tags submissions
// @Accept json
// @Produce json
// @Param submission body services.CreateSubmissionRequest true "Answers"
// @Success 201 {object} services.SubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /submissions [post]
func (h *SubmissionHandler) SubmitExam(c *gin.Context) {
	var req services.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting exam", "exam_id", req.ExamID)

	submission, err := h.submissionService.Submit(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// GetSubmission retrieves a submission with its answers
// @Summary Get submission
// @Tags submissions
// @Produce json
// @Param id path uint true "Submission ID"
// @Success 200 {object} models.Submission
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// GetMyResults returns the calling student's results
// @Summary Get own results
// @Description One row per scored submission of the calling student
// @Tags results
// @Produce json
// @Success 200 {array} services.SubmissionResult
// @Failure 403 {object} ErrorResponse
// @Router /results/me [get]
func (h *SubmissionHandler) GetMyResults(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	results, err := h.resultService.ByStudent(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetClassResults returns results for the calling teacher's students
// @Summary Get class results
// @Description One row per scored submission of every student assigned to the calling teacher
// @Tags results
// @Produce json
// @Success 200 {array} services.SubmissionResult
// @Failure 403 {object} ErrorResponse
// @Router /results/class [get]
func (h *SubmissionHandler) GetClassResults(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	results, err := h.resultService.ByTeacher(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportClassResults downloads the calling teacher's class results as CSV
// @Summary Export class results to CSV
// @Tags results
// @Produce text/csv
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /results/class/export [get]
func (h *SubmissionHandler) ExportClassResults(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportResultsCSV(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
