package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prepmint/examengine/internal/dto"
	"github.com/prepmint/examengine/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminController struct {
	adminService   service.AdminService
	scoringService service.ScoringService
}

func NewAdminController(adminService service.AdminService, scoringService service.ScoringService) *AdminController {
	return &AdminController{adminService: adminService, scoringService: scoringService}
}

// CreateQuestion godoc
// @Summary (Admin) Publish a question
// @Description Publish a question with its marking scheme. Questions are immutable once referenced by a snapshot; corrections go through re-scoring.
// @Tags Admin - Content
// @Accept json
// @Produce json
// @Param question body dto.CreateQuestionRequest true "Question definition"
// @Success 201 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid question definition"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/questions [post]
func (c *AdminController) CreateQuestion(ctx *gin.Context) {
	var req dto.CreateQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.adminService.CreateQuestion(req)
	if err != nil {
		log.Error().Err(err).Msg("Admin CreateQuestion: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to create question", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// CreateTemplate godoc
// @Summary (Admin) Create a test template
// @Description Create an authorable test template with ordered sections. Students never run templates directly; publish one to get an attemptable snapshot.
// @Tags Admin - Content
// @Accept json
// @Produce json
// @Param template body dto.CreateTemplateRequest true "Template definition"
// @Success 201 {object} dto.TemplateResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid template definition"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/templates [post]
func (c *AdminController) CreateTemplate(ctx *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.adminService.CreateTemplate(req)
	if err != nil {
		log.Error().Err(err).Msg("Admin CreateTemplate: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to create template", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// PublishTemplate godoc
// @Summary (Admin) Publish a template as an immutable snapshot
// @Description Freeze the template's current configuration into an interface snapshot and bump the template version.
// @Tags Admin - Content
// @Produce json
// @Param template_id path int true "Template ID"
// @Success 201 {object} dto.SnapshotResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid Template ID format"
// @Failure 404 {object} dto.ErrorResponse "Template not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/templates/{template_id}/publish [post]
func (c *AdminController) PublishTemplate(ctx *gin.Context) {
	templateID, err := strconv.ParseUint(ctx.Param("template_id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid Template ID format"})
		return
	}

	resp, err := c.adminService.PublishTemplate(uint(templateID))
	if err != nil {
		log.Error().Err(err).Uint64("templateID", templateID).Msg("Admin PublishTemplate: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to publish template", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// Rescore godoc
// @Summary (Admin) Re-score a submitted attempt
// @Description Recompute the attempt's breakdown against the current question bank, e.g. after an answer key correction. Appends a new revision; history is retained.
// @Tags Admin - Scoring
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.ScoreBreakdownResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt not yet submitted"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/attempts/{attempt_id}/rescore [post]
func (c *AdminController) Rescore(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	breakdown, err := c.scoringService.Rescore(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Admin Rescore: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to re-score attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, breakdownResponse(breakdown))
}

// ListBreakdowns godoc
// @Summary (Admin) List all breakdown revisions of an attempt
// @Description Return every score breakdown ever computed for the attempt, oldest revision first.
// @Tags Admin - Scoring
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {array} dto.ScoreBreakdownResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/attempts/{attempt_id}/breakdowns [get]
func (c *AdminController) ListBreakdowns(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	revisions, err := c.scoringService.Revisions(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Admin ListBreakdowns: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to list breakdowns", Details: []string{err.Error()}})
		return
	}

	resp := make([]dto.ScoreBreakdownResponse, 0, len(revisions))
	for i := range revisions {
		resp = append(resp, *breakdownResponse(&revisions[i]))
	}
	ctx.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidDefinition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
