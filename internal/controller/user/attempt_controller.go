package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/prepmint/examengine/internal/dto"
	"github.com/prepmint/examengine/internal/model"
	"github.com/prepmint/examengine/internal/service"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attemptService   service.AttemptService
	scoringService   service.ScoringService
	analyticsService service.AnalyticsService
}

func NewAttemptController(
	attemptService service.AttemptService,
	scoringService service.ScoringService,
	analyticsService service.AnalyticsService,
) *AttemptController {
	return &AttemptController{
		attemptService:   attemptService,
		scoringService:   scoringService,
		analyticsService: analyticsService,
	}
}

// StartAttempt godoc
// @Summary Start an attempt on a published snapshot
// @Description Open a fresh attempt for the student. Rejected with 409 when the student already has an attempt on this snapshot and re-attempts are disabled.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param snapshot_id path string true "Snapshot ID"
// @Param request body dto.StartAttemptRequest true "Student starting the attempt"
// @Success 201 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Snapshot not found"
// @Failure 409 {object} dto.ErrorResponse "Already attempted"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /snapshots/{snapshot_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	snapshotID := ctx.Param("snapshot_id")

	var req dto.StartAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.Start(req.StudentID, snapshotID)
	if err != nil {
		log.Error().Err(err).Str("snapshotID", snapshotID).Msg("StartAttempt: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to start attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusCreated, attemptResponse(attempt))
}

// GetAttempt godoc
// @Summary Get an attempt with its answer records
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	attempt, err := c.attemptService.Get(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("GetAttempt: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to load attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, attemptResponse(attempt))
}

// RecordAnswer godoc
// @Summary Record, revise or clear an answer
// @Description Upsert the student's answer for one question. An empty selection clears the answer back to unattempted. Repeated calls accumulate visit count and time spent.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param question_id path string true "Question ID"
// @Param answer body dto.RecordAnswerRequest true "Answer event"
// @Success 200 {object} dto.AnswerRecordResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt closed or section locked"
// @Failure 422 {object} dto.ErrorResponse "Question not in this snapshot"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/answers/{question_id} [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")
	questionID := ctx.Param("question_id")

	var req dto.RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	record, err := c.attemptService.RecordAnswer(attemptID, questionID, req.Selected, req.MarkedForReview, req.TimeSpentSec)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Str("questionID", questionID).Msg("RecordAnswer: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to record answer", Details: []string{err.Error()}})
		return
	}

	var resp dto.AnswerRecordResponse
	copier.Copy(&resp, record)
	ctx.JSON(http.StatusOK, resp)
}

// Navigate godoc
// @Summary Move the attempt to another section
// @Description Change the current section. Under sectional-lock navigation only forward movement is allowed and every section left behind is locked permanently.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body dto.NavigateRequest true "Target section index"
// @Success 200 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt closed, paused or section locked"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/navigate [post]
func (c *AttemptController) Navigate(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	var req dto.NavigateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.Navigate(attemptID, *req.TargetSection)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Int("targetSection", *req.TargetSection).Msg("Navigate: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to navigate", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, attemptResponse(attempt))
}

// Pause godoc
// @Summary Pause a running attempt
// @Description Freeze the session clock. Only available when the snapshot allows pausing; remaining time is preserved, never extended.
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 403 {object} dto.ErrorResponse "Pausing not permitted on this snapshot"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt closed or not running"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/pause [post]
func (c *AttemptController) Pause(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	attempt, err := c.attemptService.Pause(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Pause: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to pause attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, attemptResponse(attempt))
}

// Resume godoc
// @Summary Resume a paused attempt
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 403 {object} dto.ErrorResponse "Pausing not permitted on this snapshot"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt closed or not paused"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/resume [post]
func (c *AttemptController) Resume(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	attempt, err := c.attemptService.Resume(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Resume: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to resume attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, attemptResponse(attempt))
}

// Submit godoc
// @Summary Submit an attempt
// @Description Close the attempt and score it. Submitting an already-closed attempt returns the existing result unchanged, so timeout sweeps and client retries are safe.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param request body dto.SubmitRequest true "Submit reason"
// @Success 200 {object} dto.AttemptResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request body"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	var req dto.SubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	attempt, err := c.attemptService.Submit(attemptID, req.Reason)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Str("reason", req.Reason).Msg("Submit: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to submit attempt", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, attemptResponse(attempt))
}

// TimeRemaining godoc
// @Summary Read the attempt's remaining time
// @Description Pure read of the session clock; nothing is mutated. Clients and the timeout sweeper poll this and submit when a value reaches zero.
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.TimeRemainingResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/time [get]
func (c *AttemptController) TimeRemaining(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	remaining, err := c.attemptService.TimeRemaining(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("TimeRemaining: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to read remaining time", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, dto.TimeRemainingResponse{
		State:        remaining.State,
		OverallSec:   remaining.OverallSec,
		SectionIndex: remaining.SectionIndex,
		SectionSec:   remaining.SectionSec,
	})
}

// Breakdown godoc
// @Summary Get the attempt's latest score breakdown
// @Tags Results
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.ScoreBreakdownResponse
// @Failure 404 {object} dto.ErrorResponse "Attempt or breakdown not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/breakdown [get]
func (c *AttemptController) Breakdown(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	breakdown, err := c.scoringService.LatestBreakdown(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Breakdown: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to load breakdown", Details: []string{err.Error()}})
		return
	}

	var resp dto.ScoreBreakdownResponse
	copier.Copy(&resp, breakdown)
	ctx.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary Get the attempt's performance report
// @Description Per-subject, per-topic and per-difficulty accuracy, time per question, review flags and derived strengths and weaknesses. Available once the attempt is scored.
// @Tags Results
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptReport
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt not yet scored"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /attempts/{attempt_id}/report [get]
func (c *AttemptController) Report(ctx *gin.Context) {
	attemptID := ctx.Param("attempt_id")

	report, err := c.analyticsService.AttemptReport(attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptID", attemptID).Msg("Report: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to build report", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, report)
}

// Cohort godoc
// @Summary Get cohort statistics for a snapshot
// @Description Mean, median, standard deviation and per-subject averages over all scored attempts, computed as of the request. Pass attempt_id to include that attempt's percentile within the same cohort snapshot.
// @Tags Results
// @Produce json
// @Param snapshot_id path string true "Snapshot ID"
// @Param attempt_id query string false "Attempt to rank within the cohort"
// @Success 200 {object} dto.CohortReport
// @Failure 404 {object} dto.ErrorResponse "Snapshot or attempt not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /snapshots/{snapshot_id}/cohort [get]
func (c *AttemptController) Cohort(ctx *gin.Context) {
	snapshotID := ctx.Param("snapshot_id")

	var attemptID *string
	if id := ctx.Query("attempt_id"); id != "" {
		attemptID = &id
	}

	report, err := c.analyticsService.CohortReport(snapshotID, attemptID)
	if err != nil {
		log.Error().Err(err).Str("snapshotID", snapshotID).Msg("Cohort: Service error")
		ctx.JSON(statusFor(err), dto.ErrorResponse{Message: "Failed to build cohort report", Details: []string{err.Error()}})
		return
	}
	ctx.JSON(http.StatusOK, report)
}

func attemptResponse(attempt *model.TestAttempt) *dto.AttemptResponse {
	var resp dto.AttemptResponse
	copier.Copy(&resp, attempt)
	return &resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyAttempted),
		errors.Is(err, service.ErrSectionLocked),
		errors.Is(err, service.ErrAttemptClosed),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotPermitted):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
