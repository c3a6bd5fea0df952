package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CacheRefresher is the slice of the cache layer the client surface exposes:
// a full drop-and-prefetch of the client's active program.
type CacheRefresher interface {
	RefreshOnLaunch(ctx context.Context, programID primitive.ObjectID) (*domain.Program, error)
}

// WorkoutHandler exposes the client-facing surface: daily/weekly assignment
// resolution, completion reporting, missed-workout detection, cache refresh
// and session video uploads.
type WorkoutHandler struct {
	scheduleService   service.ScheduleService
	completionService service.CompletionService
	planService       service.PlanService
	cache             CacheRefresher
}

// NewWorkoutHandler creates a new WorkoutHandler.
func NewWorkoutHandler(
	scheduleService service.ScheduleService,
	completionService service.CompletionService,
	planService service.PlanService,
	cache CacheRefresher,
) *WorkoutHandler {
	return &WorkoutHandler{
		scheduleService:   scheduleService,
		completionService: completionService,
		planService:       planService,
		cache:             cache,
	}
}

// --- Request/Response Structs ---

type CompleteWorkoutRequest struct {
	Title                    string `json:"title" binding:"required"`
	Date                     string `json:"date" binding:"required"` // YYYY-MM-DD
	Rating                   int    `json:"rating" binding:"required,min=1,max=5"`
	Notes                    string `json:"notes"`
	SkippedExerciseIndices   []int  `json:"skippedExerciseIndices"`
	CompletedExerciseIndices []int  `json:"completedExerciseIndices"`
	ActualDurationSeconds    int    `json:"actualDurationSeconds"`
	UploadID                 string `json:"uploadId"`
}

type RequestUploadURLRequest struct {
	OccurrenceID string `json:"occurrenceId" binding:"required"`
	ContentType  string `json:"contentType" binding:"required"`
}

type ConfirmUploadRequest struct {
	OccurrenceID string `json:"occurrenceId" binding:"required"`
	ObjectKey    string `json:"objectKey" binding:"required"`
	FileName     string `json:"fileName"`
	FileSize     int64  `json:"fileSize"`
	ContentType  string `json:"contentType"`
}

// TodayResponse distinguishes a rest day from an assigned workout.
type TodayResponse struct {
	RestDay    bool                      `json:"restDay"`
	Assignment *domain.WorkoutAssignment `json:"assignment,omitempty"`
}

// --- Handler Methods ---

// GetToday resolves the caller's workout for today, if any.
func (h *WorkoutHandler) GetToday(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	assignment, err := h.scheduleService.GetTodayAssignment(c.Request.Context(), clientID)
	if err != nil {
		h.abortResolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, TodayResponse{RestDay: assignment == nil, Assignment: assignment})
}

// GetWeek resolves a full week of assignments at the given offset from the
// current week (offset 0). Rest days are omitted.
func (h *WorkoutHandler) GetWeek(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid offset parameter")
			return
		}
		offset = parsed
	}

	assignments, err := h.scheduleService.GetWeekAssignments(c.Request.Context(), clientID, offset)
	if err != nil {
		h.abortResolveError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"weekOffset": offset, "assignments": assignments})
}

// PreloadWeeks resolves a window of weeks in one call, keyed by offset.
func (h *WorkoutHandler) PreloadWeeks(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	from, to := -service.DefaultPreloadWeeksBack, service.DefaultPreloadWeeksForward
	if raw := c.Query("from"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid from parameter")
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid to parameter")
			return
		}
		to = parsed
	}

	weeks, err := h.scheduleService.PreloadWeeks(c.Request.Context(), clientID, from, to)
	if err != nil {
		h.abortResolveError(c, err)
		return
	}

	// JSON object keys must be strings.
	out := make(map[string][]domain.WorkoutAssignment, len(weeks))
	for offset, assignments := range weeks {
		out[strconv.Itoa(offset)] = assignments
	}
	c.JSON(http.StatusOK, gin.H{"weeks": out})
}

// CompleteWorkout records the caller's completion report for an occurrence.
// Re-submitting the same workout on the same day overwrites, never duplicates.
func (h *WorkoutHandler) CompleteWorkout(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req CompleteWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	input := service.CompleteWorkoutInput{
		Title:                    req.Title,
		Date:                     date,
		Rating:                   req.Rating,
		Notes:                    req.Notes,
		SkippedExerciseIndices:   req.SkippedExerciseIndices,
		CompletedExerciseIndices: req.CompletedExerciseIndices,
		ActualDurationSeconds:    req.ActualDurationSeconds,
	}
	if req.UploadID != "" {
		uploadID, err := primitive.ObjectIDFromHex(req.UploadID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid upload ID format")
			return
		}
		input.UploadID = &uploadID
	}

	record, err := h.completionService.CompleteWorkout(c.Request.Context(), clientID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRating):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not record completion")
		}
		return
	}

	c.JSON(http.StatusOK, record)
}

// DetectMissedWorkouts scans the recent past for skipped occurrences and
// notifies the trainer once per occurrence. Safe to call repeatedly.
func (h *WorkoutHandler) DetectMissedWorkouts(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	lookback := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid days parameter")
			return
		}
		lookback = parsed
	}

	report, err := h.completionService.DetectMissedWorkouts(c.Request.Context(), clientID, lookback)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not run missed workout detection")
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// RefreshCache drops the cached program/template data and eagerly re-fetches
// the caller's active program with all referenced templates.
func (h *WorkoutHandler) RefreshCache(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	status, client, err := h.planService.GetAssignmentStatus(c.Request.Context(), clientID)
	if err != nil {
		h.abortResolveError(c, err)
		return
	}
	if status == service.PlanStatusNoPlan {
		c.JSON(http.StatusOK, gin.H{"refreshed": false, "reason": "no current plan"})
		return
	}

	program, err := h.cache.RefreshOnLaunch(c.Request.Context(), *client.CurrentPlanID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not refresh cache")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refreshed": true,
		"programId": program.ID.Hex(),
		"templates": len(program.TemplateIDs()),
	})
}

// RequestUploadURL hands out a presigned PUT URL for a session video.
func (h *WorkoutHandler) RequestUploadURL(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req RequestUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	resp, err := h.completionService.RequestUploadURL(c.Request.Context(), clientID, req.OccurrenceID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUploadURLError) {
			abortWithError(c, http.StatusInternalServerError, err.Error())
		} else {
			abortWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConfirmUpload records the metadata of a video the client finished pushing
// to object storage.
func (h *WorkoutHandler) ConfirmUpload(c *gin.Context) {
	clientID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req ConfirmUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	upload, err := h.completionService.ConfirmUpload(
		c.Request.Context(), clientID,
		req.OccurrenceID, req.ObjectKey, req.FileName, req.FileSize, req.ContentType,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrUploadConfirmationFailed):
			abortWithError(c, http.StatusInternalServerError, err.Error())
		default:
			abortWithError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, upload)
}

// --- Helpers ---

func (h *WorkoutHandler) callerID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token")
		return primitive.NilObjectID, false
	}
	return id, true
}

// abortResolveError maps resolver/service errors shared by the read paths.
func (h *WorkoutHandler) abortResolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClientNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrClientNotRole):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrProgramNotFound), errors.Is(err, service.ErrTemplateNotFound):
		abortWithError(c, http.StatusConflict, "Plan references data that no longer exists")
	default:
		abortWithError(c, http.StatusInternalServerError, "Could not resolve schedule")
	}
}
