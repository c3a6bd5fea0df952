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

// PlanHandler exposes the trainer-facing surface: roster management,
// program/template authoring and the plan queue operations.
type PlanHandler struct {
	trainerService service.TrainerService
	planService    service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(trainerService service.TrainerService, planService service.PlanService) *PlanHandler {
	return &PlanHandler{
		trainerService: trainerService,
		planService:    planService,
	}
}

// --- Request/Response Structs ---

type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

type ExerciseSpecRequest struct {
	Title           string `json:"title" binding:"required"`
	ExerciseType    string `json:"exerciseType" binding:"required,oneof=reps duration"`
	Sets            int    `json:"sets" binding:"required,min=1"`
	Reps            int    `json:"reps"`
	DurationSeconds int    `json:"durationSeconds"`
	RestSeconds     int    `json:"restSeconds"`
	Tips            string `json:"tips"`
}

type CreateTemplateRequest struct {
	Name                     string                `json:"name" binding:"required"`
	Description              string                `json:"description"`
	EstimatedDurationMinutes int                   `json:"estimatedDurationMinutes"`
	Exercises                []ExerciseSpecRequest `json:"exercises" binding:"required,min=1,dive"`
}

type ProgramEntryRequest struct {
	ProgramDay   int    `json:"programDay" binding:"required,min=1"`
	TemplateID   string `json:"templateId" binding:"required"`
	TemplateName string `json:"templateName" binding:"required"`
	TrainerNotes string `json:"trainerNotes"`
}

type CreateProgramRequest struct {
	Name         string                `json:"name" binding:"required"`
	Description  string                `json:"description"`
	DurationDays int                   `json:"durationDays" binding:"required,min=1"`
	Entries      []ProgramEntryRequest `json:"entries" binding:"dive"`
}

type AssignPlanRequest struct {
	ProgramID      string `json:"programId" binding:"required"`
	StartDate      string `json:"startDate" binding:"required"` // YYYY-MM-DD
	StartDay       int    `json:"startDay"`
	EndDate        string `json:"endDate"` // optional, YYYY-MM-DD; omitted means auto-calculated
	ReplaceCurrent bool   `json:"replaceCurrent"`
}

// PlanQueueResponse is the client's plan queue as seen by the trainer.
type PlanQueueResponse struct {
	Status   service.PlanStatus `json:"status"`
	CanQueue bool               `json:"canQueue"`
	Current  *PlanSlotResponse  `json:"current,omitempty"`
	Next     *PlanSlotResponse  `json:"next,omitempty"`
}

type PlanSlotResponse struct {
	ProgramID string `json:"programId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	StartDay  int    `json:"startDay"`
}

// --- Handler Methods ---

// AddClient assigns an existing client account to the calling trainer by email.
func (h *PlanHandler) AddClient(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	client, err := h.trainerService.AddClientByEmail(c.Request.Context(), trainerID, req.ClientEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrClientAlreadyAssigned):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not add client")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(client))
}

// GetClients lists the trainer's managed clients.
func (h *PlanHandler) GetClients(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}

	clients, err := h.trainerService.GetManagedClients(c.Request.Context(), trainerID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not retrieve clients")
		return
	}

	responses := make([]UserResponse, len(clients))
	for i := range clients {
		responses[i] = MapUserToResponse(&clients[i])
	}
	c.JSON(http.StatusOK, responses)
}

// CreateTemplate stores a new reusable workout template.
func (h *PlanHandler) CreateTemplate(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	exercises := make([]domain.ExerciseSpec, len(req.Exercises))
	for i, ex := range req.Exercises {
		exercises[i] = domain.ExerciseSpec{
			Title:           ex.Title,
			ExerciseType:    domain.ExerciseType(ex.ExerciseType),
			Sets:            ex.Sets,
			Reps:            ex.Reps,
			DurationSeconds: ex.DurationSeconds,
			RestSeconds:     ex.RestSeconds,
			Tips:            ex.Tips,
		}
	}

	template, err := h.trainerService.CreateTemplate(c.Request.Context(), trainerID, service.TemplateInput{
		Name:              req.Name,
		Description:       req.Description,
		EstimatedDuration: req.EstimatedDurationMinutes,
		Exercises:         exercises,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Could not create template")
		}
		return
	}

	c.JSON(http.StatusCreated, template)
}

// CreateProgram stores a new multi-day program.
func (h *PlanHandler) CreateProgram(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}

	var req CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	entries := make([]domain.ScheduledWorkoutEntry, len(req.Entries))
	for i, e := range req.Entries {
		templateID, err := primitive.ObjectIDFromHex(e.TemplateID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid template ID for day %d", e.ProgramDay))
			return
		}
		entries[i] = domain.ScheduledWorkoutEntry{
			ProgramDay:   e.ProgramDay,
			TemplateID:   templateID,
			TemplateName: e.TemplateName,
			TrainerNotes: e.TrainerNotes,
		}
	}

	program, err := h.trainerService.CreateProgram(c.Request.Context(), trainerID, service.ProgramInput{
		Name:         req.Name,
		Description:  req.Description,
		DurationDays: req.DurationDays,
		Entries:      entries,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidationFailed) {
			abortWithError(c, http.StatusBadRequest, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Could not create program")
		}
		return
	}

	c.JSON(http.StatusCreated, program)
}

// AssignPlan puts a program into the client's current or next plan slot.
func (h *PlanHandler) AssignPlan(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}
	clientID, ok := h.pathObjectID(c, "clientId")
	if !ok {
		return
	}

	var req AssignPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	programID, err := primitive.ObjectIDFromHex(req.ProgramID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid program ID format")
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid start date, expected YYYY-MM-DD")
		return
	}

	opts := service.AssignPlanOptions{
		ReplaceCurrent: req.ReplaceCurrent,
		StartDate:      startDate,
		StartDay:       req.StartDay,
		AutoCalcEnd:    req.EndDate == "",
	}
	if req.EndDate != "" {
		endDate, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid end date, expected YYYY-MM-DD")
			return
		}
		opts.EndDate = &endDate
	}

	client, err := h.planService.AssignPlan(c.Request.Context(), trainerID, clientID, programID, opts)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStartDate):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrQueueLimitReached):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrProgramNotFound), errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotManaged), errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not assign plan")
		}
		return
	}

	c.JSON(http.StatusOK, mapPlanQueue(client))
}

// RemoveCurrentPlan clears the client's current plan slot.
func (h *PlanHandler) RemoveCurrentPlan(c *gin.Context) {
	h.removePlanSlot(c, h.planService.RemoveCurrentPlan)
}

// RemoveUpcomingPlan clears the client's queued (next) plan slot.
func (h *PlanHandler) RemoveUpcomingPlan(c *gin.Context) {
	h.removePlanSlot(c, h.planService.RemoveUpcomingPlan)
}

func (h *PlanHandler) removePlanSlot(c *gin.Context, remove func(ctx context.Context, trainerID, clientID primitive.ObjectID) error) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}
	clientID, ok := h.pathObjectID(c, "clientId")
	if !ok {
		return
	}

	if err := remove(c.Request.Context(), trainerID, clientID); err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotManaged), errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusForbidden, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not remove plan")
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPlanStatus reports the client's queue state after the lazy promotion check.
func (h *PlanHandler) GetPlanStatus(c *gin.Context) {
	if _, ok := h.callerID(c); !ok {
		return
	}
	clientID, ok := h.pathObjectID(c, "clientId")
	if !ok {
		return
	}

	status, client, err := h.planService.GetAssignmentStatus(c.Request.Context(), clientID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrClientNotRole):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Could not determine plan status")
		}
		return
	}

	resp := mapPlanQueue(client)
	resp.Status = status
	resp.CanQueue = status.CanQueue()
	c.JSON(http.StatusOK, resp)
}

// GetNotices lists the trainer's notices, newest first.
func (h *PlanHandler) GetNotices(c *gin.Context) {
	trainerID, ok := h.callerID(c)
	if !ok {
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			abortWithError(c, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	notices, err := h.trainerService.GetNotices(c.Request.Context(), trainerID, limit)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Could not retrieve notices")
		return
	}

	c.JSON(http.StatusOK, notices)
}

// --- Helpers ---

func (h *PlanHandler) callerID(c *gin.Context) (primitive.ObjectID, bool) {
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

func (h *PlanHandler) pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s format", param))
		return primitive.NilObjectID, false
	}
	return id, true
}

// mapPlanQueue builds the queue response from the client document's slots.
func mapPlanQueue(client *domain.User) PlanQueueResponse {
	resp := PlanQueueResponse{Status: service.PlanStatusNoPlan}
	if client == nil {
		return resp
	}

	if client.HasCurrentPlan() {
		resp.Status = service.PlanStatusHasCurrentPlan
		resp.Current = mapPlanSlot(client.CurrentPlanID, client.CurrentPlanStart, client.CurrentPlanEnd, client.EffectiveStartDay())
	}
	if client.HasNextPlan() {
		resp.Status = service.PlanStatusQueueFull
		resp.Next = mapPlanSlot(client.NextPlanID, client.NextPlanStart, client.NextPlanEnd, client.NextPlanStartDay)
	}
	resp.CanQueue = resp.Status.CanQueue()
	return resp
}

func mapPlanSlot(planID *primitive.ObjectID, start, end *time.Time, startDay int) *PlanSlotResponse {
	if planID == nil || start == nil {
		return nil
	}
	slot := &PlanSlotResponse{
		ProgramID: planID.Hex(),
		StartDate: start.Format("2006-01-02"),
		StartDay:  startDay,
	}
	if slot.StartDay <= 0 {
		slot.StartDay = domain.DefaultStartDay
	}
	if end != nil {
		slot.EndDate = end.Format("2006-01-02")
	}
	return slot
}
