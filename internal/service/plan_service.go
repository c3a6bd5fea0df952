package service

import (
	"context"
	"errors"
	"log"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidStartDate  = errors.New("start date must fall on the plan's anchor weekday")
	ErrQueueLimitReached = errors.New("plan queue is full: a current and a next plan are already assigned")
	ErrProgramNotFound   = errors.New("program not found")
	ErrClientNotFound    = errors.New("client user not found")
	ErrClientNotRole     = errors.New("user found but is not a client")
	ErrClientNotManaged  = errors.New("client is not managed by this trainer")
)

// PlanStatus classifies a client's plan queue after lazy promotion.
type PlanStatus string

const (
	PlanStatusNoPlan         PlanStatus = "no_plan"
	PlanStatusHasCurrentPlan PlanStatus = "has_current_plan" // current set, next free
	PlanStatusQueueFull      PlanStatus = "queue_full"
)

// CanQueue reports whether another plan may be queued without replacing.
func (s PlanStatus) CanQueue() bool {
	return s == PlanStatusHasCurrentPlan
}

// AssignPlanOptions controls how a plan lands in the queue.
type AssignPlanOptions struct {
	ReplaceCurrent bool
	StartDate      time.Time
	// StartDay is the 1-indexed program day the client begins on. Zero means 1.
	StartDay int
	// AutoCalcEnd derives the end date from the program duration with
	// anchor-day rounding. When false, EndDate must be provided.
	AutoCalcEnd bool
	EndDate     *time.Time
}

// SweepReport summarizes one eager promotion sweep.
type SweepReport struct {
	Examined int
	Promoted int
	Failed   int
}

// CacheInvalidator is the slice of the cache layer the queue manager needs:
// any plan mutation must drop cached program data.
type CacheInvalidator interface {
	Invalidate()
}

// PlanService owns the current/next plan slots on client records.
type PlanService interface {
	AssignPlan(ctx context.Context, trainerID, clientID, programID primitive.ObjectID, opts AssignPlanOptions) (*domain.User, error)
	RemoveCurrentPlan(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	RemoveUpcomingPlan(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	GetAssignmentStatus(ctx context.Context, clientID primitive.ObjectID) (PlanStatus, *domain.User, error)

	// PromoteIfDue is the engine's sole state-transition function. It moves
	// next into current once the current plan's end date has passed, and is
	// a no-op otherwise. The returned bool reports whether a promotion
	// happened.
	PromoteIfDue(ctx context.Context, client *domain.User) (*domain.User, bool, error)

	// SweepDuePromotions eagerly promotes every client with a queued plan
	// whose current plan has ended. Per-client failures do not stop the sweep.
	SweepDuePromotions(ctx context.Context) (SweepReport, error)
}

// --- Service Implementation ---

type planService struct {
	userRepo    repository.UserRepository
	programRepo repository.ProgramRepository
	cache       CacheInvalidator
	anchor      time.Weekday
	now         func() time.Time
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	cache CacheInvalidator,
	anchor time.Weekday,
) PlanService {
	return &planService{
		userRepo:    userRepo,
		programRepo: programRepo,
		cache:       cache,
		anchor:      anchor,
		now:         time.Now,
	}
}

// AssignPlan validates and writes a plan into the current or next slot.
func (s *planService) AssignPlan(ctx context.Context, trainerID, clientID, programID primitive.ObjectID, opts AssignPlanOptions) (*domain.User, error) {
	if trainerID == primitive.NilObjectID || clientID == primitive.NilObjectID || programID == primitive.NilObjectID {
		return nil, errors.New("trainer ID, client ID, and program ID are required")
	}

	client, err := s.getManagedClient(ctx, trainerID, clientID)
	if err != nil {
		return nil, err
	}

	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	startDay := opts.StartDay
	if startDay <= 0 {
		startDay = domain.DefaultStartDay
	}

	// A plan beginning at the top of the program must start on the anchor
	// weekday so program weeks line up with calendar weeks.
	start := domain.DayStart(opts.StartDate)
	if startDay == domain.DefaultStartDay && start.Weekday() != s.anchor {
		return nil, ErrInvalidStartDate
	}

	var end time.Time
	if opts.AutoCalcEnd || opts.EndDate == nil {
		end = domain.CalcPlanEnd(start, program.DurationDays, s.anchor)
	} else {
		end = domain.DayStart(*opts.EndDate)
	}

	// A due promotion may free the queue before we classify it.
	client, _, err = s.PromoteIfDue(ctx, client)
	if err != nil {
		return nil, err
	}

	slot := repository.PlanSlot{PlanID: programID, Start: start, End: end, StartDay: startDay}

	switch {
	case !client.HasCurrentPlan() || opts.ReplaceCurrent:
		// Replacing the current plan also clears the queued one; the old
		// successor was sequenced against a plan that no longer exists.
		err = s.userRepo.SetCurrentPlan(ctx, clientID, slot, opts.ReplaceCurrent)
	case !client.HasNextPlan():
		err = s.userRepo.SetNextPlan(ctx, clientID, slot)
	default:
		return nil, ErrQueueLimitReached
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate()

	return s.userRepo.GetByID(ctx, clientID)
}

// RemoveCurrentPlan clears the current slot. A queued plan shifts into the
// freed slot immediately, so a successor never exists without a predecessor.
func (s *planService) RemoveCurrentPlan(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	client, err := s.getManagedClient(ctx, trainerID, clientID)
	if err != nil {
		return err
	}

	if client.HasNextPlan() {
		err = s.userRepo.SetCurrentPlan(ctx, clientID, queuedSlot(client), true)
	} else {
		err = s.userRepo.ClearCurrentPlan(ctx, clientID)
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// RemoveUpcomingPlan unconditionally clears the next slot.
func (s *planService) RemoveUpcomingPlan(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	if _, err := s.getManagedClient(ctx, trainerID, clientID); err != nil {
		return err
	}
	if err := s.userRepo.ClearNextPlan(ctx, clientID); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

// GetAssignmentStatus runs the lazy promotion check, then classifies the queue.
func (s *planService) GetAssignmentStatus(ctx context.Context, clientID primitive.ObjectID) (PlanStatus, *domain.User, error) {
	client, err := s.getClient(ctx, clientID)
	if err != nil {
		return "", nil, err
	}

	client, _, err = s.PromoteIfDue(ctx, client)
	if err != nil {
		return "", nil, err
	}

	switch {
	case !client.HasCurrentPlan():
		return PlanStatusNoPlan, client, nil
	case client.HasNextPlan():
		return PlanStatusQueueFull, client, nil
	default:
		return PlanStatusHasCurrentPlan, client, nil
	}
}

// PromoteIfDue moves next into current when the current plan has ended.
// Idempotent: once promoted, the due condition no longer holds.
func (s *planService) PromoteIfDue(ctx context.Context, client *domain.User) (*domain.User, bool, error) {
	if client == nil {
		return nil, false, ErrClientNotFound
	}
	if !client.HasNextPlan() || client.CurrentPlanEnd == nil {
		return client, false, nil
	}

	today := domain.DayStart(s.now())
	if !domain.DayStart(*client.CurrentPlanEnd).Before(today) {
		return client, false, nil
	}

	if err := s.userRepo.SetCurrentPlan(ctx, client.ID, queuedSlot(client), true); err != nil {
		return client, false, err
	}

	s.cache.Invalidate()

	updated, err := s.userRepo.GetByID(ctx, client.ID)
	if err != nil {
		return client, true, err
	}
	return updated, true, nil
}

// SweepDuePromotions promotes all due clients. Driven by the cron schedule in
// the composition root, and safe to run concurrently with lazy promotions
// (both paths converge on the same idempotent transition).
func (s *planService) SweepDuePromotions(ctx context.Context) (SweepReport, error) {
	report := SweepReport{}

	clients, err := s.userRepo.ListClientsWithQueuedPlan(ctx)
	if err != nil {
		return report, err
	}

	for i := range clients {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Examined++
		_, promoted, err := s.PromoteIfDue(ctx, &clients[i])
		if err != nil {
			report.Failed++
			log.Printf("WARN: promotion sweep failed for client %s: %v", clients[i].ID.Hex(), err)
			continue
		}
		if promoted {
			report.Promoted++
		}
	}

	return report, nil
}

// queuedSlot copies the next-slot fields out of a client record. Call only
// when HasNextPlan() holds.
func queuedSlot(client *domain.User) repository.PlanSlot {
	slot := repository.PlanSlot{
		PlanID:   *client.NextPlanID,
		Start:    *client.NextPlanStart,
		End:      *client.NextPlanEnd,
		StartDay: client.NextPlanStartDay,
	}
	if slot.StartDay <= 0 {
		slot.StartDay = domain.DefaultStartDay
	}
	return slot
}

// getClient fetches a user and verifies the client role.
func (s *planService) getClient(ctx context.Context, clientID primitive.ObjectID) (*domain.User, error) {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if !client.IsClient() {
		return nil, ErrClientNotRole
	}
	return client, nil
}

// getManagedClient additionally verifies the trainer manages the client.
func (s *planService) getManagedClient(ctx context.Context, trainerID, clientID primitive.ObjectID) (*domain.User, error) {
	client, err := s.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.TrainerID == nil || *client.TrainerID != trainerID {
		return nil, ErrClientNotManaged
	}
	return client, nil
}
