package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Default preload window around the current week.
const (
	DefaultPreloadWeeksBack    = 2
	DefaultPreloadWeeksForward = 4
)

var ErrTemplateNotFound = errors.New("workout template not found")

// ProgramCache is the slice of the cache layer the resolver reads through.
type ProgramCache interface {
	GetProgram(ctx context.Context, programID primitive.ObjectID) (*domain.Program, error)
	GetTemplate(ctx context.Context, templateID primitive.ObjectID) (*domain.WorkoutTemplate, error)
}

// ScheduleService resolves which workout (if any) a client owes on a calendar
// date. Resolution is a pure function of (program, plan dates, target date,
// completion existence); nothing it derives is ever written back.
type ScheduleService interface {
	// ResolveDay returns the materialized assignment for the date, or
	// (nil, nil) for rest days and dates outside the plan range.
	ResolveDay(ctx context.Context, clientID primitive.ObjectID, target time.Time) (*domain.WorkoutAssignment, error)
	GetTodayAssignment(ctx context.Context, clientID primitive.ObjectID) (*domain.WorkoutAssignment, error)
	// GetWeekAssignments resolves the 7 days of the week at the given offset
	// from the current week. Rest and out-of-range days are omitted.
	GetWeekAssignments(ctx context.Context, clientID primitive.ObjectID, weekOffset int) ([]domain.WorkoutAssignment, error)
	// PreloadWeeks resolves a window of weeks concurrently, keyed by offset.
	PreloadWeeks(ctx context.Context, clientID primitive.ObjectID, fromOffset, toOffset int) (map[int][]domain.WorkoutAssignment, error)
}

type scheduleService struct {
	userRepo       repository.UserRepository
	completionRepo repository.CompletionRepository
	cache          ProgramCache
	planService    PlanService
	anchor         time.Weekday
	now            func() time.Time
}

// NewScheduleService creates a new instance of scheduleService.
func NewScheduleService(
	userRepo repository.UserRepository,
	completionRepo repository.CompletionRepository,
	cache ProgramCache,
	planService PlanService,
	anchor time.Weekday,
) ScheduleService {
	return &scheduleService{
		userRepo:       userRepo,
		completionRepo: completionRepo,
		cache:          cache,
		planService:    planService,
		anchor:         anchor,
		now:            time.Now,
	}
}

func (s *scheduleService) ResolveDay(ctx context.Context, clientID primitive.ObjectID, target time.Time) (*domain.WorkoutAssignment, error) {
	client, err := s.loadPromotedClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.HasCurrentPlan() {
		return nil, nil
	}

	program, err := s.cache.GetProgram(ctx, *client.CurrentPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	return s.resolveForClient(ctx, client, program, target)
}

func (s *scheduleService) GetTodayAssignment(ctx context.Context, clientID primitive.ObjectID) (*domain.WorkoutAssignment, error) {
	return s.ResolveDay(ctx, clientID, s.now())
}

func (s *scheduleService) GetWeekAssignments(ctx context.Context, clientID primitive.ObjectID, weekOffset int) ([]domain.WorkoutAssignment, error) {
	client, err := s.loadPromotedClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !client.HasCurrentPlan() {
		return []domain.WorkoutAssignment{}, nil
	}

	program, err := s.cache.GetProgram(ctx, *client.CurrentPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, err
	}

	// Weeks are computed relative to now, anchored on the plan's week
	// boundary weekday, not relative to the plan start.
	weekStart := domain.MostRecentWeekday(s.now(), s.anchor).AddDate(0, 0, 7*weekOffset)

	assignments := make([]domain.WorkoutAssignment, 0, 7)
	for day := 0; day < 7; day++ {
		assignment, err := s.resolveForClient(ctx, client, program, weekStart.AddDate(0, 0, day))
		if err != nil {
			return nil, err
		}
		if assignment != nil {
			assignments = append(assignments, *assignment)
		}
	}
	return assignments, nil
}

// PreloadWeeks fetches all offsets concurrently. Each offset touches disjoint
// dates, so the units are safe to run in parallel; partial results computed
// before a failure or cancellation remain valid.
func (s *scheduleService) PreloadWeeks(ctx context.Context, clientID primitive.ObjectID, fromOffset, toOffset int) (map[int][]domain.WorkoutAssignment, error) {
	if fromOffset > toOffset {
		fromOffset, toOffset = -DefaultPreloadWeeksBack, DefaultPreloadWeeksForward
	}

	var mu sync.Mutex
	weeks := make(map[int][]domain.WorkoutAssignment)

	g, gctx := errgroup.WithContext(ctx)
	for offset := fromOffset; offset <= toOffset; offset++ {
		offset := offset
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			assignments, err := s.GetWeekAssignments(gctx, clientID, offset)
			if err != nil {
				return err
			}
			mu.Lock()
			weeks[offset] = assignments
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return weeks, err
}

// loadPromotedClient fetches the client and runs the lazy promotion check
// every read path owes before using current-plan data.
func (s *scheduleService) loadPromotedClient(ctx context.Context, clientID primitive.ObjectID) (*domain.User, error) {
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

	client, _, err = s.planService.PromoteIfDue(ctx, client)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// resolveForClient implements the resolution algorithm for a single date.
func (s *scheduleService) resolveForClient(ctx context.Context, client *domain.User, program *domain.Program, target time.Time) (*domain.WorkoutAssignment, error) {
	targetDay := domain.DayStart(target)
	planStart := domain.DayStart(*client.CurrentPlanStart)

	// Range check. A plan without an end date is open-ended and never hits
	// the upper bound.
	if targetDay.Before(planStart) {
		return nil, nil
	}
	if client.CurrentPlanEnd != nil && targetDay.After(domain.DayStart(*client.CurrentPlanEnd)) {
		return nil, nil
	}

	programDay := domain.ProgramDayOn(planStart, client.EffectiveStartDay(), targetDay)

	// No entry for this program day means a rest day, not an error.
	entry := program.EntryForDay(programDay)
	if entry == nil {
		return nil, nil
	}

	template, err := s.cache.GetTemplate(ctx, entry.TemplateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	exercises := make([]domain.ResolvedExercise, len(template.Exercises))
	for i, spec := range template.Exercises {
		exercises[i] = domain.ResolvedExercise{
			Title:           spec.Title,
			ExerciseType:    spec.ExerciseType,
			Sets:            spec.Sets,
			Reps:            spec.Reps,
			DurationSeconds: spec.DurationSeconds,
			RestSeconds:     spec.RestSeconds,
			Tips:            spec.Tips,
		}
	}

	occurrenceID := domain.OccurrenceID(template.Name, targetDay)

	status, err := s.statusFor(ctx, occurrenceID, targetDay)
	if err != nil {
		return nil, err
	}

	return &domain.WorkoutAssignment{
		Title:             template.Name,
		Description:       template.Description,
		Date:              targetDay,
		ProgramDay:        programDay,
		Status:            status,
		Exercises:         exercises,
		EstimatedDuration: template.EstimatedDuration,
		TrainerNotes:      entry.TrainerNotes,
		OccurrenceID:      occurrenceID,
	}, nil
}

// statusFor derives the occurrence status at read time: a completion record
// wins, then a past date without one is skipped, otherwise pending.
func (s *scheduleService) statusFor(ctx context.Context, occurrenceID string, targetDay time.Time) (domain.AssignmentStatus, error) {
	_, err := s.completionRepo.GetByID(ctx, occurrenceID)
	switch {
	case err == nil:
		return domain.StatusCompleted, nil
	case errors.Is(err, repository.ErrNotFound):
		if targetDay.Before(domain.DayStart(s.now())) {
			return domain.StatusSkipped, nil
		}
		return domain.StatusPending, nil
	default:
		return "", err
	}
}
