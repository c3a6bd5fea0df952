package service

import (
	"context"
	"errors"
	"fmt"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrClientAlreadyAssigned = errors.New("client is already assigned to a trainer")
	ErrValidationFailed      = errors.New("validation failed")
)

// ProgramInput is the authoring payload for a new program.
type ProgramInput struct {
	Name         string
	Description  string
	DurationDays int
	Entries      []domain.ScheduledWorkoutEntry
}

// TemplateInput is the authoring payload for a new workout template.
type TemplateInput struct {
	Name              string
	Description       string
	EstimatedDuration int
	Exercises         []domain.ExerciseSpec
}

// TrainerService covers the trainer-facing plumbing around the scheduling
// engine: client roster management, program/template intake and notices.
type TrainerService interface {
	AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	CreateProgram(ctx context.Context, trainerID primitive.ObjectID, in ProgramInput) (*domain.Program, error)
	CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error)
	GetNotices(ctx context.Context, trainerID primitive.ObjectID, limit int64) ([]domain.Notice, error)
}

// --- Service Implementation ---

type trainerService struct {
	userRepo     repository.UserRepository
	programRepo  repository.ProgramRepository
	templateRepo repository.TemplateRepository
	noticeRepo   repository.NoticeRepository
}

// NewTrainerService creates a new instance of trainerService.
func NewTrainerService(
	userRepo repository.UserRepository,
	programRepo repository.ProgramRepository,
	templateRepo repository.TemplateRepository,
	noticeRepo repository.NoticeRepository,
) TrainerService {
	return &trainerService{
		userRepo:     userRepo,
		programRepo:  programRepo,
		templateRepo: templateRepo,
		noticeRepo:   noticeRepo,
	}
}

// AddClientByEmail finds a client by email and assigns them to the trainer.
func (s *trainerService) AddClientByEmail(ctx context.Context, trainerID primitive.ObjectID, clientEmail string) (*domain.User, error) {
	if trainerID == primitive.NilObjectID || clientEmail == "" {
		return nil, errors.New("trainer ID and client email are required")
	}

	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	if client.Role != domain.RoleClient {
		return nil, ErrClientNotRole
	}

	if client.TrainerID != nil && *client.TrainerID != primitive.NilObjectID {
		if *client.TrainerID == trainerID {
			// Already managed by this trainer.
			return client, nil
		}
		return nil, ErrClientAlreadyAssigned
	}

	// Two sequential single-document writes; a narrow inconsistency window
	// on partial failure is accepted (no multi-document transactions).
	if err := s.userRepo.AddClientIDToTrainer(ctx, trainerID, client.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetTrainerForClient(ctx, client.ID, trainerID); err != nil {
		return nil, err
	}

	client.TrainerID = &trainerID
	return client, nil
}

// GetManagedClients retrieves the list of clients managed by the trainer.
func (s *trainerService) GetManagedClients(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	clients, err := s.userRepo.GetClientsByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].PasswordHash = ""
	}
	return clients, nil
}

// CreateProgram validates and stores a new program document.
func (s *trainerService) CreateProgram(ctx context.Context, trainerID primitive.ObjectID, in ProgramInput) (*domain.Program, error) {
	if in.Name == "" || in.DurationDays <= 0 {
		return nil, fmt.Errorf("%w: program name and positive duration are required", ErrValidationFailed)
	}

	seen := make(map[int]bool, len(in.Entries))
	for _, entry := range in.Entries {
		if entry.ProgramDay < 1 || entry.ProgramDay > in.DurationDays {
			return nil, fmt.Errorf("%w: program day %d outside 1..%d", ErrValidationFailed, entry.ProgramDay, in.DurationDays)
		}
		if seen[entry.ProgramDay] {
			return nil, fmt.Errorf("%w: duplicate program day %d", ErrValidationFailed, entry.ProgramDay)
		}
		seen[entry.ProgramDay] = true
		if entry.TemplateID == primitive.NilObjectID {
			return nil, fmt.Errorf("%w: entry for day %d has no template", ErrValidationFailed, entry.ProgramDay)
		}
	}

	program := &domain.Program{
		TrainerID:    trainerID,
		Name:         in.Name,
		Description:  in.Description,
		DurationDays: in.DurationDays,
		Entries:      in.Entries,
	}

	programID, err := s.programRepo.Create(ctx, program)
	if err != nil {
		return nil, err
	}
	program.ID = programID
	return program, nil
}

// CreateTemplate validates and stores a new workout template.
func (s *trainerService) CreateTemplate(ctx context.Context, trainerID primitive.ObjectID, in TemplateInput) (*domain.WorkoutTemplate, error) {
	if in.Name == "" || len(in.Exercises) == 0 {
		return nil, fmt.Errorf("%w: template name and at least one exercise are required", ErrValidationFailed)
	}
	for i, spec := range in.Exercises {
		switch spec.ExerciseType {
		case domain.ExerciseTypeReps:
			if spec.Reps <= 0 {
				return nil, fmt.Errorf("%w: exercise %d needs a rep count", ErrValidationFailed, i)
			}
		case domain.ExerciseTypeDuration:
			if spec.DurationSeconds <= 0 {
				return nil, fmt.Errorf("%w: exercise %d needs a duration", ErrValidationFailed, i)
			}
		default:
			return nil, fmt.Errorf("%w: exercise %d has unknown type %q", ErrValidationFailed, i, spec.ExerciseType)
		}
	}

	template := &domain.WorkoutTemplate{
		TrainerID:         trainerID,
		Name:              in.Name,
		Description:       in.Description,
		EstimatedDuration: in.EstimatedDuration,
		Exercises:         in.Exercises,
	}

	templateID, err := s.templateRepo.Create(ctx, template)
	if err != nil {
		return nil, err
	}
	template.ID = templateID
	return template, nil
}

// GetNotices retrieves the trainer's notices, newest first.
func (s *trainerService) GetNotices(ctx context.Context, trainerID primitive.ObjectID, limit int64) ([]domain.Notice, error) {
	return s.noticeRepo.GetByTrainerID(ctx, trainerID, limit)
}
