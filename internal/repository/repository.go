package repository

import (
	"context"
	"time"

	"fitcoach/fitness-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanSlot carries the four fields written into a plan queue slot.
type PlanSlot struct {
	PlanID   primitive.ObjectID
	Start    time.Time
	End      time.Time
	StartDay int
}

// UserRepository defines the interface for interacting with user data,
// including the plan queue fields embedded in client documents. Slot clearing
// deletes the fields outright (field removal, not null), which is why the
// interface exposes explicit clear operations instead of a generic update.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error
	GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)

	// Plan queue slot writes. SetCurrentPlan optionally clears the next slot
	// in the same single-document write (the replace-current case).
	SetCurrentPlan(ctx context.Context, clientID primitive.ObjectID, slot PlanSlot, clearNext bool) error
	SetNextPlan(ctx context.Context, clientID primitive.ObjectID, slot PlanSlot) error
	ClearCurrentPlan(ctx context.Context, clientID primitive.ObjectID) error
	ClearNextPlan(ctx context.Context, clientID primitive.ObjectID) error

	// ListClientsWithQueuedPlan returns clients whose next slot is occupied,
	// for the eager promotion sweep.
	ListClientsWithQueuedPlan(ctx context.Context) ([]domain.User, error)

	// RecordWorkoutActivity atomically increments the lifetime completed
	// counter and stamps last-workout/last-activity.
	RecordWorkoutActivity(ctx context.Context, clientID primitive.ObjectID, at time.Time) error
}

// ProgramRepository defines the interface for interacting with program data.
// Programs are read-only to the engine except for the denormalized completion
// flags on scheduled entries.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error)
	MarkEntryCompleted(ctx context.Context, programID primitive.ObjectID, programDay int, completedAt time.Time) error
}

// TemplateRepository defines the interface for interacting with workout
// template data. Templates are immutable to the engine.
type TemplateRepository interface {
	Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutTemplate, error)
}

// CompletionRepository stores completion records keyed by their deterministic
// occurrence id.
type CompletionRepository interface {
	// Upsert overwrites any existing record with the same occurrence id.
	Upsert(ctx context.Context, record *domain.CompletionRecord) error
	GetByID(ctx context.Context, occurrenceID string) (*domain.CompletionRecord, error)
	GetByClientID(ctx context.Context, clientID primitive.ObjectID, limit int64) ([]domain.CompletionRecord, error)
}

// NoticeRepository stores data-only notices addressed to trainers.
type NoticeRepository interface {
	Create(ctx context.Context, notice *domain.Notice) (primitive.ObjectID, error)
	ExistsForOccurrence(ctx context.Context, occurrenceID string) (bool, error)
	GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID, limit int64) ([]domain.Notice, error)
}

// UploadRepository defines the interface for interacting with upload metadata.
type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error)
}
