package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"
	"fitcoach/fitness-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidRating            = errors.New("rating must be between 1 and 5")
	ErrUploadURLError           = errors.New("failed to generate upload URL")
	ErrUploadConfirmationFailed = errors.New("failed to confirm upload")
)

// DefaultLookbackDays is the missed-workout detection window.
const DefaultLookbackDays = 7

// CompleteWorkoutInput carries everything a client reports when finishing a
// workout occurrence.
type CompleteWorkoutInput struct {
	Title                    string
	Date                     time.Time
	Rating                   int
	Notes                    string
	SkippedExerciseIndices   []int
	CompletedExerciseIndices []int
	ActualDurationSeconds    int // 0 when the client did not track time
	UploadID                 *primitive.ObjectID
}

// MissedWorkoutReport accumulates the outcome of one detection run.
// Per-day failures are collected, never fatal to the remaining days.
type MissedWorkoutReport struct {
	DaysChecked    int      `json:"daysChecked"`
	NoticesCreated int      `json:"noticesCreated"`
	Errors         []string `json:"errors,omitempty"`
}

// UploadURLResponse structure for returning URL and object key
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"` // The key the client reports back on confirm
}

// CompletionService records workout completions and detects missed workouts.
type CompletionService interface {
	// CompleteWorkout upserts the occurrence's completion record (idempotent
	// per calendar day), bumps the client's lifetime counters, then runs the
	// best-effort post-commit hooks (trainer feedback notice, denormalized
	// entry flag mirror). Hook failures are logged, never propagated.
	CompleteWorkout(ctx context.Context, clientID primitive.ObjectID, in CompleteWorkoutInput) (*domain.CompletionRecord, error)

	// DetectMissedWorkouts scans the past lookbackDays (excluding today) and
	// creates one missed-workout notice per skipped occurrence that does not
	// already have one. Idempotent under repeated invocation.
	DetectMissedWorkouts(ctx context.Context, clientID primitive.ObjectID, lookbackDays int) (*MissedWorkoutReport, error)

	// Session video upload flow (S3 presigned URLs).
	RequestUploadURL(ctx context.Context, clientID primitive.ObjectID, occurrenceID, contentType string) (*UploadURLResponse, error)
	ConfirmUpload(ctx context.Context, clientID primitive.ObjectID, occurrenceID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Upload, error)
}

// --- Service Implementation ---

type completionService struct {
	userRepo       repository.UserRepository
	completionRepo repository.CompletionRepository
	noticeRepo     repository.NoticeRepository
	programRepo    repository.ProgramRepository
	uploadRepo     repository.UploadRepository
	schedule       ScheduleService
	fileStorage    storage.FileStorage
	now            func() time.Time
}

// NewCompletionService creates a new instance of completionService.
func NewCompletionService(
	userRepo repository.UserRepository,
	completionRepo repository.CompletionRepository,
	noticeRepo repository.NoticeRepository,
	programRepo repository.ProgramRepository,
	uploadRepo repository.UploadRepository,
	schedule ScheduleService,
	fileStorage storage.FileStorage,
) CompletionService {
	return &completionService{
		userRepo:       userRepo,
		completionRepo: completionRepo,
		noticeRepo:     noticeRepo,
		programRepo:    programRepo,
		uploadRepo:     uploadRepo,
		schedule:       schedule,
		fileStorage:    fileStorage,
		now:            time.Now,
	}
}

// postCommitHook is one best-effort side effect run after the primary
// completion write. Each hook fails independently.
type postCommitHook struct {
	name string
	run  func(ctx context.Context) error
}

func (s *completionService) CompleteWorkout(ctx context.Context, clientID primitive.ObjectID, in CompleteWorkoutInput) (*domain.CompletionRecord, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if in.Title == "" {
		return nil, errors.New("workout title is required")
	}

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

	// Resolve the occurrence for context (exercise names, estimate). A
	// resolution failure only degrades the feedback summary.
	assignment, err := s.schedule.ResolveDay(ctx, clientID, in.Date)
	if err != nil {
		log.Printf("WARN: could not resolve assignment for completion context: %v", err)
		assignment = nil
	}

	occurrenceID := domain.OccurrenceID(in.Title, in.Date)
	completedAt := s.now().UTC()

	record := &domain.CompletionRecord{
		ID:                 occurrenceID,
		ClientID:           clientID,
		WorkoutTitle:       in.Title,
		Date:               domain.DayStart(in.Date),
		Rating:             in.Rating,
		Notes:              in.Notes,
		ActualDuration:     in.ActualDurationSeconds,
		SkippedExercises:   in.SkippedExerciseIndices,
		CompletedExercises: in.CompletedExerciseIndices,
		FeedbackSummary:    buildFeedbackSummary(in, assignment),
		UploadID:           in.UploadID,
		CompletedAt:        completedAt,
	}

	// Primary write: same occurrence id means overwrite, never duplicate.
	if err := s.completionRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	if err := s.userRepo.RecordWorkoutActivity(ctx, clientID, completedAt); err != nil {
		return nil, err
	}

	s.runPostCommitHooks(ctx, occurrenceID, s.completionHooks(client, record, assignment))

	return record, nil
}

// completionHooks builds the ordered best-effort side effects of a completion.
func (s *completionService) completionHooks(client *domain.User, record *domain.CompletionRecord, assignment *domain.WorkoutAssignment) []postCommitHook {
	hooks := []postCommitHook{}

	if client.TrainerID != nil {
		trainerID := *client.TrainerID
		hooks = append(hooks, postCommitHook{
			name: "trainer feedback notice",
			run: func(ctx context.Context) error {
				notice := &domain.Notice{
					TrainerID: trainerID,
					ClientID:  client.ID,
					Kind:      domain.NoticeWorkoutFeedback,
					Title:     fmt.Sprintf("%s completed %q", client.Name, record.WorkoutTitle),
					Body:      record.FeedbackSummary,
				}
				_, err := s.noticeRepo.Create(ctx, notice)
				return err
			},
		})
	}

	if client.HasCurrentPlan() && assignment != nil {
		programID := *client.CurrentPlanID
		programDay := assignment.ProgramDay
		hooks = append(hooks, postCommitHook{
			name: "program entry completion mirror",
			run: func(ctx context.Context) error {
				return s.programRepo.MarkEntryCompleted(ctx, programID, programDay, record.CompletedAt)
			},
		})
	}

	return hooks
}

func (s *completionService) runPostCommitHooks(ctx context.Context, occurrenceID string, hooks []postCommitHook) {
	for _, hook := range hooks {
		if err := hook.run(ctx); err != nil {
			log.Printf("WARN: %s failed for occurrence %s: %v", hook.name, occurrenceID, err)
		}
	}
}

func (s *completionService) DetectMissedWorkouts(ctx context.Context, clientID primitive.ObjectID, lookbackDays int) (*MissedWorkoutReport, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

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

	report := &MissedWorkoutReport{}
	today := domain.DayStart(s.now())

	// Today is excluded; it can still be completed.
	for daysAgo := 1; daysAgo <= lookbackDays; daysAgo++ {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.DaysChecked++

		date := today.AddDate(0, 0, -daysAgo)
		if err := s.noticeMissedDay(ctx, client, date, report); err != nil {
			// Per-day isolation: collect and keep scanning.
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", date.Format("2006-01-02"), err))
		}
	}

	return report, nil
}

func (s *completionService) noticeMissedDay(ctx context.Context, client *domain.User, date time.Time, report *MissedWorkoutReport) error {
	assignment, err := s.schedule.ResolveDay(ctx, client.ID, date)
	if err != nil {
		return err
	}
	if assignment == nil || assignment.Status != domain.StatusSkipped {
		return nil
	}

	exists, err := s.noticeRepo.ExistsForOccurrence(ctx, assignment.OccurrenceID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if client.TrainerID == nil {
		return nil // Nobody to notify.
	}

	notice := &domain.Notice{
		TrainerID:    *client.TrainerID,
		ClientID:     client.ID,
		Kind:         domain.NoticeMissedWorkout,
		Title:        fmt.Sprintf("%s missed %q", client.Name, assignment.Title),
		Body:         fmt.Sprintf("Scheduled for %s (program day %d), no completion recorded.", date.Format("Mon, Jan 2"), assignment.ProgramDay),
		OccurrenceID: assignment.OccurrenceID,
	}
	if _, err := s.noticeRepo.Create(ctx, notice); err != nil {
		return err
	}
	report.NoticesCreated++
	return nil
}

// === Session video uploads ===

// RequestUploadURL generates a pre-signed URL for a client to upload a
// session video for a workout occurrence.
func (s *completionService) RequestUploadURL(ctx context.Context, clientID primitive.ObjectID, occurrenceID, contentType string) (*UploadURLResponse, error) {
	if clientID == primitive.NilObjectID || occurrenceID == "" {
		return nil, errors.New("client ID and occurrence ID are required")
	}
	if contentType == "" || !strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return nil, errors.New("invalid or missing video content type")
	}

	fileExtension := ""
	parts := strings.Split(contentType, "/")
	if len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("sessions", clientID.Hex(), occurrenceID, fmt.Sprintf("%s.%s", uuid.NewString(), fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &UploadURLResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// ConfirmUpload records the upload metadata after the client has pushed the
// file to S3, and best-effort links it to the occurrence's completion record.
func (s *completionService) ConfirmUpload(ctx context.Context, clientID primitive.ObjectID, occurrenceID, objectKey, fileName string, fileSize int64, contentType string) (*domain.Upload, error) {
	if clientID == primitive.NilObjectID || occurrenceID == "" || objectKey == "" {
		return nil, errors.New("client ID, occurrence ID, and object key are required")
	}

	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	upload := &domain.Upload{
		ClientID:     clientID,
		OccurrenceID: occurrenceID,
		S3ObjectKey:  objectKey,
		FileName:     fileName,
		ContentType:  contentType,
		Size:         fileSize,
	}
	if client.TrainerID != nil {
		upload.TrainerID = *client.TrainerID
	}

	uploadID, err := s.uploadRepo.Create(ctx, upload)
	if err != nil {
		return nil, ErrUploadConfirmationFailed
	}
	upload.ID = uploadID

	// Link onto an existing completion record if the workout was already
	// reported done. Best effort; the upload stands on its own otherwise.
	if record, err := s.completionRepo.GetByID(ctx, occurrenceID); err == nil {
		record.UploadID = &uploadID
		if err := s.completionRepo.Upsert(ctx, record); err != nil {
			log.Printf("WARN: could not link upload %s to completion %s: %v", uploadID.Hex(), occurrenceID, err)
		}
	}

	return upload, nil
}

// buildFeedbackSummary renders the human-readable trainer summary: completion
// percentage, duration delta against the estimate, skipped exercise names and
// the client's own notes.
func buildFeedbackSummary(in CompleteWorkoutInput, assignment *domain.WorkoutAssignment) string {
	var b strings.Builder

	totalReported := len(in.CompletedExerciseIndices) + len(in.SkippedExerciseIndices)
	total := totalReported
	if assignment != nil && len(assignment.Exercises) > 0 {
		total = len(assignment.Exercises)
	}
	if total > 0 {
		pct := len(in.CompletedExerciseIndices) * 100 / total
		fmt.Fprintf(&b, "Completed %d of %d exercises (%d%%).", len(in.CompletedExerciseIndices), total, pct)
	}

	if in.ActualDurationSeconds > 0 && assignment != nil && assignment.EstimatedDuration > 0 {
		actual := in.ActualDurationSeconds / 60
		delta := actual - assignment.EstimatedDuration
		switch {
		case delta > 0:
			fmt.Fprintf(&b, " Took %d min, %d over the estimate.", actual, delta)
		case delta < 0:
			fmt.Fprintf(&b, " Took %d min, %d under the estimate.", actual, -delta)
		default:
			fmt.Fprintf(&b, " Took %d min, right on the estimate.", actual)
		}
	}

	if assignment != nil && len(in.SkippedExerciseIndices) > 0 {
		names := make([]string, 0, len(in.SkippedExerciseIndices))
		for _, idx := range in.SkippedExerciseIndices {
			if idx >= 0 && idx < len(assignment.Exercises) {
				names = append(names, assignment.Exercises[idx].Title)
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, " Skipped: %s.", strings.Join(names, ", "))
		}
	}

	fmt.Fprintf(&b, " Rating: %d/5.", in.Rating)

	if in.Notes != "" {
		fmt.Fprintf(&b, " Client notes: %s", in.Notes)
	}

	return strings.TrimSpace(b.String())
}
