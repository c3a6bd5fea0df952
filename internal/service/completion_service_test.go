package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fitcoach/fitness-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type completionFixture struct {
	users       *fakeUserRepo
	programs    *fakeProgramRepo
	templates   *fakeTemplateRepo
	completions *fakeCompletionRepo
	notices     *fakeNoticeRepo
	uploads     *fakeUploadRepo
	storage     *fakeStorage
	svc         *completionService

	trainer *domain.User
	client  *domain.User
	program *domain.Program
	tplA    *domain.WorkoutTemplate
	tplB    *domain.WorkoutTemplate
}

// newCompletionFixture reuses the schedule fixture's calendar: clock pinned to
// Wednesday 2024-01-10, plan running 2024-01-07 .. 2024-02-03, workouts on
// program days 1, 3 and 4, plus a trainer to notify.
func newCompletionFixture(t *testing.T) *completionFixture {
	t.Helper()

	sf := newScheduleFixture(t)
	f := &completionFixture{
		users:       sf.users,
		programs:    sf.programs,
		templates:   sf.templates,
		completions: sf.completions,
		notices:     newFakeNoticeRepo(),
		uploads:     newFakeUploadRepo(),
		storage:     &fakeStorage{},
		client:      sf.client,
		program:     sf.program,
		tplA:        sf.tplA,
		tplB:        sf.tplB,
	}

	f.trainer = &domain.User{ID: primitive.NewObjectID(), Name: "Coach", Role: domain.RoleTrainer}
	f.trainer.ClientIDs = []primitive.ObjectID{f.client.ID}
	f.users.put(f.trainer)

	f.client.TrainerID = ptrID(f.trainer.ID)
	f.users.put(f.client)

	f.svc = NewCompletionService(
		f.users, f.completions, f.notices, f.programs, f.uploads, sf.svc, f.storage,
	).(*completionService)
	f.svc.now = fixedNow(date(2024, time.January, 10).Add(18 * time.Hour))

	return f
}

func (f *completionFixture) complete(t *testing.T, in CompleteWorkoutInput) *domain.CompletionRecord {
	t.Helper()
	record, err := f.svc.CompleteWorkout(context.Background(), f.client.ID, in)
	require.NoError(t, err)
	return record
}

func todayWorkoutInput() CompleteWorkoutInput {
	return CompleteWorkoutInput{
		Title:                    "Full Body A",
		Date:                     date(2024, time.January, 10), // program day 4
		Rating:                   4,
		Notes:                    "felt strong",
		CompletedExerciseIndices: []int{0},
		SkippedExerciseIndices:   []int{1},
		ActualDurationSeconds:    50 * 60,
	}
}

func TestCompleteWorkout_RecordsOccurrence(t *testing.T) {
	f := newCompletionFixture(t)

	record := f.complete(t, todayWorkoutInput())

	assert.Equal(t, domain.OccurrenceID("Full Body A", date(2024, time.January, 10)), record.ID)
	assert.Equal(t, f.client.ID, record.ClientID)
	assert.Equal(t, date(2024, time.January, 10), record.Date)
	assert.Equal(t, 4, record.Rating)

	// Lifetime counters bumped on the client document.
	client, err := f.users.GetByID(context.Background(), f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, client.TotalWorkoutsCompleted)
	require.NotNil(t, client.LastWorkoutAt)
}

func TestCompleteWorkout_FeedbackSummary(t *testing.T) {
	f := newCompletionFixture(t)

	record := f.complete(t, todayWorkoutInput())

	assert.Contains(t, record.FeedbackSummary, "Completed 1 of 2 exercises (50%)")
	assert.Contains(t, record.FeedbackSummary, "Took 50 min, 5 over the estimate")
	assert.Contains(t, record.FeedbackSummary, "Skipped: Plank")
	assert.Contains(t, record.FeedbackSummary, "Rating: 4/5")
	assert.Contains(t, record.FeedbackSummary, "felt strong")
}

func TestCompleteWorkout_IdempotentPerDay(t *testing.T) {
	f := newCompletionFixture(t)

	first := f.complete(t, todayWorkoutInput())

	in := todayWorkoutInput()
	in.Rating = 2
	second := f.complete(t, in)

	assert.Equal(t, first.ID, second.ID, "same workout and day must map to the same occurrence")
	assert.Equal(t, 2, f.completions.upserts)

	stored, err := f.completions.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Rating, "re-completion overwrites, never duplicates")
}

func TestCompleteWorkout_InvalidRating(t *testing.T) {
	f := newCompletionFixture(t)

	in := todayWorkoutInput()
	in.Rating = 0
	_, err := f.svc.CompleteWorkout(context.Background(), f.client.ID, in)
	assert.ErrorIs(t, err, ErrInvalidRating)

	in.Rating = 6
	_, err = f.svc.CompleteWorkout(context.Background(), f.client.ID, in)
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestCompleteWorkout_NotifiesTrainer(t *testing.T) {
	f := newCompletionFixture(t)

	f.complete(t, todayWorkoutInput())

	notices := f.notices.ofKind(domain.NoticeWorkoutFeedback)
	require.Len(t, notices, 1)
	assert.Equal(t, f.trainer.ID, notices[0].TrainerID)
	assert.Contains(t, notices[0].Title, "Full Body A")
}

func TestCompleteWorkout_MirrorsEntryFlag(t *testing.T) {
	f := newCompletionFixture(t)

	f.complete(t, todayWorkoutInput())

	assert.Equal(t, 1, f.programs.markCalls)
	assert.Equal(t, 4, f.programs.lastMarkDay)

	program, err := f.programs.GetByID(context.Background(), f.program.ID)
	require.NoError(t, err)
	entry := program.EntryForDay(4)
	require.NotNil(t, entry)
	assert.True(t, entry.IsCompleted)
}

func TestCompleteWorkout_HookFailuresDoNotFailCompletion(t *testing.T) {
	f := newCompletionFixture(t)
	f.notices.createErr = errors.New("notice store down")
	f.programs.markErr = errors.New("program store down")

	record := f.complete(t, todayWorkoutInput())

	_, err := f.completions.GetByID(context.Background(), record.ID)
	assert.NoError(t, err, "the completion record is the primary write and must land")
}

func TestCompleteWorkout_NoTrainerNoNotice(t *testing.T) {
	f := newCompletionFixture(t)
	f.client.TrainerID = nil
	f.users.put(f.client)

	f.complete(t, todayWorkoutInput())

	assert.Empty(t, f.notices.ofKind(domain.NoticeWorkoutFeedback))
}

func TestDetectMissedWorkouts_CreatesNoticesOnce(t *testing.T) {
	f := newCompletionFixture(t)

	// Looking back from 2024-01-10: Jan 7 (day 1) and Jan 9 (day 3) were
	// workout days with no completion; Jan 8 was a rest day; earlier days
	// precede the plan.
	report, err := f.svc.DetectMissedWorkouts(context.Background(), f.client.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, report.DaysChecked)
	assert.Equal(t, 2, report.NoticesCreated)
	assert.Empty(t, report.Errors)

	missed := f.notices.ofKind(domain.NoticeMissedWorkout)
	require.Len(t, missed, 2)
	for _, n := range missed {
		assert.Equal(t, f.trainer.ID, n.TrainerID)
		assert.NotEmpty(t, n.OccurrenceID)
	}

	// Running detection again must not duplicate the notices.
	report, err = f.svc.DetectMissedWorkouts(context.Background(), f.client.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, report.NoticesCreated)
	assert.Len(t, f.notices.ofKind(domain.NoticeMissedWorkout), 2)
}

func TestDetectMissedWorkouts_SkipsCompletedDays(t *testing.T) {
	f := newCompletionFixture(t)

	in := CompleteWorkoutInput{
		Title:  "Conditioning",
		Date:   date(2024, time.January, 9),
		Rating: 5,
	}
	f.complete(t, in)

	report, err := f.svc.DetectMissedWorkouts(context.Background(), f.client.ID, 7)
	require.NoError(t, err)

	// Only Jan 7 remains missed.
	assert.Equal(t, 1, report.NoticesCreated)
}

func TestDetectMissedWorkouts_ExcludesToday(t *testing.T) {
	f := newCompletionFixture(t)

	report, err := f.svc.DetectMissedWorkouts(context.Background(), f.client.ID, 7)
	require.NoError(t, err)

	today := domain.OccurrenceID("Full Body A", date(2024, time.January, 10))
	for _, n := range f.notices.ofKind(domain.NoticeMissedWorkout) {
		assert.NotEqual(t, today, n.OccurrenceID, "today can still be completed")
	}
	assert.Equal(t, 2, report.NoticesCreated)
}

func TestDetectMissedWorkouts_DefaultLookback(t *testing.T) {
	f := newCompletionFixture(t)

	report, err := f.svc.DetectMissedWorkouts(context.Background(), f.client.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLookbackDays, report.DaysChecked)
}

func TestRequestUploadURL(t *testing.T) {
	f := newCompletionFixture(t)

	occurrenceID := domain.OccurrenceID("Full Body A", date(2024, time.January, 10))
	resp, err := f.svc.RequestUploadURL(context.Background(), f.client.ID, occurrenceID, "video/mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.ObjectKey, "sessions/"+f.client.ID.Hex()+"/"+occurrenceID+"/"))
	assert.True(t, strings.HasSuffix(resp.ObjectKey, ".mp4"))
	assert.Contains(t, resp.UploadURL, resp.ObjectKey)
}

func TestRequestUploadURL_RejectsNonVideo(t *testing.T) {
	f := newCompletionFixture(t)

	_, err := f.svc.RequestUploadURL(context.Background(), f.client.ID, "occ", "image/png")
	assert.Error(t, err)
}

func TestConfirmUpload_LinksToCompletionRecord(t *testing.T) {
	f := newCompletionFixture(t)

	record := f.complete(t, todayWorkoutInput())

	upload, err := f.svc.ConfirmUpload(
		context.Background(), f.client.ID,
		record.ID, "sessions/key/video.mp4", "video.mp4", 1024, "video/mp4",
	)
	require.NoError(t, err)
	assert.Equal(t, f.trainer.ID, upload.TrainerID)

	stored, err := f.completions.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UploadID)
	assert.Equal(t, upload.ID, *stored.UploadID)
}
