package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- stub repositories ---

type stubProgramRepo struct {
	mu       sync.Mutex
	programs map[primitive.ObjectID]*domain.Program
	calls    int
}

func newStubProgramRepo(programs ...*domain.Program) *stubProgramRepo {
	r := &stubProgramRepo{programs: make(map[primitive.ObjectID]*domain.Program)}
	for _, p := range programs {
		r.programs[p.ID] = p
	}
	return r
}

func (r *stubProgramRepo) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	return primitive.NilObjectID, nil
}

func (r *stubProgramRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	p, ok := r.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProgramRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	return nil, nil
}

func (r *stubProgramRepo) MarkEntryCompleted(ctx context.Context, programID primitive.ObjectID, programDay int, completedAt time.Time) error {
	return nil
}

func (r *stubProgramRepo) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type stubTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*domain.WorkoutTemplate
	calls     int
}

func newStubTemplateRepo(templates ...*domain.WorkoutTemplate) *stubTemplateRepo {
	r := &stubTemplateRepo{templates: make(map[primitive.ObjectID]*domain.WorkoutTemplate)}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

func (r *stubTemplateRepo) Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	return primitive.NilObjectID, nil
}

func (r *stubTemplateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *stubTemplateRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	return nil, nil
}

func (r *stubTemplateRepo) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// --- fixtures ---

func testTemplate(name string) *domain.WorkoutTemplate {
	return &domain.WorkoutTemplate{
		ID:                primitive.NewObjectID(),
		TrainerID:         primitive.NewObjectID(),
		Name:              name,
		EstimatedDuration: 40,
		Exercises: []domain.ExerciseSpec{
			{Title: "Row", ExerciseType: domain.ExerciseTypeReps, Sets: 3, Reps: 10},
		},
	}
}

func testProgram(templates ...*domain.WorkoutTemplate) *domain.Program {
	p := &domain.Program{
		ID:           primitive.NewObjectID(),
		TrainerID:    primitive.NewObjectID(),
		Name:         "Test Block",
		DurationDays: 14,
	}
	for i, tpl := range templates {
		p.Entries = append(p.Entries, domain.ScheduledWorkoutEntry{
			ProgramDay:   i + 1,
			TemplateID:   tpl.ID,
			TemplateName: tpl.Name,
		})
	}
	return p
}

// movableClock lets tests expire the TTL without sleeping.
type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestManager(t *testing.T, programRepo *stubProgramRepo, templateRepo *stubTemplateRepo, dir string) (*Manager, *movableClock) {
	t.Helper()
	clock := &movableClock{t: time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC)}
	m := NewManager(programRepo, templateRepo, 5*time.Minute, dir)
	m.now = clock.now
	return m, clock
}

// --- tests ---

func TestGetProgram_CachesWithinTTL(t *testing.T) {
	program := testProgram()
	repo := newStubProgramRepo(program)
	m, clock := newTestManager(t, repo, newStubTemplateRepo(), "")

	for i := 0; i < 3; i++ {
		got, err := m.GetProgram(context.Background(), program.ID)
		require.NoError(t, err)
		assert.Equal(t, program.Name, got.Name)
	}
	assert.Equal(t, 1, repo.fetchCount())

	clock.advance(4 * time.Minute)
	_, err := m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.fetchCount(), "still fresh at 4 minutes")
}

func TestGetProgram_RefetchesAfterTTL(t *testing.T) {
	program := testProgram()
	repo := newStubProgramRepo(program)
	m, clock := newTestManager(t, repo, newStubTemplateRepo(), "")

	_, err := m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.True(t, m.IsValid(program.ID))

	clock.advance(5*time.Minute + time.Second)
	assert.False(t, m.IsValid(program.ID))

	_, err = m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.fetchCount())
	assert.True(t, m.IsValid(program.ID), "refetch resets the TTL window")
}

func TestGetProgram_NotFoundPassesThrough(t *testing.T) {
	m, _ := newTestManager(t, newStubProgramRepo(), newStubTemplateRepo(), "")

	_, err := m.GetProgram(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetTemplate_NeverExpires(t *testing.T) {
	tpl := testTemplate("Full Body A")
	repo := newStubTemplateRepo(tpl)
	m, clock := newTestManager(t, newStubProgramRepo(), repo, "")

	_, err := m.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)

	clock.advance(48 * time.Hour)
	got, err := m.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Full Body A", got.Name)
	assert.Equal(t, 1, repo.fetchCount())
}

func TestInvalidate_DropsEverything(t *testing.T) {
	tpl := testTemplate("Full Body A")
	program := testProgram(tpl)
	programRepo := newStubProgramRepo(program)
	templateRepo := newStubTemplateRepo(tpl)
	dir := t.TempDir()
	m, _ := newTestManager(t, programRepo, templateRepo, dir)

	_, err := m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	_, err = m.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)

	m.Invalidate()

	assert.False(t, m.IsValid(program.ID))
	_, err = os.Stat(filepath.Join(dir, programSnapshotFile))
	assert.True(t, os.IsNotExist(err), "snapshot files must be removed on invalidation")
	_, err = os.Stat(filepath.Join(dir, templateSnapshotFile))
	assert.True(t, os.IsNotExist(err))

	_, err = m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, programRepo.fetchCount())
}

func TestSnapshot_RoundTrip(t *testing.T) {
	tpl := testTemplate("Full Body A")
	program := testProgram(tpl)
	programRepo := newStubProgramRepo(program)
	templateRepo := newStubTemplateRepo(tpl)
	dir := t.TempDir()

	first, _ := newTestManager(t, programRepo, templateRepo, dir)
	_, err := first.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	_, err = first.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)

	// A fresh manager over the same directory serves from the snapshot
	// without touching the store while the entry is still fresh.
	second, _ := newTestManager(t, programRepo, templateRepo, dir)
	got, err := second.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, program.Name, got.Name)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, tpl.ID, got.Entries[0].TemplateID)

	gotTpl, err := second.GetTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Name, gotTpl.Name)
	assert.Equal(t, tpl.Exercises, gotTpl.Exercises)

	assert.Equal(t, 1, programRepo.fetchCount())
	assert.Equal(t, 1, templateRepo.fetchCount())
}

func TestSnapshot_ExpiredEntryRefetched(t *testing.T) {
	program := testProgram()
	programRepo := newStubProgramRepo(program)
	dir := t.TempDir()

	first, _ := newTestManager(t, programRepo, newStubTemplateRepo(), dir)
	_, err := first.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)

	second, clock := newTestManager(t, programRepo, newStubTemplateRepo(), dir)
	clock.advance(time.Hour)

	_, err = second.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, programRepo.fetchCount(), "restored entry past its TTL must be refetched")
}

func TestSnapshot_CorruptFileStartsEmpty(t *testing.T) {
	program := testProgram()
	programRepo := newStubProgramRepo(program)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, programSnapshotFile), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, templateSnapshotFile), []byte("[]"), 0o644))

	m, _ := newTestManager(t, programRepo, newStubTemplateRepo(), dir)

	got, err := m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, program.Name, got.Name)
	assert.Equal(t, 1, programRepo.fetchCount())
}

func TestSnapshot_NoDirSkipsPersistence(t *testing.T) {
	program := testProgram()
	m, _ := newTestManager(t, newStubProgramRepo(program), newStubTemplateRepo(), "")

	_, err := m.GetProgram(context.Background(), program.ID)
	require.NoError(t, err)
	// Nothing to assert on disk; this exercises the dir == "" guards.
	m.Invalidate()
}

func TestRefreshOnLaunch_PrefetchesTemplates(t *testing.T) {
	tplA := testTemplate("Full Body A")
	tplB := testTemplate("Conditioning")
	program := testProgram(tplA, tplB)
	// A third entry reuses tplA; the prefetch set is deduplicated.
	program.Entries = append(program.Entries, domain.ScheduledWorkoutEntry{
		ProgramDay: 3, TemplateID: tplA.ID, TemplateName: tplA.Name,
	})

	programRepo := newStubProgramRepo(program)
	templateRepo := newStubTemplateRepo(tplA, tplB)
	m, _ := newTestManager(t, programRepo, templateRepo, "")

	got, err := m.RefreshOnLaunch(context.Background(), program.ID)
	require.NoError(t, err)
	assert.Equal(t, program.ID, got.ID)
	assert.Equal(t, 2, templateRepo.fetchCount())

	// Both templates are now served from memory.
	_, err = m.GetTemplate(context.Background(), tplA.ID)
	require.NoError(t, err)
	_, err = m.GetTemplate(context.Background(), tplB.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, templateRepo.fetchCount())
}

func TestRefreshOnLaunch_ToleratesMissingTemplate(t *testing.T) {
	tpl := testTemplate("Full Body A")
	program := testProgram(tpl)
	program.Entries = append(program.Entries, domain.ScheduledWorkoutEntry{
		ProgramDay: 2, TemplateID: primitive.NewObjectID(), TemplateName: "Deleted",
	})

	m, _ := newTestManager(t, newStubProgramRepo(program), newStubTemplateRepo(tpl), "")

	got, err := m.RefreshOnLaunch(context.Background(), program.ID)
	require.NoError(t, err, "a missing template must not fail the refresh")
	assert.Equal(t, program.ID, got.ID)
}
