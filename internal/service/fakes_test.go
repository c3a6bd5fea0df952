package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. Each one guards its map with a mutex so the
// concurrent preload paths can run against them unchanged.

// --- users ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User

	setCurrentErr   error
	activityErr     error
	setCurrentCalls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	cp := *user
	r.users[user.ID] = &cp
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.users[trainerID]
	if !ok {
		return repository.ErrNotFound
	}
	t.ClientIDs = append(t.ClientIDs, clientID)
	return nil
}

func (r *fakeUserRepo) SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TrainerID = &trainerID
	return nil
}

func (r *fakeUserRepo) GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.TrainerID != nil && *u.TrainerID == trainerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetCurrentPlan(ctx context.Context, clientID primitive.ObjectID, slot repository.PlanSlot, clearNext bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setCurrentCalls++
	if r.setCurrentErr != nil {
		return r.setCurrentErr
	}
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	planID, start, end := slot.PlanID, slot.Start, slot.End
	c.CurrentPlanID = &planID
	c.CurrentPlanStart = &start
	c.CurrentPlanEnd = &end
	c.CurrentPlanStartDay = slot.StartDay
	if clearNext {
		c.NextPlanID = nil
		c.NextPlanStart = nil
		c.NextPlanEnd = nil
		c.NextPlanStartDay = 0
	}
	return nil
}

func (r *fakeUserRepo) SetNextPlan(ctx context.Context, clientID primitive.ObjectID, slot repository.PlanSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	planID, start, end := slot.PlanID, slot.Start, slot.End
	c.NextPlanID = &planID
	c.NextPlanStart = &start
	c.NextPlanEnd = &end
	c.NextPlanStartDay = slot.StartDay
	return nil
}

func (r *fakeUserRepo) ClearCurrentPlan(ctx context.Context, clientID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.CurrentPlanID = nil
	c.CurrentPlanStart = nil
	c.CurrentPlanEnd = nil
	c.CurrentPlanStartDay = 0
	return nil
}

func (r *fakeUserRepo) ClearNextPlan(ctx context.Context, clientID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.NextPlanID = nil
	c.NextPlanStart = nil
	c.NextPlanEnd = nil
	c.NextPlanStartDay = 0
	return nil
}

func (r *fakeUserRepo) ListClientsWithQueuedPlan(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.HasNextPlan() {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) RecordWorkoutActivity(ctx context.Context, clientID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activityErr != nil {
		return r.activityErr
	}
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalWorkoutsCompleted++
	c.LastWorkoutAt = &at
	c.LastActivityAt = &at
	return nil
}

// --- programs ---

type fakeProgramRepo struct {
	mu       sync.Mutex
	programs map[primitive.ObjectID]*domain.Program

	getCalls    int
	markCalls   int
	markErr     error
	lastMarkDay int
}

func newFakeProgramRepo() *fakeProgramRepo {
	return &fakeProgramRepo{programs: make(map[primitive.ObjectID]*domain.Program)}
}

func (r *fakeProgramRepo) put(p *domain.Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.programs[p.ID] = &cp
}

func (r *fakeProgramRepo) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	program.ID = primitive.NewObjectID()
	cp := *program
	r.programs[program.ID] = &cp
	return program.ID, nil
}

func (r *fakeProgramRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	p, ok := r.programs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProgramRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Program
	for _, p := range r.programs {
		if p.TrainerID == trainerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProgramRepo) MarkEntryCompleted(ctx context.Context, programID primitive.ObjectID, programDay int, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls++
	r.lastMarkDay = programDay
	if r.markErr != nil {
		return r.markErr
	}
	p, ok := r.programs[programID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range p.Entries {
		if p.Entries[i].ProgramDay == programDay {
			p.Entries[i].IsCompleted = true
			p.Entries[i].CompletedDate = &completedAt
		}
	}
	return nil
}

// --- templates ---

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[primitive.ObjectID]*domain.WorkoutTemplate
	getCalls  int
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[primitive.ObjectID]*domain.WorkoutTemplate)}
}

func (r *fakeTemplateRepo) put(t *domain.WorkoutTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.templates[t.ID] = &cp
}

func (r *fakeTemplateRepo) Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	template.ID = primitive.NewObjectID()
	cp := *template
	r.templates[template.ID] = &cp
	return template.ID, nil
}

func (r *fakeTemplateRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getCalls++
	t, ok := r.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTemplateRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WorkoutTemplate
	for _, t := range r.templates {
		if t.TrainerID == trainerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// --- completions ---

type fakeCompletionRepo struct {
	mu      sync.Mutex
	records map[string]*domain.CompletionRecord
	upserts int
}

func newFakeCompletionRepo() *fakeCompletionRepo {
	return &fakeCompletionRepo{records: make(map[string]*domain.CompletionRecord)}
}

func (r *fakeCompletionRepo) Upsert(ctx context.Context, record *domain.CompletionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	cp := *record
	r.records[record.ID] = &cp
	return nil
}

func (r *fakeCompletionRepo) GetByID(ctx context.Context, occurrenceID string) (*domain.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[occurrenceID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeCompletionRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID, limit int64) ([]domain.CompletionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.CompletionRecord
	for _, rec := range r.records {
		if rec.ClientID == clientID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// --- notices ---

type fakeNoticeRepo struct {
	mu        sync.Mutex
	notices   []domain.Notice
	createErr error
}

func newFakeNoticeRepo() *fakeNoticeRepo {
	return &fakeNoticeRepo{}
}

func (r *fakeNoticeRepo) Create(ctx context.Context, notice *domain.Notice) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	notice.ID = primitive.NewObjectID()
	r.notices = append(r.notices, *notice)
	return notice.ID, nil
}

func (r *fakeNoticeRepo) ExistsForOccurrence(ctx context.Context, occurrenceID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n.OccurrenceID == occurrenceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNoticeRepo) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID, limit int64) ([]domain.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notice
	for _, n := range r.notices {
		if n.TrainerID == trainerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNoticeRepo) ofKind(kind domain.NoticeKind) []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notice
	for _, n := range r.notices {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// --- uploads ---

type fakeUploadRepo struct {
	mu      sync.Mutex
	uploads map[primitive.ObjectID]*domain.Upload
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[primitive.ObjectID]*domain.Upload)}
}

func (r *fakeUploadRepo) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	upload.ID = primitive.NewObjectID()
	cp := *upload
	r.uploads[upload.ID] = &cp
	return upload.ID, nil
}

func (r *fakeUploadRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// --- cache & storage collaborators ---

// fakeInvalidator counts invalidations for the plan queue tests.
type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvalidator) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// passthroughCache satisfies ProgramCache by reading straight from the fakes.
type passthroughCache struct {
	programs  *fakeProgramRepo
	templates *fakeTemplateRepo
}

func (c *passthroughCache) GetProgram(ctx context.Context, programID primitive.ObjectID) (*domain.Program, error) {
	return c.programs.GetByID(ctx, programID)
}

func (c *passthroughCache) GetTemplate(ctx context.Context, templateID primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	return c.templates.GetByID(ctx, templateID)
}

// fakeStorage hands out predictable URLs.
type fakeStorage struct {
	uploadErr error
}

func (s *fakeStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey, contentType string, expires time.Duration) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return fmt.Sprintf("https://storage.test/%s?sig=abc", objectKey), nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?sig=get", objectKey), nil
}

func (s *fakeStorage) DeleteObject(ctx context.Context, objectKey string) error {
	return nil
}

// --- fixture helpers ---

// date builds a UTC midnight time for readable test fixtures.
func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptrTime(t time.Time) *time.Time { return &t }

func ptrID(id primitive.ObjectID) *primitive.ObjectID { return &id }
