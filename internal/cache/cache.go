package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// DefaultProgramTTL bounds how long a cached program document stays fresh.
const DefaultProgramTTL = 5 * time.Minute

// Manager is the time-boxed, disk-backed cache for the two read-mostly
// resources the resolver depends on: program documents (TTL-expired) and
// workout templates (immutable once published, so cached without expiry).
//
// Concurrent GetProgram calls racing past an expired TTL may both fetch and
// overwrite; that is idempotent and acceptable. The mutex exists to keep the
// maps and snapshot writes consistent, not to serialize fetches.
type Manager struct {
	mu           sync.Mutex
	programTTL   time.Duration
	dir          string
	now          func() time.Time
	programRepo  repository.ProgramRepository
	templateRepo repository.TemplateRepository

	programs  map[string]programEntry
	templates map[string]*domain.WorkoutTemplate
}

type programEntry struct {
	program   *domain.Program
	fetchedAt time.Time
}

// NewManager constructs a cache manager and loads any snapshot files found in
// dir. A missing or corrupt snapshot is an empty cache, never an error.
func NewManager(programRepo repository.ProgramRepository, templateRepo repository.TemplateRepository, programTTL time.Duration, dir string) *Manager {
	if programTTL <= 0 {
		programTTL = DefaultProgramTTL
	}
	m := &Manager{
		programTTL:   programTTL,
		dir:          dir,
		now:          time.Now,
		programRepo:  programRepo,
		templateRepo: templateRepo,
		programs:     make(map[string]programEntry),
		templates:    make(map[string]*domain.WorkoutTemplate),
	}
	m.loadSnapshots()
	return m
}

// GetProgram returns the program from cache while fresh, fetching from the
// store and persisting a snapshot otherwise.
func (m *Manager) GetProgram(ctx context.Context, programID primitive.ObjectID) (*domain.Program, error) {
	key := programID.Hex()

	m.mu.Lock()
	entry, ok := m.programs[key]
	if ok && m.now().Sub(entry.fetchedAt) < m.programTTL {
		m.mu.Unlock()
		return entry.program, nil
	}
	m.mu.Unlock()

	program, err := m.programRepo.GetByID(ctx, programID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.programs[key] = programEntry{program: program, fetchedAt: m.now()}
	m.persistProgramsLocked()
	m.mu.Unlock()

	return program, nil
}

// GetTemplate returns the workout template, fetching lazily on first access.
// Templates never auto-expire.
func (m *Manager) GetTemplate(ctx context.Context, templateID primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	key := templateID.Hex()

	m.mu.Lock()
	if tpl, ok := m.templates[key]; ok {
		m.mu.Unlock()
		return tpl, nil
	}
	m.mu.Unlock()

	tpl, err := m.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.templates[key] = tpl
	m.persistTemplatesLocked()
	m.mu.Unlock()

	return tpl, nil
}

// IsValid reports whether the program is cached and still within its TTL.
func (m *Manager) IsValid(programID primitive.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.programs[programID.Hex()]
	return ok && m.now().Sub(entry.fetchedAt) < m.programTTL
}

// Invalidate drops all in-memory entries for both namespaces and deletes the
// on-disk snapshot files. Must be called after any plan assignment, removal
// or promotion; stale program data would otherwise resolve against the wrong
// plan.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.programs = make(map[string]programEntry)
	m.templates = make(map[string]*domain.WorkoutTemplate)
	m.removeSnapshotsLocked()
}

// RefreshOnLaunch clears everything and eagerly re-fetches the program plus
// every distinct template it references. Per-template failures are logged and
// skipped; the refreshed program alone is enough to resolve rest days.
func (m *Manager) RefreshOnLaunch(ctx context.Context, programID primitive.ObjectID) (*domain.Program, error) {
	m.Invalidate()

	program, err := m.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, templateID := range program.TemplateIDs() {
		templateID := templateID
		g.Go(func() error {
			if _, err := m.GetTemplate(gctx, templateID); err != nil {
				log.Printf("WARN: prefetch of template %s failed: %v", templateID.Hex(), err)
			}
			// Prefetch failures never fail the refresh.
			return nil
		})
	}
	_ = g.Wait()

	return program, nil
}
