package cache

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"fitcoach/fitness-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot file names, one per cache namespace.
const (
	programSnapshotFile  = "programs.json"
	templateSnapshotFile = "templates.json"
)

// The snapshot format is deliberately plain: hex strings for ids, RFC3339
// strings for times, nested maps/arrays otherwise. Store-native types are not
// guaranteed to round-trip through generic serialization.

type programSnapshot struct {
	Program   portableProgram `json:"program"`
	FetchedAt string          `json:"fetchedAt"`
}

type portableProgram struct {
	ID           string          `json:"id"`
	TrainerID    string          `json:"trainerId"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	DurationDays int             `json:"durationDays"`
	Entries      []portableEntry `json:"entries"`
}

type portableEntry struct {
	ProgramDay    int    `json:"programDay"`
	TemplateID    string `json:"templateId"`
	TemplateName  string `json:"templateName"`
	TrainerNotes  string `json:"trainerNotes,omitempty"`
	IsCompleted   bool   `json:"isCompleted,omitempty"`
	CompletedDate string `json:"completedDate,omitempty"`
}

type portableTemplate struct {
	ID                string                `json:"id"`
	TrainerID         string                `json:"trainerId"`
	Name              string                `json:"name"`
	Description       string                `json:"description,omitempty"`
	EstimatedDuration int                   `json:"estimatedDurationMinutes"`
	Exercises         []domain.ExerciseSpec `json:"exercises"`
}

// loadSnapshots restores both namespaces from disk at process start. Missing
// or corrupt files leave the namespace empty.
func (m *Manager) loadSnapshots() {
	if m.dir == "" {
		return
	}

	var programs map[string]programSnapshot
	if readSnapshot(filepath.Join(m.dir, programSnapshotFile), &programs) {
		for key, snap := range programs {
			program, fetchedAt, err := snap.restore()
			if err != nil {
				log.Printf("WARN: skipping unreadable cached program %s: %v", key, err)
				continue
			}
			m.programs[key] = programEntry{program: program, fetchedAt: fetchedAt}
		}
	}

	var templates map[string]portableTemplate
	if readSnapshot(filepath.Join(m.dir, templateSnapshotFile), &templates) {
		for key, snap := range templates {
			tpl, err := snap.restore()
			if err != nil {
				log.Printf("WARN: skipping unreadable cached template %s: %v", key, err)
				continue
			}
			m.templates[key] = tpl
		}
	}
}

func readSnapshot(path string, v interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("WARN: corrupt cache snapshot %s, starting empty: %v", path, err)
		return false
	}
	return true
}

// persistProgramsLocked serializes the program namespace. Caller holds m.mu.
func (m *Manager) persistProgramsLocked() {
	if m.dir == "" {
		return
	}
	out := make(map[string]programSnapshot, len(m.programs))
	for key, entry := range m.programs {
		out[key] = newProgramSnapshot(entry)
	}
	writeSnapshot(m.dir, programSnapshotFile, out)
}

// persistTemplatesLocked serializes the template namespace. Caller holds m.mu.
func (m *Manager) persistTemplatesLocked() {
	if m.dir == "" {
		return
	}
	out := make(map[string]portableTemplate, len(m.templates))
	for key, tpl := range m.templates {
		out[key] = newPortableTemplate(tpl)
	}
	writeSnapshot(m.dir, templateSnapshotFile, out)
}

func (m *Manager) removeSnapshotsLocked() {
	if m.dir == "" {
		return
	}
	_ = os.Remove(filepath.Join(m.dir, programSnapshotFile))
	_ = os.Remove(filepath.Join(m.dir, templateSnapshotFile))
}

func writeSnapshot(dir, name string, v interface{}) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("WARN: cannot create cache dir %s: %v", dir, err)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: cannot serialize cache snapshot %s: %v", name, err)
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		log.Printf("WARN: cannot write cache snapshot %s: %v", name, err)
	}
}

func newProgramSnapshot(entry programEntry) programSnapshot {
	p := entry.program
	entries := make([]portableEntry, len(p.Entries))
	for i, e := range p.Entries {
		entries[i] = portableEntry{
			ProgramDay:   e.ProgramDay,
			TemplateID:   e.TemplateID.Hex(),
			TemplateName: e.TemplateName,
			TrainerNotes: e.TrainerNotes,
			IsCompleted:  e.IsCompleted,
		}
		if e.CompletedDate != nil {
			entries[i].CompletedDate = e.CompletedDate.Format(time.RFC3339)
		}
	}
	return programSnapshot{
		Program: portableProgram{
			ID:           p.ID.Hex(),
			TrainerID:    p.TrainerID.Hex(),
			Name:         p.Name,
			Description:  p.Description,
			DurationDays: p.DurationDays,
			Entries:      entries,
		},
		FetchedAt: entry.fetchedAt.Format(time.RFC3339),
	}
}

func (s programSnapshot) restore() (*domain.Program, time.Time, error) {
	id, err := primitive.ObjectIDFromHex(s.Program.ID)
	if err != nil {
		return nil, time.Time{}, err
	}
	trainerID, err := primitive.ObjectIDFromHex(s.Program.TrainerID)
	if err != nil {
		return nil, time.Time{}, err
	}
	fetchedAt, err := time.Parse(time.RFC3339, s.FetchedAt)
	if err != nil {
		return nil, time.Time{}, err
	}

	entries := make([]domain.ScheduledWorkoutEntry, len(s.Program.Entries))
	for i, e := range s.Program.Entries {
		templateID, err := primitive.ObjectIDFromHex(e.TemplateID)
		if err != nil {
			return nil, time.Time{}, err
		}
		entries[i] = domain.ScheduledWorkoutEntry{
			ProgramDay:   e.ProgramDay,
			TemplateID:   templateID,
			TemplateName: e.TemplateName,
			TrainerNotes: e.TrainerNotes,
			IsCompleted:  e.IsCompleted,
		}
		if e.CompletedDate != "" {
			completed, err := time.Parse(time.RFC3339, e.CompletedDate)
			if err != nil {
				return nil, time.Time{}, err
			}
			entries[i].CompletedDate = &completed
		}
	}

	return &domain.Program{
		ID:           id,
		TrainerID:    trainerID,
		Name:         s.Program.Name,
		Description:  s.Program.Description,
		DurationDays: s.Program.DurationDays,
		Entries:      entries,
	}, fetchedAt, nil
}

func newPortableTemplate(tpl *domain.WorkoutTemplate) portableTemplate {
	return portableTemplate{
		ID:                tpl.ID.Hex(),
		TrainerID:         tpl.TrainerID.Hex(),
		Name:              tpl.Name,
		Description:       tpl.Description,
		EstimatedDuration: tpl.EstimatedDuration,
		Exercises:         tpl.Exercises,
	}
}

func (s portableTemplate) restore() (*domain.WorkoutTemplate, error) {
	id, err := primitive.ObjectIDFromHex(s.ID)
	if err != nil {
		return nil, err
	}
	trainerID, err := primitive.ObjectIDFromHex(s.TrainerID)
	if err != nil {
		return nil, err
	}
	return &domain.WorkoutTemplate{
		ID:                id,
		TrainerID:         trainerID,
		Name:              s.Name,
		Description:       s.Description,
		EstimatedDuration: s.EstimatedDuration,
		Exercises:         s.Exercises,
	}, nil
}
