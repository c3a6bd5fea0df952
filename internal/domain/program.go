package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Program is an ordered multi-day workout schedule authored by a trainer.
// Read-only to the scheduling engine except for the denormalized completion
// flags mirrored onto entries after a client completes a workout.
type Program struct {
	ID           primitive.ObjectID      `bson:"_id,omitempty" json:"id"`
	TrainerID    primitive.ObjectID      `bson:"trainerId" json:"trainerId"`
	Name         string                  `bson:"name" json:"name"`
	Description  string                  `bson:"description,omitempty" json:"description,omitempty"`
	DurationDays int                     `bson:"durationDays" json:"durationDays"`
	Entries      []ScheduledWorkoutEntry `bson:"entries" json:"entries"`
	CreatedAt    time.Time               `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time               `bson:"updatedAt" json:"updatedAt"`
}

// ScheduledWorkoutEntry places a workout template on a specific program day.
// ProgramDay is 1-indexed and unique within a program; days without an entry
// are rest days.
type ScheduledWorkoutEntry struct {
	ProgramDay   int                `bson:"programDay" json:"programDay"`
	TemplateID   primitive.ObjectID `bson:"templateId" json:"templateId"`
	TemplateName string             `bson:"templateName" json:"templateName"`
	TrainerNotes string             `bson:"trainerNotes,omitempty" json:"trainerNotes,omitempty"`

	// Denormalized convenience flags, mirrored best-effort on completion.
	IsCompleted   bool       `bson:"isCompleted,omitempty" json:"isCompleted,omitempty"`
	CompletedDate *time.Time `bson:"completedDate,omitempty" json:"completedDate,omitempty"`
}

// EntryForDay returns the scheduled entry for the given program day, or nil
// when that day is a rest day.
func (p *Program) EntryForDay(programDay int) *ScheduledWorkoutEntry {
	for i := range p.Entries {
		if p.Entries[i].ProgramDay == programDay {
			return &p.Entries[i]
		}
	}
	return nil
}

// TemplateIDs returns the deduplicated set of template ids referenced by the
// program's entries, in first-seen order.
func (p *Program) TemplateIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(p.Entries))
	ids := make([]primitive.ObjectID, 0, len(p.Entries))
	for _, e := range p.Entries {
		if !seen[e.TemplateID] {
			seen[e.TemplateID] = true
			ids = append(ids, e.TemplateID)
		}
	}
	return ids
}
