package domain

import "time"

// AssignmentStatus tracks the state of a resolved workout occurrence.
// "skipped" is always derived at read time from (date, now, completion
// existence); it is never stored.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusCompleted AssignmentStatus = "completed"
	StatusSkipped   AssignmentStatus = "skipped"
)

// WorkoutAssignment is the fully materialized workout a client owes on a
// calendar date. It is ephemeral and computed by the resolver; only its
// completion side effects are ever persisted.
type WorkoutAssignment struct {
	Title             string             `json:"title"`
	Description       string             `json:"description,omitempty"`
	Date              time.Time          `json:"date"`
	ProgramDay        int                `json:"programDay"`
	Status            AssignmentStatus   `json:"status"`
	Exercises         []ResolvedExercise `json:"exercises"`
	EstimatedDuration int                `json:"estimatedDurationMinutes"`
	TrainerNotes      string             `json:"trainerNotes,omitempty"`
	OccurrenceID      string             `json:"occurrenceId"`
}

// ResolvedExercise is an exercise spec materialized from the workout template.
type ResolvedExercise struct {
	Title           string       `json:"title"`
	ExerciseType    ExerciseType `json:"exerciseType"`
	Sets            int          `json:"sets"`
	Reps            int          `json:"reps,omitempty"`
	DurationSeconds int          `json:"durationSeconds,omitempty"`
	RestSeconds     int          `json:"restSeconds,omitempty"`
	Tips            string       `json:"tips,omitempty"`
}
