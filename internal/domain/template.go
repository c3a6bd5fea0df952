package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseType distinguishes rep-counted from time-boxed exercises.
type ExerciseType string

const (
	ExerciseTypeReps     ExerciseType = "reps"
	ExerciseTypeDuration ExerciseType = "duration"
)

// WorkoutTemplate is a reusable workout definition referenced by program
// entries. Templates are immutable once published; the engine only reads them.
type WorkoutTemplate struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID         primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	Name              string             `bson:"name" json:"name"`
	Description       string             `bson:"description,omitempty" json:"description,omitempty"`
	EstimatedDuration int                `bson:"estimatedDurationMinutes" json:"estimatedDurationMinutes"`
	Exercises         []ExerciseSpec     `bson:"exercises" json:"exercises"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ExerciseSpec describes one exercise slot within a workout template.
type ExerciseSpec struct {
	Title           string       `bson:"title" json:"title"`
	ExerciseType    ExerciseType `bson:"exerciseType" json:"exerciseType"`
	Sets            int          `bson:"sets" json:"sets"`
	Reps            int          `bson:"reps,omitempty" json:"reps,omitempty"`
	DurationSeconds int          `bson:"durationSeconds,omitempty" json:"durationSeconds,omitempty"`
	RestSeconds     int          `bson:"restSeconds,omitempty" json:"restSeconds,omitempty"`
	Tips            string       `bson:"tips,omitempty" json:"tips,omitempty"`
}
