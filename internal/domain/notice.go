package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoticeKind distinguishes the data-only notices the engine produces.
// Actual delivery (push etc.) is an external collaborator's job.
type NoticeKind string

const (
	NoticeWorkoutFeedback NoticeKind = "workout_feedback"
	NoticeMissedWorkout   NoticeKind = "missed_workout"
)

// Notice is a message addressed to a trainer about one of their clients.
type Notice struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	Kind      NoticeKind         `bson:"kind" json:"kind"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body,omitempty" json:"body,omitempty"`

	// OccurrenceID is set for missed-workout notices and deduplicates them
	// across repeated detection runs.
	OccurrenceID string `bson:"occurrenceId,omitempty" json:"occurrenceId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
