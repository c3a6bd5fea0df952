package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// occurrenceNamespace seeds deterministic occurrence ids. Changing it would
// orphan every existing completion record.
var occurrenceNamespace = uuid.MustParse("9f2c1c7e-4b7a-4f0e-8a6d-3d5b1e2a9c40")

// OccurrenceID derives the deterministic identifier of a single workout
// occurrence from its title and calendar day. Repeated resolution of the same
// day yields the same id, which is what makes completion upserts and missed
// notice dedup idempotent.
func OccurrenceID(workoutTitle string, date time.Time) string {
	day := DayStart(date)
	name := fmt.Sprintf("%s|%s", workoutTitle, day.Format("2006-01-02"))
	return uuid.NewSHA1(occurrenceNamespace, []byte(name)).String()
}

// CompletionRecord persists a client's completion of one workout occurrence.
// Keyed by the deterministic occurrence id, so re-completing the same calendar
// day overwrites rather than duplicates.
type CompletionRecord struct {
	ID                 string              `bson:"_id" json:"id"` // occurrence id
	ClientID           primitive.ObjectID  `bson:"clientId" json:"clientId"`
	WorkoutTitle       string              `bson:"workoutTitle" json:"workoutTitle"`
	Date               time.Time           `bson:"date" json:"date"` // day start of the occurrence
	Rating             int                 `bson:"rating" json:"rating"`
	Notes              string              `bson:"notes,omitempty" json:"notes,omitempty"`
	ActualDuration     int                 `bson:"actualDurationSeconds,omitempty" json:"actualDurationSeconds,omitempty"`
	SkippedExercises   []int               `bson:"skippedExercises,omitempty" json:"skippedExercises,omitempty"`
	CompletedExercises []int               `bson:"completedExercises,omitempty" json:"completedExercises,omitempty"`
	FeedbackSummary    string              `bson:"feedbackSummary,omitempty" json:"feedbackSummary,omitempty"`
	UploadID           *primitive.ObjectID `bson:"uploadId,omitempty" json:"uploadId,omitempty"`
	CompletedAt        time.Time           `bson:"completedAt" json:"completedAt"`
}
