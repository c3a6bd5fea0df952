package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upload stores metadata about a workout session video uploaded by a client,
// linked from a CompletionRecord. The actual file resides in S3.
type Upload struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID     primitive.ObjectID `bson:"clientId" json:"clientId"`
	TrainerID    primitive.ObjectID `bson:"trainerId" json:"trainerId"` // Denormalized for trainer queries
	OccurrenceID string             `bson:"occurrenceId" json:"occurrenceId"`
	S3ObjectKey  string             `bson:"s3ObjectKey" json:"-"` // Internal use only
	FileName     string             `bson:"fileName" json:"fileName"`
	ContentType  string             `bson:"contentType" json:"contentType"`
	Size         int64              `bson:"size" json:"size"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}
