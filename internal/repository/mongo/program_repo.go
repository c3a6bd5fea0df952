package mongo

import (
	"context"
	"errors"
	"time"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const programCollectionName = "programs"

// mongoProgramRepository implements repository.ProgramRepository using MongoDB.
type mongoProgramRepository struct {
	collection *mongo.Collection
}

// NewMongoProgramRepository creates a new instance of mongoProgramRepository.
func NewMongoProgramRepository(db *mongo.Database) repository.ProgramRepository {
	return &mongoProgramRepository{
		collection: db.Collection(programCollectionName),
	}
}

// Create inserts a new program document.
func (r *mongoProgramRepository) Create(ctx context.Context, program *domain.Program) (primitive.ObjectID, error) {
	if program.Name == "" || program.DurationDays <= 0 {
		return primitive.NilObjectID, errors.New("program name and positive duration are required")
	}

	program.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	program.CreatedAt = now
	program.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, program)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a program by its ObjectID.
func (r *mongoProgramRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Program, error) {
	var program domain.Program
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&program)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &program, nil
}

// GetByTrainerID retrieves all programs authored by a trainer.
func (r *mongoProgramRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.Program, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var programs []domain.Program
	if err = cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// MarkEntryCompleted mirrors the completion flags onto the scheduled entry
// for the given program day. Uses an array filter so only the matching entry
// is touched.
func (r *mongoProgramRepository) MarkEntryCompleted(ctx context.Context, programID primitive.ObjectID, programDay int, completedAt time.Time) error {
	filter := bson.M{"_id": programID}
	update := bson.M{
		"$set": bson.M{
			"entries.$[e].isCompleted":   true,
			"entries.$[e].completedDate": completedAt,
			"updatedAt":                  time.Now().UTC(),
		},
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"e.programDay": programDay}},
	})

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProgramIndexes creates necessary indexes for the programs collection.
func EnsureProgramIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
