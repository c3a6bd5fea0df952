package mongo

import (
	"context"
	"errors"

	"fitcoach/fitness-app/internal/domain"
	"fitcoach/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const completionCollectionName = "completions"

// mongoCompletionRepository implements repository.CompletionRepository using MongoDB.
type mongoCompletionRepository struct {
	collection *mongo.Collection
}

// NewMongoCompletionRepository creates a new instance of mongoCompletionRepository.
func NewMongoCompletionRepository(db *mongo.Database) repository.CompletionRepository {
	return &mongoCompletionRepository{
		collection: db.Collection(completionCollectionName),
	}
}

// Upsert replaces the record stored under its occurrence id, inserting when
// absent. Re-completing the same occurrence overwrites, never duplicates.
func (r *mongoCompletionRepository) Upsert(ctx context.Context, record *domain.CompletionRecord) error {
	if record.ID == "" {
		return errors.New("completion record requires an occurrence id")
	}

	filter := bson.M{"_id": record.ID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, record, opts)
	return err
}

// GetByID retrieves a completion record by occurrence id.
func (r *mongoCompletionRepository) GetByID(ctx context.Context, occurrenceID string) (*domain.CompletionRecord, error) {
	var record domain.CompletionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": occurrenceID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// GetByClientID retrieves a client's completion history, newest first.
func (r *mongoCompletionRepository) GetByClientID(ctx context.Context, clientID primitive.ObjectID, limit int64) ([]domain.CompletionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"clientId": clientID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []domain.CompletionRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureCompletionIndexes creates necessary indexes for the completions collection.
func EnsureCompletionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "completedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
