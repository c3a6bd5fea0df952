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

const noticeCollectionName = "notices"

// mongoNoticeRepository implements repository.NoticeRepository using MongoDB.
type mongoNoticeRepository struct {
	collection *mongo.Collection
}

// NewMongoNoticeRepository creates a new instance of mongoNoticeRepository.
func NewMongoNoticeRepository(db *mongo.Database) repository.NoticeRepository {
	return &mongoNoticeRepository{
		collection: db.Collection(noticeCollectionName),
	}
}

// Create inserts a new notice.
func (r *mongoNoticeRepository) Create(ctx context.Context, notice *domain.Notice) (primitive.ObjectID, error) {
	if notice.TrainerID == primitive.NilObjectID || notice.Kind == "" {
		return primitive.NilObjectID, errors.New("notice trainer id and kind are required")
	}

	notice.ID = primitive.NewObjectID()
	notice.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, notice)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ExistsForOccurrence reports whether a missed-workout notice already exists
// for the given occurrence id.
func (r *mongoNoticeRepository) ExistsForOccurrence(ctx context.Context, occurrenceID string) (bool, error) {
	filter := bson.M{
		"kind":         domain.NoticeMissedWorkout,
		"occurrenceId": occurrenceID,
	}
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByTrainerID retrieves a trainer's notices, newest first.
func (r *mongoNoticeRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID, limit int64) ([]domain.Notice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notices []domain.Notice
	if err = cursor.All(ctx, &notices); err != nil {
		return nil, err
	}
	return notices, nil
}

// EnsureNoticeIndexes creates necessary indexes for the notices collection.
func EnsureNoticeIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Dedup lookup for missed-workout notices.
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "occurrenceId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
