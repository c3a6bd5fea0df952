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

const uploadCollectionName = "uploads"

// mongoUploadRepository implements repository.UploadRepository using MongoDB.
type mongoUploadRepository struct {
	collection *mongo.Collection
}

// NewMongoUploadRepository creates a new instance of mongoUploadRepository.
func NewMongoUploadRepository(db *mongo.Database) repository.UploadRepository {
	return &mongoUploadRepository{
		collection: db.Collection(uploadCollectionName),
	}
}

// Create inserts upload metadata after the client has pushed the file to S3.
func (r *mongoUploadRepository) Create(ctx context.Context, upload *domain.Upload) (primitive.ObjectID, error) {
	if upload.S3ObjectKey == "" {
		return primitive.NilObjectID, errors.New("upload object key is required")
	}

	upload.ID = primitive.NewObjectID()
	upload.UploadedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, upload)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves upload metadata by its ObjectID.
func (r *mongoUploadRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Upload, error) {
	var upload domain.Upload
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&upload)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// EnsureUploadIndexes creates necessary indexes for the uploads collection.
func EnsureUploadIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "occurrenceId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Non-fatal.
	}
}
