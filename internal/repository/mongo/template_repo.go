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

const templateCollectionName = "workout_templates"

// mongoTemplateRepository implements repository.TemplateRepository using MongoDB.
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new instance of mongoTemplateRepository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// Create inserts a new workout template.
func (r *mongoTemplateRepository) Create(ctx context.Context, template *domain.WorkoutTemplate) (primitive.ObjectID, error) {
	if template.Name == "" {
		return primitive.NilObjectID, errors.New("template name is required")
	}

	template.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a workout template by its ObjectID.
func (r *mongoTemplateRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	var template domain.WorkoutTemplate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

// GetByTrainerID retrieves all templates authored by a trainer.
func (r *mongoTemplateRepository) GetByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.WorkoutTemplate, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"trainerId": trainerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []domain.WorkoutTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// EnsureTemplateIndexes creates necessary indexes for the templates collection.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
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
