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

const userCollectionName = "users"

// currentSlotFields / nextSlotFields are the document fields making up each
// plan queue slot. Clearing a slot $unsets all four.
var (
	currentSlotFields = []string{"currentPlanId", "currentPlanStart", "currentPlanEnd", "currentPlanStartDay"}
	nextSlotFields    = []string{"nextPlanId", "nextPlanStart", "nextPlanEnd", "nextPlanStartDay"}
)

// mongoUserRepository implements the repository.UserRepository interface using MongoDB.
type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new instance of mongoUserRepository.
// It expects a connected *mongo.Database instance.
func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Create inserts a new user into the database.
func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, errors.New("user with this email already exists")
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByEmail retrieves a user by their email address.
func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"email": email}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by their MongoDB ObjectID.
func (r *mongoUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	var user domain.User
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddClientIDToTrainer adds a client's ID to a trainer's ClientIDs array.
func (r *mongoUserRepository) AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	filter := bson.M{"_id": trainerID, "role": domain.RoleTrainer}
	update := bson.M{
		"$addToSet": bson.M{"clientIds": clientID}, // $addToSet prevents duplicates
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetTrainerForClient sets the TrainerID field for a specific client user.
func (r *mongoUserRepository) SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error {
	filter := bson.M{"_id": clientID, "role": domain.RoleClient}
	update := bson.M{
		"$set": bson.M{
			"trainerId": trainerID,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetClientsByTrainerID retrieves all client users associated with a specific trainer.
func (r *mongoUserRepository) GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	trainer, err := r.GetByID(ctx, trainerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errors.New("trainer not found")
		}
		return nil, err
	}

	if !trainer.IsTrainer() {
		return nil, errors.New("user is not a trainer")
	}

	if len(trainer.ClientIDs) == 0 {
		return []domain.User{}, nil
	}

	var clients []domain.User
	filter := bson.M{"_id": bson.M{"$in": trainer.ClientIDs}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}

	return clients, nil
}

// SetCurrentPlan writes the current plan slot, optionally clearing the next
// slot in the same single-document write (the replace-current case).
func (r *mongoUserRepository) SetCurrentPlan(ctx context.Context, clientID primitive.ObjectID, slot repository.PlanSlot, clearNext bool) error {
	update := bson.M{
		"$set": bson.M{
			"currentPlanId":       slot.PlanID,
			"currentPlanStart":    slot.Start,
			"currentPlanEnd":      slot.End,
			"currentPlanStartDay": slot.StartDay,
			"updatedAt":           time.Now().UTC(),
		},
	}
	if clearNext {
		update["$unset"] = unsetFields(nextSlotFields)
	}
	return r.updateClient(ctx, clientID, update)
}

// SetNextPlan writes the next plan slot.
func (r *mongoUserRepository) SetNextPlan(ctx context.Context, clientID primitive.ObjectID, slot repository.PlanSlot) error {
	update := bson.M{
		"$set": bson.M{
			"nextPlanId":       slot.PlanID,
			"nextPlanStart":    slot.Start,
			"nextPlanEnd":      slot.End,
			"nextPlanStartDay": slot.StartDay,
			"updatedAt":        time.Now().UTC(),
		},
	}
	return r.updateClient(ctx, clientID, update)
}

// ClearCurrentPlan deletes the current slot's fields (field removal, not null).
func (r *mongoUserRepository) ClearCurrentPlan(ctx context.Context, clientID primitive.ObjectID) error {
	update := bson.M{
		"$unset": unsetFields(currentSlotFields),
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.updateClient(ctx, clientID, update)
}

// ClearNextPlan deletes the next slot's fields.
func (r *mongoUserRepository) ClearNextPlan(ctx context.Context, clientID primitive.ObjectID) error {
	update := bson.M{
		"$unset": unsetFields(nextSlotFields),
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}
	return r.updateClient(ctx, clientID, update)
}

// ListClientsWithQueuedPlan returns clients whose next plan slot is occupied.
func (r *mongoUserRepository) ListClientsWithQueuedPlan(ctx context.Context) ([]domain.User, error) {
	filter := bson.M{
		"role":       domain.RoleClient,
		"nextPlanId": bson.M{"$exists": true},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var clients []domain.User
	if err = cursor.All(ctx, &clients); err != nil {
		return nil, err
	}
	return clients, nil
}

// RecordWorkoutActivity bumps the lifetime completed counter atomically and
// stamps the activity timestamps.
func (r *mongoUserRepository) RecordWorkoutActivity(ctx context.Context, clientID primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$inc": bson.M{"totalWorkoutsCompleted": 1},
		"$set": bson.M{
			"lastWorkoutAt":  at,
			"lastActivityAt": at,
			"updatedAt":      time.Now().UTC(),
		},
	}
	return r.updateClient(ctx, clientID, update)
}

func (r *mongoUserRepository) updateClient(ctx context.Context, clientID primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": clientID, "role": domain.RoleClient}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func unsetFields(fields []string) bson.M {
	u := bson.M{}
	for _, f := range fields {
		u[f] = ""
	}
	return u
}

// EnsureUserIndexes creates necessary indexes for the users collection.
// Call this once during application startup.
func EnsureUserIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			// For the promotion sweep over queued plans.
			Keys:    bson.D{{Key: "nextPlanId", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Index creation failure is not fatal at startup.
	}
}
