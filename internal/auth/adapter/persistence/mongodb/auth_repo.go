package mongodb

import (
	"context"
	"errors"
	"time"

	"projectgoat/internal/auth/domain/model"
	apperrors "projectgoat/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuthRepository implements the AuthRepository interface using MongoDB.
// Sessions live in a durable collection so a process restart does not force
// the whole team to log in again.
type MongoAuthRepository struct {
	db                 *mongo.Database
	usersCollection    *mongo.Collection
	sessionsCollection *mongo.Collection
	attemptsCollection *mongo.Collection
}

// NewMongoAuthRepository creates a new MongoDB auth repository and ensures
// its indexes.
func NewMongoAuthRepository(db *mongo.Database) (*MongoAuthRepository, error) {
	repo := &MongoAuthRepository{
		db:                 db,
		usersCollection:    db.Collection("users"),
		sessionsCollection: db.Collection("sessions"),
		attemptsCollection: db.Collection("login_attempts"),
	}

	ctx := context.Background()

	// Unique email index for users
	emailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := repo.usersCollection.Indexes().CreateOne(ctx, emailIndex); err != nil {
		return nil, err
	}

	// User index for sessions (invalidate-all-for-user)
	userIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}},
	}
	if _, err := repo.sessionsCollection.Indexes().CreateOne(ctx, userIndex); err != nil {
		return nil, err
	}

	// TTL index prunes rows past their absolute expiry. Validity is always
	// recomputed from the stored timestamps; this only keeps the collection
	// from growing without bound.
	expiryIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "absolute_expiry_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	if _, err := repo.sessionsCollection.Indexes().CreateOne(ctx, expiryIndex); err != nil {
		return nil, err
	}

	// Window queries scan (email, attempted_at)
	attemptIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}, {Key: "attempted_at", Value: -1}},
	}
	if _, err := repo.attemptsCollection.Indexes().CreateOne(ctx, attemptIndex); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateUser creates a new user in the database
func (r *MongoAuthRepository) CreateUser(ctx context.Context, user *model.User) error {
	_, err := r.usersCollection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrEmailTaken
		}
		return err
	}
	return nil
}

// GetUserByEmail retrieves a user by email
func (r *MongoAuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.usersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *MongoAuthRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.usersCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser replaces the user's mutable profile fields
func (r *MongoAuthRepository) UpdateUser(ctx context.Context, user *model.User) error {
	update := bson.M{"$set": bson.M{
		"name":         user.Name,
		"avatar":       user.Avatar,
		"availability": user.Availability,
		"updated_at":   user.UpdatedAt,
	}}
	result, err := r.usersCollection.UpdateOne(ctx, bson.M{"_id": user.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdatePassword stores the new hash and the change timestamp
func (r *MongoAuthRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	update := bson.M{"$set": bson.M{
		"password_hash":       passwordHash,
		"password_changed_at": changedAt,
		"updated_at":          changedAt,
	}}
	result, err := r.usersCollection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin records the latest successful login time
func (r *MongoAuthRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	_, err := r.usersCollection.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_login_at": at}})
	return err
}

// CreateSession creates a new session
func (r *MongoAuthRepository) CreateSession(ctx context.Context, session *model.Session) error {
	_, err := r.sessionsCollection.InsertOne(ctx, session)
	return err
}

// GetSessionByID retrieves a session by ID
func (r *MongoAuthRepository) GetSessionByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.sessionsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// TouchSession sets the session's last activity timestamp. A zero match
// count means the row vanished, usually a concurrent logout.
func (r *MongoAuthRepository) TouchSession(ctx context.Context, id string, at time.Time) error {
	result, err := r.sessionsCollection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_activity_at": at}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// UpdateSessionCSRF replaces the session's CSRF token
func (r *MongoAuthRepository) UpdateSessionCSRF(ctx context.Context, id, csrfToken string) error {
	result, err := r.sessionsCollection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"csrf_token": csrfToken}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// DeleteSession deletes a session by ID
func (r *MongoAuthRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.sessionsCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return apperrors.ErrSessionNotFound
	}
	return nil
}

// DeleteUserSessions removes all sessions for a user except the given one
func (r *MongoAuthRepository) DeleteUserSessions(ctx context.Context, userID, exceptSessionID string) error {
	filter := bson.M{"user_id": userID}
	if exceptSessionID != "" {
		filter["_id"] = bson.M{"$ne": exceptSessionID}
	}
	_, err := r.sessionsCollection.DeleteMany(ctx, filter)
	return err
}

// RecordLoginAttempt appends a login attempt
func (r *MongoAuthRepository) RecordLoginAttempt(ctx context.Context, attempt *model.LoginAttempt) error {
	_, err := r.attemptsCollection.InsertOne(ctx, attempt)
	return err
}

// RecentFailures returns failed-attempt timestamps strictly after since,
// most recent first. Strict comparison makes attempts exactly one window
// old roll off.
func (r *MongoAuthRepository) RecentFailures(ctx context.Context, email string, since time.Time) ([]time.Time, error) {
	filter := bson.M{
		"email":        email,
		"success":      false,
		"attempted_at": bson.M{"$gt": since},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "attempted_at", Value: -1}}).
		SetProjection(bson.M{"attempted_at": 1})

	cursor, err := r.attemptsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var timestamps []time.Time
	for cursor.Next(ctx) {
		var doc struct {
			AttemptedAt time.Time `bson:"attempted_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		timestamps = append(timestamps, doc.AttemptedAt)
	}
	return timestamps, cursor.Err()
}

// ClearFailedAttempts deletes failed attempts for an email after a
// successful login
func (r *MongoAuthRepository) ClearFailedAttempts(ctx context.Context, email string) error {
	_, err := r.attemptsCollection.DeleteMany(ctx, bson.M{"email": email, "success": false})
	return err
}

// DeleteAttemptsBefore prunes attempts older than the cutoff
func (r *MongoAuthRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.attemptsCollection.DeleteMany(ctx, bson.M{"attempted_at": bson.M{"$lt": cutoff}})
	return err
}
