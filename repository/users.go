package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"notebook/model"
	"notebook/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const usersCollection = "users"

type UsersRepo struct {
	MongoCollection *mongo.Collection
}

func GetUsersRepo(db *mongo.Database) *UsersRepo {
	return &UsersRepo{
		MongoCollection: db.Collection(usersCollection),
	}
}

// AddUser inserts a new account. Emails are unique (see SetupIndexes).
func (r *UsersRepo) AddUser(ctx context.Context, user *model.User) error {
	timer := utils.TrackStoreOperation("insert", "users")
	defer timer.ObserveDuration()

	if user.Email == "" || user.PasswordHash == "" {
		return errors.New("email and password required")
	}
	user.Email = normalizeEmail(user.Email)

	if _, err := r.MongoCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return utils.TrackStoreError("insert", "users", fmt.Errorf("failed to add user: %w", err))
	}
	return nil
}

func (r *UsersRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	timer := utils.TrackStoreOperation("find", "users")
	defer timer.ObserveDuration()

	var user model.User
	err := r.MongoCollection.FindOne(ctx, bson.D{{Key: "email", Value: normalizeEmail(email)}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, utils.TrackStoreError("find", "users", fmt.Errorf("failed to find user: %w", err))
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
