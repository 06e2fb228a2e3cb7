package repository

import (
	"context"
	"fmt"
	"time"

	"notebook/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetupIndexes creates the indexes the client relies on: unique user
// emails, ordered notes for the scope, and unique image filenames so a
// locator can never address two files.
func SetupIndexes(ctx context.Context, db *mongo.Database, scope model.Scope) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("unique_email").SetUnique(true),
		},
	}
	noteIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("notes_created"),
		},
	}
	imageIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "filename", Value: 1}},
			Options: options.Index().SetName("unique_locator").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "metadata.note_id", Value: 1}, {Key: "filename", Value: 1}},
			Options: options.Index().SetName("note_images"),
		},
	}

	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}
	if _, err := db.Collection(scope.Collection()).Indexes().CreateMany(ctx, noteIndexes); err != nil {
		return fmt.Errorf("failed to create notes indexes: %w", err)
	}
	if _, err := db.Collection(imagesBucket+".files").Indexes().CreateMany(ctx, imageIndexes); err != nil {
		return fmt.Errorf("failed to create images indexes: %w", err)
	}
	return nil
}
