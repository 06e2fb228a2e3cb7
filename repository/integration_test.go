package repository

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"notebook/model"
	"notebook/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// These tests talk to real services and are skipped unless TEST_MONGO_URI
// (a replica set, for change streams) or TEST_REDIS_URL is set.

func setupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := utils.NewMongoClient(ctx, utils.MongoOptions{URI: uri})
	require.NoError(t, err)

	db := client.Database("notebook_test_" + uuid.New().String()[:8])
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("Warning: failed to drop test database: %v", err)
		}
		_ = client.Disconnect(ctx)
	})
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotesRepoCRUDAndSubscribe(t *testing.T) {
	db := setupTestDB(t)
	repo := GetNotesRepo(db, testLogger())
	scope := model.Scope{UserID: "user-" + uuid.New().String()[:8]}
	require.NoError(t, SetupIndexes(context.Background(), db, scope))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := repo.Subscribe(ctx, scope)
	require.NoError(t, err)
	assert.Empty(t, next(t, updates))

	id, err := repo.Create(ctx, scope, "Buy milk")
	require.NoError(t, err)
	snap := next(t, updates)
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, scope.UserID, snap[0].UserID)

	require.NoError(t, repo.Update(ctx, scope, id, "Buy oat milk"))
	assert.Equal(t, "Buy oat milk", next(t, updates)[0].Text)

	require.NoError(t, repo.Delete(ctx, scope, id))
	assert.Empty(t, next(t, updates))

	assert.ErrorIs(t, repo.Delete(ctx, scope, id), ErrNoteNotFound)
	assert.ErrorIs(t, repo.Update(ctx, scope, "not-an-object-id", "x"), ErrNoteNotFound)

	shared, err := repo.List(ctx, model.Scope{})
	require.NoError(t, err)
	assert.Empty(t, shared, "per-user writes must not leak into the shared collection")
}

func TestImagesRepoUploadListDelete(t *testing.T) {
	db := setupTestDB(t)
	repo, err := GetImagesRepo(db, "http://localhost:8089", testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := repo.Upload(ctx, "note-a", []byte("first"))
	require.NoError(t, err)
	second, err := repo.Upload(ctx, "note-a", []byte("second"))
	require.NoError(t, err)
	other, err := repo.Upload(ctx, "note-b", []byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	locs, err := repo.List(ctx, "note-a")
	require.NoError(t, err)
	assert.Equal(t, []model.Locator{first, second}, locs)

	url, err := repo.Resolve(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8089/images/"+first.String(), url)

	rc, err := repo.Open(ctx, second)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "second", string(data))

	require.NoError(t, repo.Delete(ctx, first))
	assert.ErrorIs(t, repo.Delete(ctx, first), ErrImageNotFound)

	locs, err = repo.List(ctx, "note-a")
	require.NoError(t, err)
	assert.Equal(t, []model.Locator{second}, locs)

	locs, err = repo.List(ctx, "note-b")
	require.NoError(t, err)
	assert.Equal(t, []model.Locator{other}, locs)
}

func TestUsersRepoUniqueEmail(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, SetupIndexes(context.Background(), db, model.Scope{}))
	repo := GetUsersRepo(db)
	ctx := context.Background()

	user := &model.User{UserID: uuid.New().String(), Email: "Ada@Example.com", PasswordHash: "salt$hash", CreatedAt: time.Now()}
	require.NoError(t, repo.AddUser(ctx, user))

	dup := &model.User{UserID: uuid.New().String(), Email: "ada@example.com", PasswordHash: "salt$hash"}
	assert.ErrorIs(t, repo.AddUser(ctx, dup), ErrUserExists)

	found, err := repo.FindUserByEmail(ctx, " ADA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, found.UserID)

	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRemindersRepoClaimDue(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Del(ctx, reminderQueueKey).Err())
	repo := GetRemindersRepo(client)

	now := time.Now()
	due := model.Reminder{ID: uuid.New().String(), When: now.Add(-time.Minute), Title: "t", Body: "due"}
	later := model.Reminder{ID: uuid.New().String(), When: now.Add(time.Hour), Title: "t", Body: "later"}
	require.NoError(t, repo.Add(ctx, due))
	require.NoError(t, repo.Add(ctx, later))

	claimed, err := repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "due", claimed[0].Body)

	claimed, err = repo.ClaimDue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, claimed, "a reminder is claimed once")

	require.NoError(t, repo.Remove(ctx, later.ID))
	assert.ErrorIs(t, repo.Remove(ctx, later.ID), ErrReminderNotFound)
}

func next(t *testing.T, updates <-chan []model.Note) []model.Note {
	t.Helper()
	select {
	case snap, ok := <-updates:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}
