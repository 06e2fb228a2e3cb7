package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"notebook/config"
	"notebook/handler"
	"notebook/model"
	"notebook/repository"
	"notebook/repository/local"
	"notebook/services"
	"notebook/usecase"
	"notebook/utils"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const redisPingTimeout = 3 * time.Second

// imageStore is what both the detail screen and the image route need.
type imageStore interface {
	usecase.ImageStore
	handler.ImageOpener
}

// Backend is the service-client context built once by main and handed to
// every adapter. Nothing in the program reaches for a global client.
type Backend struct {
	Kind      string
	Notes     usecase.NoteStore
	Images    imageStore
	Reminders services.ReminderQueue

	// Users and Blacklist are only set when Mongo and Redis are reachable.
	Users     *repository.UsersRepo
	Blacklist *services.TokenBlacklist

	mongo   *mongo.Client
	db      *mongo.Database
	redis   *redis.Client
	local   *local.NotesStore
	dataDir string
	logger  *slog.Logger
}

// OpenBackend connects the configured stores. An unreachable Mongo falls
// back to the local store unless accounts are required.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	b := &Backend{dataDir: cfg.DataDir, logger: logger.With("component", "backend")}

	if cfg.StorageBackend == config.BackendMongo {
		err := b.openMongo(ctx, cfg)
		switch {
		case err == nil:
		case cfg.Authenticated():
			return nil, err
		default:
			b.logger.Warn("mongo unreachable, using local store", "error", err)
		}
	}
	if b.mongo == nil {
		if err := b.openLocal(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.RedisURL != "" {
		if err := b.openRedis(ctx, cfg.RedisURL); err != nil {
			b.logger.Warn("redis unreachable, reminders kept in memory", "error", err)
		}
	}
	if b.Reminders == nil {
		b.Reminders = local.NewReminderQueue()
	}
	return b, nil
}

func (b *Backend) openMongo(ctx context.Context, cfg *config.Config) error {
	client, err := utils.NewMongoClient(ctx, utils.MongoOptions{
		URI:             cfg.Database.URI,
		MaxPoolSize:     cfg.Database.MaxPoolSize,
		MinPoolSize:     cfg.Database.MinPoolSize,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	})
	if err != nil {
		return err
	}
	db := client.Database(cfg.Database.DatabaseName)

	images, err := repository.GetImagesRepo(db, cfg.PublicBaseURL, b.logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	b.Kind = config.BackendMongo
	b.mongo = client
	b.db = db
	b.Notes = repository.GetNotesRepo(db, b.logger)
	b.Images = images
	b.Users = repository.GetUsersRepo(db)
	b.logger.Info("connected to mongo", "database", cfg.Database.DatabaseName)
	return nil
}

func (b *Backend) openLocal(cfg *config.Config) error {
	notes, err := local.NewNotesStore(filepath.Join(cfg.DataDir, "notes"), b.logger)
	if err != nil {
		return err
	}
	images, err := local.NewImagesStore(filepath.Join(cfg.DataDir, "images"), cfg.PublicBaseURL, b.logger)
	if err != nil {
		notes.Close()
		return err
	}

	b.Kind = config.BackendLocal
	b.local = notes
	b.Notes = notes
	b.Images = images
	b.logger.Info("using local store", "dir", cfg.DataDir)
	return nil
}

func (b *Backend) openRedis(ctx context.Context, url string) error {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	b.redis = client
	b.Reminders = repository.GetRemindersRepo(client)
	b.Blacklist = services.NewTokenBlacklist(client)
	return nil
}

// PrepareScope makes sure the collections a scope uses are indexed.
func (b *Backend) PrepareScope(ctx context.Context, scope model.Scope) error {
	if b.db == nil {
		return nil
	}
	return repository.SetupIndexes(ctx, b.db, scope)
}

// Ping reports whether the note store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if b.mongo != nil {
		return b.mongo.Ping(ctx, readpref.Primary())
	}
	if _, err := os.Stat(b.dataDir); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	if b.local != nil {
		errs = append(errs, b.local.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.mongo != nil {
		errs = append(errs, b.mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}
