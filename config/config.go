package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"notebook/utils"

	"github.com/joho/godotenv"
)

const (
	ModeShared = "shared"
	ModeAuth   = "auth"

	BackendMongo = "mongo"
	BackendLocal = "local"
)

type DatabaseConfig struct {
	URI             string
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
	DatabaseName    string
	ConnectTimeout  time.Duration
}

type AuthConfig struct {
	JWTSecretKey      string
	JWTExpirationTime time.Duration
}

// Config is the whole client configuration, read once by main.
type Config struct {
	Mode           string
	StorageBackend string
	Database       DatabaseConfig
	RedisURL       string
	Auth           AuthConfig

	HTTPAddr      string
	PublicBaseURL string
	DataDir       string

	CascadeImageDelete   bool
	NotificationsEnabled bool
	CameraCommand        string
	ReminderPollInterval time.Duration

	LogLevel slog.Level
	LogFile  string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	httpAddr := utils.GetEnvAsString("HTTP_ADDR", "127.0.0.1:8089")
	cfg := &Config{
		Mode:           strings.ToLower(utils.GetEnvAsString("NOTEBOOK_MODE", ModeShared)),
		StorageBackend: strings.ToLower(utils.GetEnvAsString("STORAGE_BACKEND", BackendMongo)),
		Database: DatabaseConfig{
			URI:             utils.GetEnvAsString("MONGO_URI", "mongodb://localhost:27017"),
			MaxPoolSize:     utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 100),
			MinPoolSize:     utils.GetEnvAsUint64("MONGO_MIN_POOL_SIZE", 0),
			MaxConnIdleTime: utils.GetEnvAsDuration("MONGO_MAX_CONN_IDLE_TIME", 60*time.Second),
			DatabaseName:    utils.GetEnvAsString("MONGO_DB", "notebook"),
			ConnectTimeout:  utils.GetEnvAsDuration("MONGO_CONNECT_TIMEOUT", 5*time.Second),
		},
		RedisURL: utils.GetEnvAsString("REDIS_URL", ""),
		Auth: AuthConfig{
			JWTSecretKey:      utils.GetEnvAsString("JWT_SECRET_KEY", ""),
			JWTExpirationTime: utils.GetEnvAsDuration("JWT_EXPIRATION_TIME", 24*time.Hour),
		},
		HTTPAddr:             httpAddr,
		PublicBaseURL:        strings.TrimRight(utils.GetEnvAsString("PUBLIC_BASE_URL", "http://"+httpAddr), "/"),
		DataDir:              utils.GetEnvAsString("DATA_DIR", defaultDataDir()),
		CascadeImageDelete:   utils.GetEnvAsBool("CASCADE_IMAGE_DELETE", false),
		NotificationsEnabled: utils.GetEnvAsBool("NOTIFICATIONS_ENABLED", true),
		CameraCommand:        utils.GetEnvAsString("CAMERA_COMMAND", ""),
		ReminderPollInterval: utils.GetEnvAsDuration("REMINDER_POLL_INTERVAL", time.Second),
		LogFile:              utils.GetEnvAsString("LOG_FILE", "notebook.log"),
	}

	level, err := parseLevel(utils.GetEnvAsString("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the client cannot run with.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeShared, ModeAuth:
	default:
		return fmt.Errorf("NOTEBOOK_MODE must be %q or %q, got %q", ModeShared, ModeAuth, c.Mode)
	}
	switch c.StorageBackend {
	case BackendMongo, BackendLocal:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendMongo, BackendLocal, c.StorageBackend)
	}
	if c.Mode == ModeAuth {
		if c.StorageBackend != BackendMongo {
			return errors.New("authenticated mode requires the mongo storage backend")
		}
		if c.Auth.JWTSecretKey == "" {
			return errors.New("JWT_SECRET_KEY must be set in authenticated mode")
		}
	}
	if c.ReminderPollInterval <= 0 {
		return errors.New("REMINDER_POLL_INTERVAL must be positive")
	}
	if c.DataDir == "" {
		return errors.New("DATA_DIR must not be empty")
	}
	return nil
}

// Authenticated reports whether sign-in is required before the notes screen.
func (c *Config) Authenticated() bool {
	return c.Mode == ModeAuth
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "notebook"
	}
	return ".notebook"
}
