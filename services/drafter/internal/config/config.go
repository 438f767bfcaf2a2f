package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"leasemail/pkg/ai"
	"leasemail/pkg/auth"
	"leasemail/pkg/domain"
	"leasemail/pkg/store"
)

// ConfigPath is the default config location; DRAFTER_CONFIG overrides it.
var ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	Storage StorageConfig `yaml:"storage"`

	GenerationProvider string `yaml:"generationProvider"`
	GenerationBaseURL  string `yaml:"generationBaseURL"`
	GenerationAPIKey   string `yaml:"generationAPIKey"`
	GenerationModel    string `yaml:"generationModel"`
	GenerationTimeout  string `yaml:"generationTimeout"`

	SessionSecret string `yaml:"sessionSecret"`
	SessionTTL    string `yaml:"sessionTTL"`

	Members map[string]string `yaml:"members"`
	Sender  domain.Sender     `yaml:"sender"`

	Archive ArchiveConfig `yaml:"archive"`
	Events  EventsConfig  `yaml:"events"`

	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
}

// StorageConfig selects the contact and conversation backend.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"dataDir"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`
}

// ArchiveConfig configures where completed drafts are copied. Empty backend disables it.
type ArchiveConfig struct {
	Backend        string `yaml:"backend"`
	Dir            string `yaml:"dir"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
}

// EventsConfig selects where draft.generated events go. Empty backend disables them.
type EventsConfig struct {
	Backend       string `yaml:"backend"`
	AMQPURL       string `yaml:"amqpURL"`
	AMQPExchange  string `yaml:"amqpExchange"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	Stream        string `yaml:"stream"`
}

const (
	EventsNone  = ""
	EventsAMQP  = "amqp"
	EventsRedis = "redis"
)

const (
	ArchiveNone  = ""
	ArchiveFile  = "file"
	ArchiveMinio = "minio"
)

// ResolvePath returns DRAFTER_CONFIG when set, else ConfigPath.
func ResolvePath() string {
	if v := strings.TrimSpace(os.Getenv("DRAFTER_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to ResolvePath). A .env file next to
// the working directory is loaded first; existing environment wins over it.
// A missing YAML file is allowed so the service can run on env alone.
func Load(path string) (FileConfig, error) {
	_ = godotenv.Load()
	cfg := FileConfig{}
	if path == "" {
		path = ResolvePath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	// Override with environment variables
	setString(&cfg.Port, "DRAFTER_PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Storage.Backend, "DRAFTER_STORAGE")
	setString(&cfg.Storage.DataDir, "DRAFTER_DATA_DIR")
	setString(&cfg.Storage.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Storage.RedisAddr, "REDIS_ADDR")
	setString(&cfg.Storage.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.GenerationProvider, "GENERATION_PROVIDER")
	setString(&cfg.GenerationBaseURL, "GENERATION_BASE_URL")
	setString(&cfg.GenerationAPIKey, "GENERATION_API_KEY")
	setString(&cfg.GenerationModel, "GENERATION_MODEL")
	setString(&cfg.GenerationTimeout, "GENERATION_TIMEOUT")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setString(&cfg.Sender.Address, "SENDER_ADDRESS")
	setString(&cfg.Archive.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.Archive.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Archive.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Archive.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Archive.MinioUseSSL = b
		}
	}
	setString(&cfg.Events.AMQPURL, "AMQP_URL")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "8090"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = store.BackendFile
	}
	if cfg.Storage.Backend == store.BackendFile && cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.GenerationProvider == "" {
		cfg.GenerationProvider = ai.ProviderOllama
	}
	if len(cfg.Members) == 0 {
		cfg.Members = auth.DefaultMembers
	}
	if cfg.Archive.Backend == ArchiveFile && cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "data/drafts"
	}
	if cfg.Events.Backend == EventsNone && cfg.Events.AMQPURL != "" {
		cfg.Events.Backend = EventsAMQP
	}
	if cfg.Events.Backend == EventsRedis && cfg.Events.RedisAddr == "" {
		cfg.Events.RedisAddr = cfg.Storage.RedisAddr
		cfg.Events.RedisPassword = cfg.Storage.RedisPassword
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or DRAFTER_PORT)")
	}
	switch cfg.Storage.Backend {
	case store.BackendFile:
	case store.BackendRedis:
		if cfg.Storage.RedisAddr == "" {
			return errors.New("config: storage.redisAddr is required for redis backend (or REDIS_ADDR)")
		}
	case store.BackendPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return errors.New("config: storage.databaseURL is required for postgres backend (or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", cfg.Storage.Backend)
	}
	switch cfg.GenerationProvider {
	case ai.ProviderOllama, ai.ProviderGemini, ai.ProviderOpenAICompat:
	default:
		return fmt.Errorf("config: unknown generationProvider %q", cfg.GenerationProvider)
	}
	if cfg.GenerationModel == "" {
		return errors.New("config: generationModel is required (set in config.yaml or GENERATION_MODEL)")
	}
	if _, err := ParseDuration(cfg.GenerationTimeout); err != nil {
		return fmt.Errorf("config: generationTimeout: %w", err)
	}
	if _, err := ParseDuration(cfg.SessionTTL); err != nil {
		return fmt.Errorf("config: sessionTTL: %w", err)
	}
	// Only serve needs a secret; chat and the admin commands run without one.
	if secret := strings.TrimSpace(cfg.SessionSecret); secret != "" && len(secret) < 16 {
		return errors.New("config: sessionSecret must be at least 16 characters (or SESSION_SECRET)")
	}
	if len(cfg.Members) == 0 {
		return errors.New("config: members must not be empty")
	}
	switch cfg.Archive.Backend {
	case ArchiveNone, ArchiveFile:
	case ArchiveMinio:
		if cfg.Archive.MinioEndpoint == "" || cfg.Archive.MinioBucket == "" {
			return errors.New("config: archive.minioEndpoint and archive.minioBucket are required for minio archive")
		}
	default:
		return fmt.Errorf("config: unknown archive backend %q", cfg.Archive.Backend)
	}
	switch cfg.Events.Backend {
	case EventsNone:
	case EventsAMQP:
		if cfg.Events.AMQPURL == "" {
			return errors.New("config: events.amqpURL is required for amqp events (or AMQP_URL)")
		}
	case EventsRedis:
		if cfg.Events.RedisAddr == "" {
			return errors.New("config: events.redisAddr is required for redis events")
		}
	default:
		return fmt.Errorf("config: unknown events backend %q", cfg.Events.Backend)
	}
	return nil
}

// ParseDuration parses an optional duration; empty means zero (use default).
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}

// StoreOptions maps the storage section onto store.Open options.
func (c FileConfig) StoreOptions() store.Options {
	return store.Options{
		Backend:       c.Storage.Backend,
		DataDir:       c.Storage.DataDir,
		RedisAddr:     c.Storage.RedisAddr,
		RedisPassword: c.Storage.RedisPassword,
		RedisPrefix:   c.Storage.RedisPrefix,
		DatabaseURL:   c.Storage.DatabaseURL,
	}
}

// CompleterConfig maps generation settings onto ai.Config.
func (c FileConfig) CompleterConfig() ai.Config {
	return ai.Config{
		Provider: c.GenerationProvider,
		BaseURL:  c.GenerationBaseURL,
		APIKey:   c.GenerationAPIKey,
		Model:    c.GenerationModel,
	}
}
