// Package config reads ReadKode settings from READKODE_* environment
// variables. A .env file in the working directory is loaded first by the
// CLI entry point.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/readkode/readkode/internal/llm"
	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/queue"
	"github.com/readkode/readkode/internal/store"
)

// Remote store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Device blob store backends.
const (
	LocalFile  = "file"
	LocalRedis = "redis"
)

// Config holds all application configuration.
type Config struct {
	DataDir string
	UserID  string // empty plays as guest
	Backend string
	DBPath  string
	Mongo   MongoConfig
	Local   LocalConfig
	Queue   QueueConfig
	Log     LogConfig
	Addr    string
	LLM     llm.Config

	// LLMEnabled is false when no provider could be configured. The
	// app still runs; explanations fall back to authored text only.
	LLMEnabled bool
}

type MongoConfig struct {
	URI      string
	Database string
}

// LocalConfig selects where guest progress and the durable queue live.
type LocalConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type QueueConfig struct {
	Delay        time.Duration
	FlushTimeout time.Duration
}

type LogConfig struct {
	Mode string // "dev" or "prod"
	File string // empty logs to stderr
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("READKODE_DATA_DIR", "")
	if dataDir == "" {
		d, err := localstore.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = d
	}

	dbPath := getEnv("READKODE_DB", "")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "readkode.db")
	}

	cfg := &Config{
		DataDir: dataDir,
		UserID:  getEnv("READKODE_USER", ""),
		Backend: getEnv("READKODE_BACKEND", BackendSQLite),
		DBPath:  dbPath,
		Mongo: MongoConfig{
			URI:      getEnv("READKODE_MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("READKODE_MONGO_DB", "readkode"),
		},
		Local: LocalConfig{
			Backend:       getEnv("READKODE_LOCAL_STORE", LocalFile),
			RedisAddr:     getEnv("READKODE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("READKODE_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("READKODE_REDIS_DB", 0),
			RedisPrefix:   getEnv("READKODE_REDIS_PREFIX", "readkode:"),
		},
		Queue: QueueConfig{
			Delay:        getEnvDuration("READKODE_QUEUE_DELAY", queue.DefaultDelay),
			FlushTimeout: getEnvDuration("READKODE_FLUSH_TIMEOUT", queue.DefaultFlushTimeout),
		},
		Log: LogConfig{
			Mode: getEnv("READKODE_LOG", "dev"),
			File: getEnv("READKODE_LOG_FILE", ""),
		},
		Addr: getEnv("READKODE_ADDR", ":8080"),
	}
	cfg.LLM, cfg.LLMEnabled = llmFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("READKODE_DATA_DIR cannot be empty")
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("READKODE_DB cannot be empty")
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("READKODE_MONGO_URI and READKODE_MONGO_DB are required for the mongo backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown READKODE_BACKEND %q", c.Backend)
	}
	switch c.Local.Backend {
	case LocalFile:
	case LocalRedis:
		if c.Local.RedisAddr == "" {
			return fmt.Errorf("READKODE_REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("unknown READKODE_LOCAL_STORE %q", c.Local.Backend)
	}
	if c.Queue.Delay <= 0 {
		return fmt.Errorf("READKODE_QUEUE_DELAY must be > 0")
	}
	if c.Queue.FlushTimeout <= 0 {
		return fmt.Errorf("READKODE_FLUSH_TIMEOUT must be > 0")
	}
	if c.Addr == "" {
		return fmt.Errorf("READKODE_ADDR cannot be empty")
	}
	if c.LLMEnabled {
		if err := c.LLM.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Guest reports whether no user is signed in.
func (c *Config) Guest() bool { return c.UserID == "" }

// EnsureDataDir creates the data directory and, for SQLite, the DB's
// parent directory.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if c.Backend == BackendSQLite {
		return store.EnsureDir(c.DBPath)
	}
	return nil
}

// provider-specific key variables, checked in order when
// READKODE_LLM_PROVIDER is unset.
var discoverKeys = []struct {
	env      string
	provider string
}{
	{"ANTHROPIC_API_KEY", llm.ProviderAnthropic},
	{"OPENAI_API_KEY", llm.ProviderOpenAI},
	{"GEMINI_API_KEY", llm.ProviderGemini},
	{"OPENROUTER_API_KEY", llm.ProviderOpenRouter},
}

func llmFromEnv() (llm.Config, bool) {
	cfg := llm.DefaultConfig()
	cfg.Model = getEnv("READKODE_LLM_MODEL", "")
	cfg.BaseURL = getEnv("READKODE_LLM_BASE_URL", "")
	cfg.Timeout = getEnvDuration("READKODE_LLM_TIMEOUT", cfg.Timeout)

	if p := getEnv("READKODE_LLM_PROVIDER", ""); p != "" {
		cfg.Provider = p
		cfg.APIKey = getEnv("READKODE_LLM_API_KEY", "")
		if cfg.APIKey == "" {
			for _, k := range discoverKeys {
				if k.provider == p {
					cfg.APIKey = getEnv(k.env, "")
				}
			}
		}
		return cfg, true
	}
	for _, k := range discoverKeys {
		if key := getEnv(k.env, ""); key != "" {
			cfg.Provider = k.provider
			cfg.APIKey = key
			return cfg, true
		}
	}
	return cfg, false
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("5s") or bare milliseconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
