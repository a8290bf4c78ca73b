package pkg

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted by -store.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the process configuration. Flags win over environment variables,
// which win over built-in defaults; a .env file in the working directory is
// loaded into the environment first.
type Config struct {
	Port           string
	Interface      string
	Store          string
	MongoURI       string
	MongoDB        string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	CacheTTL       time.Duration
	RedisTimeout   time.Duration
	LookupTimeout  time.Duration
	AllowedOrigins []string
	SeedFile       string
}

// Addr is the listen address.
func (c Config) Addr() string {
	return c.Interface + ":" + c.Port
}

// LoadConfig reads .env, the environment, and then args (without the program name).
func LoadConfig(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cacheTTL, err := envDuration("SESSION_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		return Config{}, err
	}
	redisTimeout, err := envDuration("REDIS_TIMEOUT", defaultRedisTimeout)
	if err != nil {
		return Config{}, err
	}
	lookupTimeout, err := envDuration("LOOKUP_TIMEOUT", defaultLookupTimeout)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	var origins string
	flags := flag.NewFlagSet("mentorvideo", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "port to listen on")
	flags.StringVar(&cfg.Interface, "interface", getEnv("INTERFACE", "0.0.0.0"), "interface to listen on")
	flags.StringVar(&cfg.Store, "store", getEnv("SESSION_STORE", StoreMongo), "session store backend: mongo, postgres or memory")
	flags.StringVar(&cfg.MongoURI, "mongo-uri", getEnv("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection string")
	flags.StringVar(&cfg.MongoDB, "mongo-db", getEnv("MONGODB_DB_NAME", "mentor_scoring"), "MongoDB database holding the sessions collection")
	flags.StringVar(&cfg.PostgresDSN, "postgres-dsn", getEnv("DATABASE_URL", ""), "Postgres DSN for the postgres store")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", ""), "Redis address for the lookup cache (empty disables caching)")
	flags.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flags.DurationVar(&cfg.CacheTTL, "cache-ttl", cacheTTL, "lifetime of cached session lookups")
	flags.DurationVar(&cfg.RedisTimeout, "redis-timeout", redisTimeout, "bound on each Redis dial, read and write")
	flags.DurationVar(&cfg.LookupTimeout, "lookup-timeout", lookupTimeout, "timeout for a single session store call")
	flags.StringVar(&origins, "allowed-origins", getEnv("CORS_ALLOWED_ORIGINS", corsWildcard), "comma separated CORS origins, * for any")
	flags.StringVar(&cfg.SeedFile, "seed-file", getEnv("SEED_FILE", ""), "JSON file of sessions for the memory store")
	if err := flags.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	cfg.AllowedOrigins = splitList(origins)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.Store {
	case StoreMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return errors.New("mongo store requires -mongo-uri")
		}
	case StorePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres store requires -postgres-dsn")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.LookupTimeout <= 0 {
		return errors.New("lookup timeout must be positive")
	}
	if c.RedisTimeout <= 0 {
		return errors.New("redis timeout must be positive")
	}
	if _, err := NewCORSPolicy(c.AllowedOrigins); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func envDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
