package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the server settings. Every flag can also be set from the
// environment, e.g. --mongo-uri as MONGO_URI.
type Config struct {
	Port           int
	MongoURI       string
	MongoDatabase  string
	RedisURI       string
	JWTSecret      string
	PublicURL      string
	CORSOrigins    []string
	CountdownStep  time.Duration
	GracePeriod    time.Duration
	PersistTimeout time.Duration
	Verbose        bool
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("--jwt-secret must not be empty")
	}
	if c.CountdownStep <= 0 || c.GracePeriod <= 0 || c.PersistTimeout <= 0 {
		return errors.New("--countdown-step, --grace-period and --persist-timeout must be positive")
	}
	return nil
}

// RedisAddr returns the Redis address without a redis:// scheme
func (c *Config) RedisAddr() string {
	return strings.TrimPrefix(c.RedisURI, "redis://")
}

// Bind registers the server flags on fs and fills unset ones from the environment
func Bind(fs *pflag.FlagSet, cfg *Config) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: PORT)")
	fs.StringVar(&cfg.MongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string (env: MONGO_URI)")
	fs.StringVar(&cfg.MongoDatabase, "mongo-database", "snakearena", "MongoDB database name (env: MONGO_DATABASE)")
	fs.StringVar(&cfg.RedisURI, "redis-uri", "localhost:6379", "Redis address (env: REDIS_URI)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "super-secret-key-change-in-production", "secret used to sign tokens (env: JWT_SECRET)")
	fs.StringVar(&cfg.PublicURL, "public-url", "http://localhost:8080", "public base URL used in join links (env: PUBLIC_URL)")
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origins", []string{"*"}, "allowed CORS origins (env: CORS_ORIGINS)")
	fs.DurationVar(&cfg.CountdownStep, "countdown-step", time.Second, "time between countdown steps (env: COUNTDOWN_STEP)")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", 10*time.Second, "time a finished game is kept before teardown (env: GRACE_PERIOD)")
	fs.DurationVar(&cfg.PersistTimeout, "persist-timeout", 5*time.Second, "timeout for database and cache writes (env: PERSIST_TIMEOUT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
