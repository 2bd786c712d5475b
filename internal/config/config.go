// file: internal/config/config.go
// version: 2.1.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/health"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	DatabaseType string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)

	// ProvidersFile is an optional YAML file of provider definitions that is
	// imported at startup and re-imported when it changes.
	ProvidersFile string
	// SecretsKeyPath holds the key sealing provider settings at rest. Empty
	// stores settings in the clear.
	SecretsKeyPath string

	// Engine policy
	CallTimeout       time.Duration
	BackoffInitial    time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
	MaxParallelCalls  int
	RegistryCacheTTL  time.Duration
	AllowProbes       bool

	// Server
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Workers      int
	APIRateLimit float64 // requests per second per client, 0 disables
	APIBurst     int
	// MaxRequestBytes caps JSON request bodies.
	MaxRequestBytes int64

	// HTTP Basic Authentication for the API
	BasicAuthEnabled  bool
	BasicAuthUsername string
	BasicAuthPassword string
}

var AppConfig Config

// SetDefaults registers every default with viper.
func SetDefaults() {
	viper.SetDefault("database_type", "pebble")
	viper.SetDefault("database_path", "shelvance.pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)
	viper.SetDefault("providers_file", "")
	viper.SetDefault("secrets_key_path", "")

	viper.SetDefault("call_timeout", engine.DefaultCallTimeout)
	viper.SetDefault("backoff_initial", health.DefaultBackoffInitial)
	viper.SetDefault("backoff_multiplier", health.DefaultBackoffMultiplier)
	viper.SetDefault("backoff_max", health.DefaultBackoffMax)
	viper.SetDefault("max_parallel_calls", engine.DefaultMaxParallel)
	viper.SetDefault("registry_cache_ttl", 5*time.Minute)
	viper.SetDefault("allow_probes", true)

	viper.SetDefault("host", "localhost")
	viper.SetDefault("port", "8080")
	viper.SetDefault("read_timeout", 15*time.Second)
	viper.SetDefault("write_timeout", 30*time.Second)
	viper.SetDefault("idle_timeout", 60*time.Second)
	viper.SetDefault("workers", 2)
	viper.SetDefault("api_rate_limit", 20.0)
	viper.SetDefault("api_burst", 40)
	viper.SetDefault("max_request_bytes", 1<<20)
	viper.SetDefault("basic_auth_enabled", false)
	viper.SetDefault("basic_auth_username", "")
	viper.SetDefault("basic_auth_password", "")
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		DatabasePath:   viper.GetString("database_path"),
		DatabaseType:   viper.GetString("database_type"),
		EnableSQLite:   viper.GetBool("enable_sqlite3_i_know_the_risks"),
		ProvidersFile:  viper.GetString("providers_file"),
		SecretsKeyPath: viper.GetString("secrets_key_path"),

		CallTimeout:       viper.GetDuration("call_timeout"),
		BackoffInitial:    viper.GetDuration("backoff_initial"),
		BackoffMultiplier: viper.GetFloat64("backoff_multiplier"),
		BackoffMax:        viper.GetDuration("backoff_max"),
		MaxParallelCalls:  viper.GetInt("max_parallel_calls"),
		RegistryCacheTTL:  viper.GetDuration("registry_cache_ttl"),
		AllowProbes:       viper.GetBool("allow_probes"),

		Host:         viper.GetString("host"),
		Port:         viper.GetString("port"),
		ReadTimeout:  viper.GetDuration("read_timeout"),
		WriteTimeout: viper.GetDuration("write_timeout"),
		IdleTimeout:  viper.GetDuration("idle_timeout"),
		Workers:      viper.GetInt("workers"),
		APIRateLimit: viper.GetFloat64("api_rate_limit"),
		APIBurst:     viper.GetInt("api_burst"),

		MaxRequestBytes:   viper.GetInt64("max_request_bytes"),
		BasicAuthEnabled:  viper.GetBool("basic_auth_enabled"),
		BasicAuthUsername: viper.GetString("basic_auth_username"),
		BasicAuthPassword: viper.GetString("basic_auth_password"),
	}

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "pebble"
	}
}

// BackoffPolicy returns the health tracker's backoff curve.
func (c Config) BackoffPolicy() health.BackoffPolicy {
	return health.BackoffPolicy{
		Initial:    c.BackoffInitial,
		Multiplier: c.BackoffMultiplier,
		Max:        c.BackoffMax,
	}
}

// RouterOptions returns the request router's tuning.
func (c Config) RouterOptions() engine.RouterOptions {
	return engine.RouterOptions{
		CallTimeout: c.CallTimeout,
		MaxParallel: c.MaxParallelCalls,
		AllowProbes: c.AllowProbes,
	}
}
