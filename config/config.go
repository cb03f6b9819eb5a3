package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shiva/backhaul/internal/model"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Geocoder GeocoderConfig
	Matching MatchingConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         int           `mapstructure:"SERVER_PORT"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// GeocoderConfig holds settings for the forward geocoding provider and its
// cache tiers.
type GeocoderConfig struct {
	APIKey            string        `mapstructure:"GEOCODER_API_KEY"`
	Country           string        `mapstructure:"GEOCODER_COUNTRY"`
	RequestsPerSecond float64       `mapstructure:"GEOCODER_RPS"`
	Burst             int           `mapstructure:"GEOCODER_BURST"`
	Timeout           time.Duration `mapstructure:"GEOCODER_TIMEOUT"`
	CacheSize         int           `mapstructure:"GEOCODER_CACHE_SIZE"`
	CacheTTL          time.Duration `mapstructure:"GEOCODER_CACHE_TTL"`
	RedisTTL          time.Duration `mapstructure:"GEOCODER_REDIS_TTL"`
}

// MatchingConfig holds the default tunables of a matching run.
type MatchingConfig struct {
	MinProfitPerMile      float64       `mapstructure:"MATCH_MIN_PROFIT_PER_MILE"`
	MaxDeadheadMiles      float64       `mapstructure:"MATCH_MAX_DEADHEAD_MILES"`
	MinMatchScore         int           `mapstructure:"MATCH_MIN_SCORE"`
	MinCapacityUtil       float64       `mapstructure:"MATCH_MIN_CAPACITY_UTILIZATION"`
	MaxCapacityUtil       float64       `mapstructure:"MATCH_MAX_CAPACITY_UTILIZATION"`
	PreferredReturnStates []string      `mapstructure:"MATCH_PREFERRED_RETURN_STATES"`
	ExcludedStates        []string      `mapstructure:"MATCH_EXCLUDED_STATES"`
	FuelCostPerMile       float64       `mapstructure:"MATCH_FUEL_COST_PER_MILE"`
	AvgMilesPerDay        float64       `mapstructure:"MATCH_AVG_MILES_PER_DAY"`
	SuggestionTTL         time.Duration `mapstructure:"MATCH_SUGGESTION_TTL"`
	MaxResults            int           `mapstructure:"MATCH_MAX_RESULTS"`
	Workers               int           `mapstructure:"MATCH_WORKERS"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"LOG_LEVEL"`
	Development bool   `mapstructure:"LOG_DEVELOPMENT"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Preferences returns the per-run matching preferences seeded from config.
func (m MatchingConfig) Preferences() model.MatchingPreferences {
	return model.MatchingPreferences{
		MinProfitPerMile:      m.MinProfitPerMile,
		MaxDeadheadMiles:      m.MaxDeadheadMiles,
		MinMatchScore:         m.MinMatchScore,
		PreferredReturnStates: append([]string(nil), m.PreferredReturnStates...),
		ExcludedStates:        append([]string(nil), m.ExcludedStates...),
		MinCapacityUtil:       m.MinCapacityUtil,
		MaxCapacityUtil:       m.MaxCapacityUtil,
	}
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	setDefaults(v)

	// A missing .env is fine; docker-compose injects env vars directly.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read .env: %w", err)
		}
	}

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         v.GetString("SERVER_HOST"),
		Port:         v.GetInt("SERVER_PORT"),
		ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  v.GetDuration("SERVER_IDLE_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     v.GetString("POSTGRES_HOST"),
		Port:     v.GetInt("POSTGRES_PORT"),
		User:     v.GetString("POSTGRES_USER"),
		Password: v.GetString("POSTGRES_PASSWORD"),
		DBName:   v.GetString("POSTGRES_DB"),
		SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		MaxConns: v.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: v.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		PoolSize: v.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Geocoder ────────────────────────────────────────
	cfg.Geocoder = GeocoderConfig{
		APIKey:            v.GetString("GEOCODER_API_KEY"),
		Country:           v.GetString("GEOCODER_COUNTRY"),
		RequestsPerSecond: v.GetFloat64("GEOCODER_RPS"),
		Burst:             v.GetInt("GEOCODER_BURST"),
		Timeout:           v.GetDuration("GEOCODER_TIMEOUT"),
		CacheSize:         v.GetInt("GEOCODER_CACHE_SIZE"),
		CacheTTL:          v.GetDuration("GEOCODER_CACHE_TTL"),
		RedisTTL:          v.GetDuration("GEOCODER_REDIS_TTL"),
	}

	// ── Matching ────────────────────────────────────────
	cfg.Matching = MatchingConfig{
		MinProfitPerMile:      v.GetFloat64("MATCH_MIN_PROFIT_PER_MILE"),
		MaxDeadheadMiles:      v.GetFloat64("MATCH_MAX_DEADHEAD_MILES"),
		MinMatchScore:         v.GetInt("MATCH_MIN_SCORE"),
		MinCapacityUtil:       v.GetFloat64("MATCH_MIN_CAPACITY_UTILIZATION"),
		MaxCapacityUtil:       v.GetFloat64("MATCH_MAX_CAPACITY_UTILIZATION"),
		PreferredReturnStates: stateList(v.GetStringSlice("MATCH_PREFERRED_RETURN_STATES")),
		ExcludedStates:        stateList(v.GetStringSlice("MATCH_EXCLUDED_STATES")),
		FuelCostPerMile:       v.GetFloat64("MATCH_FUEL_COST_PER_MILE"),
		AvgMilesPerDay:        v.GetFloat64("MATCH_AVG_MILES_PER_DAY"),
		SuggestionTTL:         v.GetDuration("MATCH_SUGGESTION_TTL"),
		MaxResults:            v.GetInt("MATCH_MAX_RESULTS"),
		Workers:               v.GetInt("MATCH_WORKERS"),
	}

	// ── Log ─────────────────────────────────────────────
	cfg.Log = LogConfig{
		Level:       v.GetString("LOG_LEVEL"),
		Development: v.GetBool("LOG_DEVELOPMENT"),
	}

	return cfg, nil
}

// stateList accepts "TX,OK", "TX OK" or a real list and returns upper-case
// state codes.
func stateList(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToUpper(part))
			}
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "5s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "backhaul")
	v.SetDefault("POSTGRES_PASSWORD", "backhaul_secret")
	v.SetDefault("POSTGRES_DB", "backhaul_db")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_CONNS", 20)
	v.SetDefault("POSTGRES_MIN_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 20)

	v.SetDefault("GEOCODER_API_KEY", "")
	v.SetDefault("GEOCODER_COUNTRY", "US")
	v.SetDefault("GEOCODER_RPS", 10.0)
	v.SetDefault("GEOCODER_BURST", 5)
	v.SetDefault("GEOCODER_TIMEOUT", "5s")
	v.SetDefault("GEOCODER_CACHE_SIZE", 10000)
	v.SetDefault("GEOCODER_CACHE_TTL", "6h")
	v.SetDefault("GEOCODER_REDIS_TTL", "720h")

	v.SetDefault("MATCH_MIN_PROFIT_PER_MILE", 1.0)
	v.SetDefault("MATCH_MAX_DEADHEAD_MILES", 150.0)
	v.SetDefault("MATCH_MIN_SCORE", 50)
	v.SetDefault("MATCH_MIN_CAPACITY_UTILIZATION", 30.0)
	v.SetDefault("MATCH_MAX_CAPACITY_UTILIZATION", 100.0)
	v.SetDefault("MATCH_PREFERRED_RETURN_STATES", []string{})
	v.SetDefault("MATCH_EXCLUDED_STATES", []string{})
	v.SetDefault("MATCH_FUEL_COST_PER_MILE", 0.50)
	v.SetDefault("MATCH_AVG_MILES_PER_DAY", 500.0)
	v.SetDefault("MATCH_SUGGESTION_TTL", "24h")
	v.SetDefault("MATCH_MAX_RESULTS", 20)
	v.SetDefault("MATCH_WORKERS", 8)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)
}
