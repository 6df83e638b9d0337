package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                  string
	AppEnv                   string
	AppPort                  string
	DatabaseURL              string
	RedisURL                 string
	NATSURL                  string
	JWTSecret                string
	OpenAIAPIKey             string
	OpenAIModel              string
	GeminiAPIKey             string
	GeminiModel              string
	GeminiBaseURL            string
	AITimeout                time.Duration
	AIMaxTokens              int
	ConfidenceThreshold      float64
	MissionCacheTTL          time.Duration
	SubmissionGuardTTL       time.Duration
	PointsReconcileInterval  time.Duration
	SubmitRateLimitPerMinute int
	CORSAllowOrigins         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsDevelopment reports whether the service runs in a development environment.
func (c Config) IsDevelopment() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "" || env == "development" || env == "local"
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("HONMOON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Honmoon API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_tokens", 500)
	v.SetDefault("reward.confidence_threshold", 0.5)
	v.SetDefault("missions.cache_ttl", "5m")
	v.SetDefault("submissions.guard_ttl", "2m")
	v.SetDefault("submissions.rate_limit_per_minute", 30)
	v.SetDefault("points.reconcile_interval", "10m")
	v.SetDefault("cors.allow_origins", "*")

	aiTimeout, err := parseDuration(v, "ai.timeout")
	if err != nil {
		return Config{}, err
	}
	missionCacheTTL, err := parseDuration(v, "missions.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	guardTTL, err := parseDuration(v, "submissions.guard_ttl")
	if err != nil {
		return Config{}, err
	}
	reconcileInterval, err := parseDuration(v, "points.reconcile_interval")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                  v.GetString("app.name"),
		AppEnv:                   v.GetString("app.env"),
		AppPort:                  v.GetString("app.port"),
		DatabaseURL:              v.GetString("database.url"),
		RedisURL:                 v.GetString("redis.url"),
		NATSURL:                  v.GetString("nats.url"),
		JWTSecret:                v.GetString("jwt.secret"),
		OpenAIAPIKey:             v.GetString("openai.api_key"),
		OpenAIModel:              v.GetString("openai.model"),
		GeminiAPIKey:             v.GetString("gemini.api_key"),
		GeminiModel:              v.GetString("gemini.model"),
		GeminiBaseURL:            v.GetString("gemini.base_url"),
		AITimeout:                aiTimeout,
		AIMaxTokens:              v.GetInt("ai.max_tokens"),
		ConfidenceThreshold:      v.GetFloat64("reward.confidence_threshold"),
		MissionCacheTTL:          missionCacheTTL,
		SubmissionGuardTTL:       guardTTL,
		PointsReconcileInterval:  reconcileInterval,
		SubmitRateLimitPerMinute: v.GetInt("submissions.rate_limit_per_minute"),
		CORSAllowOrigins:         v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = 0.5
	}

	if cfg.AIMaxTokens <= 0 {
		cfg.AIMaxTokens = 500
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return duration, nil
}
