package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type AIMode string

const (
	AIModeTools     AIMode = "tools"
	AIModeTranslate AIMode = "translate"
)

const DefaultFailureMessage = "An error occurred while processing your request. Please try again."

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Datasets      DatasetsConfig
	ObjectStore   ObjectStoreConfig
	AI            AIConfig
	Chat          ChatConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Host         string
	Port         int
	Share        bool
	PublicURL    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ListenAddress is the bind address. Sharing binds every interface so the
// server is reachable from other machines.
func (c HTTPConfig) ListenAddress() string {
	host := c.Host
	if c.Share {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

type DatabaseConfig struct {
	URL             string
	ReadOnly        bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MaxRows         int
	SampleRows      int
}

type DatasetsConfig struct {
	Enabled bool
	Prefix  string
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type AIConfig struct {
	Mode           AIMode
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	MaxSteps       int
	TopK           int
	RateLimitRPS   float64
	RateLimitBurst int
}

type ChatConfig struct {
	Title          string
	Description    string
	Examples       []string
	FailureMessage string
	IncludeSteps   bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("TALKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid TALKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	appliers := []func() error{
		func() error { return applyString(lookup, "TALKDB_SERVICE_NAME", &cfg.Service.Name) },
		func() error { return applyString(lookup, "TALKDB_HTTP_HOST", &cfg.HTTP.Host) },
		func() error { return applyInt(lookup, "TALKDB_HTTP_PORT", &cfg.HTTP.Port) },
		func() error { return applyBool(lookup, "TALKDB_HTTP_SHARE", &cfg.HTTP.Share) },
		func() error { return applyString(lookup, "TALKDB_HTTP_PUBLIC_URL", &cfg.HTTP.PublicURL) },
		func() error { return applyDuration(lookup, "TALKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout) },
		func() error { return applyDuration(lookup, "TALKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout) },
		func() error { return applyDuration(lookup, "TALKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout) },
		func() error { return applyString(lookup, "TALKDB_DATABASE_URL", &cfg.Database.URL) },
		func() error { return applyBool(lookup, "TALKDB_DATABASE_READ_ONLY", &cfg.Database.ReadOnly) },
		func() error { return applyInt(lookup, "TALKDB_DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns) },
		func() error { return applyInt(lookup, "TALKDB_DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns) },
		func() error {
			return applyDuration(lookup, "TALKDB_DATABASE_CONN_MAX_IDLE_TIME", &cfg.Database.ConnMaxIdleTime)
		},
		func() error {
			return applyDuration(lookup, "TALKDB_DATABASE_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
		},
		func() error { return applyInt(lookup, "TALKDB_DATABASE_MAX_ROWS", &cfg.Database.MaxRows) },
		func() error { return applyInt(lookup, "TALKDB_DATABASE_SAMPLE_ROWS", &cfg.Database.SampleRows) },
		func() error { return applyBool(lookup, "TALKDB_DATASETS_ENABLED", &cfg.Datasets.Enabled) },
		func() error { return applyString(lookup, "TALKDB_DATASETS_PREFIX", &cfg.Datasets.Prefix) },
		func() error { return applyString(lookup, "TALKDB_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint) },
		func() error { return applyString(lookup, "TALKDB_OBJECTSTORE_REGION", &cfg.ObjectStore.Region) },
		func() error { return applyString(lookup, "TALKDB_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket) },
		func() error { return applyString(lookup, "TALKDB_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID) },
		func() error {
			return applyString(lookup, "TALKDB_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey)
		},
		func() error { return applyBool(lookup, "TALKDB_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL) },
		func() error { return applyString(lookup, "TALKDB_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix) },
		func() error {
			return applyBool(lookup, "TALKDB_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket)
		},
		func() error { return applyAIMode(lookup, "TALKDB_AI_MODE", &cfg.AI.Mode) },
		func() error { return applyString(lookup, "TALKDB_AI_BASE_URL", &cfg.AI.BaseURL) },
		func() error { return applyNonEmptyString(lookup, "OPENAI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyNonEmptyString(lookup, "TALKDB_AI_API_KEY", &cfg.AI.APIKey) },
		func() error { return applyString(lookup, "TALKDB_AI_MODEL", &cfg.AI.Model) },
		func() error { return applyFloat(lookup, "TALKDB_AI_TEMPERATURE", &cfg.AI.Temperature) },
		func() error { return applyDuration(lookup, "TALKDB_AI_TIMEOUT", &cfg.AI.Timeout) },
		func() error { return applyInt(lookup, "TALKDB_AI_MAX_STEPS", &cfg.AI.MaxSteps) },
		func() error { return applyInt(lookup, "TALKDB_AI_TOP_K", &cfg.AI.TopK) },
		func() error { return applyFloat(lookup, "TALKDB_AI_RATE_LIMIT_RPS", &cfg.AI.RateLimitRPS) },
		func() error { return applyInt(lookup, "TALKDB_AI_RATE_LIMIT_BURST", &cfg.AI.RateLimitBurst) },
		func() error { return applyString(lookup, "TALKDB_CHAT_TITLE", &cfg.Chat.Title) },
		func() error { return applyString(lookup, "TALKDB_CHAT_DESCRIPTION", &cfg.Chat.Description) },
		func() error { return applyList(lookup, "TALKDB_CHAT_EXAMPLES", &cfg.Chat.Examples) },
		func() error { return applyString(lookup, "TALKDB_CHAT_FAILURE_MESSAGE", &cfg.Chat.FailureMessage) },
		func() error { return applyBool(lookup, "TALKDB_CHAT_INCLUDE_STEPS", &cfg.Chat.IncludeSteps) },
		func() error { return applyBool(lookup, "TALKDB_LOG_JSON", &cfg.Observability.LogJSON) },
		func() error { return applyLogLevel(lookup, "TALKDB_LOG_LEVEL", &cfg.Observability.LogLevel) },
	}
	for _, apply := range appliers {
		if err := apply(); err != nil {
			return Config{}, err
		}
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Host == "" && !cfg.HTTP.Share {
		return Config{}, fmt.Errorf("http host is required")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return Config{}, fmt.Errorf("invalid TALKDB_HTTP_PORT: %d", cfg.HTTP.Port)
	}
	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("database url is required")
	}
	if cfg.Database.MaxRows <= 0 {
		return Config{}, fmt.Errorf("TALKDB_DATABASE_MAX_ROWS must be > 0")
	}
	if cfg.Database.SampleRows < 0 {
		return Config{}, fmt.Errorf("TALKDB_DATABASE_SAMPLE_ROWS must be >= 0")
	}
	if cfg.AI.MaxSteps <= 0 {
		return Config{}, fmt.Errorf("TALKDB_AI_MAX_STEPS must be > 0")
	}
	if cfg.AI.TopK <= 0 {
		return Config{}, fmt.Errorf("TALKDB_AI_TOP_K must be > 0")
	}
	if cfg.AI.RateLimitRPS > 0 && cfg.AI.RateLimitBurst <= 0 {
		return Config{}, fmt.Errorf("TALKDB_AI_RATE_LIMIT_BURST must be > 0 when rate limiting is enabled")
	}
	if cfg.Chat.FailureMessage == "" {
		cfg.Chat.FailureMessage = DefaultFailureMessage
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "talkdb-api"},
		HTTP: HTTPConfig{
			Host:         "localhost",
			Port:         7860,
			Share:        false,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 180 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			URL:             "sqlite:///meaningful_database_1.db",
			ReadOnly:        true,
			MaxOpenConns:    8,
			MaxIdleConns:    8,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			MaxRows:         200,
			SampleRows:      3,
		},
		Datasets: DatasetsConfig{
			Enabled: false,
			Prefix:  "datasets",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "talkdb",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		AI: AIConfig{
			Mode:           AIModeTools,
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o",
			Temperature:    0,
			Timeout:        60 * time.Second,
			MaxSteps:       15,
			TopK:           10,
			RateLimitRPS:   0,
			RateLimitBurst: 1,
		},
		Chat: ChatConfig{
			Title:       "Talk to your Database",
			Description: "Ask questions about your database in natural language.",
			Examples: []string{
				"How many tables there are in the database?",
				"How many beds there are in total?",
				"What is the weight of patient9?",
			},
			FailureMessage: DefaultFailureMessage,
			IncludeSteps:   false,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Port = 17860
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyNonEmptyString ignores blank values so an empty placeholder in a .env
// file does not shadow a key set elsewhere.
func applyNonEmptyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	values := make([]string, 0)
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}
	*dst = values
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyAIMode(lookup LookupFunc, key string, dst *AIMode) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	mode := AIMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case AIModeTools, AIModeTranslate:
		*dst = mode
		return nil
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
