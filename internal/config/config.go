package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultAPIBaseURL = "http://localhost:8000/api/v1"

type Config struct {
	App      AppConfig      `toml:"app"`
	API      APIConfig      `toml:"api"`
	Storage  StorageConfig  `toml:"storage"`
	Viewer   ViewerConfig   `toml:"viewer"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Tracing  TracingConfig  `toml:"tracing"`
	Headless HeadlessConfig `toml:"headless"`
}

type AppConfig struct {
	Environment string `toml:"environment"`
	LogFilePath string `toml:"log_file_path"`
	NatsURL     string `toml:"nats_url"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StorageConfig struct {
	Driver   string `toml:"driver"` // "file", "memory" or "redis"
	Path     string `toml:"path"`
	RedisURL string `toml:"redis_url"`
}

type ViewerConfig struct {
	PlaybackIntervalMs int `toml:"playback_interval_ms"`
	NotifyDurationMs   int `toml:"notify_duration_ms"`
	ViewportWidth      int `toml:"viewport_width"`
}

type BridgeConfig struct {
	Port           string `toml:"port"`
	WSLogFilePath  string `toml:"ws_log_file_path"`
	AllowedOrigins string `toml:"allowed_origins"`
}

type TracingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
}

// HeadlessConfig carries the credentials cmd/tricys-viewer logs in with.
type HeadlessConfig struct {
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	ProjectID string `toml:"project_id"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	file := &Config{}
	if path := os.Getenv("TRICYS_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, file); err != nil {
			log.Printf("[WARN] Failed to read config file %s: %v", path, err)
		}
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", or(file.App.Environment, "development")),
			LogFilePath: getEnv("LOG_FILE_PATH", or(file.App.LogFilePath, "logs/tricys-client.log")),
			NatsURL:     getEnv("NATS_URL", file.App.NatsURL),
		},
		API: APIConfig{
			BaseURL:        getEnv("TRICYS_API_URL", or(file.API.BaseURL, DefaultAPIBaseURL)),
			TimeoutSeconds: getEnvAsInt("TRICYS_HTTP_TIMEOUT_SECONDS", orInt(file.API.TimeoutSeconds, 30)),
		},
		Storage: StorageConfig{
			Driver:   getEnv("TRICYS_STORAGE", or(file.Storage.Driver, "file")),
			Path:     getEnv("TRICYS_STORAGE_PATH", or(file.Storage.Path, defaultStoragePath())),
			RedisURL: getEnv("REDIS_URL", or(file.Storage.RedisURL, "redis://localhost:6379")),
		},
		Viewer: ViewerConfig{
			PlaybackIntervalMs: getEnvAsInt("TRICYS_PLAYBACK_INTERVAL_MS", orInt(file.Viewer.PlaybackIntervalMs, 1000)),
			NotifyDurationMs:   getEnvAsInt("TRICYS_NOTIFY_DURATION_MS", orInt(file.Viewer.NotifyDurationMs, 3000)),
			ViewportWidth:      getEnvAsInt("TRICYS_VIEWPORT_WIDTH", orInt(file.Viewer.ViewportWidth, 1280)),
		},
		Bridge: BridgeConfig{
			Port:           getEnv("BRIDGE_PORT", or(file.Bridge.Port, "5174")),
			WSLogFilePath:  getEnv("BRIDGE_WS_LOG_FILE_PATH", or(file.Bridge.WSLogFilePath, "logs/bridge-ws.log")),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", or(file.Bridge.AllowedOrigins, "http://localhost:5173")),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", file.Tracing.Enabled),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", or(file.Tracing.Endpoint, "localhost:4318")),
		},
		Headless: HeadlessConfig{
			Username:  getEnv("TRICYS_USERNAME", file.Headless.Username),
			Password:  getEnv("TRICYS_PASSWORD", file.Headless.Password),
			ProjectID: getEnv("TRICYS_PROJECT_ID", file.Headless.ProjectID),
		},
	}
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) PlaybackInterval() time.Duration {
	return time.Duration(c.Viewer.PlaybackIntervalMs) * time.Millisecond
}

func (c *Config) NotifyDuration() time.Duration {
	return time.Duration(c.Viewer.NotifyDurationMs) * time.Millisecond
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".tricys", "storage.json")
	}
	return filepath.Join(home, ".tricys", "storage.json")
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
