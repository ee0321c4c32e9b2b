// Package config provides configuration for the relay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Upstream call modes.
const (
	CallModeStream = "stream"
	CallModeSingle = "single"
)

// Config holds the relay configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	BodyLimit   string
	CORSOrigins []string

	// Storage
	StoreBackend string
	DatabaseURL  string
	DynamoTable  string

	// Upstream model
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMAPIKeyParam string
	LLMTimeout     time.Duration
	CallMode       string

	// Context
	HistoryWindow int
	TitleLength   int
	SystemPrompt  string

	// Per-owner turn limits. A zero rate disables limiting.
	TurnRatePerMin int
	TurnBurst      int

	// Live alert feed
	WSPingInterval   time.Duration
	WSWriteTimeout   time.Duration
	WSReadTimeout    time.Duration
	WSMaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables. When CONFIG_FILE names
// a TOML file its keys (lower-cased variable names) fill in anything the
// environment leaves unset.
func Load() (*Config, error) {
	l := loader{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file := map[string]interface{}{}
		if _, err := toml.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		l.file = file
	}

	cfg := &Config{
		HTTPPort:         l.getEnvInt("HTTP_PORT", 8080),
		BodyLimit:        l.getEnv("BODY_LIMIT", "50M"),
		CORSOrigins:      splitList(l.getEnv("CORS_ORIGINS", "*")),
		StoreBackend:     strings.ToLower(l.getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:      l.getEnv("DATABASE_URL", "file:seawatch.db?cache=shared&mode=rwc"),
		DynamoTable:      l.getEnv("DYNAMO_TABLE", "seawatch-sessions"),
		LLMBaseURL:       l.getEnv("LLM_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		LLMModel:         l.getEnv("LLM_MODEL", "qwen-vl-max"),
		LLMAPIKey:        l.getEnv("LLM_API_KEY", ""),
		LLMAPIKeyParam:   l.getEnv("LLM_API_KEY_PARAM", ""),
		LLMTimeout:       time.Duration(l.getEnvInt("LLM_TIMEOUT_MS", 0)) * time.Millisecond,
		CallMode:         strings.ToLower(l.getEnv("CALL_MODE", CallModeStream)),
		HistoryWindow:    l.getEnvInt("HISTORY_WINDOW", 6),
		TitleLength:      l.getEnvInt("TITLE_LENGTH", 15),
		SystemPrompt:     l.getEnv("SYSTEM_PROMPT", ""),
		TurnRatePerMin:   l.getEnvInt("TURN_RATE_PER_MIN", 30),
		TurnBurst:        l.getEnvInt("TURN_BURST", 5),
		WSPingInterval:   time.Duration(l.getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WSWriteTimeout:   time.Duration(l.getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		WSReadTimeout:    time.Duration(l.getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		WSMaxMessageSize: int64(l.getEnvInt("WS_MAX_MESSAGE_SIZE", 4096)),
		LogLevel:         l.getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendSQLite, BackendDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.CallMode {
	case CallModeStream, CallModeSingle:
	default:
		return fmt.Errorf("unknown CALL_MODE %q", c.CallMode)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must not be negative")
	}
	if c.TitleLength <= 0 {
		return fmt.Errorf("TITLE_LENGTH must be positive")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type loader struct {
	file map[string]interface{}
}

func (l loader) lookup(key string) (string, bool) {
	if val := os.Getenv(key); val != "" {
		return val, true
	}
	if v, ok := l.file[strings.ToLower(key)]; ok {
		if list, ok := v.([]interface{}); ok {
			items := make([]string, 0, len(list))
			for _, item := range list {
				items = append(items, fmt.Sprint(item))
			}
			return strings.Join(items, ","), true
		}
		return fmt.Sprint(v), true
	}
	return "", false
}

func (l loader) getEnv(key, defaultVal string) string {
	if val, ok := l.lookup(key); ok {
		return val
	}
	return defaultVal
}

func (l loader) getEnvInt(key string, defaultVal int) int {
	if val, ok := l.lookup(key); ok {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
