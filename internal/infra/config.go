package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv               string
	Port                 string
	DatabaseURL          string
	EngineBaseURL        string
	EngineWSURL          string
	EngineSubmitTimeout  time.Duration
	EngineTrackTimeout   time.Duration
	JobDeadline          time.Duration
	WorkflowTemplatePath string
	PromptDataDir        string
	EngineOutputDir      string
	SidecarRetryAttempts int
	SidecarRetryBackoff  time.Duration
	HTTPReadTimeout      time.Duration
	HTTPWriteTimeout     time.Duration
	HTTPIdleTimeout      time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8000"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		EngineBaseURL:        strings.TrimRight(getEnv("ENGINE_BASE_URL", "http://localhost:9000"), "/"),
		EngineWSURL:          os.Getenv("ENGINE_WS_URL"),
		EngineSubmitTimeout:  time.Second * time.Duration(getEnvInt("ENGINE_SUBMIT_TIMEOUT_SECONDS", 30)),
		EngineTrackTimeout:   time.Second * time.Duration(getEnvInt("ENGINE_TRACK_TIMEOUT_SECONDS", 300)),
		JobDeadline:          time.Second * time.Duration(getEnvInt("JOB_DEADLINE_SECONDS", 600)),
		WorkflowTemplatePath: os.Getenv("WORKFLOW_TEMPLATE_PATH"),
		PromptDataDir:        getEnv("PROMPT_DATA_DIR", "data"),
		EngineOutputDir:      getEnv("ENGINE_OUTPUT_DIR", "output"),
		SidecarRetryAttempts: getEnvInt("SIDECAR_RETRY_ATTEMPTS", 3),
		SidecarRetryBackoff:  time.Millisecond * time.Duration(getEnvInt("SIDECAR_RETRY_BACKOFF_MS", 500)),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 660)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	base, err := url.Parse(cfg.EngineBaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("ENGINE_BASE_URL must be an http(s) url, got %q", cfg.EngineBaseURL)
	}
	if cfg.EngineWSURL == "" {
		cfg.EngineWSURL = WSURLFromBase(cfg.EngineBaseURL)
	}
	if cfg.SidecarRetryAttempts < 1 {
		cfg.SidecarRetryAttempts = 1
	}
	if cfg.JobDeadline <= 0 {
		return nil, fmt.Errorf("JOB_DEADLINE_SECONDS must be positive")
	}

	return cfg, nil
}

// WSURLFromBase derives the engine status endpoint from its HTTP base URL.
// It returns "" when baseURL has no host.
func WSURLFromBase(baseURL string) string {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
