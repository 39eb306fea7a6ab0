package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	Env     string
	Verbose bool
	LLM     LLMConfig
	Session SessionConfig
}

type LLMConfig struct {
	APIKey         string
	ReasoningModel string
	VisionModel    string
	RPS            float64
	Burst          int
}

type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

// Load reads .env (when present) and the environment. Flags bound by the
// caller override the returned values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:    NormalizePort(firstNonEmpty(os.Getenv("PORT"), ":8081")),
		Env:     env,
		Verbose: envBool("POLYGON_VERBOSE", false),
		LLM: LLMConfig{
			APIKey:         strings.TrimSpace(firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY"))),
			ReasoningModel: strings.TrimSpace(os.Getenv("POLYGON_REASONING_MODEL")),
			VisionModel:    strings.TrimSpace(os.Getenv("POLYGON_VISION_MODEL")),
			RPS:            envFloat("LLM_RPS", 0),
			Burst:          envInt("LLM_BURST", 1),
		},
		Session: SessionConfig{
			TTL:         envDuration("POLYGON_SESSION_TTL", 2*time.Hour),
			MaxSessions: envInt("POLYGON_MAX_SESSIONS", 1024),
		},
	}, nil
}

// NormalizePort accepts "8081" or ":8081" or "host:8081".
func NormalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
