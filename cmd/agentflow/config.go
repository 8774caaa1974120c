package main

import (
	"os"
	"strconv"
)

// Config groups the ambient knobs the demo binary reads from the
// environment. The core engine packages take no dependency on this type;
// graph/config parsing for flows themselves stays out of scope.
type Config struct {
	LogLevel  string
	LogFormat string

	MetricsAddr string

	TraceEndpoint   string
	TraceServiceEnv string

	OpenAIAPIKey string
	OpenAIModel  string

	MaxIterations  uint32
	MaxConcurrency int
}

// LoadConfig reads Config from the environment, applying the same defaults
// the flag definitions in main.go fall back to when unset.
func LoadConfig() Config {
	cfg := Config{
		LogLevel:        envOr("AGENTFLOW_LOG_LEVEL", "info"),
		LogFormat:       envOr("AGENTFLOW_LOG_FORMAT", "json"),
		MetricsAddr:     envOr("AGENTFLOW_METRICS_ADDR", ":9090"),
		TraceEndpoint:   os.Getenv("AGENTFLOW_TRACE_ENDPOINT"),
		TraceServiceEnv: envOr("AGENTFLOW_ENV", "development"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("AGENTFLOW_OPENAI_MODEL", "gpt-4o-mini"),
		MaxIterations:   envOrUint32("AGENTFLOW_MAX_ITERATIONS", 256),
		MaxConcurrency:  envOrInt("AGENTFLOW_MAX_CONCURRENCY", 8),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrUint32(key string, fallback uint32) uint32 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint32(n)
		}
	}
	return fallback
}
