// Package config resolves todoboard settings from the environment, falling
// back to the active remote profile and then to built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	APIURL   string // TODOBOARD_API_URL (default "http://localhost:8000")
	BasePath string // TODOBOARD_BASE_PATH (default "/api")
	Token    string // TODOBOARD_TOKEN (optional, empty = no Authorization header)
	NATSURL  string // TODOBOARD_NATS_URL (optional, empty = no events)

	HTTPTimeout    time.Duration // TODOBOARD_HTTP_TIMEOUT (default 30s)
	StaleTime      time.Duration // TODOBOARD_STALE_TIME (default 15s)
	ListsStaleTime time.Duration // TODOBOARD_LISTS_STALE_TIME (default 30s)
	ReadRetries    int           // TODOBOARD_READ_RETRIES (default 1)
	RetryDelay     time.Duration // TODOBOARD_RETRY_DELAY (default 1s)

	LogLevel  string // TODOBOARD_LOG_LEVEL (default "warn")
	LogFormat string // TODOBOARD_LOG_FORMAT ("text" or "json", default "text")

	// Export settings
	ExportS3Bucket   string // TODOBOARD_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Key      string // TODOBOARD_EXPORT_S3_KEY (default "todoboard/export.jsonl")
	ExportS3Region   string // TODOBOARD_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Endpoint string // TODOBOARD_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportGitRepo    string // TODOBOARD_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string // TODOBOARD_EXPORT_GIT_FILE (default "todoboard.jsonl")
	ExportGitBranch  string // TODOBOARD_EXPORT_GIT_BRANCH (default "main")

	// Remote is the name of the active remote profile, if one was applied.
	Remote string
}

// Load reads the environment and the active remote profile.
func Load() (*Config, error) {
	path, err := RemotesPath()
	if err != nil {
		return nil, err
	}
	name, remote, err := ActiveRemote(path)
	if err != nil {
		return nil, fmt.Errorf("loading remotes: %w", err)
	}
	return load(name, remote)
}

func load(remoteName string, remote Remote) (*Config, error) {
	c := &Config{
		APIURL:           envOrDefault("TODOBOARD_API_URL", firstNonEmpty(remote.URL, "http://localhost:8000")),
		BasePath:         envOrDefault("TODOBOARD_BASE_PATH", "/api"),
		Token:            envOrDefault("TODOBOARD_TOKEN", remote.Token),
		NATSURL:          envOrDefault("TODOBOARD_NATS_URL", remote.NATSURL),
		LogLevel:         strings.ToLower(envOrDefault("TODOBOARD_LOG_LEVEL", "warn")),
		LogFormat:        strings.ToLower(envOrDefault("TODOBOARD_LOG_FORMAT", "text")),
		ExportS3Bucket:   os.Getenv("TODOBOARD_EXPORT_S3_BUCKET"),
		ExportS3Key:      envOrDefault("TODOBOARD_EXPORT_S3_KEY", "todoboard/export.jsonl"),
		ExportS3Region:   envOrDefault("TODOBOARD_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Endpoint: os.Getenv("TODOBOARD_EXPORT_S3_ENDPOINT"),
		ExportGitRepo:    os.Getenv("TODOBOARD_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("TODOBOARD_EXPORT_GIT_FILE", "todoboard.jsonl"),
		ExportGitBranch:  envOrDefault("TODOBOARD_EXPORT_GIT_BRANCH", "main"),
	}
	if remote.URL != "" {
		c.Remote = remoteName
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"TODOBOARD_HTTP_TIMEOUT", "30s", &c.HTTPTimeout},
		{"TODOBOARD_STALE_TIME", "15s", &c.StaleTime},
		{"TODOBOARD_LISTS_STALE_TIME", "30s", &c.ListsStaleTime},
		{"TODOBOARD_RETRY_DELAY", "1s", &c.RetryDelay},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(envOrDefault(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s: must not be negative", d.key)
		}
		*d.dst = v
	}

	retries, err := strconv.Atoi(envOrDefault("TODOBOARD_READ_RETRIES", "1"))
	if err != nil {
		return nil, fmt.Errorf("TODOBOARD_READ_RETRIES: %w", err)
	}
	if retries < 0 {
		return nil, fmt.Errorf("TODOBOARD_READ_RETRIES: must not be negative")
	}
	c.ReadRetries = retries

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return nil, fmt.Errorf("TODOBOARD_LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("TODOBOARD_LOG_FORMAT: want text or json, got %q", c.LogFormat)
	}
	return c, nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
