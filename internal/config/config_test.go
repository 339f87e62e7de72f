package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// allEnvVars lists every variable Load reads; they are cleared between tests.
var allEnvVars = []string{
	"TODOBOARD_API_URL", "TODOBOARD_BASE_PATH", "TODOBOARD_TOKEN", "TODOBOARD_NATS_URL",
	"TODOBOARD_HTTP_TIMEOUT", "TODOBOARD_STALE_TIME", "TODOBOARD_LISTS_STALE_TIME",
	"TODOBOARD_READ_RETRIES", "TODOBOARD_RETRY_DELAY", "TODOBOARD_LOG_LEVEL", "TODOBOARD_LOG_FORMAT",
	"TODOBOARD_EXPORT_S3_BUCKET", "TODOBOARD_EXPORT_S3_KEY", "TODOBOARD_EXPORT_S3_REGION",
	"TODOBOARD_EXPORT_S3_ENDPOINT", "TODOBOARD_EXPORT_GIT_REPO", "TODOBOARD_EXPORT_GIT_FILE",
	"TODOBOARD_EXPORT_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"APIURL", cfg.APIURL, "http://localhost:8000"},
		{"BasePath", cfg.BasePath, "/api"},
		{"Token", cfg.Token, ""},
		{"NATSURL", cfg.NATSURL, ""},
		{"HTTPTimeout", cfg.HTTPTimeout, 30 * time.Second},
		{"StaleTime", cfg.StaleTime, 15 * time.Second},
		{"ListsStaleTime", cfg.ListsStaleTime, 30 * time.Second},
		{"ReadRetries", cfg.ReadRetries, 1},
		{"RetryDelay", cfg.RetryDelay, time.Second},
		{"LogLevel", cfg.LogLevel, "warn"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"ExportS3Key", cfg.ExportS3Key, "todoboard/export.jsonl"},
		{"ExportS3Region", cfg.ExportS3Region, "us-east-1"},
		{"ExportGitFile", cfg.ExportGitFile, "todoboard.jsonl"},
		{"ExportGitBranch", cfg.ExportGitBranch, "main"},
		{"Remote", cfg.Remote, ""},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("TODOBOARD_API_URL", "https://todo.example.com")
	t.Setenv("TODOBOARD_BASE_PATH", "/v2")
	t.Setenv("TODOBOARD_TOKEN", "secret")
	t.Setenv("TODOBOARD_NATS_URL", "nats://localhost:4222")
	t.Setenv("TODOBOARD_HTTP_TIMEOUT", "5s")
	t.Setenv("TODOBOARD_STALE_TIME", "0s")
	t.Setenv("TODOBOARD_READ_RETRIES", "3")
	t.Setenv("TODOBOARD_LOG_LEVEL", "DEBUG")
	t.Setenv("TODOBOARD_LOG_FORMAT", "json")
	t.Setenv("TODOBOARD_EXPORT_S3_BUCKET", "backups")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "https://todo.example.com" || cfg.BasePath != "/v2" || cfg.Token != "secret" {
		t.Errorf("connection settings = %+v", cfg)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.StaleTime != 0 || cfg.ReadRetries != 3 {
		t.Errorf("cache settings = %v %v %d", cfg.HTTPTimeout, cfg.StaleTime, cfg.ReadRetries)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("log settings = %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.ExportS3Bucket != "backups" {
		t.Errorf("ExportS3Bucket = %q", cfg.ExportS3Bucket)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for _, tc := range []struct {
		key, value string
	}{
		{"TODOBOARD_HTTP_TIMEOUT", "soon"},
		{"TODOBOARD_STALE_TIME", "-1s"},
		{"TODOBOARD_RETRY_DELAY", "1"},
		{"TODOBOARD_READ_RETRIES", "once"},
		{"TODOBOARD_READ_RETRIES", "-2"},
		{"TODOBOARD_LOG_LEVEL", "loud"},
		{"TODOBOARD_LOG_FORMAT", "xml"},
	} {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.key) {
				t.Errorf("error %q does not name %s", err, tc.key)
			}
		})
	}
}

func TestLoad_ActiveRemote(t *testing.T) {
	clearAllEnv(t)
	ctx := context.Background()
	path, err := RemotesPath()
	if err != nil {
		t.Fatalf("RemotesPath() error = %v", err)
	}
	if err := AddRemote(ctx, path, "prod", Remote{URL: "https://prod.example.com", Token: "prod-token", NATSURL: "nats://prod:4222"}); err != nil {
		t.Fatalf("AddRemote() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:8000" || cfg.Remote != "" {
		t.Errorf("inactive remote applied: %+v", cfg)
	}

	if err := UseRemote(ctx, path, "prod"); err != nil {
		t.Fatalf("UseRemote() error = %v", err)
	}
	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "https://prod.example.com" || cfg.Token != "prod-token" || cfg.NATSURL != "nats://prod:4222" || cfg.Remote != "prod" {
		t.Errorf("active remote not applied: %+v", cfg)
	}

	t.Setenv("TODOBOARD_API_URL", "http://override:9000")
	cfg, _ = Load()
	if cfg.APIURL != "http://override:9000" || cfg.Token != "prod-token" {
		t.Errorf("env should win over the remote: %+v", cfg)
	}
}

func TestRemotes_Lifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remotes.toml")

	cfg, err := LoadRemotes(path)
	if err != nil {
		t.Fatalf("LoadRemotes(missing) error = %v", err)
	}
	if len(cfg.Remotes) != 0 || cfg.Active != "" {
		t.Errorf("missing file = %+v, want empty", cfg)
	}

	if err := AddRemote(ctx, path, "local", Remote{URL: "http://localhost:8000"}); err != nil {
		t.Fatal(err)
	}
	if err := AddRemote(ctx, path, "staging", Remote{URL: "https://staging", Description: "shared"}); err != nil {
		t.Fatal(err)
	}
	if err := UseRemote(ctx, path, "staging"); err != nil {
		t.Fatal(err)
	}
	if err := UseRemote(ctx, path, "nope"); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("UseRemote(nope) error = %v, want ErrRemoteNotFound", err)
	}

	name, r, err := ActiveRemote(path)
	if err != nil || name != "staging" || r.Description != "shared" {
		t.Errorf("ActiveRemote() = %q %+v %v", name, r, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("remotes file mode = %o, want 600", perm)
	}

	if err := RemoveRemote(ctx, path, "staging"); err != nil {
		t.Fatal(err)
	}
	cfg, _ = LoadRemotes(path)
	if cfg.Active != "" || len(cfg.Remotes) != 1 {
		t.Errorf("after remove = %+v", cfg)
	}
	if err := RemoveRemote(ctx, path, "staging"); !errors.Is(err, ErrRemoteNotFound) {
		t.Errorf("second remove error = %v", err)
	}
}

func TestAddRemote_Validation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotes.toml")
	if err := AddRemote(context.Background(), path, "", Remote{URL: "http://x"}); err == nil {
		t.Error("empty name accepted")
	}
	if err := AddRemote(context.Background(), path, "x", Remote{}); err == nil {
		t.Error("empty url accepted")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed add wrote the file")
	}
}

func TestUpdateRemotes_Serialized(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "remotes.toml")

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			errs <- AddRemote(ctx, path, string(rune('a'+i)), Remote{URL: "http://host"})
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("AddRemote() error = %v", err)
		}
	}
	cfg, err := LoadRemotes(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Remotes) != n {
		t.Errorf("remotes = %d, want %d (lost updates)", len(cfg.Remotes), n)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
}
