package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

func TestLoadAllowMissing(t *testing.T) {
	file, err := Load(filepath.Join(t.TempDir(), "config.yaml"), true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file != (File{}) {
		t.Fatalf("expected zero config, got %#v", file)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "config.yaml"), false); !decanterrors.Is(err, decanterrors.CategoryIOFailure) {
		t.Fatalf("expected io_failure for a required missing file, got %v", err)
	}
}

func TestLoadAndResolve(t *testing.T) {
	t.Setenv("DECANT_LOG_LEVEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "claude_home: " + filepath.Join(dir, "claude") + "\n" +
		"db_path: " + filepath.Join(dir, "index.sqlite") + "\n" +
		"model: Sonnet\n" +
		"timeout: 90s\n" +
		"strip: true\n" +
		"backup: false\n" +
		"log_level: DEBUG\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	file, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := Resolve(file)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ClaudeHome != filepath.Join(dir, "claude") {
		t.Fatalf("unexpected claude home %q", cfg.ClaudeHome)
	}
	if cfg.DBPath != filepath.Join(dir, "index.sqlite") {
		t.Fatalf("unexpected db path %q", cfg.DBPath)
	}
	if cfg.Model != "claude-sonnet-4-5-20250929" {
		t.Fatalf("unexpected model %q", cfg.Model)
	}
	if cfg.Timeout != 90*time.Second || !cfg.Strip || cfg.Backup {
		t.Fatalf("unexpected settings %#v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level %v", cfg.LogLevel)
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("CLAUDE_HOME", "/tmp/claude-home")
	t.Setenv("DECANT_LOG_LEVEL", "")
	cfg, err := Resolve(File{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ClaudeHome != "/tmp/claude-home" {
		t.Fatalf("expected CLAUDE_HOME, got %q", cfg.ClaudeHome)
	}
	if cfg.Model != Models[DefaultModelAlias] || cfg.Timeout != DefaultTimeout || !cfg.Backup || cfg.Strip {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected warn level, got %v", cfg.LogLevel)
	}
}

func TestResolveRejectsBadValues(t *testing.T) {
	t.Setenv("DECANT_LOG_LEVEL", "")
	tests := []struct {
		name string
		file File
	}{
		{name: "timeout", file: File{Timeout: "soon"}},
		{name: "negative timeout", file: File{Timeout: "-5s"}},
		{name: "model", file: File{Model: "gpt"}},
		{name: "log level", file: File{LogLevel: "loud"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Resolve(tc.file); !decanterrors.Is(err, decanterrors.CategoryInvalidArgument) {
				t.Fatalf("expected invalid_argument, got %v", err)
			}
		})
	}
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "haiku", want: "claude-haiku-4-5-20251001"},
		{in: "OPUS", want: "claude-opus-4-6"},
		{in: "claude-3-7-sonnet-latest", want: "claude-3-7-sonnet-latest"},
	}
	for _, tc := range tests {
		got, err := ResolveModel(tc.in)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("resolve %q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("DECANT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if got != filepath.Join("/xdg", "decant", "config.yaml") {
		t.Fatalf("unexpected path %q", got)
	}
	t.Setenv("DECANT_CONFIG", "/etc/decant.yaml")
	if got, _ := DefaultPath(); got != "/etc/decant.yaml" {
		t.Fatalf("expected DECANT_CONFIG to win, got %q", got)
	}
}
