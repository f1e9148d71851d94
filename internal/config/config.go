package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultModelAlias   = "haiku"
	DefaultTimeout      = 120 * time.Second
	DefaultLogLevel     = slog.LevelWarn
)

// Models maps short aliases to model ids.
var Models = map[string]string{
	"haiku":  "claude-haiku-4-5-20251001",
	"sonnet": "claude-sonnet-4-5-20250929",
	"opus":   "claude-opus-4-6",
}

// File is the optional YAML defaults file.
type File struct {
	ClaudeHome string `yaml:"claude_home"`
	DBPath     string `yaml:"db_path"`
	Model      string `yaml:"model"`
	Timeout    string `yaml:"timeout"`
	Strip      *bool  `yaml:"strip"`
	Backup     *bool  `yaml:"backup"`
	LogLevel   string `yaml:"log_level"`
}

// AppConfig is the resolved configuration shared by all subcommands.
type AppConfig struct {
	ClaudeHome string
	DBPath     string
	Model      string
	Timeout    time.Duration
	Strip      bool
	Backup     bool
	LogLevel   slog.Level
}

// DefaultPath locates the YAML file: DECANT_CONFIG, then
// $XDG_CONFIG_HOME/decant/config.yaml, then ~/.config/decant/config.yaml.
func DefaultPath() (string, error) {
	if fromEnv := os.Getenv("DECANT_CONFIG"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "decant", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "decant", "config.yaml"), nil
}

// Load reads the YAML file at path. A missing or blank file yields the zero
// File when allowMissing is set.
func Load(path string, allowMissing bool) (File, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return File{}, fmt.Errorf("config path is required")
	}

	content, err := os.ReadFile(trimmedPath)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return File{}, nil
		}
		return File{}, decanterrors.Wrap(fmt.Errorf("read config: %w", err), decanterrors.CategoryIOFailure, "")
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return File{}, nil
	}

	var file File
	if err := yaml.Unmarshal(content, &file); err != nil {
		return File{}, decanterrors.Wrap(fmt.Errorf("parse config %s: %w", trimmedPath, err),
			decanterrors.CategoryInvalidArgument, "fix or remove the config file")
	}
	file.normalize()
	return file, nil
}

func (f *File) normalize() {
	f.ClaudeHome = strings.TrimSpace(f.ClaudeHome)
	f.DBPath = strings.TrimSpace(f.DBPath)
	f.Model = strings.ToLower(strings.TrimSpace(f.Model))
	f.Timeout = strings.TrimSpace(f.Timeout)
	f.LogLevel = strings.ToLower(strings.TrimSpace(f.LogLevel))
}

// Resolve applies environment overrides and defaults on top of file.
func Resolve(file File) (AppConfig, error) {
	cfg := AppConfig{
		Timeout:  DefaultTimeout,
		Backup:   true,
		LogLevel: DefaultLogLevel,
	}
	var err error

	cfg.ClaudeHome, err = DetectClaudeHome(file.ClaudeHome)
	if err != nil {
		return cfg, err
	}
	cfg.DBPath = file.DBPath
	if cfg.DBPath == "" {
		cfg.DBPath, err = DefaultDBPath()
		if err != nil {
			return cfg, err
		}
	}

	model := file.Model
	if model == "" {
		model = DefaultModelAlias
	}
	if cfg.Model, err = ResolveModel(model); err != nil {
		return cfg, err
	}

	if file.Timeout != "" {
		timeout, err := time.ParseDuration(file.Timeout)
		if err != nil || timeout <= 0 {
			return cfg, decanterrors.New(decanterrors.CategoryInvalidArgument, "use a duration such as 90s or 3m",
				"invalid timeout %q in config", file.Timeout)
		}
		cfg.Timeout = timeout
	}
	if file.Strip != nil {
		cfg.Strip = *file.Strip
	}
	if file.Backup != nil {
		cfg.Backup = *file.Backup
	}

	level := file.LogLevel
	if fromEnv := os.Getenv("DECANT_LOG_LEVEL"); fromEnv != "" {
		level = fromEnv
	}
	if level != "" {
		if cfg.LogLevel, err = ParseLogLevel(level); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func DetectClaudeHome(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("CLAUDE_HOME"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude"), nil
}

func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "decant", "index.sqlite"), nil
}

// ResolveModel maps an alias to its model id. Full claude-* ids pass through.
func ResolveModel(name string) (string, error) {
	name = strings.TrimSpace(name)
	if id, ok := Models[strings.ToLower(name)]; ok {
		return id, nil
	}
	if strings.HasPrefix(name, "claude-") {
		return name, nil
	}
	aliases := make([]string, 0, len(Models))
	for alias := range Models {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return "", decanterrors.New(decanterrors.CategoryInvalidArgument,
		"use one of "+strings.Join(aliases, ", ")+" or a full claude-* model id", "unknown model %q", name)
}

func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return DefaultLogLevel, decanterrors.New(decanterrors.CategoryInvalidArgument,
			"use debug, info, warn or error", "invalid log level %q", s)
	}
	return level, nil
}
