package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/TKasperczyk/decant/internal/compact"
	"github.com/TKasperczyk/decant/internal/config"
	"github.com/TKasperczyk/decant/internal/index"
	"github.com/TKasperczyk/decant/internal/llm"
	"github.com/TKasperczyk/decant/internal/ui"
)

// version is stamped at release time via ldflags.
var version = "0.0.0-dev"

func main() {
	os.Exit(run(os.Args))
}

func run(arguments []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newApp(os.Stdout, os.Stderr).run(ctx, arguments)
}

type app struct {
	stdout io.Writer
	stderr io.Writer
	out    *ui.Styles
	errs   *ui.Styles
	logger *slog.Logger

	// verbose forces debug logging regardless of the configured level.
	verbose bool

	getwd      func() (string, error)
	now        func() time.Time
	newService func(cfg config.AppConfig) (compact.Service, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		out:    ui.New(stdout, ui.Detect(stdout)),
		errs:   ui.New(stderr, ui.Detect(stderr)),
		logger: newLogger(stderr, config.DefaultLogLevel),
		getwd:  os.Getwd,
		now:    time.Now,
		newService: func(cfg config.AppConfig) (compact.Service, error) {
			return llm.New(llm.Options{Timeout: cfg.Timeout})
		},
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *app) run(ctx context.Context, arguments []string) int {
	if len(arguments) < 2 {
		a.printUsage()
		return exitInvalidInput
	}

	switch arguments[1] {
	case "compact":
		return a.runCompact(ctx, arguments[2:])
	case "strip":
		return a.runStrip(ctx, arguments[2:])
	case "list", "ls":
		return a.runList(ctx, arguments[2:])
	case "show":
		return a.runShow(ctx, arguments[2:])
	case "version", "--version", "-v":
		fmt.Fprintln(a.stdout, "decant", version)
		return exitOK
	case "help", "--help", "-h":
		a.printUsage()
		return exitOK
	default:
		a.errs.Error(a.stderr, fmt.Sprintf("unknown command %q", arguments[1]))
		a.printUsage()
		return exitInvalidInput
	}
}

func (a *app) printUsage() {
	fmt.Fprint(a.stderr, `decant: selective offline compaction for Claude Code sessions

Usage:
  decant compact <session> (--topic T | --last N) [--model M] [--strip] [--dry-run] [--no-backup] [--timeout D] [--copy]
  decant strip <session> [--dry-run] [--no-backup]
  decant list [--all] [--project P] [--search Q] [--limit N] [--reindex]
  decant show <session> [--full] [--detailed] [--grep Q] [--export DIR] [--copy]
  decant version

<session> is a session id, a unique id prefix (6+ characters) or a path to a .jsonl file.
Every subcommand except version accepts --verbose for debug logging.
`)
}

// addCommonFlags registers the flags every subcommand accepts.
func (a *app) addCommonFlags(flagSet *flag.FlagSet) {
	flagSet.BoolVar(&a.verbose, "verbose", false, "log at debug level")
}

// loadConfig reads the optional config file, applies environment overrides
// and switches the logger to the configured level.
func (a *app) loadConfig() (config.AppConfig, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return config.AppConfig{}, err
	}
	file, err := config.Load(path, true)
	if err != nil {
		return config.AppConfig{}, err
	}
	cfg, err := config.Resolve(file)
	if err != nil {
		return config.AppConfig{}, err
	}
	level := cfg.LogLevel
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = newLogger(a.stderr, level)
	a.logger.Debug("config loaded", "path", path, "claude_home", cfg.ClaudeHome, "db", cfg.DBPath, "model", cfg.Model)
	return cfg, nil
}

// openIndex opens and refreshes the session index.
func (a *app) openIndex(ctx context.Context, cfg config.AppConfig, reindex bool) (*index.Indexer, error) {
	idx, err := index.New(cfg.ClaudeHome, cfg.DBPath, reindex)
	if err != nil {
		return nil, err
	}
	started := a.now()
	if err := idx.BuildIndex(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	a.logger.Debug("index refreshed", "projects", idx.ProjectsDir(), "elapsed", a.now().Sub(started))
	return idx, nil
}

func (a *app) resolveSession(ctx context.Context, cfg config.AppConfig, ref string) (index.Session, error) {
	idx, err := a.openIndex(ctx, cfg, false)
	if err != nil {
		return index.Session{}, err
	}
	defer idx.Close()
	return idx.FindSession(ctx, ref)
}
