package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/TKasperczyk/decant/internal/clipboard"
	"github.com/TKasperczyk/decant/internal/compact"
	"github.com/TKasperczyk/decant/internal/config"
	decanterrors "github.com/TKasperczyk/decant/internal/errors"
	"github.com/TKasperczyk/decant/internal/strip"
	"github.com/TKasperczyk/decant/internal/transcript"
	"github.com/TKasperczyk/decant/internal/ui"
)

const summaryPreviewRunes = 500

type compactOptions struct {
	topic    string
	last     int
	model    string
	strip    bool
	dryRun   bool
	noBackup bool
	timeout  time.Duration
	copy     bool
}

func (a *app) runCompact(ctx context.Context, arguments []string) int {
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"topic": true, "t": true,
		"last": true, "l": true,
		"model": true, "m": true,
		"timeout": true,
	})

	var opts compactOptions
	flagSet := flag.NewFlagSet("compact", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	a.addCommonFlags(flagSet)
	flagSet.StringVar(&opts.topic, "topic", "", "keep from this topic onward, summarize everything before")
	flagSet.StringVar(&opts.topic, "t", "", "shorthand for --topic")
	flagSet.IntVar(&opts.last, "last", 0, "keep the last N user turns, summarize everything before")
	flagSet.IntVar(&opts.last, "l", 0, "shorthand for --last")
	flagSet.StringVar(&opts.model, "model", "", "summarization model alias or id")
	flagSet.StringVar(&opts.model, "m", "", "shorthand for --model")
	flagSet.BoolVar(&opts.strip, "strip", false, "strip noise before compaction")
	flagSet.BoolVar(&opts.strip, "s", false, "shorthand for --strip")
	flagSet.BoolVar(&opts.dryRun, "dry-run", false, "report the boundary without changing anything")
	flagSet.BoolVar(&opts.dryRun, "n", false, "shorthand for --dry-run")
	flagSet.BoolVar(&opts.noBackup, "no-backup", false, "skip the backup copy")
	flagSet.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout for the summarization service")
	flagSet.BoolVar(&opts.copy, "copy", false, "copy the summary to the clipboard")

	if err := flagSet.Parse(arguments); err != nil {
		return a.fail(usageError("compact: %v", err))
	}
	if flagSet.NArg() != 1 {
		return a.fail(usageError("compact: expected exactly one session argument"))
	}
	topicSet := strings.TrimSpace(opts.topic) != ""
	lastSet := false
	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == "last" || f.Name == "l" {
			lastSet = true
		}
	})
	if topicSet == lastSet {
		return a.fail(usageError("compact: specify exactly one of --topic or --last"))
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return a.fail(err)
	}
	if opts.model != "" {
		if cfg.Model, err = config.ResolveModel(opts.model); err != nil {
			return a.fail(err)
		}
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	opts.strip = opts.strip || cfg.Strip
	opts.noBackup = opts.noBackup || !cfg.Backup

	if err := a.compact(ctx, cfg, flagSet.Arg(0), opts); err != nil {
		return a.fail(err)
	}
	return exitOK
}

func (a *app) compact(ctx context.Context, cfg config.AppConfig, ref string, opts compactOptions) error {
	session, err := a.resolveSession(ctx, cfg, ref)
	if err != nil {
		return err
	}
	path := session.Path

	info, err := os.Stat(path)
	if err != nil {
		return decanterrors.Wrap(fmt.Errorf("stat %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	originalBytes := info.Size()
	entries, err := transcript.Load(path)
	if err != nil {
		return err
	}
	for _, perr := range transcript.ParseErrors(entries) {
		a.logger.Warn("unparseable line kept as-is", "error", perr)
	}

	s := a.out
	fmt.Fprintln(a.stdout, s.KV("Session", s.Dim(path), keyWidth))
	fmt.Fprintln(a.stdout, s.KV("Size", megabytes(originalBytes), keyWidth))
	fmt.Fprintln(a.stdout, s.KV("Model", s.Accent(cfg.Model), keyWidth))
	fmt.Fprintln(a.stdout, s.KV("Messages", fmt.Sprintf("%d", len(entries)), keyWidth))

	backupPath := ""
	if !opts.noBackup && !opts.dryRun {
		if backupPath, err = transcript.Backup(path, a.now()); err != nil {
			return err
		}
		a.logger.Info("backup written", "path", backupPath)
	}

	if opts.strip && !opts.dryRun {
		fmt.Fprintf(a.stdout, "\n  %s\n", s.Header("Stripping noise..."))
		stripped, report, err := strip.Run(entries)
		if err != nil {
			return err
		}
		a.printStripReport(report)
		if _, err := transcript.Save(path, stripped, false); err != nil {
			return err
		}
		entries = stripped
	}

	var service compact.Service
	needService := opts.topic != "" || !opts.dryRun
	if needService {
		if service, err = a.newService(cfg); err != nil {
			return err
		}
	}
	compactor, err := compact.New(service, &compact.Config{Model: cfg.Model}, a.logger)
	if err != nil {
		return err
	}

	exchanges := transcript.ExtractExchanges(entries)
	var boundary string
	if opts.topic != "" {
		if len(exchanges) == 0 {
			return decanterrors.New(decanterrors.CategoryInsufficientHistory, "", "no conversational exchanges found in session")
		}
		fmt.Fprintf(a.stdout, "\n  %s\n", s.Dim(fmt.Sprintf("Extracted %d exchanges", len(exchanges))))
		sp := a.errs.NewSpinner(a.stderr, "Finding boundary for topic: "+a.errs.Accent(fmt.Sprintf("%q", opts.topic)))
		err := sp.Run(ctx, func(ctx context.Context) error {
			var err error
			boundary, err = compactor.FindBoundaryByTopic(ctx, exchanges, opts.topic)
			return err
		})
		if err != nil {
			return err
		}
		sp.Done(a.boundaryPreview(exchanges, boundary))
	} else {
		fmt.Fprintf(a.stdout, "\n  Keeping last %s user turns\n", s.Header(fmt.Sprintf("%d", opts.last)))
		if boundary, err = compact.FindBoundaryByCount(exchanges, opts.last); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "  %s Boundary: %s\n", s.Success(s.Sym.Check), a.boundaryPreview(exchanges, boundary))
	}

	if opts.dryRun {
		tail := compact.CollectTailUUIDs(entries, boundary)
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, s.TitledRule(s.Warn("Dry Run"), 0))
		fmt.Fprintln(a.stdout)
		fmt.Fprintln(a.stdout, s.KV("Boundary", s.Dim(boundary), keyWidth))
		fmt.Fprintln(a.stdout, s.KV("Head", fmt.Sprintf("~%d messages %s", len(entries)-len(tail), s.Dim("(to summarize)")), keyWidth))
		fmt.Fprintln(a.stdout, s.KV("Tail", fmt.Sprintf("~%d messages %s", len(tail), s.Dim("(to keep)")), keyWidth))
		return nil
	}

	var summary string
	sp := a.errs.NewSpinner(a.stderr, "Summarizing head section")
	if err := sp.Run(ctx, func(ctx context.Context) error {
		var err error
		summary, err = compactor.SummarizeHead(ctx, entries, boundary)
		return err
	}); err != nil {
		return err
	}
	sp.Done(fmt.Sprintf("%d chars", len([]rune(summary))))
	a.printSummaryPreview(summary)

	var result compact.Result
	sp = a.errs.NewSpinner(a.stderr, "Compacting session")
	if err := sp.Run(ctx, func(context.Context) error {
		var err error
		result, err = compactor.CompactFile(path, boundary, summary, false)
		return err
	}); err != nil {
		if decanterrors.Is(err, decanterrors.CategoryBoundaryNotFound) && backupPath != "" {
			return decanterrors.Wrap(err, decanterrors.CategoryBoundaryNotFound, "the session file is unchanged by compaction; the pre-run copy is at "+backupPath)
		}
		return err
	}
	sp.Done("")
	result = result.Rebase(originalBytes, backupPath)
	a.printCompactResult(result)

	if opts.copy {
		a.copyText(ctx, summary, "summary")
	}
	return nil
}

func (a *app) boundaryPreview(exchanges []transcript.Exchange, boundary string) string {
	for _, ex := range exchanges {
		if ex.UUID != boundary {
			continue
		}
		preview, _ := clipRunes(strings.ReplaceAll(ex.Text, "\n", " "), 80)
		return a.out.Dim("["+ex.Role+"]") + " " + preview + a.out.Sym.Ellipsis
	}
	return a.out.Dim(boundary)
}

func (a *app) printSummaryPreview(summary string) {
	s := a.out
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, s.TitledRule("Summary Preview", 0))
	preview, clipped := clipRunes(summary, summaryPreviewRunes)
	fmt.Fprintln(a.stdout, strings.TrimRight(s.Markdown(preview, config.DefaultGlamourStyle, 0), "\n"))
	if clipped {
		fmt.Fprintln(a.stdout, s.Dim(s.Sym.Ellipsis))
	}
	fmt.Fprintln(a.stdout, s.Rule(0))
	fmt.Fprintln(a.stdout)
}

func (a *app) printCompactResult(r compact.Result) {
	s := a.out
	arrow := s.Dim(s.Sym.Arrow)
	fmt.Fprintf(a.stdout, "\n  %s %s\n", s.Success(s.Sym.Check), s.Header("Done"))
	fmt.Fprintln(a.stdout, s.KV("Messages", fmt.Sprintf("%d %s %d", r.OriginalMessages, arrow, r.FinalMessages), keyWidth))
	fmt.Fprintln(a.stdout, s.KV("Size", fmt.Sprintf("%s %s %s  %s %s",
		megabytes(r.OriginalBytes), arrow, megabytes(r.FinalBytes),
		s.Success(megabytes(r.SavedBytes)+" saved"),
		s.Dim(fmt.Sprintf("(%.1f%%)", percent(r.SavedBytes, r.OriginalBytes)))), keyWidth))
	if r.BackupPath != "" {
		fmt.Fprintln(a.stdout, s.KV("Backup", s.Dim(r.BackupPath), keyWidth))
	}
}

func (a *app) printStripReport(report strip.Report) {
	s := a.out
	for _, b := range report.Breakdown {
		if b.SavedBytes > 0 {
			fmt.Fprintln(a.stdout, s.Bullet(fmt.Sprintf("%-24s %s", b.Name, s.Dim(kilobytes(b.SavedBytes))), 4))
		}
	}
	fmt.Fprintln(a.stdout, s.Bullet(fmt.Sprintf("Removed %d messages, saved %s %s",
		report.RemovedMessages, kilobytes(report.SavedBytes), s.Dim(fmt.Sprintf("(%.1f%%)", report.Percent))), 4))
}

// copyText copies text to the clipboard; failure only warns.
func (a *app) copyText(ctx context.Context, text, what string) {
	var term io.Writer
	if ui.IsTerminal(a.stderr) {
		term = a.stderr
	}
	via, err := clipboard.Copy(ctx, text, term)
	if err != nil {
		a.errs.Hint(a.stderr, fmt.Sprintf("could not copy %s to clipboard: %v", what, err))
		return
	}
	a.logger.Debug("copied to clipboard", "what", what, "via", via)
	fmt.Fprintf(a.stdout, "  %s Copied %s to clipboard\n", a.out.Success(a.out.Sym.Check), what)
}
