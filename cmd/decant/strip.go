package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/TKasperczyk/decant/internal/strip"
	"github.com/TKasperczyk/decant/internal/transcript"
)

func (a *app) runStrip(ctx context.Context, arguments []string) int {
	arguments = reorderInterspersedFlags(arguments, nil)

	var dryRun, noBackup bool
	flagSet := flag.NewFlagSet("strip", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	a.addCommonFlags(flagSet)
	flagSet.BoolVar(&dryRun, "dry-run", false, "report savings without writing")
	flagSet.BoolVar(&dryRun, "n", false, "shorthand for --dry-run")
	flagSet.BoolVar(&noBackup, "no-backup", false, "skip the backup copy")

	if err := flagSet.Parse(arguments); err != nil {
		return a.fail(usageError("strip: %v", err))
	}
	if flagSet.NArg() != 1 {
		return a.fail(usageError("strip: expected exactly one session argument"))
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return a.fail(err)
	}
	session, err := a.resolveSession(ctx, cfg, flagSet.Arg(0))
	if err != nil {
		return a.fail(err)
	}

	entries, err := transcript.Load(session.Path)
	if err != nil {
		return a.fail(err)
	}
	stripped, report, err := strip.Run(entries)
	if err != nil {
		return a.fail(err)
	}

	s := a.out
	fmt.Fprintln(a.stdout, s.KV("Session", s.Dim(session.Path), keyWidth))
	fmt.Fprintln(a.stdout, s.KV("Messages", fmt.Sprintf("%d %s %d", report.OriginalCount, s.Dim(s.Sym.Arrow), report.FinalCount), keyWidth))
	fmt.Fprintln(a.stdout)
	a.printStripReport(report)

	if dryRun {
		fmt.Fprintf(a.stdout, "\n  %s\n", s.Warn("Dry run: session file not modified"))
		return exitOK
	}
	if report.SavedBytes == 0 {
		fmt.Fprintf(a.stdout, "\n  %s\n", s.Dim("Nothing to strip"))
		return exitOK
	}

	backupPath, err := transcript.Save(session.Path, stripped, !noBackup && cfg.Backup)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "\n  %s %s\n", s.Success(s.Sym.Check), s.Header("Done"))
	if backupPath != "" {
		fmt.Fprintln(a.stdout, s.KV("Backup", s.Dim(backupPath), keyWidth))
	}
	return exitOK
}
