package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/TKasperczyk/decant/internal/export"
	"github.com/TKasperczyk/decant/internal/highlight"
	"github.com/TKasperczyk/decant/internal/transcript"
)

const showPreviewRunes = 200

func (a *app) runShow(ctx context.Context, arguments []string) int {
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"grep": true, "g": true,
		"export": true,
	})

	var full, detailed, copyOut bool
	var grep, exportDir string
	flagSet := flag.NewFlagSet("show", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	a.addCommonFlags(flagSet)
	flagSet.BoolVar(&full, "full", false, "show full message text")
	flagSet.BoolVar(&full, "f", false, "shorthand for --full")
	flagSet.BoolVar(&detailed, "detailed", false, "render the main chain with tool calls and results")
	flagSet.BoolVar(&detailed, "d", false, "shorthand for --detailed")
	flagSet.StringVar(&grep, "grep", "", "only show exchanges containing this text")
	flagSet.StringVar(&grep, "g", "", "shorthand for --grep")
	flagSet.StringVar(&exportDir, "export", "", "write the conversation as markdown into this directory")
	flagSet.BoolVar(&copyOut, "copy", false, "copy the conversation to the clipboard as markdown")

	if err := flagSet.Parse(arguments); err != nil {
		return a.fail(usageError("show: %v", err))
	}
	if flagSet.NArg() != 1 {
		return a.fail(usageError("show: expected exactly one session argument"))
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
	exchanges := transcript.ExtractExchanges(entries)

	s := a.out
	fmt.Fprintln(a.stdout, s.KV("Session", s.Dim(session.Path), keyWidth))
	fmt.Fprintf(a.stdout, "             %s\n", s.Dim(fmt.Sprintf("%d messages, %d exchanges", len(entries), len(exchanges))))
	fmt.Fprintln(a.stdout)
	fmt.Fprintln(a.stdout, s.Rule(0))
	fmt.Fprintln(a.stdout)

	mark := func(text string) string { return s.Warn(text) }
	if detailed {
		body := transcript.DetailedTranscript(entries)
		if grep != "" {
			res := highlight.Apply(body, grep, mark)
			body = res.Text
			fmt.Fprintf(a.stdout, "  %s\n\n", s.Dim(fmt.Sprintf("%d matches on %d lines", res.Count, len(res.Lines))))
		}
		fmt.Fprintln(a.stdout, body)
	} else {
		shown := 0
		for i, ex := range exchanges {
			if !highlight.Contains(ex.Text, grep) {
				continue
			}
			shown++
			role := s.Label("USER")
			if ex.Role == transcript.TypeAssistant {
				role = s.Header("ASST")
			}
			text := ex.Text
			if !full {
				if clipped, ok := clipRunes(text, showPreviewRunes); ok {
					text = clipped + s.Sym.Ellipsis
				}
			}
			if grep != "" {
				text = highlight.Apply(text, grep, mark).Text
			}
			id, _ := clipRunes(ex.UUID, 8)
			fmt.Fprintf(a.stdout, "  %s  %s  %s\n", s.Header(fmt.Sprintf("#%d", i+1)), role, s.Dim(id))
			fmt.Fprintf(a.stdout, "      %s\n\n", strings.ReplaceAll(text, "\n", "\n      "))
		}
		if grep != "" && shown == 0 {
			a.errs.Error(a.stderr, fmt.Sprintf("no exchanges match %q.", grep))
		}
	}

	if exportDir != "" {
		exporter, err := export.New(exportDir)
		if err != nil {
			return a.fail(err)
		}
		path, err := exporter.Export(session, exchanges, a.now())
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintf(a.stdout, "  %s Exported to %s\n", s.Success(s.Sym.Check), s.Dim(path))
	}
	if copyOut {
		a.copyText(ctx, export.BuildTranscriptMarkdown(exchanges), "conversation")
	}
	return exitOK
}
