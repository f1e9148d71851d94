package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/TKasperczyk/decant/internal/index"
)

func (a *app) runList(ctx context.Context, arguments []string) int {
	arguments = reorderInterspersedFlags(arguments, map[string]bool{
		"project": true, "p": true,
		"search": true, "q": true,
		"limit": true,
	})

	var all, reindex bool
	var filter index.Filter
	flagSet := flag.NewFlagSet("list", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	a.addCommonFlags(flagSet)
	flagSet.BoolVar(&all, "all", false, "list sessions across all projects")
	flagSet.BoolVar(&all, "a", false, "shorthand for --all")
	flagSet.StringVar(&filter.Project, "project", "", "filter by project directory substring")
	flagSet.StringVar(&filter.Project, "p", "", "shorthand for --project")
	flagSet.StringVar(&filter.Search, "search", "", "match words in summaries and first prompts")
	flagSet.StringVar(&filter.Search, "q", "", "shorthand for --search")
	flagSet.IntVar(&filter.Limit, "limit", 0, "show at most N sessions")
	flagSet.BoolVar(&reindex, "reindex", false, "rebuild the session index from scratch")

	if err := flagSet.Parse(arguments); err != nil {
		return a.fail(usageError("list: %v", err))
	}
	if flagSet.NArg() != 0 {
		return a.fail(usageError("list: unexpected arguments"))
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return a.fail(err)
	}
	idx, err := a.openIndex(ctx, cfg, reindex)
	if err != nil {
		return a.fail(err)
	}
	defer idx.Close()

	scoped := !all && filter.Project == ""
	if scoped {
		cwd, err := a.getwd()
		if err != nil {
			return a.fail(err)
		}
		filter.ProjectDir = index.CwdProjectDir(idx.ProjectsDir(), cwd)
		if filter.ProjectDir == "" {
			a.errs.Error(a.stderr, "no sessions for this project.")
			a.errs.Hint(a.stderr, "Use 'decant list --all' to list all sessions.")
			return exitOK
		}
	}

	sessions, err := idx.ListSessions(ctx, filter)
	if err != nil {
		return a.fail(err)
	}
	if len(sessions) == 0 {
		if scoped {
			a.errs.Error(a.stderr, "no sessions for this project.")
			a.errs.Hint(a.stderr, "Use 'decant list --all' to list all sessions.")
		} else {
			a.errs.Error(a.stderr, "no sessions found.")
		}
		return exitOK
	}

	s := a.out
	for i, sess := range sessions {
		project := sess.ProjectPath
		if project == "" {
			project = filepath.Base(filepath.Dir(sess.Path))
		}
		if r := []rune(project); len(r) > 40 {
			project = s.Sym.Ellipsis + string(r[len(r)-37:])
		}
		summary := sess.Preview()
		if summary == "" {
			summary = "(no summary)"
		}
		summary = s.Truncate(summary, 60)
		modified := index.FormatTimestamp(sess.LastActivity())
		id, _ := clipRunes(sess.ID, 8)

		fmt.Fprintf(a.stdout, "  %s  %5.1f MB  %s  %s\n", s.Dim(id), float64(sess.Size)/(1024*1024), modified, s.Dim(project))
		fmt.Fprintf(a.stdout, "             %s\n", s.Dim(summary))
		if i < len(sessions)-1 {
			fmt.Fprintln(a.stdout)
		}
	}
	return exitOK
}
