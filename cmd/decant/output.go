package main

import (
	"fmt"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
)

const keyWidth = 10

func exitCodeForError(err error) int {
	switch decanterrors.CategoryOf(err) {
	case decanterrors.CategoryInvalidArgument,
		decanterrors.CategoryInsufficientHistory,
		decanterrors.CategoryTopicNotFound:
		return exitInvalidInput
	}
	return exitFailure
}

// fail prints err and its hint to stderr and returns the exit code for it.
func (a *app) fail(err error) int {
	a.errs.Error(a.stderr, err.Error())
	if hint := decanterrors.HintOf(err); hint != "" {
		a.errs.Hint(a.stderr, hint)
	}
	a.logger.Debug("command failed", "category", decanterrors.CategoryOf(err), "error", err)
	return exitCodeForError(err)
}

func usageError(format string, args ...any) error {
	return decanterrors.New(decanterrors.CategoryInvalidArgument, "run `decant help` for usage", format, args...)
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}

func kilobytes(n int) string {
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// clipRunes keeps the first n runes of s.
func clipRunes(s string, n int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= n {
		return s, false
	}
	return string(runes[:n]), true
}
