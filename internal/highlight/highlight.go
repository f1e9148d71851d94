// Package highlight marks case-insensitive matches in text that may already
// carry ANSI styling, without splitting escape sequences.
package highlight

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text  string
	Count int
	// Lines holds the 0-based indexes of lines with at least one match.
	Lines []int
}

// Contains reports whether the visible text of s contains query, ignoring case.
func Contains(s, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	_, _, ok := indexFold(ansi.Strip(s), query)
	return ok
}

// Apply wraps every match of query in input. Matches never span an escape
// sequence or a line break.
func Apply(input, query string, wrap func(string) string) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	var out strings.Builder
	res := Result{}
	for lineNo, line := range strings.SplitAfter(input, "\n") {
		core := strings.TrimSuffix(line, "\n")
		rendered, count := applyToANSIText(core, query, wrap)
		out.WriteString(rendered)
		if len(core) < len(line) {
			out.WriteByte('\n')
		}
		if count > 0 {
			res.Lines = append(res.Lines, lineNo)
			res.Count += count
		}
	}
	res.Text = out.String()
	return res
}

func applyToANSIText(s, query string, wrap func(string) string) (string, int) {
	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range ansiCSI.FindAllStringIndex(s, -1) {
		plain, count := applyToPlain(s[pos:idx[0]], query, wrap)
		out.WriteString(plain)
		out.WriteString(s[idx[0]:idx[1]])
		total += count
		pos = idx[1]
	}
	plain, count := applyToPlain(s[pos:], query, wrap)
	out.WriteString(plain)
	return out.String(), total + count
}

func applyToPlain(s, query string, wrap func(string) string) (string, int) {
	var out strings.Builder
	count := 0
	for s != "" {
		start, end, ok := indexFold(s, query)
		if !ok {
			break
		}
		out.WriteString(s[:start])
		out.WriteString(wrap(s[start:end]))
		count++
		s = s[end:]
	}
	out.WriteString(s)
	return out.String(), count
}

// indexFold finds the first case-insensitive occurrence of query in s and
// returns its byte range in s. Case folding may change byte lengths, so the
// match is measured in runes.
func indexFold(s, query string) (int, int, bool) {
	n := utf8.RuneCountInString(query)
	for i := range s {
		j := i
		for k := 0; k < n && j < len(s); k++ {
			_, size := utf8.DecodeRuneInString(s[j:])
			j += size
		}
		if strings.EqualFold(s[i:j], query) {
			return i, j, true
		}
	}
	return 0, 0, false
}
