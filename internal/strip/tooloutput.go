package strip

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/TKasperczyk/decant/internal/transcript"
)

// Tool output above either limit is trimmed.
const (
	MaxToolOutputBytes = 8192
	MaxToolOutputLines = 100
)

var (
	lineTrimMarker = regexp.MustCompile(`^\.\.\. \[\d+ lines trimmed\] \.\.\.$`)
	byteTrimMarker = regexp.MustCompile(`^\n\.\.\. \[\d+ bytes trimmed\] \.\.\.\n`)
)

// TrimToolOutput shortens string tool_result content that exceeds
// MaxToolOutputBytes or MaxToolOutputLines, keeping its head and tail around
// a marker. Content that is already the output of a trim is left alone.
func TrimToolOutput(entries []transcript.Entry) ([]transcript.Entry, int, error) {
	return mapRecords(entries, trimToolOutput)
}

func trimToolOutput(rec *transcript.Record) (*transcript.Record, error) {
	blocks := rec.Blocks()
	if len(blocks) == 0 {
		return nil, nil
	}

	out := make([][]byte, 0, len(blocks))
	changed := false
	for _, block := range blocks {
		raw := []byte(block.Raw)
		content := block.Get("content")
		if block.Get("type").String() == transcript.BlockToolResult && content.Type == gjson.String {
			if trimmed, ok := TrimContent(content.Str); ok {
				next, err := sjson.SetBytes(raw, "content", trimmed)
				if err != nil {
					return nil, err
				}
				raw = next
				changed = true
			}
		}
		out = append(out, raw)
	}
	if !changed {
		return nil, nil
	}
	return withBlocks(rec, out)
}

// TrimContent trims s when it is over either limit. Line trimming applies
// when there are too many lines; otherwise the byte limit is enforced.
func TrimContent(s string) (string, bool) {
	lineCount := strings.Count(s, "\n") + 1
	if len(s) <= MaxToolOutputBytes && lineCount <= MaxToolOutputLines {
		return s, false
	}
	if alreadyTrimmed(s) {
		return s, false
	}

	if lineCount > MaxToolOutputLines {
		lines := strings.Split(s, "\n")
		keep := MaxToolOutputLines / 2
		marker := fmt.Sprintf("\n... [%d lines trimmed] ...\n", len(lines)-MaxToolOutputLines)
		parts := make([]string, 0, 2*keep+1)
		parts = append(parts, lines[:keep]...)
		parts = append(parts, marker)
		parts = append(parts, lines[len(lines)-keep:]...)
		return strings.Join(parts, "\n"), true
	}

	half := MaxToolOutputBytes / 2
	head := s[:runeStart(s, half)]
	tail := s[runeStart(s, len(s)-half):]
	elided := len(s) - len(head) - len(tail)
	return head + fmt.Sprintf("\n... [%d bytes trimmed] ...\n", elided) + tail, true
}

// alreadyTrimmed reports whether s has the exact layout TrimContent
// produces. A marker-like line elsewhere in real output does not count.
func alreadyTrimmed(s string) bool {
	keep := MaxToolOutputLines / 2
	if strings.Count(s, "\n") == MaxToolOutputLines+2 {
		lines := strings.Split(s, "\n")
		if lines[keep] == "" && lines[keep+2] == "" && lineTrimMarker.MatchString(lines[keep+1]) {
			return true
		}
	}

	// Byte trimming backs the cut up by at most utf8.UTFMax-1 bytes on each
	// side.
	half := MaxToolOutputBytes / 2
	for start := max(0, half-utf8.UTFMax+1); start <= half && start < len(s); start++ {
		loc := byteTrimMarker.FindStringIndex(s[start:])
		if loc == nil {
			continue
		}
		tail := len(s) - start - loc[1]
		if tail >= half && tail < half+utf8.UTFMax {
			return true
		}
	}
	return false
}

// runeStart moves i back to the start of the rune containing it.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
