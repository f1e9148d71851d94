package index

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/TKasperczyk/decant/internal/transcript"
)

var sessionFileRe = regexp.MustCompile(`^(.+)\.jsonl$`)

// readSessionsIndex parses a sessions-index.json. Both the versioned
// {"version":1,"entries":[...]} form and a bare array are accepted.
func readSessionsIndex(path string) ([]Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON", path)
	}

	doc := gjson.ParseBytes(data)
	entries := doc
	if doc.IsObject() {
		entries = doc.Get("entries")
	}
	if !entries.IsArray() {
		return nil, nil
	}

	projectDir := filepath.Base(filepath.Dir(path))
	out := make([]Session, 0, len(entries.Array()))
	entries.ForEach(func(_, e gjson.Result) bool {
		id := strings.TrimSpace(e.Get("sessionId").String())
		if id == "" {
			return true
		}
		out = append(out, Session{
			ID:           id,
			Path:         filepath.Join(filepath.Dir(path), id+".jsonl"),
			ProjectDir:   projectDir,
			ProjectPath:  e.Get("projectPath").String(),
			Summary:      e.Get("summary").String(),
			FirstPrompt:  e.Get("firstPrompt").String(),
			Created:      e.Get("created").String(),
			Modified:     e.Get("modified").String(),
			GitBranch:    e.Get("gitBranch").String(),
			MessageCount: int(e.Get("messageCount").Int()),
		})
		return true
	})
	return out, nil
}

// scanSessionFile derives session metadata from the transcript itself, for
// projects without a sessions-index.json entry.
func scanSessionFile(path string) (Session, error) {
	entries, err := transcript.Load(path)
	if err != nil {
		return Session{}, err
	}

	s := Session{
		ID:         sessionIDFromPath(path),
		Path:       path,
		ProjectDir: filepath.Base(filepath.Dir(path)),
	}
	for _, rec := range transcript.Records(entries) {
		if ts := rec.Timestamp(); ts != "" {
			if s.Created == "" {
				s.Created = ts
			}
			s.Modified = ts
		}
		if s.ProjectPath == "" {
			s.ProjectPath = rec.Get("cwd").String()
		}
		if s.GitBranch == "" {
			s.GitBranch = rec.Get("gitBranch").String()
		}
		switch rec.Type() {
		case transcript.TypeSummary:
			if s.Summary == "" {
				s.Summary = rec.Get("summary").String()
			}
		case transcript.TypeUser, transcript.TypeAssistant:
			s.MessageCount++
			if s.FirstPrompt == "" && rec.Type() == transcript.TypeUser && !rec.Get("isMeta").Bool() {
				s.FirstPrompt = promptText(rec)
			}
		}
	}

	if s.ProjectPath == "" {
		s.ProjectPath = decodeProjectDir(s.ProjectDir)
	}
	if s.Created == "" {
		if stat, err := os.Stat(path); err == nil {
			s.Created = stat.ModTime().UTC().Format(transcriptTimeLayout)
			s.Modified = s.Created
		}
	}
	return s, nil
}

const transcriptTimeLayout = "2006-01-02T15:04:05.000Z"

// promptText is the user-typed text of a record, or "" for tool results and
// slash-command plumbing.
func promptText(rec *transcript.Record) string {
	content := rec.Content()
	if content.Type == gjson.String {
		return usablePrompt(content.Str)
	}
	for _, block := range rec.Blocks() {
		switch block.Get("type").String() {
		case transcript.BlockToolResult:
			return ""
		case transcript.BlockText:
			if text := usablePrompt(block.Get("text").String()); text != "" {
				return text
			}
		}
	}
	return ""
}

func usablePrompt(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<command-") || strings.HasPrefix(s, "<local-command-") || strings.HasPrefix(s, "Caveat:") {
		return ""
	}
	return s
}

func sessionIDFromPath(path string) string {
	if m := sessionFileRe.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}
	return ""
}
