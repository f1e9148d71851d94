package index

import (
	"strings"
	"time"
)

type Session struct {
	ID           string
	Path         string
	ProjectDir   string
	ProjectPath  string
	Summary      string
	FirstPrompt  string
	Created      string
	Modified     string
	GitBranch    string
	MessageCount int
	Size         int64
}

// Preview is the summary when there is one, else the first prompt.
func (s Session) Preview() string {
	if strings.TrimSpace(s.Summary) != "" {
		return trimPreview(s.Summary)
	}
	return trimPreview(s.FirstPrompt)
}

// LastActivity is Modified, falling back to Created.
func (s Session) LastActivity() string {
	if s.Modified != "" {
		return s.Modified
	}
	return s.Created
}

// Filter narrows ListSessions. Empty fields match everything.
type Filter struct {
	// ProjectDir matches the encoded project directory name exactly.
	ProjectDir string
	// Project matches a case-insensitive substring of the project directory.
	Project string
	// Search matches every term against summary and first prompt.
	Search string
	Limit  int
}

func trimPreview(s string) string {
	s = strings.TrimSpace(strings.Join(strings.Fields(s), " "))
	runes := []rune(s)
	if len(runes) <= 120 {
		return s
	}
	return string(runes[:117]) + "..."
}

// FormatTimestamp renders an RFC 3339 timestamp in local time.
func FormatTimestamp(ts string) string {
	if ts == "" {
		return "n/a"
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return parsed.Local().Format("2006-01-02 15:04")
}
