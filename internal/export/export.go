// Package export writes a session's conversation as a markdown document.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
	"github.com/TKasperczyk/decant/internal/index"
	"github.com/TKasperczyk/decant/internal/transcript"
)

// DefaultSubdir is where exports land inside the session's repository when
// no directory is given.
const DefaultSubdir = "docs/claude"

type Exporter struct {
	overrideDir string
	cwd         string
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd}, nil
}

// Export writes the markdown rendering of exchanges and returns its path.
func (e *Exporter) Export(session index.Session, exchanges []transcript.Exchange, now time.Time) (string, error) {
	path := e.outputPath(session)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", decanterrors.Wrap(fmt.Errorf("create export directory: %w", err), decanterrors.CategoryIOFailure, "")
	}

	md := BuildSessionMarkdown(session, BuildTranscriptMarkdown(exchanges), now.UTC())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", decanterrors.Wrap(fmt.Errorf("write export file: %w", err), decanterrors.CategoryIOFailure, "")
	}
	return path, nil
}

func BuildTranscriptMarkdown(exchanges []transcript.Exchange) string {
	var b strings.Builder
	for _, ex := range exchanges {
		content := strings.TrimSpace(ex.Text)
		if ex.Role == transcript.TypeUser {
			content = sanitizeUserContent(content)
		}
		if content == "" {
			continue
		}

		switch ex.Role {
		case transcript.TypeUser:
			b.WriteString("## You\n\n")
		case transcript.TypeAssistant:
			b.WriteString("## Claude\n\n")
		default:
			b.WriteString("## " + ex.Role + "\n\n")
		}
		if ex.Timestamp != "" {
			b.WriteString("<sub>" + ex.Timestamp + "</sub>\n\n")
		}
		b.WriteString(content + "\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

var (
	systemReminderRe = regexp.MustCompile(`(?s)<system-reminder>.*?</system-reminder>`)
	commandTagRe     = regexp.MustCompile(`(?s)<(command-name|command-message|command-args|local-command-stdout|local-command-stderr)>(.*?)</(?:command-name|command-message|command-args|local-command-stdout|local-command-stderr)>`)
)

// sanitizeUserContent drops injected system reminders and unwraps slash
// command tags so they render as plain text.
func sanitizeUserContent(content string) string {
	content = systemReminderRe.ReplaceAllString(content, "")
	content = commandTagRe.ReplaceAllStringFunc(content, func(m string) string {
		sub := commandTagRe.FindStringSubmatch(m)
		inner := strings.TrimSpace(sub[2])
		switch sub[1] {
		case "command-name":
			return "`" + inner + "`"
		case "command-message":
			return ""
		case "local-command-stdout", "local-command-stderr":
			if inner == "" {
				return ""
			}
			return "\n```text\n" + inner + "\n```\n"
		default:
			return inner
		}
	})
	return strings.TrimSpace(content)
}

func BuildSessionMarkdown(session index.Session, body string, now time.Time) string {
	var b strings.Builder
	title := session.Summary
	if strings.TrimSpace(title) == "" {
		title = "Claude Code session " + session.ID
	}
	b.WriteString("# " + title + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("session: " + safeValue(session.ID) + "\n")
	b.WriteString("project: " + safeValue(session.ProjectPath) + "\n")
	b.WriteString("branch: " + safeValue(session.GitBranch) + "\n")
	b.WriteString("created: " + safeValue(session.Created) + "\n")
	b.WriteString("modified: " + safeValue(session.Modified) + "\n")
	b.WriteString("```\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func (e *Exporter) outputPath(session index.Session) string {
	name := safeFileName(session.ID) + ".md"
	if e.overrideDir != "" {
		dir := e.overrideDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
		return filepath.Join(dir, name)
	}

	root := e.cwd
	if session.ProjectPath != "" {
		if repoRoot := findRepoRoot(session.ProjectPath); repoRoot != "" {
			root = repoRoot
		}
	}
	return filepath.Join(root, filepath.FromSlash(DefaultSubdir), name)
}

func findRepoRoot(start string) string {
	path := filepath.Clean(start)
	for {
		if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return ""
		}
		path = parent
	}
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "session"
	}
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_").Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
