package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TKasperczyk/decant/internal/index"
	"github.com/TKasperczyk/decant/internal/transcript"
)

func TestBuildTranscriptMarkdown(t *testing.T) {
	exchanges := []transcript.Exchange{
		{Role: "user", Text: "fix the build", Timestamp: "2026-01-01T00:00:00.000Z"},
		{Role: "assistant", Text: "Done."},
		{Role: "user", Text: "<system-reminder>ignore me</system-reminder>"},
	}

	out := BuildTranscriptMarkdown(exchanges)
	want := "## You\n\n<sub>2026-01-01T00:00:00.000Z</sub>\n\nfix the build\n\n## Claude\n\nDone.\n"
	if out != want {
		t.Fatalf("unexpected markdown\nwant: %q\ngot:  %q", want, out)
	}
}

func TestSanitizeUserContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "reminder", in: "before<system-reminder>\nnoise\n</system-reminder> after", want: "before after"},
		{name: "command", in: "<command-name>/clear</command-name><command-message>clear</command-message>", want: "`/clear`"},
		{name: "empty stdout", in: "<local-command-stdout></local-command-stdout>", want: ""},
		{name: "stdout", in: "<local-command-stdout>ok</local-command-stdout>", want: "```text\nok\n```"},
		{name: "args", in: "<command-args>--fast</command-args>", want: "--fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeUserContent(tt.in); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExportWritesIntoRepoRoot(t *testing.T) {
	repo := t.TempDir()
	if err := os.Mkdir(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	sub := filepath.Join(repo, "pkg", "api")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	e := &Exporter{cwd: t.TempDir()}
	session := index.Session{ID: "abc-123", ProjectPath: sub, Summary: "Rate limiter"}
	path, err := e.Export(session, []transcript.Exchange{{Role: "user", Text: "hi"}}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := filepath.Join(repo, "docs", "claude", "abc-123.md"); path != want {
		t.Fatalf("path=%q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	body := string(data)
	for _, want := range []string{"# Rate limiter\n", "Exported: 2026-01-02T03:04:05Z", "project: " + sub, "branch: n/a", "## You\n\nhi\n"} {
		if !strings.Contains(body, want) {
			t.Fatalf("export missing %q:\n%s", want, body)
		}
	}
}

func TestExportOverrideDir(t *testing.T) {
	cwd := t.TempDir()
	e := &Exporter{overrideDir: "out", cwd: cwd}
	got := e.outputPath(index.Session{ID: "a/b"})
	if want := filepath.Join(cwd, "out", "a_b.md"); got != want {
		t.Fatalf("path=%q, want %q", got, want)
	}
}
