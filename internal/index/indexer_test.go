package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

const (
	idIndexed  = "aaaaaa11-0000-0000-0000-000000000001"
	idScanned  = "aaaaaa22-0000-0000-0000-000000000002"
	idBareList = "bbbbbb33-0000-0000-0000-000000000003"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fixtureHome lays out two projects: one with a versioned sessions-index.json
// plus a session file it does not list, and one with a bare-array index.
func fixtureHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	app := filepath.Join(home, "projects", "-home-u-app")
	api := filepath.Join(home, "projects", "-srv-api")

	writeFile(t, filepath.Join(app, sessionsIndexName), `{"version":1,"entries":[
		{"sessionId":"`+idIndexed+`","summary":"Fix flaky login test","firstPrompt":"the login test fails","created":"2026-01-01T10:00:00.000Z","modified":"2026-01-03T10:00:00.000Z","gitBranch":"main","projectPath":"/home/u/app","messageCount":12},
		{"sessionId":"ffffff00-0000-0000-0000-000000000009","summary":"gone","modified":"2026-01-09T00:00:00.000Z"}
	]}`)
	writeFile(t, filepath.Join(app, idIndexed+".jsonl"), `{"type":"user","uuid":"x"}`+"\n")
	writeFile(t, filepath.Join(app, idScanned+".jsonl"), strings.Join([]string{
		`{"type":"user","isMeta":true,"sessionId":"` + idScanned + `","cwd":"/home/u/app","gitBranch":"dev","timestamp":"2026-01-02T09:00:00.000Z","uuid":"u0","message":{"role":"user","content":"Caveat: local commands follow"}}`,
		`{"type":"user","parentUuid":"u0","timestamp":"2026-01-02T09:01:00.000Z","uuid":"u1","message":{"role":"user","content":"<command-name>/init</command-name>"}}`,
		`{"type":"user","parentUuid":"u1","timestamp":"2026-01-02T09:02:00.000Z","uuid":"u2","message":{"role":"user","content":[{"type":"text","text":"Add rate limiting to the API"}]}}`,
		`{"type":"assistant","parentUuid":"u2","timestamp":"2026-01-02T09:05:00.000Z","uuid":"a1","message":{"role":"assistant","content":[{"type":"text","text":"On it."}]}}`,
		`{"type":"user","parentUuid":"a1","timestamp":"2026-01-02T09:06:00.000Z","uuid":"u3","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"ok"}]}}`,
	}, "\n")+"\n")

	writeFile(t, filepath.Join(api, sessionsIndexName), `[
		{"sessionId":"`+idBareList+`","summary":"Rate limiter design","firstPrompt":"design a limiter","created":"2026-01-04T00:00:00.000Z","modified":"2026-01-05T00:00:00.000Z","messageCount":4}
	]`)
	writeFile(t, filepath.Join(api, idBareList+".jsonl"), `{"type":"user","uuid":"y"}`+"\n")
	return home
}

func newIndexer(t *testing.T, home string) *Indexer {
	t.Helper()
	idx, err := New(home, filepath.Join(t.TempDir(), "index.sqlite"), false)
	if err != nil {
		t.Fatalf("new indexer: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	if err := idx.BuildIndex(context.Background()); err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

func ids(sessions []Session) string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.ID[:8])
	}
	return strings.Join(out, ",")
}

func TestListSessionsOrderAndFilters(t *testing.T) {
	idx := newIndexer(t, fixtureHome(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{name: "all", filter: Filter{}, want: "bbbbbb33,aaaaaa11,aaaaaa22"},
		{name: "project dir exact", filter: Filter{ProjectDir: "-srv-api"}, want: "bbbbbb33"},
		{name: "project dir no partial match", filter: Filter{ProjectDir: "-srv"}, want: ""},
		{name: "project substring", filter: Filter{Project: "APP"}, want: "aaaaaa11,aaaaaa22"},
		{name: "search single term", filter: Filter{Search: "rate"}, want: "bbbbbb33,aaaaaa22"},
		{name: "search all terms", filter: Filter{Search: "rate api"}, want: "aaaaaa22"},
		{name: "limit", filter: Filter{Limit: 1}, want: "bbbbbb33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := idx.ListSessions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if ids(got) != tt.want {
				t.Fatalf("sessions=%q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestScannedSessionMetadata(t *testing.T) {
	idx := newIndexer(t, fixtureHome(t))
	s, err := idx.FindSession(context.Background(), idScanned)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.FirstPrompt != "Add rate limiting to the API" {
		t.Fatalf("first prompt=%q", s.FirstPrompt)
	}
	if s.MessageCount != 5 {
		t.Fatalf("message count=%d, want 5", s.MessageCount)
	}
	if s.Created != "2026-01-02T09:00:00.000Z" || s.Modified != "2026-01-02T09:06:00.000Z" {
		t.Fatalf("created=%q modified=%q", s.Created, s.Modified)
	}
	if s.ProjectPath != "/home/u/app" || s.GitBranch != "dev" {
		t.Fatalf("project path=%q branch=%q", s.ProjectPath, s.GitBranch)
	}
	if s.Size == 0 {
		t.Fatal("expected file size to be recorded")
	}
}

func TestIndexedSessionMetadata(t *testing.T) {
	idx := newIndexer(t, fixtureHome(t))
	s, err := idx.FindSession(context.Background(), idIndexed)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.Summary != "Fix flaky login test" || s.MessageCount != 12 || s.GitBranch != "main" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.Preview() != "Fix flaky login test" {
		t.Fatalf("preview=%q", s.Preview())
	}
}

func TestFindSession(t *testing.T) {
	home := fixtureHome(t)
	idx := newIndexer(t, home)
	ctx := context.Background()

	got, err := idx.FindSession(ctx, "aaaaaa2")
	if err != nil || got.ID != idScanned {
		t.Fatalf("prefix lookup: got %q err=%v", got.ID, err)
	}

	path := filepath.Join(home, "projects", "-srv-api", idBareList+".jsonl")
	got, err = idx.FindSession(ctx, path)
	if err != nil || got.Path != path || got.ID != idBareList {
		t.Fatalf("path lookup: got %+v err=%v", got, err)
	}

	_, err = idx.FindSession(ctx, "aaaaaa")
	if !decanterrors.Is(err, decanterrors.CategoryInvalidArgument) {
		t.Fatalf("ambiguous prefix: expected invalid_argument, got %v", err)
	}
	if !strings.Contains(err.Error(), idIndexed) || !strings.Contains(err.Error(), idScanned) {
		t.Fatalf("ambiguous error should list candidates: %v", err)
	}

	for _, ref := range []string{"bbbbb", "ffffff00-0000-0000-0000-000000000009", "nope-nope-nope"} {
		if _, err := idx.FindSession(ctx, ref); !decanterrors.Is(err, decanterrors.CategoryInvalidArgument) {
			t.Fatalf("%q: expected invalid_argument, got %v", ref, err)
		}
	}
}

func TestBuildIndexIsIncremental(t *testing.T) {
	home := fixtureHome(t)
	idx := newIndexer(t, home)
	ctx := context.Background()

	scanned := filepath.Join(home, "projects", "-home-u-app", idScanned+".jsonl")
	f, err := os.OpenFile(scanned, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString(`{"type":"assistant","parentUuid":"u3","timestamp":"2026-01-06T00:00:00.000Z","uuid":"a2","message":{"role":"assistant","content":"done"}}` + "\n")
	_ = f.Close()

	if err := os.Remove(filepath.Join(home, "projects", "-srv-api", idBareList+".jsonl")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := idx.BuildIndex(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	got, err := idx.ListSessions(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids(got) != "aaaaaa22,aaaaaa11" {
		t.Fatalf("sessions=%q", ids(got))
	}
	if got[0].MessageCount != 6 {
		t.Fatalf("message count=%d, want 6", got[0].MessageCount)
	}
	if _, err := idx.FindSession(ctx, idBareList); err == nil {
		t.Fatal("expected removed session to be gone")
	}
}

func TestBuildIndexPrunesRemovedIndexFile(t *testing.T) {
	home := fixtureHome(t)
	idx := newIndexer(t, home)
	ctx := context.Background()

	// Without its index, the session file is read directly.
	if err := os.Remove(filepath.Join(home, "projects", "-srv-api", sessionsIndexName)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := idx.BuildIndex(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	s, err := idx.FindSession(ctx, idBareList)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.Summary != "" || s.MessageCount != 1 || s.ProjectPath != "/srv/api" {
		t.Fatalf("expected file-derived metadata, got %+v", s)
	}
}

func TestMissingProjectsDir(t *testing.T) {
	idx := newIndexer(t, t.TempDir())
	got, err := idx.ListSessions(context.Background(), Filter{})
	if err != nil || len(got) != 0 {
		t.Fatalf("got %d sessions err=%v", len(got), err)
	}
}

func TestCwdProjectDir(t *testing.T) {
	home := fixtureHome(t)
	projects := filepath.Join(home, "projects")
	if got := CwdProjectDir(projects, "/home/u/app"); got != "-home-u-app" {
		t.Fatalf("got %q", got)
	}
	if got := CwdProjectDir(projects, "/home/u/other"); got != "" {
		t.Fatalf("expected no project dir, got %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(""); got != "n/a" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTimestamp("yesterday"); got != "yesterday" {
		t.Fatalf("got %q", got)
	}
	if got := FormatTimestamp("2026-01-02T09:00:00.000Z"); !strings.HasPrefix(got, "2026-01-0") {
		t.Fatalf("got %q", got)
	}
}

func TestSearchQueries(t *testing.T) {
	cases := []struct {
		raw    string
		tokens []string
		fts    string
	}{
		{raw: "", tokens: nil, fts: ""},
		{raw: "  Compact,  (boundary) ", tokens: []string{"compact", "boundary"}, fts: `"compact"* AND "boundary"*`},
		{raw: `"sessions-index.json"`, tokens: []string{"sessions-index.json"}, fts: `"sessions-index.json"*`},
		{raw: "a\"b", tokens: []string{"a\"b"}, fts: `"ab"*`},
	}
	for _, tc := range cases {
		got := tokenizeSearchTerms(tc.raw)
		if strings.Join(got, "|") != strings.Join(tc.tokens, "|") {
			t.Fatalf("tokens(%q) = %#v", tc.raw, got)
		}
		if fts := buildFTSQuery(tc.raw); fts != tc.fts {
			t.Fatalf("fts(%q) = %q want %q", tc.raw, fts, tc.fts)
		}
	}
}
