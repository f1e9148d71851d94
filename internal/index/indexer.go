package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

// MinPrefixLen is the shortest session id prefix FindSession resolves.
const MinPrefixLen = 6

const maxAmbiguousShown = 5

// Indexer caches session metadata from <claude-home>/projects in sqlite.
type Indexer struct {
	claudeHome string
	dbPath     string
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
}

func New(claudeHome, dbPath string, reindex bool) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, decanterrors.Wrap(fmt.Errorf("create index dir: %w", err), decanterrors.CategoryIOFailure, "")
	}
	if reindex {
		_ = os.Remove(dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	i := &Indexer{claudeHome: claudeHome, dbPath: dbPath, db: db}
	if err := i.initSchema(); err != nil {
		_ = db.Close()
		return nil, decanterrors.Wrap(err, decanterrors.CategoryIOFailure, "rerun with --reindex to rebuild the session index")
	}
	return i, nil
}

func (i *Indexer) Close() error {
	return i.db.Close()
}

func (i *Indexer) ProjectsDir() string {
	return filepath.Join(i.claudeHome, "projects")
}

func (i *Indexer) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			path TEXT,
			project_dir TEXT,
			project_path TEXT,
			summary TEXT,
			first_prompt TEXT,
			created TEXT,
			modified TEXT,
			git_branch TEXT,
			message_count INTEGER,
			size INTEGER,
			source_path TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_project_dir ON sessions(project_dir);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_source_path ON sessions(source_path);`,
		`CREATE TABLE IF NOT EXISTS ingested_files (
			path TEXT PRIMARY KEY,
			mtime INTEGER,
			size INTEGER,
			source TEXT
		);`,
	}

	for _, stmt := range stmts {
		if _, err := i.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return i.ensureFTSTable()
}

func (i *Indexer) ensureFTSTable() error {
	var sqlDef string
	err := i.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'sessions_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		i.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect sessions_fts table: %w", err)
	}

	_, err = i.db.Exec(`CREATE VIRTUAL TABLE sessions_fts USING fts5(
		session_id UNINDEXED,
		content
	);`)
	if err == nil {
		i.ftsEnabled = true
		return nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create sessions_fts: %w", err)
	}

	// sqlite builds without FTS5 search through LIKE on the sessions table.
	if _, err := i.db.Exec(`CREATE TABLE IF NOT EXISTS sessions_fts (
		session_id TEXT,
		content TEXT
	);`); err != nil {
		return fmt.Errorf("create sessions_fts fallback table: %w", err)
	}
	i.ftsEnabled = false
	return nil
}

// BuildIndex brings the index up to date with the projects directory.
// Sources whose fingerprint is unchanged since the last run are skipped.
func (i *Indexer) BuildIndex(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	sources, err := discoverSources(i.ProjectsDir())
	if err != nil {
		return decanterrors.Wrap(fmt.Errorf("discover sessions: %w", err), decanterrors.CategoryIOFailure, "")
	}
	if err := i.pruneMissingSources(ctx, sources); err != nil {
		return err
	}

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := i.ingestFile(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

type fileMeta struct {
	Mtime int64
	Size  int64
}

// fingerprint covers the source file and, for a sessions-index.json, every
// session file it describes, so a session file appearing or growing triggers
// a re-read of the index that lists it.
func fingerprint(src sourceFile) (fileMeta, bool) {
	stat, err := os.Stat(src.Path)
	if err != nil {
		return fileMeta{}, false
	}
	meta := fileMeta{Mtime: stat.ModTime().UnixNano(), Size: stat.Size()}
	for _, path := range src.Covered {
		s, err := os.Stat(path)
		if err != nil {
			continue
		}
		meta.Size += s.Size()
		if m := s.ModTime().UnixNano(); m > meta.Mtime {
			meta.Mtime = m
		}
	}
	return meta, true
}

func (i *Indexer) ingestFile(ctx context.Context, src sourceFile) error {
	current, ok := fingerprint(src)
	if !ok {
		return nil
	}
	meta, found, err := i.getIngestedMeta(src.Path)
	if err != nil {
		return err
	}
	if found && meta == current {
		return nil
	}

	var sessions []Session
	switch src.Source {
	case sourceIndex:
		// discoverSources already treats the files of an unreadable index
		// as uncovered.
		entries, _ := readSessionsIndex(src.Path)
		for _, s := range entries {
			stat, err := os.Stat(s.Path)
			if err != nil {
				continue
			}
			s.Size = stat.Size()
			if s.ProjectPath == "" {
				s.ProjectPath = decodeProjectDir(s.ProjectDir)
			}
			sessions = append(sessions, s)
		}
	default:
		s, err := scanSessionFile(src.Path)
		if err != nil {
			return nil
		}
		if stat, err := os.Stat(src.Path); err == nil {
			s.Size = stat.Size()
		}
		sessions = append(sessions, s)
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSourceRows(ctx, tx, src.Path); err != nil {
		return err
	}

	insertSession, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions(id, path, project_dir, project_path, summary, first_prompt, created, modified, git_branch, message_count, size, source_path)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path=excluded.path,
			project_dir=excluded.project_dir,
			project_path=excluded.project_path,
			summary=excluded.summary,
			first_prompt=excluded.first_prompt,
			created=excluded.created,
			modified=excluded.modified,
			git_branch=excluded.git_branch,
			message_count=excluded.message_count,
			size=excluded.size,
			source_path=excluded.source_path
	`)
	if err != nil {
		return fmt.Errorf("prepare session insert: %w", err)
	}
	defer insertSession.Close()

	insertFTS, err := tx.PrepareContext(ctx, `INSERT INTO sessions_fts(session_id, content) VALUES(?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer insertFTS.Close()

	for _, s := range sessions {
		if _, err := insertSession.ExecContext(ctx,
			s.ID, s.Path, s.ProjectDir, s.ProjectPath, s.Summary, s.FirstPrompt,
			s.Created, s.Modified, s.GitBranch, s.MessageCount, s.Size, src.Path,
		); err != nil {
			return fmt.Errorf("upsert session %s: %w", s.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sessions_fts WHERE session_id = ?`, s.ID); err != nil {
			return fmt.Errorf("clear fts for %s: %w", s.ID, err)
		}
		if _, err := insertFTS.ExecContext(ctx, s.ID, s.Summary+"\n"+s.FirstPrompt); err != nil {
			return fmt.Errorf("index text for %s: %w", s.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ingested_files(path, mtime, size, source)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime=excluded.mtime,
			size=excluded.size,
			source=excluded.source
	`, src.Path, current.Mtime, current.Size, src.Source); err != nil {
		return fmt.Errorf("update ingested file metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest %s: %w", src.Path, err)
	}
	return nil
}

func deleteSourceRows(ctx context.Context, tx *sql.Tx, sourcePath string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions_fts WHERE session_id IN (SELECT id FROM sessions WHERE source_path = ?)`, sourcePath); err != nil {
		return fmt.Errorf("delete stale fts for %s: %w", sourcePath, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE source_path = ?`, sourcePath); err != nil {
		return fmt.Errorf("delete stale sessions for %s: %w", sourcePath, err)
	}
	return nil
}

func (i *Indexer) getIngestedMeta(path string) (fileMeta, bool, error) {
	row := i.db.QueryRow(`SELECT mtime, size FROM ingested_files WHERE path = ?`, path)
	var meta fileMeta
	if err := row.Scan(&meta.Mtime, &meta.Size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fileMeta{}, false, nil
		}
		return fileMeta{}, false, fmt.Errorf("read ingested metadata for %s: %w", path, err)
	}
	return meta, true, nil
}

func (i *Indexer) pruneMissingSources(ctx context.Context, sources []sourceFile) error {
	keep := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		keep[src.Path] = struct{}{}
	}

	rows, err := i.db.QueryContext(ctx, `SELECT path FROM ingested_files`)
	if err != nil {
		return fmt.Errorf("query ingested files: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return fmt.Errorf("scan ingested file row: %w", err)
		}
		if _, ok := keep[path]; !ok {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ingested files: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin stale-source cleanup tx: %w", err)
	}
	defer tx.Rollback()

	for _, path := range stale {
		if err := deleteSourceRows(ctx, tx, path); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ingested_files WHERE path = ?`, path); err != nil {
			return fmt.Errorf("delete stale ingested metadata for %s: %w", path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stale-source cleanup: %w", err)
	}
	return nil
}

const sessionColumns = `s.id, COALESCE(s.path, ''), COALESCE(s.project_dir, ''), COALESCE(s.project_path, ''),
	COALESCE(s.summary, ''), COALESCE(s.first_prompt, ''), COALESCE(s.created, ''), COALESCE(s.modified, ''),
	COALESCE(s.git_branch, ''), COALESCE(s.message_count, 0), COALESCE(s.size, 0)`

func scanSession(rows *sql.Rows) (Session, error) {
	var s Session
	err := rows.Scan(&s.ID, &s.Path, &s.ProjectDir, &s.ProjectPath, &s.Summary, &s.FirstPrompt,
		&s.Created, &s.Modified, &s.GitBranch, &s.MessageCount, &s.Size)
	return s, err
}

func (i *Indexer) querySessions(ctx context.Context, query string, args ...any) ([]Session, error) {
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Session, 0, 64)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		// The index can lag behind a session file deleted since the last build.
		if _, err := os.Stat(s.Path); err != nil {
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// ListSessions returns the sessions matching f, most recently active first.
func (i *Indexer) ListSessions(ctx context.Context, f Filter) ([]Session, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.ftsEnabled && len(tokenizeSearchTerms(f.Search)) > 0 {
		out, err := i.listSessions(ctx, f, true)
		if err == nil {
			return out, nil
		}
	}
	out, err := i.listSessions(ctx, f, false)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (i *Indexer) listSessions(ctx context.Context, f Filter, useFTS bool) ([]Session, error) {
	var where []string
	var args []any
	if f.ProjectDir != "" {
		where = append(where, "s.project_dir = ?")
		args = append(args, f.ProjectDir)
	}
	if p := strings.TrimSpace(f.Project); p != "" {
		where = append(where, "LOWER(s.project_dir) LIKE ?")
		args = append(args, "%"+strings.ToLower(p)+"%")
	}

	if useFTS {
		where = append(where, "s.id IN (SELECT session_id FROM sessions_fts WHERE sessions_fts MATCH ?)")
		args = append(args, buildFTSQuery(f.Search))
	} else {
		for _, term := range tokenizeSearchTerms(f.Search) {
			where = append(where, "LOWER(COALESCE(s.summary, '') || ' ' || COALESCE(s.first_prompt, '')) LIKE ?")
			args = append(args, "%"+term+"%")
		}
	}

	var b strings.Builder
	b.WriteString("SELECT " + sessionColumns + " FROM sessions s")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY COALESCE(NULLIF(s.modified, ''), s.created) DESC, s.id")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	return i.querySessions(ctx, b.String(), args...)
}

// FindSession resolves a session reference: a path to an existing .jsonl
// file, a full session id, or a unique id prefix of at least MinPrefixLen
// characters.
func (i *Indexer) FindSession(ctx context.Context, ref string) (Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Session{}, decanterrors.New(decanterrors.CategoryInvalidArgument, "", "empty session reference")
	}
	if strings.HasSuffix(ref, ".jsonl") {
		if stat, err := os.Stat(ref); err == nil && !stat.IsDir() {
			return Session{
				ID:         sessionIDFromPath(ref),
				Path:       ref,
				ProjectDir: filepath.Base(filepath.Dir(ref)),
				Size:       stat.Size(),
			}, nil
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	exact, err := i.querySessions(ctx, "SELECT "+sessionColumns+" FROM sessions s WHERE s.id = ?", ref)
	if err != nil {
		return Session{}, fmt.Errorf("find session: %w", err)
	}
	if len(exact) > 0 {
		return exact[0], nil
	}

	if len([]rune(ref)) >= MinPrefixLen {
		matches, err := i.querySessions(ctx,
			"SELECT "+sessionColumns+" FROM sessions s WHERE substr(s.id, 1, ?) = ? ORDER BY s.id",
			len(ref), ref)
		if err != nil {
			return Session{}, fmt.Errorf("find session: %w", err)
		}
		switch len(matches) {
		case 0:
		case 1:
			return matches[0], nil
		default:
			shown := matches
			if len(shown) > maxAmbiguousShown {
				shown = shown[:maxAmbiguousShown]
			}
			ids := make([]string, 0, len(shown))
			for _, m := range shown {
				ids = append(ids, m.ID)
			}
			return Session{}, decanterrors.New(decanterrors.CategoryInvalidArgument,
				"use a longer prefix",
				"ambiguous prefix %q matches %d sessions: %s", ref, len(matches), strings.Join(ids, ", "))
		}
	}

	return Session{}, decanterrors.New(decanterrors.CategoryInvalidArgument,
		"run `decant list --all` to see available sessions",
		"session %q not found", ref)
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ReplaceAll(p, `"`, "")
		if p == "" {
			continue
		}
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
