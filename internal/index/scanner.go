package index

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sessionsIndexName = "sessions-index.json"

const (
	sourceIndex = "index"
	sourceJSONL = "jsonl"
)

type sourceFile struct {
	Path       string
	Source     string
	ProjectDir string
	// Covered lists the session files a sessions-index.json describes.
	Covered []string
}

// discoverSources lists every project's sessions-index.json plus the session
// files that no index covers.
func discoverSources(projectsDir string) ([]sourceFile, error) {
	dirs, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]sourceFile, 0, 64)
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		projectDir := filepath.Join(projectsDir, d.Name())
		covered := map[string]struct{}{}

		indexPath := filepath.Join(projectDir, sessionsIndexName)
		if stat, err := os.Stat(indexPath); err == nil && !stat.IsDir() {
			src := sourceFile{Path: indexPath, Source: sourceIndex, ProjectDir: d.Name()}
			if entries, err := readSessionsIndex(indexPath); err == nil {
				for _, e := range entries {
					jsonl := filepath.Join(projectDir, e.ID+".jsonl")
					covered[jsonl] = struct{}{}
					src.Covered = append(src.Covered, jsonl)
				}
			}
			out = append(out, src)
		}

		files, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			path := filepath.Join(projectDir, f.Name())
			if _, ok := covered[path]; ok {
				continue
			}
			out = append(out, sourceFile{Path: path, Source: sourceJSONL, ProjectDir: d.Name()})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// CwdProjectDir returns the encoded project directory for cwd, or "" when
// Claude Code has no sessions for it.
func CwdProjectDir(projectsDir, cwd string) string {
	if cwd == "" {
		return ""
	}
	name := EncodeProjectDir(cwd)
	if stat, err := os.Stat(filepath.Join(projectsDir, name)); err == nil && stat.IsDir() {
		return name
	}
	return ""
}

// EncodeProjectDir maps /home/user/app to -home-user-app.
func EncodeProjectDir(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), "/", "-")
}

// decodeProjectDir is the best-effort inverse of EncodeProjectDir. Dashes
// inside directory names cannot be told apart from separators.
func decodeProjectDir(dir string) string {
	if dir == "" || !strings.HasPrefix(dir, "-") {
		return ""
	}
	decoded := strings.ReplaceAll(dir, "-", "/")
	if decoded == "/" {
		return ""
	}
	return filepath.Clean(decoded)
}
