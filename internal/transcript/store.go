package transcript

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
)

// BackupTimeLayout is the timestamp embedded in backup file names.
const BackupTimeLayout = "20060102_150405"

const defaultFileMode os.FileMode = 0o644

// Load reads a transcript file. Blank lines are skipped but still counted in
// line indexes. Lines that are not JSON objects are kept as raw entries.
func Load(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, decanterrors.Wrap(fmt.Errorf("open %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	defer file.Close()

	entries, err := Read(file)
	if err != nil {
		return nil, decanterrors.Wrap(fmt.Errorf("read %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	return entries, nil
}

// Read parses transcript lines from r. Lines have no length limit.
func Read(r io.Reader) ([]Entry, error) {
	reader := bufio.NewReaderSize(r, 256*1024)
	entries := make([]Entry, 0, 256)
	lineNo := 0
	for {
		chunk, readErr := reader.ReadBytes('\n')
		if len(chunk) > 0 {
			if line := bytes.TrimSpace(chunk); len(line) > 0 {
				if rec, ok := ParseRecord(line); ok {
					entries = append(entries, Entry{Line: lineNo, Record: rec})
				} else {
					entries = append(entries, Entry{Line: lineNo, Raw: append([]byte(nil), line...)})
				}
			}
			lineNo++
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, readErr
		}
	}
	return entries, nil
}

// ParseErrors describes every raw entry as a parse_error. Raw entries are
// recovered, not fatal; callers use this for warnings.
func ParseErrors(entries []Entry) []error {
	var out []error
	for _, e := range entries {
		if !e.IsRaw() {
			continue
		}
		out = append(out, decanterrors.New(decanterrors.CategoryParseError, "line is preserved verbatim",
			"line %d is not a JSON object", e.Line+1))
	}
	return out
}

// Write serializes entries one per line.
func Write(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriterSize(w, 256*1024)
	for _, e := range entries {
		if _, err := bw.Write(e.Bytes()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes entries to path through a temporary file and an atomic rename.
// When backup is set and path exists, the current file is copied aside first
// and the backup path is returned.
func Save(path string, entries []Entry, backup bool) (string, error) {
	var backupPath string
	if backup {
		if _, err := os.Stat(path); err == nil {
			backupPath, err = Backup(path, time.Now())
			if err != nil {
				return "", err
			}
		}
	}

	mode := defaultFileMode
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := writeFileAtomic(path, mode, func(w io.Writer) error {
		return Write(w, entries)
	}); err != nil {
		return backupPath, decanterrors.Wrap(fmt.Errorf("save %s: %w", path, err), decanterrors.CategoryIOFailure,
			"the original file was left untouched")
	}
	return backupPath, nil
}

// BackupPath names the backup for path taken at now:
// <dir>/<stem>.<YYYYMMDD_HHMMSS>.jsonl.bak.
func BackupPath(path string, now time.Time) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"."+now.Format(BackupTimeLayout)+".jsonl.bak")
}

// Backup copies path to its timestamped backup, keeping mode and mtime.
func Backup(path string, now time.Time) (string, error) {
	dst := BackupPath(path, now)
	if err := copyFile(path, dst); err != nil {
		return "", decanterrors.Wrap(fmt.Errorf("backup %s: %w", path, err), decanterrors.CategoryIOFailure, "")
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func writeFileAtomic(path string, mode os.FileMode, write func(io.Writer) error) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if err := write(tempFile); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Chmod(mode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return fmt.Errorf("rename temp file: %w", err)
		}
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove destination before rename: %w", removeErr)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return fmt.Errorf("rename temp file after remove: %w", renameErr)
		}
	}
	cleanup = false

	if dirHandle, err := os.Open(parent); err == nil {
		_ = dirHandle.Sync()
		_ = dirHandle.Close()
	}
	return nil
}
