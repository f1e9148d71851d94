// Package transcript loads, saves and walks Claude Code session transcripts:
// newline-delimited JSON records linked into a parent/child tree by
// uuid/parentUuid.
//
// Records are kept as their compact JSON bytes and read with gjson, so fields
// the tool does not know about survive a load/save cycle untouched and in
// their original key order. Every edit returns a new Record; the original is
// never modified.
package transcript

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// Record types that carry meaning for graph and compaction logic.
const (
	TypeUser                = "user"
	TypeAssistant           = "assistant"
	TypeSummary             = "summary"
	TypeProgress            = "progress"
	TypeFileHistorySnapshot = "file-history-snapshot"
	TypeQueueOperation      = "queue-operation"
)

// Content block types inside message.content.
const (
	BlockText       = "text"
	BlockThinking   = "thinking"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Record is one parsed transcript line: a JSON object in compact form.
type Record struct {
	raw []byte
}

// ParseRecord parses one line. It reports false when the line is not a JSON
// object, in which case the caller keeps the line as an opaque entry.
func ParseRecord(line []byte) (*Record, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !gjson.ValidBytes(line) {
		return nil, false
	}
	if !gjson.ParseBytes(line).IsObject() {
		return nil, false
	}
	return &Record{raw: pretty.Ugly(line)}, true
}

// MustParseRecord is ParseRecord for literals known to be valid objects.
func MustParseRecord(s string) *Record {
	rec, ok := ParseRecord([]byte(s))
	if !ok {
		panic(fmt.Sprintf("transcript: not a JSON object: %q", s))
	}
	return rec
}

func (r *Record) Bytes() []byte {
	return r.raw
}

// Size is the compact serialized size in bytes, excluding the line break.
func (r *Record) Size() int {
	return len(r.raw)
}

func (r *Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

func (r *Record) Has(path string) bool {
	return r.Get(path).Exists()
}

func (r *Record) str(path string) string {
	v := r.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

func (r *Record) UUID() string       { return r.str("uuid") }
func (r *Record) ParentUUID() string { return r.str("parentUuid") }
func (r *Record) Type() string       { return r.str("type") }
func (r *Record) Timestamp() string  { return r.str("timestamp") }
func (r *Record) SessionID() string  { return r.str("sessionId") }
func (r *Record) MessageID() string  { return r.str("messageId") }
func (r *Record) Role() string       { return r.str("message.role") }

func (r *Record) IsSidechain() bool {
	return r.Get("isSidechain").Bool()
}

// IsConversational reports whether the record is a user or assistant turn.
func (r *Record) IsConversational() bool {
	switch r.Type() {
	case TypeUser, TypeAssistant:
		return true
	}
	return false
}

// Content returns message.content, which is either a string or an array of
// typed blocks.
func (r *Record) Content() gjson.Result {
	return r.Get("message.content")
}

// Blocks returns the content blocks, or nil when content is not an array.
func (r *Record) Blocks() []gjson.Result {
	content := r.Content()
	if !content.IsArray() {
		return nil
	}
	return content.Array()
}

// Set returns a copy of the record with path set to value.
func (r *Record) Set(path string, value any) (*Record, error) {
	out, err := sjson.SetBytes(r.clone(), path, value)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}
	return &Record{raw: out}, nil
}

// SetRaw returns a copy of the record with path set to the raw JSON value.
func (r *Record) SetRaw(path string, value []byte) (*Record, error) {
	out, err := sjson.SetRawBytes(r.clone(), path, value)
	if err != nil {
		return nil, fmt.Errorf("set %s: %w", path, err)
	}
	return &Record{raw: out}, nil
}

// Without returns a copy of the record with every existing path removed and
// whether anything was removed.
func (r *Record) Without(paths ...string) (*Record, bool, error) {
	out := r.raw
	changed := false
	for _, path := range paths {
		if !gjson.GetBytes(out, path).Exists() {
			continue
		}
		next, err := sjson.DeleteBytes(append([]byte(nil), out...), path)
		if err != nil {
			return nil, false, fmt.Errorf("delete %s: %w", path, err)
		}
		out = next
		changed = true
	}
	if !changed {
		return r, false, nil
	}
	return &Record{raw: out}, true, nil
}

func (r *Record) clone() []byte {
	return append([]byte(nil), r.raw...)
}

// Entry is one loaded line. Exactly one of Record and Raw is set: Record for a
// parsed JSON object, Raw for a line that failed to parse and must be written
// back byte-for-byte.
type Entry struct {
	// Line is the 0-based position of the line in the source file, blank
	// lines included.
	Line   int
	Record *Record
	Raw    []byte
}

func (e Entry) IsRaw() bool {
	return e.Record == nil
}

func (e Entry) Bytes() []byte {
	if e.Record == nil {
		return e.Raw
	}
	return e.Record.Bytes()
}

func (e Entry) Size() int {
	return len(e.Bytes())
}

// WithRecord returns the entry with its record replaced, keeping the line index.
func (e Entry) WithRecord(rec *Record) Entry {
	return Entry{Line: e.Line, Record: rec}
}

// NewEntry wraps a synthesized record. Synthesized records have no source line.
func NewEntry(rec *Record) Entry {
	return Entry{Line: -1, Record: rec}
}

// Records returns the parsed records in order, skipping raw entries.
func Records(entries []Entry) []*Record {
	out := make([]*Record, 0, len(entries))
	for _, e := range entries {
		if e.Record != nil {
			out = append(out, e.Record)
		}
	}
	return out
}

// TotalSize sums the serialized size of all entries.
func TotalSize(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Size()
	}
	return total
}
