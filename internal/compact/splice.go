package compact

import (
	"time"

	decanterrors "github.com/TKasperczyk/decant/internal/errors"
	"github.com/TKasperczyk/decant/internal/transcript"
)

// SummaryTimeLayout is the timestamp format of synthesized records.
const SummaryTimeLayout = "2006-01-02T15:04:05.000Z"

// CollectTailUUIDs returns boundary and every uuid reachable from it through
// child links. Each uuid is expanded once.
func CollectTailUUIDs(entries []transcript.Entry, boundary string) map[string]struct{} {
	tail := make(map[string]struct{})
	if boundary == "" {
		return tail
	}
	children := transcript.ChildrenMap(entries)
	queue := []string{boundary}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := tail[id]; seen {
			continue
		}
		tail[id] = struct{}{}
		queue = append(queue, children[id]...)
	}
	return tail
}

// BuildSummaryRecord creates the summary record that becomes the new root.
func BuildSummaryRecord(text string, md transcript.Metadata, id string, now time.Time) (*transcript.Record, error) {
	userType := md.UserType
	if userType == "" {
		userType = transcript.DefaultUserType
	}
	fields := []struct {
		path  string
		value any
	}{
		{"type", transcript.TypeSummary},
		{"uuid", id},
		{"parentUuid", nil},
		{"timestamp", now.UTC().Format(SummaryTimeLayout)},
		{"sessionId", md.SessionID},
		{"isSidechain", false},
		{"userType", userType},
		{"cwd", md.Cwd},
		{"version", md.Version},
		{"gitBranch", md.GitBranch},
		{"summary", text},
	}

	rec := transcript.MustParseRecord(`{}`)
	for _, f := range fields {
		var next *transcript.Record
		var err error
		if f.value == nil {
			next, err = rec.SetRaw(f.path, []byte("null"))
		} else {
			next, err = rec.Set(f.path, f.value)
		}
		if err != nil {
			return nil, err
		}
		rec = next
	}
	return rec, nil
}

func isStructural(recordType string) bool {
	switch recordType {
	case transcript.TypeFileHistorySnapshot, transcript.TypeQueueOperation, transcript.TypeSummary:
		return true
	}
	return false
}

// Splice re-roots the tail starting at boundary under summary and drops the
// head. The returned slice starts with summary and keeps the original order
// of everything retained.
func Splice(entries []transcript.Entry, boundary string, summary *transcript.Record) ([]transcript.Entry, map[string]struct{}, error) {
	if _, ok := transcript.UUIDSet(entries)[boundary]; !ok {
		return nil, nil, decanterrors.New(decanterrors.CategoryBoundaryNotFound, "",
			"boundary %s not found in session", boundary)
	}
	tail := CollectTailUUIDs(entries, boundary)
	if len(tail) == 0 {
		return nil, nil, decanterrors.New(decanterrors.CategoryEmptyTail, "",
			"no messages found in tail starting from boundary %s", boundary)
	}

	out := make([]transcript.Entry, 0, len(tail)+1)
	out = append(out, transcript.NewEntry(summary))
	reparented := false
	for _, e := range entries {
		if !retained(e.Record, tail) {
			continue
		}
		if !reparented && e.Record.UUID() == boundary {
			moved, err := e.Record.Set("parentUuid", summary.UUID())
			if err != nil {
				return nil, nil, err
			}
			e = e.WithRecord(moved)
			reparented = true
		}
		out = append(out, e)
	}
	return out, tail, nil
}

// retained reports whether rec survives a splice.
func retained(rec *transcript.Record, tail map[string]struct{}) bool {
	if rec == nil {
		return false
	}
	id := rec.UUID()
	if _, ok := tail[id]; ok && id != "" {
		return true
	}
	if id == "" && isStructural(rec.Type()) {
		return true
	}
	if rec.Type() == transcript.TypeFileHistorySnapshot {
		_, ok := tail[rec.MessageID()]
		return ok
	}
	return false
}
