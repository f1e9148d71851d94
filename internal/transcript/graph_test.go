package transcript

import (
	"strings"
	"testing"
)

func mustRead(t *testing.T, lines ...string) []Entry {
	t.Helper()
	entries, err := Read(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return entries
}

func chainUUIDs(chain []*Record) []string {
	out := make([]string, 0, len(chain))
	for _, rec := range chain {
		out = append(out, rec.UUID())
	}
	return out
}

func TestWalkMainChainSkipsSidechainsAndBranches(t *testing.T) {
	entries := mustRead(t,
		`{"uuid":"A","parentUuid":null,"type":"user","message":{"role":"user","content":"start"}}`,
		`{"uuid":"B","parentUuid":"A","type":"assistant","message":{"role":"assistant","content":"ok"}}`,
		`{"uuid":"X","parentUuid":"B","type":"user","message":{"role":"user","content":"abandoned branch"}}`,
		`{"uuid":"C","parentUuid":"B","type":"user","message":{"role":"user","content":"retry"}}`,
		`{"uuid":"D","parentUuid":"C","type":"assistant","message":{"role":"assistant","content":"done"}}`,
		`{"uuid":"S","parentUuid":"D","type":"assistant","isSidechain":true,"message":{"role":"assistant","content":"agent"}}`,
		`{"uuid":"P","parentUuid":"D","type":"progress"}`,
	)

	if tail := MainChainTail(entries); tail == nil || tail.UUID() != "D" {
		t.Fatalf("expected tail D, got %#v", tail)
	}
	got := strings.Join(chainUUIDs(WalkMainChain(entries)), ",")
	if got != "A,B,C,D" {
		t.Fatalf("expected A,B,C,D, got %s", got)
	}
}

func TestWalkMainChainBreaksCycles(t *testing.T) {
	entries := mustRead(t,
		`{"uuid":"A","parentUuid":"B","type":"user","message":{"role":"user","content":"a"}}`,
		`{"uuid":"B","parentUuid":"A","type":"assistant","message":{"role":"assistant","content":"b"}}`,
	)
	got := strings.Join(chainUUIDs(WalkMainChain(entries)), ",")
	if got != "A,B" {
		t.Fatalf("expected A,B, got %s", got)
	}
}

func TestWalkMainChainStopsAtUnresolvableParent(t *testing.T) {
	entries := mustRead(t,
		`{"uuid":"C","parentUuid":"gone","type":"user","message":{"role":"user","content":"c"}}`,
		`{"uuid":"D","parentUuid":"C","type":"assistant","message":{"role":"assistant","content":"d"}}`,
	)
	got := strings.Join(chainUUIDs(WalkMainChain(entries)), ",")
	if got != "C,D" {
		t.Fatalf("expected C,D, got %s", got)
	}
}

func TestWalkMainChainEmpty(t *testing.T) {
	entries := mustRead(t,
		`{"type":"summary","summary":"x"}`,
		`{"uuid":"S","type":"assistant","isSidechain":true}`,
		`not json`,
	)
	if chain := WalkMainChain(entries); len(chain) != 0 {
		t.Fatalf("expected empty chain, got %v", chainUUIDs(chain))
	}
}

func TestChildrenMapKeepsInsertionOrder(t *testing.T) {
	entries := mustRead(t,
		`{"uuid":"A","type":"user"}`,
		`{"uuid":"C","parentUuid":"A","type":"user"}`,
		`{"uuid":"B","parentUuid":"A","type":"user"}`,
		`{"parentUuid":"A","type":"progress"}`,
		`{"uuid":"D","parentUuid":"","type":"user"}`,
	)
	children := ChildrenMap(entries)
	if got := strings.Join(children["A"], ","); got != "C,B" {
		t.Fatalf("expected C,B, got %s", got)
	}
	if len(children) != 1 {
		t.Fatalf("expected a single parent key, got %d", len(children))
	}
}

func TestUUIDMapLastWins(t *testing.T) {
	entries := mustRead(t,
		`{"uuid":"A","type":"user","n":1}`,
		`{"uuid":"A","type":"user","n":2}`,
		`{"type":"summary"}`,
	)
	byUUID := UUIDMap(entries)
	if len(byUUID) != 1 {
		t.Fatalf("expected 1 uuid, got %d", len(byUUID))
	}
	if byUUID["A"].Get("n").Int() != 2 {
		t.Fatalf("expected the later record to win")
	}
	if _, ok := UUIDSet(entries)["A"]; !ok {
		t.Fatalf("expected A in uuid set")
	}
}
