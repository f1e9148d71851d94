package transcript

// UUIDMap indexes records by uuid. When a uuid repeats, the later record wins.
func UUIDMap(entries []Entry) map[string]*Record {
	out := make(map[string]*Record, len(entries))
	for _, e := range entries {
		if e.Record == nil {
			continue
		}
		if id := e.Record.UUID(); id != "" {
			out[id] = e.Record
		}
	}
	return out
}

// UUIDSet is the set of uuids present in entries.
func UUIDSet(entries []Entry) map[string]struct{} {
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Record == nil {
			continue
		}
		if id := e.Record.UUID(); id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

// ChildrenMap maps a parent uuid to its children in file order.
func ChildrenMap(entries []Entry) map[string][]string {
	out := make(map[string][]string)
	for _, e := range entries {
		if e.Record == nil {
			continue
		}
		parent, id := e.Record.ParentUUID(), e.Record.UUID()
		if parent == "" || id == "" {
			continue
		}
		out[parent] = append(out[parent], id)
	}
	return out
}

// MainChainTail returns the last non-sidechain user or assistant record that
// has a uuid, or nil.
func MainChainTail(entries []Entry) *Record {
	for i := len(entries) - 1; i >= 0; i-- {
		rec := entries[i].Record
		if rec == nil || rec.IsSidechain() || rec.UUID() == "" || !rec.IsConversational() {
			continue
		}
		return rec
	}
	return nil
}

// WalkMainChain follows parentUuid links from MainChainTail back to a root
// and returns the chain oldest first. A uuid seen twice ends the walk.
func WalkMainChain(entries []Entry) []*Record {
	current := MainChainTail(entries)
	if current == nil {
		return nil
	}
	byUUID := UUIDMap(entries)

	var chain []*Record
	visited := make(map[string]struct{})
	for current != nil {
		id := current.UUID()
		if _, seen := visited[id]; seen {
			break
		}
		visited[id] = struct{}{}
		chain = append(chain, current)

		parent := current.ParentUUID()
		if parent == "" {
			break
		}
		current = byUUID[parent]
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
