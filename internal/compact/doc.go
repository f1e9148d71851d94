// Package compact replaces the older part of a session transcript with a
// generated summary.
//
// # Boundary
//
// The boundary is the uuid of the first record that is kept. It is resolved
// either by counting user turns from the end (FindBoundaryByCount) or by
// asking the summarization service where a topic starts
// (Compactor.FindBoundaryByTopic).
//
// # Splice
//
// Everything reachable from the boundary through parentUuid links is the
// tail. Splice builds a fresh summary record, re-roots the tail under it and
// drops the rest:
//
//	summary (parentUuid=null)
//	└── boundary (parentUuid=summary.uuid)
//	    └── descendants...
//
// Structural records without a uuid (file-history-snapshot, queue-operation,
// summary) are always kept, and so is a file-history-snapshot whose messageId
// is in the tail.
//
// # Usage
//
//	c, err := compact.New(service, nil, logger)
//	boundary, err := c.FindBoundaryByTopic(ctx, exchanges, "auth refactor")
//	summary, err := c.SummarizeHead(ctx, entries, boundary)
//	result, err := c.CompactFile(path, boundary, summary, true)
package compact
