package strip

import (
	"github.com/tidwall/sjson"

	"github.com/TKasperczyk/decant/internal/transcript"
)

// StripThinking drops thinking blocks from assistant records and removes the
// signature field from the blocks that remain.
func StripThinking(entries []transcript.Entry) ([]transcript.Entry, int, error) {
	return mapRecords(entries, stripThinking)
}

func stripThinking(rec *transcript.Record) (*transcript.Record, error) {
	if rec.Type() != transcript.TypeAssistant {
		return nil, nil
	}
	blocks := rec.Blocks()
	if len(blocks) == 0 {
		return nil, nil
	}

	kept := make([][]byte, 0, len(blocks))
	changed := false
	for _, block := range blocks {
		if block.Get("type").String() == transcript.BlockThinking {
			changed = true
			continue
		}
		raw := []byte(block.Raw)
		if block.Get("signature").Exists() {
			next, err := sjson.DeleteBytes(raw, "signature")
			if err != nil {
				return nil, err
			}
			raw = next
			changed = true
		}
		kept = append(kept, raw)
	}
	if !changed {
		return nil, nil
	}
	return withBlocks(rec, kept)
}
