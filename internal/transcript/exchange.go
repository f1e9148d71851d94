package transcript

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Exchange is one conversational turn on the main chain with tool traffic
// removed.
type Exchange struct {
	UUID      string
	Role      string
	Text      string
	Timestamp string
	// Line is the 0-based source line, or -1 for synthesized records.
	Line int
}

// ExtractExchanges projects the main chain into user and assistant turns.
// Records carrying a tool_result are skipped entirely; otherwise only text
// blocks contribute.
func ExtractExchanges(entries []Entry) []Exchange {
	lines := lineIndex(entries)

	var out []Exchange
	for _, rec := range WalkMainChain(entries) {
		if !rec.IsConversational() {
			continue
		}
		text, ok := exchangeText(rec)
		if !ok {
			continue
		}
		line, found := lines[rec]
		if !found {
			line = -1
		}
		out = append(out, Exchange{
			UUID:      rec.UUID(),
			Role:      rec.Role(),
			Text:      text,
			Timestamp: rec.Timestamp(),
			Line:      line,
		})
	}
	return out
}

// UserExchanges filters exchanges to user turns.
func UserExchanges(exchanges []Exchange) []Exchange {
	var out []Exchange
	for _, ex := range exchanges {
		if ex.Role == TypeUser {
			out = append(out, ex)
		}
	}
	return out
}

func exchangeText(rec *Record) (string, bool) {
	content := rec.Content()
	if content.IsArray() {
		var parts []string
		for _, block := range content.Array() {
			switch block.Get("type").String() {
			case BlockToolResult:
				return "", false
			case BlockText:
				parts = append(parts, block.Get("text").String())
			}
		}
		text := strings.TrimSpace(strings.Join(parts, "\n"))
		return text, text != ""
	}
	if content.Type == gjson.String {
		text := strings.TrimSpace(content.Str)
		return text, text != ""
	}
	return "", false
}

func lineIndex(entries []Entry) map[*Record]int {
	out := make(map[*Record]int, len(entries))
	for _, e := range entries {
		if e.Record != nil {
			out[e.Record] = e.Line
		}
	}
	return out
}
