package transcript

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	bashPreviewRunes   = 120
	resultPreviewRunes = 200
	headResultRunes    = 150
)

// DetailedTranscript renders the main chain with short tool call summaries
// and tool result previews.
func DetailedTranscript(entries []Entry) string {
	var sections []string
	for _, rec := range WalkMainChain(entries) {
		if !rec.IsConversational() {
			continue
		}
		label := "[" + strings.ToUpper(rec.Role()) + "]: "
		content := rec.Content()
		if content.Type == gjson.String {
			if content.Str != "" {
				sections = append(sections, label+content.Str)
			}
			continue
		}
		if !content.IsArray() {
			continue
		}

		blocks := content.Array()
		if hasBlock(blocks, BlockToolResult) {
			var results []string
			for _, block := range blocks {
				if block.Get("type").String() != BlockToolResult {
					continue
				}
				status := "ok"
				if block.Get("is_error").Bool() {
					status = "ERROR"
				}
				preview := ""
				if c := block.Get("content"); c.Type == gjson.String {
					preview = clipRunes(c.Str, resultPreviewRunes)
				}
				results = append(results, "  [tool result ("+status+"): "+preview+"...]")
			}
			if len(results) > 0 {
				sections = append(sections, "[TOOL RESULT]: "+strings.Join(results, ""))
			}
			continue
		}

		var parts []string
		for _, block := range blocks {
			switch block.Get("type").String() {
			case BlockText:
				parts = append(parts, block.Get("text").String())
			case BlockToolUse:
				parts = append(parts, ToolUseSummary(block))
			}
		}
		if len(parts) > 0 {
			sections = append(sections, label+strings.Join(parts, "\n"))
		}
	}
	return strings.Join(sections, "\n\n")
}

// HeadChain returns the main chain records before boundary. When boundary is
// not on the main chain the whole chain is returned.
func HeadChain(entries []Entry, boundary string) []*Record {
	var head []*Record
	for _, rec := range WalkMainChain(entries) {
		if rec.UUID() == boundary {
			break
		}
		head = append(head, rec)
	}
	return head
}

// HeadTranscript renders head records for summarization, eliding the middle
// when the result is longer than maxRunes.
func HeadTranscript(head []*Record, maxRunes int) string {
	var sections []string
	for _, rec := range head {
		if !rec.IsConversational() {
			continue
		}
		label := "[" + strings.ToUpper(rec.Role()) + "]: "
		content := rec.Content()
		if content.Type == gjson.String {
			if content.Str != "" {
				sections = append(sections, label+content.Str)
			}
			continue
		}
		var parts []string
		for _, block := range content.Array() {
			switch block.Get("type").String() {
			case BlockText:
				parts = append(parts, block.Get("text").String())
			case BlockToolUse:
				parts = append(parts, ToolUseSummary(block))
			case BlockToolResult:
				marker := "result"
				if block.Get("is_error").Bool() {
					marker = "result(ERR)"
				}
				c := block.Get("content")
				preview := c.Raw
				if c.Type == gjson.String {
					preview = c.Str
				}
				parts = append(parts, "  ["+marker+": "+clipRunes(preview, headResultRunes)+"...]")
			}
		}
		if len(parts) > 0 {
			sections = append(sections, label+strings.Join(parts, "\n"))
		}
	}
	return TruncateMiddle(strings.Join(sections, "\n\n"), maxRunes, "\n\n... [middle section truncated] ...\n\n")
}

// ToolUseSummary renders a tool_use block as a one-line hint.
func ToolUseSummary(block gjson.Result) string {
	name := orUnknown(block.Get("name"))
	input := block.Get("input")
	switch name {
	case "Bash":
		return "  [Bash: " + clipRunes(orUnknown(input.Get("command")), bashPreviewRunes) + "]"
	case "Read", "Write", "Edit":
		return "  [" + name + ": " + orUnknown(input.Get("file_path")) + "]"
	case "Grep", "Glob":
		return "  [" + name + ": " + orUnknown(input.Get("pattern")) + "]"
	case "Task":
		return "  [Task: " + orUnknown(input.Get("description")) + "]"
	}
	return "  [" + name + "]"
}

// TruncateMiddle keeps the first and last maxRunes/2 runes of s around marker
// when s is longer than maxRunes. maxRunes <= 0 disables truncation.
func TruncateMiddle(s string, maxRunes int, marker string) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	half := maxRunes / 2
	return string(runes[:half]) + marker + string(runes[len(runes)-half:])
}

func hasBlock(blocks []gjson.Result, kind string) bool {
	for _, block := range blocks {
		if block.Get("type").String() == kind {
			return true
		}
	}
	return false
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orUnknown(v gjson.Result) string {
	if !v.Exists() {
		return "?"
	}
	return v.String()
}
