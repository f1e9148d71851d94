package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// maxMarkdownBytes bounds what is handed to glamour; larger documents are
// printed as-is.
const maxMarkdownBytes = 500_000

// plainStyle is glamour's style for output that is not a terminal.
const plainStyle = "notty"

// Markdown renders md for the terminal, word-wrapped to width. Without color
// the plain-text style is used. Rendering failures fall back to md.
func (s *Styles) Markdown(md, glamourStyle string, width int) string {
	if strings.TrimSpace(md) == "" || len(md) > maxMarkdownBytes {
		return md
	}
	if width <= 0 {
		width = s.width
	}
	if !s.color || glamourStyle == "" {
		glamourStyle = plainStyle
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
