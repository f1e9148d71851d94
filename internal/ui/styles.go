// Package ui formats decant's terminal output: styled labels and rules,
// a progress spinner, markdown previews and width-aware truncation.
//
// Color follows NO_COLOR and FORCE_COLOR and otherwise whether the output is
// a terminal. DECANT_ASCII replaces box-drawing and check-mark symbols with
// plain ASCII.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

type Symbols struct {
	Check    string
	Cross    string
	Arrow    string
	Bullet   string
	Ellipsis string
	BarH     string
}

var (
	unicodeSymbols = Symbols{Check: "✓", Cross: "✗", Arrow: "→", Bullet: "•", Ellipsis: "…", BarH: "─"}
	asciiSymbols   = Symbols{Check: "+", Cross: "x", Arrow: "->", Bullet: "*", Ellipsis: "...", BarH: "-"}
)

type Options struct {
	Color   bool
	Unicode bool
	// Width is the terminal width in cells. Zero means 80.
	Width int
}

// Detect inspects the environment and w to pick output options.
func Detect(w io.Writer) Options {
	opts := Options{Color: detectColor(w), Unicode: detectUnicode(), Width: defaultWidth}
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			opts.Width = width
		}
	}
	return opts
}

func detectColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if _, ok := os.LookupEnv("FORCE_COLOR"); ok {
		return true
	}
	return IsTerminal(w)
}

func detectUnicode() bool {
	if _, ok := os.LookupEnv("DECANT_ASCII"); ok {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		v = strings.ToLower(strings.ReplaceAll(v, "-", ""))
		return strings.Contains(v, "utf8")
	}
	return true
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Styles renders text for one output stream.
type Styles struct {
	Sym   Symbols
	color bool
	width int

	header  lipgloss.Style
	label   lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	errorSt lipgloss.Style
	dim     lipgloss.Style
	accent  lipgloss.Style
}

func New(w io.Writer, opts Options) *Styles {
	r := lipgloss.NewRenderer(w)
	if opts.Color {
		if r.ColorProfile() == termenv.Ascii {
			r.SetColorProfile(termenv.ANSI)
		}
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	s := &Styles{
		Sym:     asciiSymbols,
		color:   opts.Color,
		width:   opts.Width,
		header:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		label:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		warn:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		errorSt: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		dim:     r.NewStyle().Faint(true),
		accent:  r.NewStyle().Foreground(lipgloss.Color("5")),
	}
	if opts.Unicode {
		s.Sym = unicodeSymbols
	}
	if s.width <= 0 {
		s.width = defaultWidth
	}
	return s
}

func (s *Styles) render(st lipgloss.Style, text string) string {
	if !s.color {
		return text
	}
	return st.Render(text)
}

func (s *Styles) Color() bool { return s.color }
func (s *Styles) Width() int  { return s.width }

// Header is for titles and completion messages.
func (s *Styles) Header(text string) string { return s.render(s.header, text) }

// Label is for keys in key-value rows.
func (s *Styles) Label(text string) string   { return s.render(s.label, text) }
func (s *Styles) Success(text string) string { return s.render(s.success, text) }
func (s *Styles) Warn(text string) string    { return s.render(s.warn, text) }
func (s *Styles) ErrorText(text string) string {
	return s.render(s.errorSt, text)
}

// Dim is for secondary details: ids, paths, rules.
func (s *Styles) Dim(text string) string { return s.render(s.dim, text) }

// Accent is for model names, topics and other highlighted values.
func (s *Styles) Accent(text string) string { return s.render(s.accent, text) }

// KV formats "  <key right-aligned to keyWidth>  <val>".
func (s *Styles) KV(key, val string, keyWidth int) string {
	return "  " + s.Label(fmt.Sprintf("%*s", keyWidth, key)) + "  " + val
}

// Rule is a dim horizontal line. Zero width spans the terminal.
func (s *Styles) Rule(width int) string {
	if width <= 0 {
		width = s.width
	}
	return s.Dim(strings.Repeat(s.Sym.BarH, width))
}

// TitledRule renders "── Title ─────". An unstyled title is rendered as a
// header.
func (s *Styles) TitledRule(title string, width int) string {
	if width <= 0 {
		width = s.width
	}
	visible := ansi.Strip(title)
	if visible == title {
		title = s.Header(title)
	}
	bar := s.Sym.BarH
	remaining := width - (4 + ansi.StringWidth(visible))
	if remaining < 0 {
		remaining = 0
	}
	return s.Dim(bar+bar+" ") + title + s.Dim(" "+strings.Repeat(bar, remaining))
}

func (s *Styles) Bullet(text string, indent int) string {
	return strings.Repeat(" ", indent) + s.Dim(s.Sym.Bullet) + " " + text
}

// Truncate shortens s to width cells, keeping ANSI styling intact.
func (s *Styles) Truncate(text string, width int) string {
	if width <= 0 || ansi.StringWidth(text) <= width {
		return text
	}
	return ansi.Truncate(text, width, s.Sym.Ellipsis)
}

func (s *Styles) Error(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", s.ErrorText("error:"), msg)
}

func (s *Styles) Hint(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", s.Dim(s.Warn("hint:")), s.Dim(msg))
}
