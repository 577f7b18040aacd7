package diagnostics

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/kennedyshead/prove/internal/sourcemap"
)

// Renderer prints Diagnostics in the Rust-style format of spec.md §6.4:
//
//	error[E361]: postfix `!` is only permitted inside inputs, outputs, and main
//	 --> waterline.prv:12:5
//	   |
//	12 |     level!
//	   |     ^^^^^^
//	   = note: `check_level` is declared `transforms`
//	   try: drop the `!` or change the verb to `inputs`
type Renderer struct {
	Map   *sourcemap.Map
	Out   io.Writer
	Color bool

	errStyle  lipgloss.Style
	warnStyle lipgloss.Style
	noteStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

// NewRenderer builds a Renderer. If out is nil, os.Stderr is used and color
// is auto-detected with go-isatty; otherwise color defaults off (piped
// output, test buffers) unless forceColor is true.
func NewRenderer(m *sourcemap.Map, out io.Writer, forceColor bool) *Renderer {
	color := forceColor
	if out == nil {
		out = os.Stderr
		if f, ok := out.(*os.File); ok {
			color = color || isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	r := &Renderer{Map: m, Out: out, Color: color}
	r.errStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	r.warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	r.noteStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	r.dimStyle = lipgloss.NewStyle().Faint(true)
	if !color {
		r.errStyle = lipgloss.NewStyle()
		r.warnStyle = lipgloss.NewStyle()
		r.noteStyle = lipgloss.NewStyle()
		r.dimStyle = lipgloss.NewStyle()
	}
	return r
}

// RenderAll prints every diagnostic in d, in order.
func (r *Renderer) RenderAll(ds []*Diagnostic) {
	for _, d := range ds {
		r.Render(d)
	}
}

// Render prints a single diagnostic.
func (r *Renderer) Render(d *Diagnostic) {
	sevStyle := r.noteStyle
	switch d.Severity {
	case SeverityError:
		sevStyle = r.errStyle
	case SeverityWarning:
		sevStyle = r.warnStyle
	}

	fmt.Fprintf(r.Out, "%s: %s\n", sevStyle.Render(fmt.Sprintf("%s[%s]", d.Severity, d.Code)), d.Message)

	pos := r.Map.Start(d.Primary)
	file := r.Map.Name(d.Primary.File)
	fmt.Fprintf(r.Out, "%s %s:%d:%d\n", r.dimStyle.Render(" -->"), file, pos.Line, pos.Column)

	r.renderExcerpt(d.Primary, pos, "^")
	for _, l := range d.Labels {
		lp := r.Map.Start(l.Span)
		r.renderExcerpt(l.Span, lp, "-")
		fmt.Fprintf(r.Out, "%s %s\n", r.dimStyle.Render("   ="), l.Message)
	}
	for _, n := range d.Notes {
		fmt.Fprintf(r.Out, "%s note: %s\n", r.dimStyle.Render("   ="), n)
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(r.Out, "%s %s\n", r.dimStyle.Render("   try:"), s.Label)
	}
	fmt.Fprintln(r.Out)
}

func (r *Renderer) renderExcerpt(span sourcemap.Span, pos sourcemap.Position, caret string) {
	line := r.Map.Line(span.File, pos.Line)
	gutter := fmt.Sprintf("%d", pos.Line)
	pad := strings.Repeat(" ", len(gutter))

	fmt.Fprintf(r.Out, "%s %s\n", pad, r.dimStyle.Render("|"))
	fmt.Fprintf(r.Out, "%s %s %s\n", r.dimStyle.Render(gutter), r.dimStyle.Render("|"), line)

	width := span.End - span.Start
	if width < 1 {
		width = 1
	}
	carets := strings.Repeat(caret, width)
	colOffset := pos.Column - 1
	if colOffset < 0 {
		colOffset = 0
	}
	fmt.Fprintf(r.Out, "%s %s %s%s\n", pad, r.dimStyle.Render("|"), strings.Repeat(" ", colOffset), carets)
}
