// Package diag implements the diagnostic type shared by the lexer, parser,
// and lowering pass: a primary span, optional secondary labels, and an
// optional help hint, with a plain-text snippet renderer. Colorized
// rendering is left to an external consumer; this package only produces the
// underlying text.
package diag

import (
	"fmt"
	"strings"

	"github.com/ScratchCat458/august-build/internal/span"
)

// Label attaches a message to a secondary span, used to point at a related
// but non-primary location (e.g. the first definition in a duplicate-name
// error).
type Label struct {
	Span    span.Span
	Message string
}

type Diagnostic struct {
	Message   string
	Primary   span.Span
	Secondary []Label
	Help      string
}

func New(primary span.Span, message string) Diagnostic {
	return Diagnostic{Primary: primary, Message: message}
}

func (d Diagnostic) WithLabel(sp span.Span, message string) Diagnostic {
	d.Secondary = append(d.Secondary, Label{Span: sp, Message: message})
	return d
}

func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

func (d Diagnostic) Error() string {
	return d.Message
}

// List is an accumulated set of diagnostics. It implements error so a
// lex/parse/lower pass can return one value covering every problem found
// instead of failing on the first.
type List []Diagnostic

func (l List) Error() string {
	if len(l) == 0 {
		return "no diagnostics"
	}
	msgs := make([]string, len(l))
	for i, d := range l {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, "; ")
}

func (l List) HasErrors() bool {
	return len(l) > 0
}

// lineCol finds the 1-based line and column of byte offset in source.
func lineCol(source string, offset int) (line, col int) {
	line = 1
	col = 1
	if offset > len(source) {
		offset = len(source)
	}
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// Render produces a plain-text, carets-under-the-span rendering of d against
// source, in the style of a compiler error report: a "line:col: error:
// message" header followed by the offending source line with carets
// underneath the primary span.
func Render(source string, d Diagnostic) string {
	var b strings.Builder

	line, col := lineCol(source, d.Primary.Start)
	fmt.Fprintf(&b, "%d:%d: error: %s\n", line, col, d.Message)

	lineStart := strings.LastIndexByte(source[:min(d.Primary.Start, len(source))], '\n') + 1
	lineEnd := len(source)
	if idx := strings.IndexByte(source[d.Primary.Start:], '\n'); idx >= 0 {
		lineEnd = d.Primary.Start + idx
	}
	srcLine := source[lineStart:lineEnd]

	width := d.Primary.End - d.Primary.Start
	if width < 1 {
		width = 1
	}

	fmt.Fprintf(&b, "  %s\n", srcLine)
	fmt.Fprintf(&b, "  %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", width))

	for _, l := range d.Secondary {
		sline, scol := lineCol(source, l.Span.Start)
		fmt.Fprintf(&b, "  note (%d:%d): %s\n", sline, scol, l.Message)
	}

	if d.Help != "" {
		fmt.Fprintf(&b, "  help: %s\n", d.Help)
	}

	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
