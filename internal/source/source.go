// Package source tracks the text of a grammar source file and maps byte
// offsets within it back to line and column numbers for diagnostics.
package source

import "fmt"

// Offset is a zero-based byte offset into a Text's content.
type Offset int

// Pos is a one-based line/column pair.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Text holds the full content of a source file along with its name, and
// the line-start/line-end table (built by New) needed to answer position
// queries.
type Text struct {
	Name    string
	Content string

	lines []lineSpan
}

type lineSpan struct {
	start Offset // offset of first byte of the line
	end   Offset // offset one past the last byte of the line, excluding the newline
}

// New creates a Text for the given name and content. The line table is
// built eagerly since every Fragment created from this Text will need it.
func New(name, content string) *Text {
	t := &Text{Name: name, Content: content}
	t.buildLines()
	return t
}

func (t *Text) buildLines() {
	t.lines = nil
	start := Offset(0)
	for i := 0; i < len(t.Content); i++ {
		if t.Content[i] == '\n' {
			t.lines = append(t.lines, lineSpan{start: start, end: Offset(i)})
			start = Offset(i + 1)
		}
	}
	t.lines = append(t.lines, lineSpan{start: start, end: Offset(len(t.Content))})
}

// Pos returns the 1-based line/column of the given byte offset. Columns are
// counted in bytes, not runes, matching the byte-oriented nature of the
// pattern engine the offsets ultimately describe.
func (t *Text) Pos(off Offset) Pos {
	lineNum := t.lineIndex(off)
	span := t.lines[lineNum]
	col := int(off-span.start) + 1
	return Pos{Line: lineNum + 1, Col: col}
}

// Line returns the full text of the line containing off, without its
// trailing newline.
func (t *Text) Line(off Offset) string {
	lineNum := t.lineIndex(off)
	span := t.lines[lineNum]
	return t.Content[span.start:span.end]
}

func (t *Text) lineIndex(off Offset) int {
	// binary search would be more efficient, but grammar sources are small
	// and this runs once per diagnostic, not per byte of input.
	for i, span := range t.lines {
		if off <= span.end || i == len(t.lines)-1 {
			return i
		}
	}
	return len(t.lines) - 1
}

// Fragment names a contiguous byte range [Start, End) of a Text.
type Fragment struct {
	Text  *Text
	Start Offset
	End   Offset
}

// At returns a zero-length Fragment at off.
func At(t *Text, off Offset) Fragment {
	return Fragment{Text: t, Start: off, End: off}
}

// Span returns a Fragment covering [start, end).
func Span(t *Text, start, end Offset) Fragment {
	return Fragment{Text: t, Start: start, End: end}
}

// Bytes returns the literal source bytes this Fragment covers.
func (f Fragment) Bytes() string {
	if f.Text == nil {
		return ""
	}
	return f.Text.Content[f.Start:f.End]
}

// Pos returns the line/column of the fragment's starting offset.
func (f Fragment) Pos() Pos {
	if f.Text == nil {
		return Pos{}
	}
	return f.Text.Pos(f.Start)
}

// Line returns the full source line the fragment starts on.
func (f Fragment) Line() string {
	if f.Text == nil {
		return ""
	}
	return f.Text.Line(f.Start)
}

// String gives the "name:line:col" form used to prefix diagnostics.
func (f Fragment) String() string {
	name := "<input>"
	if f.Text != nil {
		name = f.Text.Name
	}
	return fmt.Sprintf("%s:%s", name, f.Pos())
}
