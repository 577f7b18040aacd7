// Package sourcemap tracks source file buffers and maps byte spans to
// line/column positions for diagnostics.
package sourcemap

import "sort"

// FileID identifies a loaded source file within a Map.
type FileID int

// Span is a half-open byte range within a single file.
type Span struct {
	File  FileID
	Start int
	End   int
}

// Contains reports whether s wholly contains o.
func (s Span) Contains(o Span) bool {
	return s.File == o.File && s.Start <= o.Start && o.End <= s.End
}

// Union returns the smallest span covering both s and o; they must share a
// file.
func (s Span) Union(o Span) Span {
	start, end := s.Start, s.End
	if o.Start < start {
		start = o.Start
	}
	if o.End > end {
		end = o.End
	}
	return Span{File: s.File, Start: start, End: end}
}

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

type file struct {
	name       string
	content    []byte
	lineStarts []int // byte offset of each line start, built lazily
}

// Map owns every source file loaded during a compilation run.
type Map struct {
	files []*file
}

// New returns an empty Map.
func New() *Map {
	return &Map{}
}

// AddFile registers a file's content and returns its FileID.
func (m *Map) AddFile(name string, content []byte) FileID {
	m.files = append(m.files, &file{name: name, content: content})
	return FileID(len(m.files) - 1)
}

// Name returns the registered filename for id.
func (m *Map) Name(id FileID) string {
	return m.files[id].name
}

// Content returns the raw bytes for id.
func (m *Map) Content(id FileID) []byte {
	return m.files[id].content
}

// Slice returns the text covered by span.
func (m *Map) Slice(span Span) string {
	f := m.files[span.File]
	if span.Start < 0 || span.End > len(f.content) || span.Start > span.End {
		return ""
	}
	return string(f.content[span.Start:span.End])
}

// Position computes the 1-based line/column for a byte offset, building
// the file's line-start table on first use.
func (m *Map) Position(id FileID, offset int) Position {
	f := m.files[id]
	if f.lineStarts == nil {
		f.lineStarts = buildLineStarts(f.content)
	}
	// lineStarts[i] is the offset of line i+1; find the last one <= offset.
	i := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})
	line := i // number of line starts <= offset == 1-based line number
	if line == 0 {
		return Position{Line: 1, Column: offset + 1}
	}
	col := offset - f.lineStarts[line-1] + 1
	return Position{Line: line, Column: col}
}

// Start returns the position of span's first byte.
func (m *Map) Start(span Span) Position { return m.Position(span.File, span.Start) }

// End returns the position of span's last byte (End is exclusive).
func (m *Map) End(span Span) Position {
	end := span.End
	if end > span.Start {
		end--
	}
	return m.Position(span.File, end)
}

// Line returns the full text of the 1-based physical line lineNumber,
// without the trailing newline.
func (m *Map) Line(id FileID, lineNumber int) string {
	f := m.files[id]
	if f.lineStarts == nil {
		f.lineStarts = buildLineStarts(f.content)
	}
	if lineNumber < 1 || lineNumber > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[lineNumber-1]
	end := len(f.content)
	if lineNumber < len(f.lineStarts) {
		end = f.lineStarts[lineNumber] - 1 // exclude the newline itself
	}
	for end > start && (f.content[end-1] == '\n' || f.content[end-1] == '\r') {
		end--
	}
	if start > end {
		start = end
	}
	return string(f.content[start:end])
}

func buildLineStarts(content []byte) []int {
	starts := []int{0}
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}
