package ast

import (
	"sort"
	"unicode/utf8"
)

// SourceLocation is a span in a document. Offset and Length are in bytes,
// StartLine and StartColumn are 1-based (columns count runes).
type SourceLocation struct {
	Offset      int
	Length      int
	StartLine   int
	StartColumn int
}

// IsValid reports whether the location points into a document.
func (l SourceLocation) IsValid() bool { return l.StartLine > 0 }

// Begin is the first byte offset covered by the location.
func (l SourceLocation) Begin() int { return l.Offset }

// End is the byte offset just past the location.
func (l SourceLocation) End() int { return l.Offset + l.Length }

// Contains reports whether offset falls within [Begin, End].
func (l SourceLocation) Contains(offset int) bool {
	return l.IsValid() && offset >= l.Begin() && offset <= l.End()
}

// EndLocation returns a zero-length location at the end of l. Line and
// column are left at l's start; callers only use it for offset checks.
func (l SourceLocation) EndLocation() SourceLocation {
	return SourceLocation{
		Offset:      l.End(),
		StartLine:   l.StartLine,
		StartColumn: l.StartColumn,
	}
}

// LineIndex maps byte offsets to line/column positions.
type LineIndex struct {
	source     []byte
	lineStarts []int
}

// NewLineIndex indexes source.
func NewLineIndex(source []byte) *LineIndex {
	starts := []int{0}
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{source: source, lineStarts: starts}
}

// Location builds a SourceLocation for the byte span [offset, offset+length).
func (li *LineIndex) Location(offset, length int) SourceLocation {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.source) {
		offset = len(li.source)
	}
	line := sort.Search(len(li.lineStarts), func(i int) bool {
		return li.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	start := li.lineStarts[line]
	return SourceLocation{
		Offset:      offset,
		Length:      length,
		StartLine:   line + 1,
		StartColumn: utf8.RuneCount(li.source[start:offset]) + 1,
	}
}

// Span builds the location covering [begin, end).
func (li *LineIndex) Span(begin, end int) SourceLocation {
	if end < begin {
		end = begin
	}
	return li.Location(begin, end-begin)
}

// Offset is the inverse of Location: it maps a 1-based line and 1-based
// rune column to a byte offset. Columns past the end of the line clamp to
// the line end.
func (li *LineIndex) Offset(line, column int) (int, bool) {
	if line < 1 || line > len(li.lineStarts) || column < 1 {
		return 0, false
	}
	start := li.lineStarts[line-1]
	end := len(li.source)
	if line < len(li.lineStarts) {
		end = li.lineStarts[line] - 1
	}
	offset := start
	for col := 1; col < column && offset < end; col++ {
		_, size := utf8.DecodeRune(li.source[offset:end])
		offset += size
	}
	return offset, true
}
