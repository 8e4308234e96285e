package srclang

import "fmt"

// SourceBuffer wraps the raw source characters with a cursor that reports a
// 1-based line number. Comment stripping happens here, not in the Lexer:
// line comments run to end of line, and block comments nest correctly.
type SourceBuffer struct {
	src  []rune
	pos  int
	line int
}

// NewSourceBuffer wraps src for scanning.
func NewSourceBuffer(src string) *SourceBuffer {
	return &SourceBuffer{src: []rune(src), pos: 0, line: 1}
}

// Line returns the 1-based line of the next unconsumed rune.
func (b *SourceBuffer) Line() int { return b.line }

// AtEnd reports whether the cursor has consumed every rune.
func (b *SourceBuffer) AtEnd() bool { return b.pos >= len(b.src) }

// Peek returns the rune at the cursor without consuming it, or 0 at end.
func (b *SourceBuffer) Peek() rune { return b.PeekAt(0) }

// PeekAt returns the rune n runes ahead of the cursor, or 0 past the end.
func (b *SourceBuffer) PeekAt(n int) rune {
	if b.pos+n >= len(b.src) {
		return 0
	}
	return b.src[b.pos+n]
}

// Advance consumes and returns the rune at the cursor, tracking line count.
func (b *SourceBuffer) Advance() rune {
	if b.AtEnd() {
		return 0
	}
	r := b.src[b.pos]
	b.pos++
	if r == '\n' {
		b.line++
	}
	return r
}

// SkipWhitespaceAndComments consumes whitespace, "//" line comments, and
// correctly nested "/* ... */" block comments until neither remains at the
// cursor. An unterminated block comment at EOF is a fatal scanner error.
func (b *SourceBuffer) SkipWhitespaceAndComments() error {
	for {
		switch {
		case isSpace(b.Peek()):
			b.Advance()
		case b.Peek() == '/' && b.PeekAt(1) == '/':
			for !b.AtEnd() && b.Peek() != '\n' {
				b.Advance()
			}
		case b.Peek() == '/' && b.PeekAt(1) == '*':
			if err := b.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// skipBlockComment consumes a "/* ... */" comment, honoring nesting. The
// opening "/*" must still be at the cursor when this is called.
func (b *SourceBuffer) skipBlockComment() error {
	startLine := b.line
	depth := 0
	for !b.AtEnd() {
		if b.Peek() == '/' && b.PeekAt(1) == '*' {
			b.Advance()
			b.Advance()
			depth++
			continue
		}
		if b.Peek() == '*' && b.PeekAt(1) == '/' {
			b.Advance()
			b.Advance()
			depth--
			if depth == 0 {
				return nil
			}
			continue
		}
		b.Advance()
	}
	return fmt.Errorf("unterminated block comment starting at line %d", startLine)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
