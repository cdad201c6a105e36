package incident

import "strings"

// cursor walks the lines of an incident file.
// Each line keeps its trailing newline so the remainder can be returned verbatim.
type cursor struct {
	lines []string
	pos   int
}

func newCursor(text string) *cursor {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return &cursor{lines: lines}
}

// mark returns the current position for a later reset.
func (c *cursor) mark() int {
	return c.pos
}

// reset moves the cursor back to a position returned by mark.
func (c *cursor) reset(mark int) {
	c.pos = mark
}

// peek returns the current line without consuming it.
func (c *cursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}
	return c.lines[c.pos], true
}

// next consumes and returns the current line.
func (c *cursor) next() (string, bool) {
	line, ok := c.peek()
	if ok {
		c.pos++
	}
	return line, ok
}

// skipBlank consumes blank lines.
func (c *cursor) skipBlank() {
	for {
		line, ok := c.peek()
		if !ok || !isBlank(line) {
			return
		}
		c.pos++
	}
}

// rest returns all unconsumed text.
func (c *cursor) rest() string {
	if c.pos >= len(c.lines) {
		return ""
	}
	return strings.Join(c.lines[c.pos:], "")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
