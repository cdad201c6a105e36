// Package incident stores incident reports as Markdown files in a directory.
package incident

import (
	"strings"
	"time"

	"github.com/bissquit/statuspage/internal/domain"
)

// Metadata labels recognized at the top of an incident file.
const (
	labelDate     = "Date:"
	labelStatus   = "Status:"
	labelAffected = "Affected:"
)

// dateLayouts are tried in order when reading a Date: line.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// localDateLayouts carry no offset and are read in the display location.
var localDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse reads an incident from the text of its file.
// modTime is the file modification time; it is the date when the file records none,
// and it becomes the incident's Updated time. Both are converted to loc.
func Parse(name, text string, modTime time.Time, loc *time.Location) (*domain.Incident, error) {
	c := newCursor(text)

	title, err := parseTitle(c)
	if err != nil {
		return nil, err
	}

	date, ok := parseDate(c, loc)
	if !ok {
		date = modTime.In(loc)
	}

	inc := &domain.Incident{
		Name:     name,
		Title:    title,
		Date:     date,
		Status:   parseStatus(c),
		Affected: parseAffected(c),
		Updated:  modTime.In(loc),
	}

	// The writer separates metadata from the body with one blank line.
	if line, ok := c.peek(); ok && isBlank(line) {
		c.next()
	}
	inc.Content = c.rest()

	return inc, nil
}

// parseTitle reads the first non-blank line. A line without a heading marker is a
// setext heading, so its underline is discarded.
func parseTitle(c *cursor) (string, error) {
	c.skipBlank()

	line, ok := c.next()
	if !ok {
		return "", ErrNoTitle
	}

	title := strings.TrimSpace(line)
	if strings.HasPrefix(title, "#") {
		title = title[1:]
	} else {
		c.next()
	}

	return strings.TrimSpace(title), nil
}

func parseDate(c *cursor, loc *time.Location) (time.Time, bool) {
	start := c.mark()
	c.skipBlank()

	line, ok := c.peek()
	if ok && strings.HasPrefix(line, labelDate) {
		if date, err := ParseTime(strings.TrimSpace(line[len(labelDate):]), loc); err == nil {
			c.next()
			return date, true
		}
	}

	c.reset(start)
	return time.Time{}, false
}

func parseStatus(c *cursor) domain.Status {
	start := c.mark()
	c.skipBlank()

	line, ok := c.peek()
	if ok && strings.HasPrefix(line, labelStatus) {
		if status := strings.TrimSpace(line[len(labelStatus):]); status != "" {
			c.next()
			return domain.Status(status)
		}
	}

	c.reset(start)
	return domain.StatusUp
}

func parseAffected(c *cursor) []string {
	start := c.mark()
	c.skipBlank()

	affected := []string{}

	line, ok := c.peek()
	if !ok || !strings.HasPrefix(line, labelAffected) {
		c.reset(start)
		return affected
	}
	c.next()

	// end is the position right after the label or the last bullet.
	end := c.mark()
	for {
		line, ok := c.peek()
		if !ok {
			break
		}
		if isBlank(line) {
			c.next()
			continue
		}
		item, isBullet := bulletItem(line)
		if !isBullet {
			break
		}
		if id := domain.NormalizeServiceID(item); id != "" {
			affected = append(affected, id)
		}
		c.next()
		end = c.mark()
	}
	c.reset(end)

	return affected
}

// bulletItem returns the text after a "*" marker. Other list markers start the body.
func bulletItem(line string) (string, bool) {
	return strings.CutPrefix(line, "*")
}

// ParseTime parses an ISO 8601 timestamp. Timestamps without an offset are read in loc.
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.In(loc), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, firstErr
}
