package domain

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrInvalidPatch is returned when an incident patch carries an unusable value.
var ErrInvalidPatch = errors.New("invalid incident patch")

// Incident represents a hand-authored incident report stored as a Markdown file.
type Incident struct {
	// Name is the file name stem, unique within the incident directory.
	Name     string
	Title    string
	Date     time.Time
	Status   Status
	Affected []string
	Content  string
	// Updated is the file modification time. It is not part of the file contents.
	Updated time.Time
}

// Affects reports whether the incident lists the service as affected.
func (i *Incident) Affects(serviceID string) bool {
	return slices.Contains(i.Affected, serviceID)
}

// IsActive reports whether the incident affects the status of its services.
func (i *Incident) IsActive() bool {
	return !i.Status.IsHealthy()
}

// IncidentPatch holds the fields to overlay onto an existing incident.
// Nil fields retain the current value. A non-nil empty Affected clears the list.
// Content is appended to the existing body; empty means nothing is appended.
type IncidentPatch struct {
	Date     *time.Time
	Title    *string
	Status   *Status
	Affected *[]string
	Content  string
}

// Validate checks the patch for values that cannot be written.
func (p IncidentPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return errors.Join(ErrInvalidPatch, errors.New("title must not be empty"))
	}
	if p.Status != nil && strings.TrimSpace(string(*p.Status)) == "" {
		return errors.Join(ErrInvalidPatch, errors.New("status must not be empty"))
	}
	return nil
}

// Apply overlays the patch onto the incident.
func (p IncidentPatch) Apply(inc *Incident) {
	if p.Date != nil {
		inc.Date = *p.Date
	}
	if p.Title != nil {
		inc.Title = *p.Title
	}
	if p.Status != nil {
		inc.Status = *p.Status
	}
	if p.Affected != nil {
		inc.Affected = NormalizeAffected(*p.Affected)
	}
	inc.Content = AppendContent(inc.Content, p.Content)
}

// AppendContent appends addition to content separated by one blank line.
func AppendContent(content, addition string) string {
	if addition == "" {
		return content
	}
	existing := strings.TrimRight(content, "\n")
	if existing == "" {
		return addition
	}
	return existing + "\n\n" + addition
}

// NormalizeAffected lowercases and trims service IDs, dropping empty entries.
func NormalizeAffected(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = NormalizeServiceID(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}

// NormalizeServiceID returns the canonical form of a service identifier.
func NormalizeServiceID(id string) string {
	return Lower(strings.TrimSpace(id))
}
