// Package render turns service statuses and incidents into the status page,
// its JSON snapshot and the Atom and RSS feeds.
package render

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/bissquit/statuspage/internal/domain"
)

// Output file names.
const (
	IndexFile = "index.html"
	JSONFile  = "status.json"
	AtomFile  = "feed.atom"
	RSSFile   = "feed.rss"
)

// Timestamp layouts shared by every output.
const (
	ISOLayout   = "2006-01-02T15:04:05.000-07:00"
	HumanLayout = "2006-01-02 15:04 MST"
)

// ErrTemplate is returned when page templates cannot be loaded or executed.
var ErrTemplate = errors.New("template error")

// Page describes the published status page.
type Page struct {
	Title       string
	URL         string
	Description string
	Author      string
}

// Options configures a Renderer.
type Options struct {
	Page Page
	// Location is the display timezone; nil means local time.
	Location *time.Location
	// TemplateDir overrides the embedded page templates when set.
	TemplateDir string
}

// Snapshot is everything a single generation renders.
type Snapshot struct {
	Now       time.Time
	Services  *domain.ServiceMap
	Statuses  map[string]domain.Status
	Incidents []domain.Incident
}

// statusOf returns the checked status of a service; unchecked services are unknown.
func (s Snapshot) statusOf(id string) domain.Status {
	if status, ok := s.Statuses[id]; ok {
		return status
	}
	return domain.StatusUnknown
}

// isAffected reports whether an unresolved incident lists the service.
func (s Snapshot) isAffected(id string) bool {
	for i := range s.Incidents {
		if s.Incidents[i].IsActive() && s.Incidents[i].Affects(id) {
			return true
		}
	}
	return false
}

// Output holds the rendered artifacts of one generation.
type Output struct {
	HTML []byte
	JSON []byte
	Atom []byte
	RSS  []byte
}

// File is a rendered artifact and its file name.
type File struct {
	Name string
	Data []byte
}

// Files returns the artifacts in write order.
func (o *Output) Files() []File {
	return []File{
		{Name: IndexFile, Data: o.HTML},
		{Name: JSONFile, Data: o.JSON},
		{Name: AtomFile, Data: o.Atom},
		{Name: RSSFile, Data: o.RSS},
	}
}

// Renderer produces every output format from a Snapshot.
type Renderer struct {
	page      Page
	loc       *time.Location
	templates *pageTemplates
}

// New creates a renderer and loads its page templates.
func New(opts Options) (*Renderer, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	r := &Renderer{
		page: opts.Page,
		loc:  loc,
	}

	templates, err := loadTemplates(opts.TemplateDir, template.FuncMap{
		"isoTime":   r.isoTime,
		"humanTime": r.humanTime,
	})
	if err != nil {
		return nil, err
	}
	r.templates = templates

	return r, nil
}

// Render produces all four artifacts. Nothing is returned unless every format succeeds.
func (r *Renderer) Render(s Snapshot) (*Output, error) {
	s.Now = s.Now.In(r.loc)

	page, err := r.HTML(s)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	snapshot, err := r.JSON(s)
	if err != nil {
		return nil, fmt.Errorf("render json: %w", err)
	}

	atom, err := r.Atom(s)
	if err != nil {
		return nil, fmt.Errorf("render atom: %w", err)
	}

	rss, err := r.RSS(s)
	if err != nil {
		return nil, fmt.Errorf("render rss: %w", err)
	}

	return &Output{HTML: page, JSON: snapshot, Atom: atom, RSS: rss}, nil
}

func (r *Renderer) isoTime(t time.Time) string {
	return t.In(r.loc).Format(ISOLayout)
}

func (r *Renderer) humanTime(t time.Time) string {
	return t.In(r.loc).Format(HumanLayout)
}

// updatedOf returns when the incident was last changed, falling back to its date.
func updatedOf(inc *domain.Incident) time.Time {
	if inc.Updated.IsZero() {
		return inc.Date
	}
	return inc.Updated
}
