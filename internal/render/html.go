package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/bissquit/statuspage/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pageTemplate is executed to produce the page; the other files are its partials.
const pageTemplate = "index.html"

// TemplateFiles lists the files a template directory must contain.
var TemplateFiles = []string{
	pageTemplate,
	"service.html",
	"incident.html",
	"affected.html",
	"affected_service.html",
}

type pageTemplates struct {
	root *template.Template
}

// loadTemplates parses the page templates from dir, or the embedded defaults when dir is empty.
func loadTemplates(dir string, funcs template.FuncMap) (*pageTemplates, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("%w: open embedded templates: %w", ErrTemplate, err)
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	root := template.New("").Funcs(funcs)
	for _, name := range TemplateFiles {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrTemplate, name, err)
		}

		text := string(content)
		if name != pageTemplate {
			text = strings.TrimRight(text, "\r\n")
		}

		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %w", ErrTemplate, name, err)
		}
	}

	return &pageTemplates{root: root}, nil
}

type pageView struct {
	Page      Page
	Now       time.Time
	Services  []serviceView
	Incidents []incidentView
}

type serviceView struct {
	Name        string
	Title       string
	Link        string
	Description string
	Status      string
	Pretty      string
	Affected    bool
}

type incidentView struct {
	Name    string
	Title   template.HTML
	Date    time.Time
	Updated time.Time
	Status   string
	Pretty   string
	Content  template.HTML
	Affected []affectedView
}

type affectedView struct {
	Name  string
	Title string
	Link  string
}

// HTML renders the status page.
func (r *Renderer) HTML(s Snapshot) ([]byte, error) {
	view := pageView{
		Page: r.page,
		Now:  s.Now.In(r.loc),
	}

	for _, svc := range s.Services.List() {
		status := s.statusOf(svc.ID)
		view.Services = append(view.Services, serviceView{
			Name:        svc.ID,
			Title:       svc.Title,
			Link:        svc.Link,
			Description: svc.Description,
			Status:      string(status),
			Pretty:      status.Pretty(),
			Affected:    s.isAffected(svc.ID),
		})
	}

	for i := range s.Incidents {
		iv, err := r.incidentView(&s.Incidents[i], s.Services)
		if err != nil {
			return nil, fmt.Errorf("render incident %s: %w", s.Incidents[i].Name, err)
		}
		view.Incidents = append(view.Incidents, iv)
	}

	var buf bytes.Buffer
	if err := r.templates.root.ExecuteTemplate(&buf, pageTemplate, view); err != nil {
		return nil, fmt.Errorf("%w: execute %s: %w", ErrTemplate, pageTemplate, err)
	}

	return buf.Bytes(), nil
}

func (r *Renderer) incidentView(inc *domain.Incident, services *domain.ServiceMap) (incidentView, error) {
	title, err := renderInline(inc.Title)
	if err != nil {
		return incidentView{}, err
	}

	content, err := renderMarkdown(inc.Content)
	if err != nil {
		return incidentView{}, err
	}

	iv := incidentView{
		Name:    inc.Name,
		Title:   template.HTML(title),
		Date:    inc.Date.In(r.loc),
		Updated: updatedOf(inc).In(r.loc),
		Status:  string(inc.Status),
		Pretty:  inc.Status.Pretty(),
		Content: template.HTML(content),
	}

	for _, id := range inc.Affected {
		svc, ok := services.Get(id)
		if !ok {
			continue
		}
		iv.Affected = append(iv.Affected, affectedView{
			Name:  svc.ID,
			Title: svc.Title,
			Link:  svc.Link,
		})
	}

	return iv, nil
}
