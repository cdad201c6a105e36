package render

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/statuspage/internal/domain"
)

var testNow = time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

var testPage = Page{
	Title:       "Example Status",
	URL:         "https://status.example.com/",
	Description: "Current status of Example services",
	Author:      "Example Ops",
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Options{Page: testPage, Location: time.UTC})
	require.NoError(t, err)
	return r
}

func testServices() *domain.ServiceMap {
	return domain.NewServiceMap([]domain.Service{
		{ID: "api", Title: "Public API", Link: "https://api.example.com", Description: "REST API", AlertID: "alert-12"},
		{ID: "web", Title: "Website", Link: "https://www.example.com", Description: "Marketing site", AlertID: "alert-13"},
	})
}

func testSnapshot(incidents ...domain.Incident) Snapshot {
	return Snapshot{
		Now:       testNow,
		Services:  testServices(),
		Statuses:  map[string]domain.Status{"api": domain.StatusDown, "web": domain.StatusUp},
		Incidents: incidents,
	}
}

func outage() domain.Incident {
	return domain.Incident{
		Name:     "2024-03-01-database-outage",
		Title:    "Database *outage*",
		Date:     time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		Updated:  time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
		Status:   domain.StatusDown,
		Affected: []string{"api"},
		Content:  "We are **investigating**.\n",
	}
}

func resolved() domain.Incident {
	return domain.Incident{
		Name:     "2024-02-01-web-blip",
		Title:    "Web blip",
		Date:     time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
		Updated:  time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Status:   domain.StatusUp,
		Affected: []string{"web"},
		Content:  "Resolved.\n",
	}
}

func TestRenderer_Render(t *testing.T) {
	r := newTestRenderer(t)

	out, err := r.Render(testSnapshot(outage()))
	require.NoError(t, err)

	files := out.Files()
	require.Len(t, files, 4)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
		assert.NotEmpty(t, f.Data, f.Name)
	}
	assert.Equal(t, []string{IndexFile, JSONFile, AtomFile, RSSFile}, names)
}

func TestJSON_ServiceStatusAndAffected(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.JSON(testSnapshot(outage()))
	require.NoError(t, err)

	var doc struct {
		LastUpdated string `json:"last_updated"`
		Services    map[string]map[string]any
		Incidents   []struct {
			Name     string   `json:"name"`
			Date     string   `json:"date"`
			Updated  string   `json:"updated"`
			Status   string   `json:"status"`
			Affected []string `json:"affected"`
			Content  string   `json:"content"`
		}
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "2024-03-02T12:00:00.000+00:00", doc.LastUpdated)
	assert.Equal(t, "down", doc.Services["api"]["status"])
	assert.Equal(t, "Public API", doc.Services["api"]["title"])
	assert.Equal(t, "up", doc.Services["web"]["status"])

	require.Len(t, doc.Incidents, 1)
	assert.Equal(t, []string{"api"}, doc.Incidents[0].Affected)
	assert.Equal(t, "2024-03-01T10:30:00.000+00:00", doc.Incidents[0].Date)
	assert.Equal(t, "2024-03-01T11:00:00.000+00:00", doc.Incidents[0].Updated)
	assert.Equal(t, "We are **investigating**.\n", doc.Incidents[0].Content)
}

func TestJSON_ExcludesAlertID(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.JSON(testSnapshot(outage()))
	require.NoError(t, err)

	assert.NotContains(t, string(data), "alert_id")
	assert.NotContains(t, string(data), "alert-12")

	var doc struct {
		Services map[string]map[string]any `json:"services"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.ElementsMatch(t, []string{"title", "link", "description", "status"}, keys(doc.Services["api"]))
}

func TestJSON_Formatting(t *testing.T) {
	r := newTestRenderer(t)
	inc := resolved()
	inc.Affected = nil

	data, err := r.JSON(testSnapshot(inc))
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasSuffix(text, "}\n"))
	assert.Contains(t, text, "\n  \"last_updated\": ")
	assert.Contains(t, text, "\"affected\": []")
	assert.NotContains(t, text, "null")
}

func TestJSON_EmptyIncidents(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.JSON(testSnapshot())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"incidents\": []")
}

func TestJSON_UncheckedServiceIsUnknown(t *testing.T) {
	r := newTestRenderer(t)
	s := testSnapshot()
	s.Statuses = map[string]domain.Status{}

	data, err := r.JSON(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"status\": \"unknown\"")
}

func TestHTML_AffectedMarker(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name        string
		incidents   []domain.Incident
		apiAffected bool
		webAffected bool
	}{
		{"active incident marks its services", []domain.Incident{outage()}, true, false},
		{"resolved incident marks nothing", []domain.Incident{resolved()}, false, false},
		{"no incidents", nil, false, false},
		{"both", []domain.Incident{outage(), resolved()}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := r.HTML(testSnapshot(tt.incidents...))
			require.NoError(t, err)
			page := string(data)

			assert.Equal(t, tt.apiAffected, strings.Contains(page, `class="service down affected" id="service-api"`))
			assert.Equal(t, !tt.apiAffected, strings.Contains(page, `class="service down" id="service-api"`))
			assert.Equal(t, tt.webAffected, strings.Contains(page, `class="service up affected" id="service-web"`))
		})
	}
}

func TestHTML_Incident(t *testing.T) {
	r := newTestRenderer(t)
	inc := outage()
	inc.Affected = []string{"api", "ghost"}

	data, err := r.HTML(testSnapshot(inc))
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, `<a href="#2024-03-01-database-outage">Database <em>outage</em></a>`)
	assert.NotContains(t, page, "<p>Database")
	assert.Contains(t, page, "<strong>investigating</strong>")
	// html/template encodes '+' as a character reference.
	assert.Contains(t, page, `datetime="2024-03-01T10:30:00.000&#43;00:00"`)
	assert.Contains(t, page, "2024-03-01 10:30 UTC")
	assert.Contains(t, page, `<span class="status">Unavailable</span>`)
	assert.Contains(t, page, `data-service="api"`)
	assert.NotContains(t, page, "ghost")
}

func TestHTML_UnknownStatusFallsBack(t *testing.T) {
	r := newTestRenderer(t)
	inc := outage()
	inc.Status = "degraded"

	data, err := r.HTML(testSnapshot(inc))
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, `<span class="status">degraded</span>`)
	assert.Contains(t, page, `class="incident degraded" id="2024-03-01-database-outage"`)
	// Unknown statuses still count as unresolved.
	assert.Contains(t, page, `class="service down affected"`)
}

func TestLoadTemplates_EmbeddedDefaults(t *testing.T) {
	funcs := template.FuncMap{
		"isoTime":   func(time.Time) string { return "iso" },
		"humanTime": func(time.Time) string { return "human" },
	}

	tmpl, err := loadTemplates("", funcs)
	require.NoError(t, err)

	for _, name := range TemplateFiles {
		assert.NotNil(t, tmpl.root.Lookup(name), name)
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.root.ExecuteTemplate(&buf, "incident.html", incidentView{Name: "x", Status: "down"}))
	assert.Contains(t, buf.String(), `<time datetime="iso">human</time>`)
}

func TestHTML_NonePlaceholders(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.HTML(Snapshot{Now: testNow})
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(string(data), "<p>None</p>"))
}

func TestHTML_EscapesServiceFields(t *testing.T) {
	r := newTestRenderer(t)
	s := testSnapshot()
	s.Services = domain.NewServiceMap([]domain.Service{
		{ID: "api", Title: "<script>alert(1)</script>", Description: "a & b"},
	})

	data, err := r.HTML(s)
	require.NoError(t, err)
	page := string(data)

	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "&lt;script&gt;")
	assert.Contains(t, page, "a &amp; b")
}

func TestHTML_LastUpdated(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	r, err := New(Options{Page: testPage, Location: berlin})
	require.NoError(t, err)

	data, err := r.HTML(testSnapshot())
	require.NoError(t, err)

	assert.Contains(t, string(data), `datetime="2024-03-02T13:00:00.000&#43;01:00"`)
	assert.Contains(t, string(data), "2024-03-02 13:00 CET")
}

func TestNew_TemplateDir(t *testing.T) {
	dir := t.TempDir()
	custom := map[string]string{
		"index.html":            "<h1>{{.Page.Title}}</h1>{{range .Services}}{{template \"service.html\" .}}{{end}}{{range .Incidents}}{{template \"incident.html\" .}}{{end}}\n",
		"service.html":          "[{{.Name}}:{{.Status}}]\n",
		"incident.html":         "({{.Name}}{{if .Affected}}{{template \"affected.html\" .Affected}}{{end}})\n",
		"affected.html":         "{{range .}}{{template \"affected_service.html\" .}}{{end}}",
		"affected_service.html": "/{{.Name}}",
	}
	for name, content := range custom {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	r, err := New(Options{Page: testPage, Location: time.UTC, TemplateDir: dir})
	require.NoError(t, err)

	data, err := r.HTML(testSnapshot(outage()))
	require.NoError(t, err)
	assert.Equal(t, "<h1>Example Status</h1>[api:down][web:up](2024-03-01-database-outage/api)\n", string(data))
}

func TestNew_TemplateDirMissingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("x"), 0o644))

	_, err := New(Options{Page: testPage, TemplateDir: dir})
	assert.ErrorIs(t, err, ErrTemplate)
	assert.Contains(t, err.Error(), "service.html")
}

func TestNew_TemplateParseError(t *testing.T) {
	dir := t.TempDir()
	for _, name := range TemplateFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{{.Broken"), 0o644))
	}

	_, err := New(Options{Page: testPage, TemplateDir: dir})
	assert.ErrorIs(t, err, ErrTemplate)
}

type testAtomFeed struct {
	Updated string `xml:"updated"`
	ID      string `xml:"id"`
	Entries []struct {
		ID        string `xml:"id"`
		Title     string `xml:"title"`
		Updated   string `xml:"updated"`
		Published string `xml:"published"`
		Content   string `xml:"content"`
		Link      struct {
			Href string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

func TestAtom_Empty(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.Atom(testSnapshot())
	require.NoError(t, err)

	var feed testAtomFeed
	require.NoError(t, xml.Unmarshal(data, &feed))
	assert.Equal(t, "2024-03-02T12:00:00.000+00:00", feed.Updated)
	assert.Empty(t, feed.Entries)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))
	assert.Contains(t, string(data), `<feed xmlns="http://www.w3.org/2005/Atom">`)
}

func TestAtom_Entries(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.Atom(testSnapshot(outage(), resolved()))
	require.NoError(t, err)

	var feed testAtomFeed
	require.NoError(t, xml.Unmarshal(data, &feed))

	assert.Equal(t, "2024-03-01T11:00:00.000+00:00", feed.Updated)
	require.Len(t, feed.Entries, 2)

	first := feed.Entries[0]
	assert.Equal(t, "Database *outage*", first.Title)
	assert.Equal(t, "2024-03-01T10:30:00.000+00:00", first.Published)
	assert.Equal(t, "https://status.example.com/#2024-03-01-database-outage", first.Link.Href)
	assert.True(t, strings.HasPrefix(first.ID, "urn:uuid:"))
	assert.Equal(t, "Status: Unavailable\n\nAffected:\n* Public API\n\nWe are **investigating**.", first.Content)

	assert.NotEqual(t, first.ID, feed.Entries[1].ID)
	assert.Equal(t, "Status: Operational\n\nAffected:\n* Website\n\nResolved.", feed.Entries[1].Content)

	again, err := r.Atom(testSnapshot(outage(), resolved()))
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestRSS(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.RSS(testSnapshot(outage()))
	require.NoError(t, err)

	var doc struct {
		Version string `xml:"version,attr"`
		Channel struct {
			Title         string `xml:"title"`
			LastBuildDate string `xml:"lastBuildDate"`
			Items         []struct {
				Title       string `xml:"title"`
				Description string `xml:"description"`
				GUID        string `xml:"guid"`
				PubDate     string `xml:"pubDate"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))

	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, "Example Status", doc.Channel.Title)
	assert.Equal(t, "Fri, 01 Mar 2024 11:00:00 +0000", doc.Channel.LastBuildDate)
	require.Len(t, doc.Channel.Items, 1)
	assert.Equal(t, "Fri, 01 Mar 2024 10:30:00 +0000", doc.Channel.Items[0].PubDate)
	assert.Contains(t, doc.Channel.Items[0].Description, "Status: Unavailable")
	assert.True(t, strings.HasPrefix(doc.Channel.Items[0].GUID, "urn:uuid:"))
}

func TestRSS_EmptyFallsBackToNow(t *testing.T) {
	r := newTestRenderer(t)

	data, err := r.RSS(testSnapshot())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<lastBuildDate>Sat, 02 Mar 2024 12:00:00 +0000</lastBuildDate>")
}

func TestEntryText_NoAffectedNoBody(t *testing.T) {
	inc := domain.Incident{Status: "degraded", Affected: []string{"ghost"}}

	assert.Equal(t, "Status: degraded", entryText(&inc, testServices()))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
