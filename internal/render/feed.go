package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bissquit/statuspage/internal/domain"
)

const (
	atomNamespace = "http://www.w3.org/2005/Atom"
	feedGenerator = "statuspage"
)

type atomFeed struct {
	XMLName  xml.Name    `xml:"feed"`
	Xmlns    string      `xml:"xmlns,attr"`
	ID       string      `xml:"id"`
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle,omitempty"`
	Updated  string      `xml:"updated"`
	Links    []atomLink  `xml:"link"`
	Author   *atomPerson `xml:"author,omitempty"`
	Entries  []atomEntry `xml:"entry"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomText struct {
	Type string `xml:"type,attr"`
	Body string `xml:",chardata"`
}

type atomEntry struct {
	ID        string   `xml:"id"`
	Title     string   `xml:"title"`
	Updated   string   `xml:"updated"`
	Published string   `xml:"published"`
	Link      atomLink `xml:"link"`
	Content   atomText `xml:"content"`
}

type rssDocument struct {
	XMLName   xml.Name   `xml:"rss"`
	Version   string     `xml:"version,attr"`
	XmlnsAtom string     `xml:"xmlns:atom,attr"`
	Channel   rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	AtomLink      atomLink  `xml:"atom:link"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Generator     string    `xml:"generator"`
	Items         []rssItem `xml:"item"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
}

// Atom renders the Atom feed, one entry per incident in the given order.
func (r *Renderer) Atom(s Snapshot) ([]byte, error) {
	feed := atomFeed{
		Xmlns:    atomNamespace,
		ID:       r.page.URL,
		Title:    r.page.Title,
		Subtitle: r.page.Description,
		Updated:  r.isoTime(r.feedUpdated(s)),
		Links: []atomLink{
			{Href: r.page.URL, Rel: "alternate", Type: "text/html"},
			{Href: r.pageLink(AtomFile), Rel: "self", Type: "application/atom+xml"},
		},
		Entries: make([]atomEntry, 0, len(s.Incidents)),
	}
	if r.page.Author != "" {
		feed.Author = &atomPerson{Name: r.page.Author}
	}

	for i := range s.Incidents {
		inc := &s.Incidents[i]
		feed.Entries = append(feed.Entries, atomEntry{
			ID:        r.entryID(inc.Name),
			Title:     inc.Title,
			Updated:   r.isoTime(updatedOf(inc)),
			Published: r.isoTime(inc.Date),
			Link:      atomLink{Href: r.entryLink(inc.Name), Rel: "alternate", Type: "text/html"},
			Content:   atomText{Type: "text", Body: entryText(inc, s.Services)},
		})
	}

	return marshalXML(feed)
}

// RSS renders the RSS 2.0 feed, one item per incident in the given order.
func (r *Renderer) RSS(s Snapshot) ([]byte, error) {
	description := r.page.Description
	if description == "" {
		description = r.page.Title
	}

	doc := rssDocument{
		Version:   "2.0",
		XmlnsAtom: atomNamespace,
		Channel: rssChannel{
			Title:         r.page.Title,
			Link:          r.page.URL,
			Description:   description,
			AtomLink:      atomLink{Href: r.pageLink(RSSFile), Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: r.feedUpdated(s).In(r.loc).Format(time.RFC1123Z),
			Generator:     feedGenerator,
			Items:         make([]rssItem, 0, len(s.Incidents)),
		},
	}

	for i := range s.Incidents {
		inc := &s.Incidents[i]
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       inc.Title,
			Link:        r.entryLink(inc.Name),
			Description: entryText(inc, s.Services),
			GUID:        rssGUID{IsPermaLink: false, Value: r.entryID(inc.Name)},
			PubDate:     inc.Date.In(r.loc).Format(time.RFC1123Z),
		})
	}

	return marshalXML(doc)
}

// feedUpdated is the update time of the most recent incident, or now for an empty feed.
func (r *Renderer) feedUpdated(s Snapshot) time.Time {
	if len(s.Incidents) == 0 {
		return s.Now
	}
	return updatedOf(&s.Incidents[0])
}

func (r *Renderer) entryLink(name string) string {
	return strings.TrimRight(r.page.URL, "#") + "#" + name
}

func (r *Renderer) pageLink(file string) string {
	return strings.TrimRight(r.page.URL, "/") + "/" + file
}

// entryID is stable for an incident name under a given page URL.
func (r *Renderer) entryID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.entryLink(name))).URN()
}

// entryText is the plain-text summary shared by both feeds.
func entryText(inc *domain.Incident, services *domain.ServiceMap) string {
	parts := []string{"Status: " + inc.Status.Pretty()}

	var affected []string
	for _, id := range inc.Affected {
		if svc, ok := services.Get(id); ok {
			affected = append(affected, "* "+svc.Title)
		}
	}
	if len(affected) > 0 {
		parts = append(parts, "Affected:\n"+strings.Join(affected, "\n"))
	}

	if content := strings.TrimSpace(inc.Content); content != "" {
		parts = append(parts, content)
	}

	return strings.Join(parts, "\n\n")
}

func marshalXML(doc any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteString("\n")

	return buf.Bytes(), nil
}
