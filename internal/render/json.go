package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonDocument struct {
	LastUpdated string                 `json:"last_updated"`
	Services    map[string]jsonService `json:"services"`
	Incidents   []jsonIncident         `json:"incidents"`
}

// jsonService deliberately has no alert id field.
type jsonService struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type jsonIncident struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Updated  string   `json:"updated"`
	Status   string   `json:"status"`
	Affected []string `json:"affected"`
	Content  string   `json:"content"`
}

// JSON renders the machine-readable snapshot: two-space indentation and a trailing newline.
func (r *Renderer) JSON(s Snapshot) ([]byte, error) {
	doc := jsonDocument{
		LastUpdated: r.isoTime(s.Now),
		Services:    make(map[string]jsonService, s.Services.Len()),
		Incidents:   make([]jsonIncident, 0, len(s.Incidents)),
	}

	for _, svc := range s.Services.List() {
		doc.Services[svc.ID] = jsonService{
			Title:       svc.Title,
			Link:        svc.Link,
			Description: svc.Description,
			Status:      string(s.statusOf(svc.ID)),
		}
	}

	for i := range s.Incidents {
		inc := &s.Incidents[i]
		affected := inc.Affected
		if affected == nil {
			affected = []string{}
		}
		doc.Incidents = append(doc.Incidents, jsonIncident{
			Name:     inc.Name,
			Title:    inc.Title,
			Date:     r.isoTime(inc.Date),
			Updated:  r.isoTime(updatedOf(inc)),
			Status:   string(inc.Status),
			Affected: affected,
			Content:  inc.Content,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}

	return buf.Bytes(), nil
}
