package incident

import (
	"strings"

	"github.com/bissquit/statuspage/internal/domain"
)

// DateLayout is the minute-precision timestamp written to Date: lines.
const DateLayout = "2006-01-02T15:04-07:00"

// Format serializes an incident into the file dialect read by Parse.
func Format(inc *domain.Incident) []byte {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(inc.Title))
	b.WriteString("\n\n")

	b.WriteString(labelDate + " ")
	b.WriteString(inc.Date.Format(DateLayout))
	b.WriteString("\n")

	status := inc.Status
	if status == "" {
		status = domain.StatusUp
	}
	b.WriteString(labelStatus + " ")
	b.WriteString(string(status))
	b.WriteString("\n")

	if len(inc.Affected) > 0 {
		b.WriteString(labelAffected + "\n")
		for _, id := range inc.Affected {
			b.WriteString("* ")
			b.WriteString(id)
			b.WriteString("\n")
		}
	}

	if inc.Content != "" {
		b.WriteString("\n")
		b.WriteString(inc.Content)
		if !strings.HasSuffix(inc.Content, "\n") {
			b.WriteString("\n")
		}
	}

	return []byte(b.String())
}
