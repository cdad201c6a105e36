package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestIncidentPatch_Apply_RetainsUnsetFields(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	inc := Incident{
		Name:     "2024-03-01-db",
		Title:    "DB",
		Date:     date,
		Status:   StatusDown,
		Affected: []string{"db"},
		Content:  "Investigating.\n",
	}

	IncidentPatch{Status: ptr(StatusUp), Content: "Fixed.\n"}.Apply(&inc)

	assert.Equal(t, "2024-03-01-db", inc.Name)
	assert.Equal(t, "DB", inc.Title)
	assert.Equal(t, date, inc.Date)
	assert.Equal(t, StatusUp, inc.Status)
	assert.Equal(t, []string{"db"}, inc.Affected)
	assert.Equal(t, "Investigating.\n\nFixed.\n", inc.Content)
}

func TestIncidentPatch_Apply_ClearsAffected(t *testing.T) {
	inc := Incident{Affected: []string{"db", "api"}}

	IncidentPatch{Affected: ptr([]string{})}.Apply(&inc)

	assert.Empty(t, inc.Affected)
}

func TestIncidentPatch_Apply_NormalizesAffected(t *testing.T) {
	inc := Incident{}

	IncidentPatch{Affected: ptr([]string{" API ", "", "Web"})}.Apply(&inc)

	assert.Equal(t, []string{"api", "web"}, inc.Affected)
}

func TestIncidentPatch_Validate(t *testing.T) {
	require.NoError(t, IncidentPatch{}.Validate())
	require.NoError(t, IncidentPatch{Title: ptr("New"), Status: ptr(StatusDown)}.Validate())

	err := IncidentPatch{Title: ptr("  ")}.Validate()
	assert.ErrorIs(t, err, ErrInvalidPatch)

	err = IncidentPatch{Status: ptr(Status(""))}.Validate()
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestAppendContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		addition string
		expected string
	}{
		{"empty addition", "body\n", "", "body\n"},
		{"empty content", "", "new\n", "new\n"},
		{"blank content", "\n\n", "new\n", "new\n"},
		{"separator", "body\n", "new\n", "body\n\nnew\n"},
		{"trailing blank lines collapsed", "body\n\n\n", "new\n", "body\n\nnew\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AppendContent(tt.content, tt.addition))
		})
	}
}

func TestIncident_Affects(t *testing.T) {
	inc := Incident{Affected: []string{"api"}, Status: Status("outage")}

	assert.True(t, inc.Affects("api"))
	assert.False(t, inc.Affects("web"))
	assert.True(t, inc.IsActive())
}
