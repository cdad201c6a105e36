package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WriteIncident writes an incident file into dir and pins its modification time.
func WriteIncident(t *testing.T, dir, name, text string, modTime time.Time) string {
	t.Helper()

	path := filepath.Join(dir, name+".md")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))

	return path
}

// WriteConfig writes a YAML configuration file pointing at apiBase and returns its path.
// Two services are configured: api (alert 1) and web (alert 2).
func WriteConfig(t *testing.T, apiBase string) string {
	t.Helper()

	content := `page:
  title: Example Status
  url: https://status.example.com/
  description: Current status of Example services
  author: Example Ops
grafana:
  api_base: ` + apiBase + `
  api_key: ` + APIKey + `
  timeout: 2s
timezone: UTC
incident_days: 7
log:
  level: error
services:
  - id: api
    title: Public API
    link: https://api.example.com
    description: REST API
    alert_id: "1"
  - id: web
    title: Website
    link: https://www.example.com
    description: Marketing site
    alert_id: "2"
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
