// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// APIKey is the bearer token accepted by AlertServer.
const APIKey = "test-api-key"

// AlertServer is a fake Grafana alert API.
type AlertServer struct {
	*httptest.Server

	mu     sync.Mutex
	states map[string]string
	calls  int
}

// NewAlertServer starts a fake alert API serving GET /api/alerts/{id}.
// Alerts missing from states answer 404; requests without the bearer token answer 401.
func NewAlertServer(t *testing.T, states map[string]string) *AlertServer {
	t.Helper()

	s := &AlertServer{states: make(map[string]string, len(states))}
	for id, state := range states {
		s.states[id] = state
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)

	return s
}

// APIBase returns the api_base value pointing at the server.
func (s *AlertServer) APIBase() string {
	return s.URL + "/api"
}

// SetState changes the state reported for an alert.
func (s *AlertServer) SetState(alertID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[alertID] = state
}

// Calls returns the number of alert requests served.
func (s *AlertServer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *AlertServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+APIKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id, ok := strings.CutPrefix(r.URL.Path, "/api/alerts/")
	if !ok || r.Method != http.MethodGet {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	s.mu.Lock()
	s.calls++
	state, found := s.states[id]
	s.mu.Unlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"Id": id, "State": state})
}
