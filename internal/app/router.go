package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bissquit/statuspage/internal/domain"
	"github.com/bissquit/statuspage/internal/incident"
	"github.com/bissquit/statuspage/internal/pkg/httputil"
	"github.com/bissquit/statuspage/internal/version"
)

var incidentErrors = []httputil.ErrorStatus{
	{Err: incident.ErrNotFound, Status: http.StatusNotFound, Message: "incident not found"},
	{Err: incident.ErrInvalidName, Status: http.StatusBadRequest, Message: "invalid incident name"},
}

// Router returns the preview server handler.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/incidents", a.listIncidentsHandler)
		r.Get("/incidents/{name}", a.getIncidentHandler)
	})

	r.Handle("/*", http.FileServer(http.Dir(a.outputDir)))

	return r
}

// MetricsRouter returns the handler exposing Prometheus metrics.
func MetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	last := a.LastResult()
	if last == nil {
		httputil.Text(w, http.StatusServiceUnavailable, "Not generated yet")
		return
	}
	httputil.JSON(w, http.StatusOK, last)
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Info())
}

type incidentResponse struct {
	Name     string    `json:"name"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Updated  time.Time `json:"updated"`
	Status   string    `json:"status"`
	Affected []string  `json:"affected"`
	Content  string    `json:"content"`
}

func toIncidentResponse(inc *domain.Incident) incidentResponse {
	affected := inc.Affected
	if affected == nil {
		affected = []string{}
	}
	return incidentResponse{
		Name:     inc.Name,
		Title:    inc.Title,
		Date:     inc.Date,
		Updated:  inc.Updated,
		Status:   string(inc.Status),
		Affected: affected,
		Content:  inc.Content,
	}
}

func (a *App) listIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	incidents, err := a.store.List(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrors)
		return
	}

	out := make([]incidentResponse, 0, len(incidents))
	for i := range incidents {
		out = append(out, toIncidentResponse(&incidents[i]))
	}
	httputil.JSON(w, http.StatusOK, out)
}

func (a *App) getIncidentHandler(w http.ResponseWriter, r *http.Request) {
	inc, err := a.store.Get(chi.URLParam(r, "name"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, incidentErrors)
		return
	}
	httputil.JSON(w, http.StatusOK, toIncidentResponse(inc))
}
