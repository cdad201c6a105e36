// Package app wires configuration, status checks, the incident store and the
// renderer into status page generation and the preview server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bissquit/statuspage/internal/config"
	"github.com/bissquit/statuspage/internal/domain"
	"github.com/bissquit/statuspage/internal/grafana"
	"github.com/bissquit/statuspage/internal/incident"
	"github.com/bissquit/statuspage/internal/pkg/ctxlog"
	"github.com/bissquit/statuspage/internal/pkg/fsutil"
	"github.com/bissquit/statuspage/internal/pkg/metrics"
	"github.com/bissquit/statuspage/internal/render"
)

const (
	dirPerm    = 0o755
	outputPerm = 0o644
)

// Generation results.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// StatusChecker reports the current status of each service.
type StatusChecker interface {
	Check(ctx context.Context, services []domain.Service) map[string]domain.Status
}

// Options holds paths and collaborators that do not come from the config file.
type Options struct {
	IncidentDir string
	OutputDir   string
	TemplateDir string
	// Checker replaces the Grafana checker when set.
	Checker StatusChecker
	// LogOutput receives log records; nil means stderr.
	LogOutput io.Writer
}

// Result describes a completed generation.
type Result struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Statuses    map[string]domain.Status `json:"statuses"`
	Incidents   int                      `json:"incidents"`
}

// App represents the application instance.
type App struct {
	config    *config.Config
	logger    *slog.Logger
	loc       *time.Location
	services  *domain.ServiceMap
	store     *incident.Store
	checker   StatusChecker
	renderer  *render.Renderer
	outputDir string
	now       func() time.Time

	mu   sync.RWMutex
	last *Result

	server        *http.Server
	metricsServer *http.Server
}

// New creates a new application instance.
func New(cfg *config.Config, opts Options) (*App, error) {
	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := NewLogger(cfg.Log, logOutput)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Options{
		Page: render.Page{
			Title:       cfg.Page.Title,
			URL:         cfg.Page.URL,
			Description: cfg.Page.Description,
			Author:      cfg.Page.Author,
		},
		Location:    loc,
		TemplateDir: opts.TemplateDir,
	})
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	checker := opts.Checker
	if checker == nil {
		checker = grafana.NewChecker(grafana.Config{
			APIBase:     cfg.Grafana.APIBase,
			APIKey:      cfg.Grafana.APIKey,
			Timeout:     cfg.Grafana.Timeout,
			Concurrency: cfg.Grafana.Concurrency,
			RateLimit:   cfg.Grafana.RateLimit,
		})
	}

	if err := os.MkdirAll(opts.IncidentDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create incident directory: %w", err)
	}

	return &App{
		config:    cfg,
		logger:    logger,
		loc:       loc,
		services:  domain.NewServiceMap(cfg.DomainServices()),
		store:     incident.NewStore(opts.IncidentDir, loc),
		checker:   checker,
		renderer:  renderer,
		outputDir: opts.OutputDir,
		now:       time.Now,
	}, nil
}

// Generate checks every service, loads incidents and writes all output files.
// Files are written only after every format has rendered.
func (a *App) Generate(ctx context.Context) (*Result, error) {
	start := time.Now()
	ctx = ctxlog.WithLogger(ctx, a.logger)

	result, err := a.generate(ctx)

	metrics.GenerateDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerateTotal.WithLabelValues(resultFailure).Inc()
		return nil, err
	}
	metrics.GenerateTotal.WithLabelValues(resultSuccess).Inc()

	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	a.logger.Info("status page generated",
		"output", a.outputDir,
		"services", len(result.Statuses),
		"incidents", result.Incidents,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func (a *App) generate(ctx context.Context) (*Result, error) {
	now := a.now().In(a.loc)

	statuses := a.checker.Check(ctx, a.services.List())

	incidents, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	incidents = FilterIncidents(incidents, now, a.config.IncidentDays)

	out, err := a.renderer.Render(render.Snapshot{
		Now:       now,
		Services:  a.services,
		Statuses:  statuses,
		Incidents: incidents,
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	if err := os.MkdirAll(a.outputDir, dirPerm); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	for _, f := range out.Files() {
		path := filepath.Join(a.outputDir, f.Name)
		if err := fsutil.WriteFileAtomic(path, f.Data, outputPerm); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
		ctxlog.FromContext(ctx).Debug("output written", "path", path, "bytes", len(f.Data))
	}

	metrics.IncidentsRendered.Set(float64(len(incidents)))

	return &Result{
		GeneratedAt: now,
		Statuses:    statuses,
		Incidents:   len(incidents),
	}, nil
}

// LastResult returns the most recent successful generation, or nil before the first one.
func (a *App) LastResult() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Store returns the incident store.
func (a *App) Store() *incident.Store {
	return a.store
}

// FilterIncidents drops healthy incidents dated more than days before now.
// Unhealthy incidents are always kept. With days == 0 every healthy incident is dropped.
func FilterIncidents(incidents []domain.Incident, now time.Time, days int) []domain.Incident {
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	kept := make([]domain.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Status.IsHealthy() && (days == 0 || inc.Date.Before(cutoff)) {
			continue
		}
		kept = append(kept, inc)
	}
	return kept
}

// Serve generates the page, then serves the output directory and regenerates
// it every interval until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	if _, err := a.Generate(ctx); err != nil {
		return fmt.Errorf("initial generation: %w", err)
	}

	a.server = &http.Server{
		Addr:              a.config.Server.Listen,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if a.config.Server.MetricsListen != "" {
		a.metricsServer = &http.Server{
			Addr:              a.config.Server.MetricsListen,
			Handler:           MetricsRouter(),
			ReadTimeout:       5 * time.Second,
			ReadHeaderTimeout: 2 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}

	errCh := make(chan error, 2)
	a.listen(a.server, "preview server", errCh)
	if a.metricsServer != nil {
		a.listen(a.metricsServer, "metrics server", errCh)
	}

	ticker := time.NewTicker(a.config.Server.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.shutdown()
		case err := <-errCh:
			return errors.Join(err, a.shutdown())
		case <-ticker.C:
			if _, err := a.Generate(ctx); err != nil {
				a.logger.Error("regeneration failed", "error", err)
			}
		}
	}
}

func (a *App) listen(srv *http.Server, name string, errCh chan<- error) {
	go func() {
		a.logger.Info("starting "+name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s error: %w", name, err)
		}
	}()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(ctx)
}

// Shutdown gracefully stops the preview and metrics servers.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, srv := range []*http.Server{a.server, a.metricsServer} {
		if srv == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}

// NewLogger builds the application logger from the log settings.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
