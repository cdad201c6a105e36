// Package grafana checks service health against Grafana alert states.
package grafana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bissquit/statuspage/internal/domain"
	"github.com/bissquit/statuspage/internal/pkg/ctxlog"
	"github.com/bissquit/statuspage/internal/pkg/metrics"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 8
	maxResponseSize    = 1 << 20
)

// stateStatuses maps Grafana alert states to service statuses.
var stateStatuses = map[string]domain.Status{
	"ok":       domain.StatusUp,
	"pending":  domain.StatusUp,
	"alerting": domain.StatusDown,
	"paused":   domain.StatusMaintenance,
	"no_data":  domain.StatusUnknown,
}

var (
	errUnexpectedStatus = errors.New("unexpected response status")
	errMissingState     = errors.New("response has no State")
	errUnknownState     = errors.New("unknown alert state")
)

// Config holds checker configuration.
type Config struct {
	APIBase     string
	APIKey      string
	Timeout     time.Duration
	Concurrency int
	// RateLimit is requests per second across all checks; 0 means unlimited.
	RateLimit float64
}

// Checker queries the alert state of each service.
type Checker struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewChecker creates a checker. Zero timeout and concurrency take defaults.
func NewChecker(config Config) *Checker {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaultConcurrency
	}
	config.APIBase = strings.TrimRight(config.APIBase, "/")

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	return &Checker{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type alertResponse struct {
	State *string `json:"State"`
}

// Check returns a status for every service. A service whose check fails in any way
// is reported as unknown; failures are logged and never returned.
func (c *Checker) Check(ctx context.Context, services []domain.Service) map[string]domain.Status {
	statuses := make(map[string]domain.Status, len(services))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(c.config.Concurrency)

	for _, svc := range services {
		g.Go(func() error {
			status := c.checkService(ctx, svc)

			mu.Lock()
			statuses[svc.ID] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	names := make([]string, 0, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		names = append(names, string(s))
	}
	for id, status := range statuses {
		metrics.RecordServiceStatus(id, string(status), names)
	}

	return statuses
}

func (c *Checker) checkService(ctx context.Context, svc domain.Service) domain.Status {
	logger := ctxlog.FromContext(ctx).With("service", svc.ID, "alert_id", svc.AlertID)
	start := time.Now()

	status, err := c.fetchStatus(ctx, svc.AlertID)
	metrics.CheckDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CheckTotal.WithLabelValues(metrics.ResultError).Inc()
		logger.Warn("status check failed", "error", err)
		return domain.StatusUnknown
	}

	metrics.CheckTotal.WithLabelValues(metrics.ResultOK).Inc()
	logger.Debug("status checked", "status", status)
	return status
}

func (c *Checker) fetchStatus(ctx context.Context, alertID string) (domain.Status, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("wait for rate limiter: %w", err)
	}

	endpoint := c.config.APIBase + "/alerts/" + url.PathEscape(alertID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", errUnexpectedStatus, resp.StatusCode)
	}

	var body alertResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if body.State == nil {
		return "", errMissingState
	}

	status, ok := stateStatuses[*body.State]
	if !ok {
		return "", fmt.Errorf("%w: %q", errUnknownState, *body.State)
	}

	return status, nil
}
