// Package config loads application configuration from a YAML or TOML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bissquit/statuspage/internal/domain"
)

// Environment variable prefixes.
const (
	EnvPrefix        = "STATUSPAGE_"
	GrafanaEnvPrefix = "GRAFANA_"
)

// Config errors.
var (
	ErrNoServices       = errors.New("no services configured")
	ErrDuplicateService = errors.New("duplicate service id")
)

// topLevelKeys are configuration keys outside any section.
var topLevelKeys = []string{"timezone", "incident_days"}

// Config holds application configuration.
type Config struct {
	Page         PageConfig      `koanf:"page"`
	Grafana      GrafanaConfig   `koanf:"grafana"`
	Timezone     string          `koanf:"timezone"`
	IncidentDays int             `koanf:"incident_days" validate:"gte=0"`
	Log          LogConfig       `koanf:"log"`
	Server       ServerConfig    `koanf:"server"`
	Services     []ServiceConfig `koanf:"services" validate:"dive"`
}

// PageConfig describes the generated page and feeds.
type PageConfig struct {
	Title       string `koanf:"title" validate:"required"`
	URL         string `koanf:"url" validate:"required,url"`
	Description string `koanf:"description"`
	Author      string `koanf:"author"`
}

// GrafanaConfig holds monitoring backend settings.
type GrafanaConfig struct {
	APIBase     string        `koanf:"api_base" validate:"required,url"`
	APIKey      string        `koanf:"api_key" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Concurrency int           `koanf:"concurrency" validate:"gte=1"`
	// RateLimit is the maximum number of requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// ServerConfig holds settings of the preview server.
type ServerConfig struct {
	Listen          string        `koanf:"listen" validate:"required"`
	MetricsListen   string        `koanf:"metrics_listen"`
	Interval        time.Duration `koanf:"interval" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// ServiceConfig describes a monitored service.
type ServiceConfig struct {
	ID          string `koanf:"id" validate:"required"`
	Title       string `koanf:"title" validate:"required"`
	Link        string `koanf:"link" validate:"omitempty,url"`
	Description string `koanf:"description"`
	AlertID     string `koanf:"alert_id" validate:"required"`
}

// Default returns the configuration used for keys absent from every source.
func Default() Config {
	return Config{
		Grafana: GrafanaConfig{
			Timeout:     10 * time.Second,
			Concurrency: 8,
		},
		IncidentDays: 7,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen:          ":8080",
			MetricsListen:   ":9090",
			Interval:        time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads configuration from path and the environment, then validates it.
// A .toml extension selects the TOML parser; anything else is read as YAML.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parser = TOMLParser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config file: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := k.Load(env.Provider(GrafanaEnvPrefix, ".", grafanaEnvKey), nil); err != nil {
		return nil, fmt.Errorf("load grafana env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps STATUSPAGE_LOG_LEVEL to log.level and STATUSPAGE_INCIDENT_DAYS to incident_days.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if slices.Contains(topLevelKeys, key) {
		return key
	}
	section, rest, found := strings.Cut(key, "_")
	if !found || rest == "" {
		return ""
	}
	return section + "." + rest
}

// grafanaEnvKey maps GRAFANA_API_BASE to grafana.api_base.
func grafanaEnvKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, GrafanaEnvPrefix))
	if key == "" {
		return ""
	}
	return "grafana." + key
}

func (c *Config) normalize() {
	for i := range c.Services {
		c.Services[i].ID = domain.NormalizeServiceID(c.Services[i].ID)
	}
}

// Validate checks field constraints, service uniqueness and the timezone.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if len(c.Services) == 0 {
		return ErrNoServices
	}

	seen := make(map[string]struct{}, len(c.Services))
	for _, svc := range c.Services {
		if _, ok := seen[svc.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateService, svc.ID)
		}
		seen[svc.ID] = struct{}{}
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// Location returns the display timezone. An empty timezone means local time.
func (c *Config) Location() (*time.Location, error) {
	return LoadLocation(c.Timezone)
}

// DomainServices converts the configured services into domain services, keeping order.
func (c *Config) DomainServices() []domain.Service {
	services := make([]domain.Service, 0, len(c.Services))
	for _, svc := range c.Services {
		services = append(services, domain.Service{
			ID:          svc.ID,
			Title:       svc.Title,
			Link:        svc.Link,
			Description: svc.Description,
			AlertID:     svc.AlertID,
		})
	}
	return services
}

// LoadLocation resolves an IANA timezone name. An empty name means local time.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
