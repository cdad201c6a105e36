package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/bissquit/statuspage/internal/app"
	"github.com/bissquit/statuspage/internal/config"
)

// generateFlags holds flags shared by run and serve.
type generateFlags struct {
	configPath   string
	output       string
	templateDir  string
	incidentDays int
}

func (f *generateFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Configuration file (YAML or TOML) describing the page, the monitoring backend and services",
			Required:    true,
			Sources:     cli.EnvVars("STATUSPAGE_CONFIG"),
			Destination: &f.configPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Output directory for index.html, status.json, feed.atom and feed.rss",
			Value:       ".",
			Sources:     cli.EnvVars("STATUSPAGE_OUTPUT"),
			Destination: &f.output,
		},
		&cli.StringFlag{
			Name:        "template",
			Aliases:     []string{"t"},
			Usage:       "Directory with custom HTML templates",
			Sources:     cli.EnvVars("STATUSPAGE_TEMPLATE"),
			Destination: &f.templateDir,
		},
		&cli.IntFlag{
			Name:        "incident-days",
			Aliases:     []string{"i"},
			Usage:       "Number of days of resolved incidents to show",
			Value:       7,
			Destination: &f.incidentDays,
		},
	}
}

// loadConfig reads the config file and applies command line overrides.
func (f *generateFlags) loadConfig(c *cli.Command, g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	if g.timezone != "" {
		cfg.Timezone = g.timezone
	}
	if c.IsSet("incident-days") {
		cfg.IncidentDays = f.incidentDays
	}
	cfg.Log = g.logConfig(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(cfg *config.Config, g *globalFlags, f *generateFlags) (*app.App, error) {
	return app.New(cfg, app.Options{
		IncidentDir: g.directory,
		OutputDir:   f.output,
		TemplateDir: f.templateDir,
	})
}

func cmdRun(g *globalFlags) *cli.Command {
	var f generateFlags

	return &cli.Command{
		Name:  "run",
		Usage: "Generate the status page",
		Flags: f.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := f.loadConfig(c, g)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, g, &f)
			if err != nil {
				return err
			}

			_, err = a.Generate(ctx)
			return err
		},
	}
}
