package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func cmdServe(g *globalFlags) *cli.Command {
	var (
		f             generateFlags
		listen        string
		metricsListen string
		interval      time.Duration
	)

	flags := f.flags()
	flags = append(flags,
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "Listen address of the preview server",
			Sources:     cli.EnvVars("STATUSPAGE_SERVER_LISTEN"),
			Destination: &listen,
		},
		&cli.StringFlag{
			Name:        "metrics-listen",
			Usage:       "Listen address of the metrics server",
			Sources:     cli.EnvVars("STATUSPAGE_SERVER_METRICS_LISTEN"),
			Destination: &metricsListen,
		},
		&cli.DurationFlag{
			Name:        "interval",
			Usage:       "Regeneration interval",
			Sources:     cli.EnvVars("STATUSPAGE_SERVER_INTERVAL"),
			Destination: &interval,
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Generate the status page periodically and serve it over HTTP",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := f.loadConfig(c, g)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if c.IsSet("metrics-listen") {
				cfg.Server.MetricsListen = metricsListen
			}
			if interval > 0 {
				cfg.Server.Interval = interval
			}

			a, err := newApp(cfg, g, &f)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.Serve(ctx)
		},
	}
}
