// Package cli implements the statuspage command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"

	"github.com/bissquit/statuspage/internal/app"
	"github.com/bissquit/statuspage/internal/config"
	"github.com/bissquit/statuspage/internal/version"
)

const dirPerm = 0o755

// globalFlags holds flags shared by every subcommand.
type globalFlags struct {
	directory string
	timezone  string
	logLevel  string
	logFormat string
}

// logConfig returns the log settings given on the command line, falling back to base.
func (g *globalFlags) logConfig(base config.LogConfig) config.LogConfig {
	if g.logLevel != "" {
		base.Level = g.logLevel
	}
	if g.logFormat != "" {
		base.Format = g.logFormat
	}
	return base
}

func (g *globalFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "directory",
			Aliases:     []string{"d"},
			Usage:       "Directory containing incident files",
			Value:       ".",
			Sources:     cli.EnvVars("STATUSPAGE_DIRECTORY"),
			Destination: &g.directory,
		},
		&cli.StringFlag{
			Name:        "timezone",
			Aliases:     []string{"z"},
			Usage:       "Timezone for dates and output (IANA name, default local time)",
			Sources:     cli.EnvVars("STATUSPAGE_TIMEZONE"),
			Destination: &g.timezone,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Sources:     cli.EnvVars("STATUSPAGE_LOG_LEVEL"),
			Destination: &g.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (text, json)",
			Sources:     cli.EnvVars("STATUSPAGE_LOG_FORMAT"),
			Destination: &g.logFormat,
		},
	}
}

func (g *globalFlags) validate() error {
	validate := validator.New()
	if err := validate.Var(g.logLevel, "omitempty,oneof=debug info warn error"); err != nil {
		return fmt.Errorf("invalid log level %q: %w", g.logLevel, err)
	}
	if err := validate.Var(g.logFormat, "omitempty,oneof=text json"); err != nil {
		return fmt.Errorf("invalid log format %q: %w", g.logFormat, err)
	}
	return nil
}

// Run parses args and executes the selected command.
func Run(ctx context.Context, args []string) error {
	if err := newCommand(os.Stdin, os.Stdout).Run(ctx, args); err != nil {
		slog.Default().Error("failed to run", "error", err)
		return err
	}
	return nil
}

func newCommand(stdin io.Reader, stdout io.Writer) *cli.Command {
	var g globalFlags

	return &cli.Command{
		Name:      "statuspage",
		Usage:     "Static status page generator",
		Version:   version.String(),
		Writer:    stdout,
		Reader:    stdin,
		Flags:     g.flags(),
		ErrWriter: os.Stderr,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := g.validate(); err != nil {
				return ctx, err
			}

			slog.SetDefault(app.NewLogger(g.logConfig(config.Default().Log), os.Stderr))

			if err := os.MkdirAll(g.directory, dirPerm); err != nil {
				return ctx, fmt.Errorf("create incident directory: %w", err)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdRun(&g),
			cmdServe(&g),
			cmdNewIncident(&g, stdin, stdout),
			cmdEditIncident(&g, stdin, stdout),
		},
	}
}
