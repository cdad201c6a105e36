package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/bissquit/statuspage/internal/config"
	"github.com/bissquit/statuspage/internal/domain"
	"github.com/bissquit/statuspage/internal/incident"
)

const defaultEditor = "vi"

var (
	errNameRequired      = errors.New("incident name is required")
	errConflictingAffect = errors.New("--affected and --clear-affected are mutually exclusive")
)

// runEditor opens path in the user's editor and waits for it to exit.
var runEditor = func(ctx context.Context, path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run editor %s: %w", editor, err)
	}
	return nil
}

// incidentFlags holds flags shared by new-incident and edit-incident.
type incidentFlags struct {
	date     string
	title    string
	status   string
	affected []string
}

func (f *incidentFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Date of the incident (ISO 8601)",
			Destination: &f.date,
		},
		&cli.StringFlag{
			Name:        "title",
			Usage:       "Title of the incident",
			Destination: &f.title,
		},
		&cli.StringFlag{
			Name:        "status",
			Usage:       "Incident status (" + strings.Join(statusNames(), ", ") + ")",
			Destination: &f.status,
		},
		&cli.StringSliceFlag{
			Name:        "affected",
			Usage:       "Affected service id (can be specified multiple times)",
			Destination: &f.affected,
		},
	}
}

func statusNames() []string {
	statuses := domain.Statuses()
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	return names
}

func (f *incidentFlags) validate() error {
	if f.status == "" {
		return nil
	}
	if err := validator.New().Var(f.status, "oneof="+strings.Join(statusNames(), " ")); err != nil {
		return fmt.Errorf("invalid status %q: %w", f.status, err)
	}
	return nil
}

func (f *incidentFlags) parseDate(loc *time.Location) (*time.Time, error) {
	if f.date == "" {
		return nil, nil
	}
	t, err := incident.ParseTime(f.date, loc)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", f.date, err)
	}
	return &t, nil
}

func newStore(g *globalFlags) (*incident.Store, error) {
	loc, err := config.LoadLocation(g.timezone)
	if err != nil {
		return nil, err
	}
	return incident.NewStore(g.directory, loc), nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func readContent(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	return string(data), nil
}

func cmdNewIncident(g *globalFlags, stdin io.Reader, stdout io.Writer) *cli.Command {
	var f incidentFlags

	return &cli.Command{
		Name:      "new-incident",
		Usage:     "Create a new incident (Markdown content can be piped to stdin)",
		ArgsUsage: "[name]",
		Flags:     f.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := f.validate(); err != nil {
				return err
			}

			store, err := newStore(g)
			if err != nil {
				return err
			}

			date, err := f.parseDate(store.Location())
			if err != nil {
				return err
			}

			input := incident.CreateInput{
				Name:     c.Args().First(),
				Date:     date,
				Title:    f.title,
				Status:   domain.Status(f.status),
				Affected: f.affected,
			}

			interactive := isTerminal(stdin)
			if !interactive {
				if input.Content, err = readContent(stdin); err != nil {
					return err
				}
			}

			name, err := store.Create(input)
			if err != nil {
				return fmt.Errorf("create incident: %w", err)
			}

			if interactive {
				if err := runEditor(ctx, store.Filename(name)); err != nil {
					return err
				}
				if name, err = store.Rename(name); err != nil {
					return fmt.Errorf("rename incident: %w", err)
				}
			}

			_, err = fmt.Fprintln(stdout, name)
			return err
		},
	}
}

func cmdEditIncident(g *globalFlags, stdin io.Reader, stdout io.Writer) *cli.Command {
	var (
		f             incidentFlags
		clearAffected bool
	)

	flags := f.flags()
	flags = append(flags, &cli.BoolFlag{
		Name:        "clear-affected",
		Usage:       "Remove every affected service",
		Destination: &clearAffected,
	})

	return &cli.Command{
		Name:      "edit-incident",
		Usage:     "Modify an existing incident (Markdown content can be piped to stdin)",
		ArgsUsage: "name",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			name := c.Args().First()
			if name == "" {
				return errNameRequired
			}
			if err := f.validate(); err != nil {
				return err
			}
			if clearAffected && len(f.affected) > 0 {
				return errConflictingAffect
			}

			store, err := newStore(g)
			if err != nil {
				return err
			}

			var patch domain.IncidentPatch
			if patch.Date, err = f.parseDate(store.Location()); err != nil {
				return err
			}
			if c.IsSet("title") {
				patch.Title = &f.title
			}
			if c.IsSet("status") {
				status := domain.Status(f.status)
				patch.Status = &status
			}
			switch {
			case clearAffected:
				patch.Affected = &[]string{}
			case len(f.affected) > 0:
				patch.Affected = &f.affected
			}

			interactive := isTerminal(stdin)
			if !interactive {
				if patch.Content, err = readContent(stdin); err != nil {
					return err
				}
			}

			if name, err = store.Modify(name, patch); err != nil {
				return fmt.Errorf("modify incident: %w", err)
			}

			if interactive {
				if err := runEditor(ctx, store.Filename(name)); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintln(stdout, name)
			return err
		},
	}
}
