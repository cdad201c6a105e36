package incident

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bissquit/statuspage/internal/domain"
	"github.com/bissquit/statuspage/internal/pkg/ctxlog"
	"github.com/bissquit/statuspage/internal/pkg/fsutil"
)

const (
	fileExt  = ".md"
	filePerm = 0o644
)

// Store reads and writes incident files in a single directory.
type Store struct {
	dir string
	loc *time.Location
	now func() time.Time
}

// NewStore creates a store over dir. Dates are presented in loc; nil means local time.
func NewStore(dir string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		dir: dir,
		loc: loc,
		now: time.Now,
	}
}

// Dir returns the incident directory.
func (s *Store) Dir() string {
	return s.dir
}

// Location returns the timezone dates are presented in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Filename returns the path of the file holding the named incident.
func (s *Store) Filename(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// CreateInput holds data for creating an incident. Zero values take defaults:
// current time, healthy status, empty affected list and empty content.
type CreateInput struct {
	// Name is used as is when set; otherwise a name is derived from date and title.
	Name     string
	Date     *time.Time
	Title    string
	Status   domain.Status
	Affected []string
	Content  string
}

// List returns every incident in the directory, newest first.
// A file that cannot be read or parsed aborts the listing.
func (s *Store) List(ctx context.Context) ([]domain.Incident, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read incident directory: %w", err)
	}

	incidents := make([]domain.Incident, 0, len(entries))
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fileName, ".") || !strings.HasSuffix(fileName, fileExt) {
			continue
		}

		inc, err := s.Get(strings.TrimSuffix(fileName, fileExt))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", fileName, err)
		}
		incidents = append(incidents, *inc)
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].Date.Equal(incidents[j].Date) {
			return incidents[i].Name > incidents[j].Name
		}
		return incidents[i].Date.After(incidents[j].Date)
	})

	ctxlog.FromContext(ctx).Debug("incidents loaded", "dir", s.dir, "count", len(incidents))

	return incidents, nil
}

// Get reads the named incident.
func (s *Store) Get(name string) (*domain.Incident, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	path := s.Filename(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read incident file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat incident file: %w", err)
	}

	return Parse(name, string(data), info.ModTime(), s.loc)
}

// Create writes a new incident file and returns its name.
func (s *Store) Create(input CreateInput) (string, error) {
	date := s.now().In(s.loc)
	if input.Date != nil {
		date = input.Date.In(s.loc)
	}

	status := input.Status
	if status == "" {
		status = domain.StatusUp
	}

	name := input.Name
	if name != "" {
		if err := validateName(name); err != nil {
			return "", err
		}
		if err := fsutil.CreateExclusive(s.Filename(name), filePerm); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return "", fmt.Errorf("%w: %s", ErrExists, name)
			}
			return "", fmt.Errorf("reserve incident file: %w", err)
		}
	} else {
		reserved, err := s.reserveName(BaseName(date, input.Title))
		if err != nil {
			return "", err
		}
		name = reserved
	}

	inc := &domain.Incident{
		Name:     name,
		Title:    input.Title,
		Date:     date,
		Status:   status,
		Affected: domain.NormalizeAffected(input.Affected),
		Content:  input.Content,
	}

	if err := s.write(inc); err != nil {
		_ = os.Remove(s.Filename(name))
		return "", err
	}

	return name, nil
}

// Modify overlays patch onto the named incident and rewrites it under the same name.
func (s *Store) Modify(name string, patch domain.IncidentPatch) (string, error) {
	if err := patch.Validate(); err != nil {
		return "", err
	}

	inc, err := s.Get(name)
	if err != nil {
		return "", err
	}

	if patch.Date != nil {
		date := patch.Date.In(s.loc)
		patch.Date = &date
	}
	patch.Apply(inc)

	if err := s.write(inc); err != nil {
		return "", err
	}

	return inc.Name, nil
}

// Rename moves the named incident to its canonical name derived from date and title.
// It returns the current name when the incident is already canonical.
func (s *Store) Rename(name string) (string, error) {
	inc, err := s.Get(name)
	if err != nil {
		return "", err
	}

	base := BaseName(inc.Date, inc.Title)
	for n := 0; ; n++ {
		candidate := candidateName(base, n)
		if candidate == name {
			return name, nil
		}

		err := fsutil.RenameNoReplace(s.Filename(name), s.Filename(candidate))
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("rename incident file: %w", err)
		}
	}
}

// reserveName claims the first free candidate for base by creating an empty file.
// The exclusive create makes the existence check and the claim a single step.
func (s *Store) reserveName(base string) (string, error) {
	for n := 0; ; n++ {
		candidate := candidateName(base, n)

		err := fsutil.CreateExclusive(s.Filename(candidate), filePerm)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("reserve incident file: %w", err)
		}
	}
}

func (s *Store) write(inc *domain.Incident) error {
	if err := fsutil.WriteFileAtomic(s.Filename(inc.Name), Format(inc), filePerm); err != nil {
		return fmt.Errorf("write incident file: %w", err)
	}
	return nil
}
