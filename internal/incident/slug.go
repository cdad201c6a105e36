package incident

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/statuspage/internal/domain"
)

const nameDateLayout = "2006-01-02"

var (
	slugSeparators = strings.NewReplacer(" ", "-", ".", "-")
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
	slugHyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Slugify converts a title into a file-name-safe slug matching ^[a-z0-9-]*$.
func Slugify(title string) string {
	slug := slugSeparators.Replace(domain.Lower(title))
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugHyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// BaseName returns the canonical name for an incident before disambiguation.
func BaseName(date time.Time, title string) string {
	name := date.Format(nameDateLayout)
	if slug := Slugify(title); slug != "" {
		name += "-" + slug
	}
	return name
}

// candidateName returns the n-th candidate for base: base, base-1, base-2, ...
func candidateName(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}

// validateName rejects names that would escape the incident directory or be hidden.
func validateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return ErrInvalidName
	}
	return nil
}
