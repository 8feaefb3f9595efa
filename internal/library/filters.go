package library

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// FieldFilter matches a metadata field against a regular expression,
// parsed from the CLI form "field:pattern" (e.g. "artist:Muse").
type FieldFilter struct {
	Field   string
	Pattern *regexp.Regexp
}

var filterFields = map[string]bool{
	"title":       true,
	"artist":      true,
	"album":       true,
	"albumartist": true,
	"year":        true,
}

// ParseFilters parses a list of "field:pattern" expressions.
// Patterns are Go regexps, matched case-insensitively.
func ParseFilters(exprs []string) ([]FieldFilter, error) {
	filters := make([]FieldFilter, 0, len(exprs))
	for _, expr := range exprs {
		field, pattern, ok := strings.Cut(expr, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q is not field:pattern", shared.ErrInvalidFilter, expr)
		}

		field = strings.ToLower(strings.TrimSpace(field))
		if !filterFields[field] {
			return nil, fmt.Errorf("%w: unknown field %q", shared.ErrInvalidFilter, field)
		}

		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidFilter, err)
		}

		filters = append(filters, FieldFilter{Field: field, Pattern: re})
	}
	return filters, nil
}

// Matches reports whether the track satisfies the filters. With requireAll
// unset a single matching filter suffices; with it set every filter must
// match. An empty filter list matches nothing.
func Matches(t models.Track, filters []FieldFilter, requireAll bool) bool {
	if len(filters) == 0 {
		return false
	}
	for _, f := range filters {
		matched := f.Pattern.MatchString(fieldValue(t, f.Field))
		if requireAll && !matched {
			return false
		}
		if !requireAll && matched {
			return true
		}
	}
	return requireAll
}

// ApplyFilters partitions tracks into matched and filtered-out sets.
//
// With no include filters every track is a candidate; include filters
// restrict candidates, exclude filters then remove from them.
func ApplyFilters(tracks []models.Track, include, exclude []FieldFilter, allIncludes, allExcludes bool) (matched, filtered []models.Track) {
	for _, t := range tracks {
		included := len(include) == 0 || Matches(t, include, allIncludes)
		excluded := len(exclude) > 0 && Matches(t, exclude, allExcludes)

		if included && !excluded {
			matched = append(matched, t)
		} else {
			filtered = append(filtered, t)
		}
	}
	return matched, filtered
}

func fieldValue(t models.Track, field string) string {
	switch field {
	case "title":
		return t.Title
	case "artist":
		return t.Artist
	case "album":
		return t.Album
	case "albumartist":
		return t.AlbumArtist
	case "year":
		return strconv.Itoa(t.Year)
	default:
		return ""
	}
}

// ParseExcludePatterns compiles path exclusion regexps from the CLI.
func ParseExcludePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
		res = append(res, re)
	}
	return res, nil
}
