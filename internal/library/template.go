// package library handles the local side of a sync: path templates,
// field filters, directory scanning, and ID3 tags
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// SuggestedToken expands to "Artist - Title" in the current directory,
// matching what the service would name the file.
const SuggestedToken = "%suggested%"

// templateTokens lists every substitution token a download path template
// may contain, mapped to its value for a given track.
func templateTokens(t models.Track) map[string]string {
	artist := orUnknown(t.Artist, "Unknown Artist")
	albumArtist := t.AlbumArtist
	if albumArtist == "" {
		albumArtist = artist
	}

	return map[string]string{
		"%artist%":      artist,
		"%albumartist%": albumArtist,
		"%album%":       orUnknown(t.Album, "Unknown Album"),
		"%title%":       orUnknown(t.Title, "Unknown Title"),
		"%track%":       fmt.Sprintf("%d", t.TrackNumber),
		"%track2%":      fmt.Sprintf("%02d", t.TrackNumber),
		"%disc%":        fmt.Sprintf("%d", t.DiscNumber),
		"%disc2%":       fmt.Sprintf("%02d", t.DiscNumber),
		"%year%":        fmt.Sprintf("%d", t.Year),
	}
}

func orUnknown(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// ValidateTemplate rejects templates containing unknown % tokens.
func ValidateTemplate(template string) error {
	known := templateTokens(models.Track{})
	rest := template
	for {
		start := strings.Index(rest, "%")
		if start < 0 {
			return nil
		}
		end := strings.Index(rest[start+1:], "%")
		if end < 0 {
			return nil
		}
		token := rest[start : start+end+2]
		if _, ok := known[token]; !ok && token != SuggestedToken {
			return fmt.Errorf("%w: unknown token %s", shared.ErrInvalidTemplate, token)
		}
		rest = rest[start+end+2:]
	}
}

// ExpandTemplate builds the output path for a track from a download path
// template. Token values are sanitized per path component, and ".mp3" is
// appended when the template does not already end with it.
func ExpandTemplate(template string, t models.Track) string {
	if template == "" || template == SuggestedToken {
		return SanitizeComponent(t.Label()) + ".mp3"
	}

	expanded := template
	for token, value := range templateTokens(t) {
		expanded = strings.ReplaceAll(expanded, token, SanitizeComponent(value))
	}

	if !strings.HasSuffix(strings.ToLower(expanded), ".mp3") {
		expanded += ".mp3"
	}
	return filepath.Clean(expanded)
}

// BasePath determines the directory a sync reads local songs from: the
// directory part of the longest common prefix of all expanded song paths.
// Templates equal to the current directory or %suggested% resolve to the
// current directory.
func BasePath(template string, tracks []models.Track) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	if template == "" || template == cwd || template == SuggestedToken {
		return cwd, nil
	}

	abs, err := filepath.Abs(template)
	if err != nil {
		return "", fmt.Errorf("failed to resolve template path: %w", err)
	}

	if len(tracks) == 0 {
		return filepath.Dir(abs), nil
	}

	prefix := ExpandTemplate(abs, tracks[0])
	for _, t := range tracks[1:] {
		prefix = commonPrefix(prefix, ExpandTemplate(abs, t))
		if prefix == "" {
			break
		}
	}
	return filepath.Dir(prefix), nil
}

func commonPrefix(a, b string) string {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	i := 0
	for i < max && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// SanitizeComponent makes a tag value safe as a single path component:
// path separators and characters invalid on common filesystems are
// replaced, whitespace is collapsed, and trailing dots are trimmed.
func SanitizeComponent(s string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "-",
		"*", "", "?", "", "\"", "'",
		"<", "", ">", "", "|", "",
	)
	s = replacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, ". ")
}
