// package formatter renders playlist files and sync reports (M3U, CSV, plain text)
package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/gmsync/internal/models"
)

// PlaylistEntry is one line of a playlist file: a song path (usually
// relative to the playlist's directory) with display metadata.
type PlaylistEntry struct {
	Path            string
	DurationSeconds int
	Label           string // "Artist - Title"
}

// BuildM3U renders entries as an M3U playlist. With extended set the
// output starts with #EXTM3U and each entry carries an #EXTINF line with
// its duration and label.
func BuildM3U(entries []PlaylistEntry, extended bool) string {
	var sb strings.Builder

	if extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, entry := range entries {
		if extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", entry.DurationSeconds, entry.Label))
		}
		sb.WriteString(entry.Path + "\n")
	}
	return sb.String()
}

// WritePlaylist writes playlist content to path via a temp file and
// rename, so readers never observe a half-written playlist.
func WritePlaylist(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create playlist directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".playlist-*")
	if err != nil {
		return fmt.Errorf("failed to create temp playlist: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write playlist: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close playlist: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move playlist into place: %w", err)
	}
	return nil
}

// FormatTrackList renders tracks one per line as
// "Title -- Artist -- Album (id)" for dry-run output.
func FormatTrackList(tracks []models.Track) string {
	var sb strings.Builder
	for _, t := range tracks {
		title := orPlaceholder(t.Title, "<title>")
		artist := orPlaceholder(t.Artist, "<artist>")
		album := orPlaceholder(t.Album, "<album>")
		sb.WriteString(fmt.Sprintf("%s -- %s -- %s (%s)\n", title, artist, album, t.ID))
	}
	return sb.String()
}

// FormatSongList renders local songs one path per line for dry-run output.
func FormatSongList(songs []models.LocalSong) string {
	var sb strings.Builder
	for _, song := range songs {
		sb.WriteString(song.Path + "\n")
	}
	return sb.String()
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}
