package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/gmsync/internal/models"
)

// ScanOpts controls local library scanning.
type ScanOpts struct {
	// MaxDepth limits recursion below each root; 0 scans only the root
	// itself, negative means unlimited.
	MaxDepth int

	// ExcludePatterns removes files whose full path matches any pattern.
	ExcludePatterns []*regexp.Regexp
}

// Scan walks the given files and directories and returns the local songs
// found, with metadata read from each file's ID3 tags.
//
// Unreadable tags are not fatal: the song is kept with a title derived
// from its filename so comparison still sees the file.
func Scan(paths []string, opts ScanOpts) ([]models.LocalSong, error) {
	var songs []models.LocalSong

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}

		if !info.IsDir() {
			if song, ok := readSong(root, opts.ExcludePatterns); ok {
				songs = append(songs, song)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if opts.MaxDepth >= 0 && depthBelow(root, path) > opts.MaxDepth {
					return fs.SkipDir
				}
				return nil
			}
			if song, ok := readSong(path, opts.ExcludePatterns); ok {
				songs = append(songs, song)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	return songs, nil
}

// depthBelow counts directory levels of path below root.
func depthBelow(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(rel, string(filepath.Separator)))
}

func readSong(path string, excludes []*regexp.Regexp) (models.LocalSong, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return models.LocalSong{}, false
	}
	for _, re := range excludes {
		if re.MatchString(path) {
			return models.LocalSong{}, false
		}
	}

	song := models.LocalSong{Path: path}
	if info, err := os.Stat(path); err == nil {
		song.SizeBytes = info.Size()
	}

	song.Track = ReadTags(path)
	return song, true
}

// ReadTags reads ID3 metadata from an MP3 file. Missing or unparseable
// tags yield a track titled after the file.
func ReadTags(path string) models.Track {
	track := models.Track{}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err == nil {
		defer tag.Close()
		track.Title = tag.Title()
		track.Artist = tag.Artist()
		track.Album = tag.Album()
		track.AlbumArtist = tag.GetTextFrame("TPE2").Text
		track.Year, _ = strconv.Atoi(strings.TrimSpace(tag.Year()))
		track.TrackNumber, track.TotalTracks = parseNumberPair(tag.GetTextFrame("TRCK").Text)
		track.DiscNumber, track.TotalDiscs = parseNumberPair(tag.GetTextFrame("TPOS").Text)
	}

	if track.Title == "" {
		track.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return track
}

// parseNumberPair parses ID3 "3" or "3/12" style values.
func parseNumberPair(s string) (n, total int) {
	cur, tot, _ := strings.Cut(s, "/")
	n, _ = strconv.Atoi(strings.TrimSpace(cur))
	total, _ = strconv.Atoi(strings.TrimSpace(tot))
	return n, total
}

// RemoveEmptyDirs prunes empty directories below path, removing path
// itself only when removeRoot is set.
func RemoveEmptyDirs(path string, removeRoot bool) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if err := RemoveEmptyDirs(filepath.Join(path, entry.Name()), true); err != nil {
				return err
			}
		}
	}

	entries, err = os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(entries) == 0 && removeRoot {
		return os.Remove(path)
	}
	return nil
}
