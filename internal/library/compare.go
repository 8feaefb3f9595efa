package library

import (
	"fmt"
	"sort"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// SongKey builds the comparison key used to decide whether a remote track
// and a local file are the same song. Title and artist are normalized;
// album and track number disambiguate different recordings.
func SongKey(t models.Track) string {
	return fmt.Sprintf("%s|%s|%d", shared.NormalizeTrackKey(t.Title, t.Artist), normalizeAlbum(t.Album), t.TrackNumber)
}

func normalizeAlbum(album string) string {
	return shared.NormalizeTrackKey(album, "")
}

// MissingTracks returns the remote tracks with no matching local song,
// sorted by artist, album, track number for sensible output.
func MissingTracks(remote []models.Track, local []models.LocalSong) []models.Track {
	seen := make(map[string]bool, len(local))
	for _, song := range local {
		seen[SongKey(song.Track)] = true
	}

	var missing []models.Track
	for _, t := range remote {
		if !seen[SongKey(t)] {
			missing = append(missing, t)
		}
	}

	SortTracks(missing)
	return missing
}

// MissingSongs returns the local songs with no matching remote track,
// sorted by path.
func MissingSongs(local []models.LocalSong, remote []models.Track) []models.LocalSong {
	seen := make(map[string]bool, len(remote))
	for _, t := range remote {
		seen[SongKey(t)] = true
	}

	var missing []models.LocalSong
	for _, song := range local {
		if !seen[SongKey(song.Track)] {
			missing = append(missing, song)
		}
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].Path < missing[j].Path })
	return missing
}

// SortTracks orders tracks by artist, album, track number.
func SortTracks(tracks []models.Track) {
	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.Artist != b.Artist {
			return a.Artist < b.Artist
		}
		if a.Album != b.Album {
			return a.Album < b.Album
		}
		return a.TrackNumber < b.TrackNumber
	})
}
