package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/desertthunder/gmsync/internal/formatter"
	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// DefaultFavoritesName is used when --favorites is not given.
const DefaultFavoritesName = "___auto_favorites___"

// syncPlaylists fetches remote playlists, downloads any of their songs
// still missing locally, and writes one extended M3U per playlist (plus a
// favorites playlist) into the configured directory. Entry paths are
// relative to the playlist directory.
//
// Returns the number of playlist files written (or, in dry-run mode, that
// would have been written).
func (e *Engine) syncPlaylists(ctx context.Context, progress chan<- ProgressUpdate, remote []models.Track, dest func(models.Track) string, opts DownOpts) (int, error) {
	playlistsDir, err := filepath.Abs(opts.PlaylistsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve playlists directory: %w", err)
	}
	if !opts.DryRun {
		if err := os.MkdirAll(playlistsDir, 0o700); err != nil {
			return 0, fmt.Errorf("failed to create playlists directory: %w", err)
		}
	}

	playlists, err := e.svc.ListPlaylists(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to list playlists: %v", shared.ErrAPIRequest, err)
	}

	byID := make(map[string]models.Track, len(remote))
	for _, t := range remote {
		byID[t.ID] = t
	}

	// Unique playlist tracks, then favorites, get the same
	// download-if-missing treatment as the library sync.
	playlistTracks := collectPlaylistTracks(playlists, byID)
	favorites := favoriteTracks(remote)

	wanted := append(playlistTracks, favorites...)
	if err := e.downloadMissing(ctx, progress, wanted, dest, opts); err != nil {
		return 0, err
	}

	written := 0
	for i, pl := range playlists {
		entries := playlistEntries(pl.TrackIDs, byID, dest, playlistsDir)
		path := filepath.Join(playlistsDir, library.SanitizeComponent(pl.Name)+".m3u")

		if !opts.DryRun {
			if err := formatter.WritePlaylist(path, formatter.BuildM3U(entries, true)); err != nil {
				return written, err
			}
		}
		written++
		e.sendProgress(progress, playlistUpdate(i+1, len(playlists)+1, path, len(entries)))
	}

	name := opts.FavoritesName
	if name == "" {
		name = DefaultFavoritesName
	}
	favEntries := trackEntries(favorites, dest, playlistsDir)
	favPath := filepath.Join(playlistsDir, library.SanitizeComponent(name)+".m3u")

	if !opts.DryRun {
		if err := formatter.WritePlaylist(favPath, formatter.BuildM3U(favEntries, true)); err != nil {
			return written, err
		}
	}
	written++
	e.sendProgress(progress, favoritesUpdate(favPath, len(favEntries)))

	return written, nil
}

// downloadMissing rescans the base directory and downloads whichever of
// the wanted tracks are still absent. No-op under dry-run.
func (e *Engine) downloadMissing(ctx context.Context, progress chan<- ProgressUpdate, wanted []models.Track, dest func(models.Track) string, opts DownOpts) error {
	if opts.DryRun || len(wanted) == 0 {
		return nil
	}

	base, err := library.BasePath(opts.Template, wanted)
	if err != nil {
		return err
	}
	local, err := e.scanBase(base, opts)
	if err != nil {
		return err
	}

	missing := library.MissingTracks(wanted, local)
	e.sendProgress(progress, compareUpdate(len(missing)))
	_, _, _, err = e.downloadTracks(ctx, progress, missing, dest, opts)
	return err
}

// collectPlaylistTracks flattens playlists into a deduplicated track list,
// keeping only ids known to the library.
func collectPlaylistTracks(playlists []models.Playlist, byID map[string]models.Track) []models.Track {
	seen := make(map[string]bool)
	var tracks []models.Track

	for _, pl := range playlists {
		for _, id := range pl.TrackIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			if t, ok := byID[id]; ok {
				tracks = append(tracks, t)
			}
		}
	}
	return tracks
}

// favoriteTracks returns thumbs-up songs (rating above 3), most recently
// modified first.
func favoriteTracks(remote []models.Track) []models.Track {
	var favorites []models.Track
	for _, t := range remote {
		if t.Rating > 3 {
			favorites = append(favorites, t)
		}
	}
	sort.Slice(favorites, func(i, j int) bool {
		return favorites[i].LastModified > favorites[j].LastModified
	})
	return favorites
}

// playlistEntries maps playlist track ids to M3U entries in order,
// skipping ids the library doesn't know.
func playlistEntries(ids []string, byID map[string]models.Track, dest func(models.Track) string, playlistsDir string) []formatter.PlaylistEntry {
	var tracks []models.Track
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return trackEntries(tracks, dest, playlistsDir)
}

func trackEntries(tracks []models.Track, dest func(models.Track) string, playlistsDir string) []formatter.PlaylistEntry {
	entries := make([]formatter.PlaylistEntry, 0, len(tracks))
	for _, t := range tracks {
		path := dest(t)
		if rel, err := filepath.Rel(playlistsDir, path); err == nil {
			path = rel
		}
		entries = append(entries, formatter.PlaylistEntry{
			Path:            path,
			DurationSeconds: t.DurationSeconds(),
			Label:           t.Label(),
		})
	}
	return entries
}
