package tasks

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Down syncs remote library songs to local files.
//
// The sync fetches the remote library, applies field filters, determines
// the base directory from the download path template, scans the local
// songs already there, and downloads whatever is missing. Removed-song
// relocation and playlist syncing run afterwards when configured.
func (e *Engine) Down(ctx context.Context, progress chan<- ProgressUpdate, opts DownOpts) (*DownResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: music service not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchLibraryUpdate())
	tracks, err := e.svc.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list library: %v", shared.ErrAPIRequest, err)
	}

	matched, _ := library.ApplyFilters(tracks, opts.Include, opts.Exclude, opts.AllIncludes, opts.AllExcludes)

	base, err := library.BasePath(opts.Template, matched)
	if err != nil {
		return nil, err
	}

	dest, err := destResolver(opts.Template, base)
	if err != nil {
		return nil, err
	}

	result := &DownResult{BasePath: base}

	e.sendProgress(progress, scanLocalUpdate(base))
	local, err := e.scanBase(base, opts)
	if err != nil {
		return nil, err
	}

	missing := library.MissingTracks(matched, local)
	result.Missing = missing
	e.sendProgress(progress, compareUpdate(len(missing)))

	if !opts.DryRun {
		downloaded, skipped, failed, err := e.downloadTracks(ctx, progress, missing, dest, opts)
		result.Downloaded = downloaded
		result.Skipped = skipped
		result.Failed = failed
		if err != nil {
			return result, err
		}
	}

	if opts.RemovedDir != "" && !opts.DryRun {
		relocated, err := e.relocateRemoved(ctx, progress, base, opts.RemovedDir, tracks)
		if err != nil {
			return result, err
		}
		result.Relocated = relocated
	}

	if opts.PlaylistsDir != "" {
		count, err := e.syncPlaylists(ctx, progress, tracks, dest, opts)
		if err != nil {
			return result, err
		}
		result.Playlists = count
	}

	e.recordRun("down", opts.DryRun, result.Downloaded, result.Failed)
	e.sendProgress(progress, doneUpdate(fmt.Sprintf("Downloaded %d song(s), %d failed", result.Downloaded, result.Failed)))
	return result, nil
}

// destResolver returns the function mapping a remote track to its local
// output path under the given template.
func destResolver(template, base string) (func(models.Track) string, error) {
	if template == "" || template == library.SuggestedToken {
		return func(t models.Track) string {
			return filepath.Join(base, library.ExpandTemplate(library.SuggestedToken, t))
		}, nil
	}

	if err := library.ValidateTemplate(template); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(template)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve template path: %w", err)
	}
	return func(t models.Track) string {
		return library.ExpandTemplate(abs, t)
	}, nil
}

// scanBase scans songs under the base directory, tolerating a base that
// doesn't exist yet (first sync into an empty tree).
func (e *Engine) scanBase(base string, opts DownOpts) ([]models.LocalSong, error) {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return nil, nil
	}
	songs, err := library.Scan([]string{base}, library.ScanOpts{MaxDepth: -1, ExcludePatterns: opts.ExcludePatterns})
	if err != nil {
		return nil, fmt.Errorf("failed to scan local songs: %w", err)
	}
	return songs, nil
}

// downloadTracks downloads missing songs with a bounded worker pool.
// Individual failures are counted, not fatal; only context cancellation
// stops the pool early, and is returned as the error.
func (e *Engine) downloadTracks(ctx context.Context, progress chan<- ProgressUpdate, missing []models.Track, dest func(models.Track) string, opts DownOpts) (downloaded, skipped, failed int, err error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	var nDownloaded, nSkipped, nFailed atomic.Int64
	var step atomic.Int64
	total := len(missing)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, track := range missing {
		track := track
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			e.sendProgress(progress, downloadUpdate(int(step.Add(1)), total, track))
			path := dest(track)

			if e.existsWithSize(path, track.SizeBytes, opts.SizeTolerance) {
				nSkipped.Add(1)
				e.cacheTrack(track, path)
				return nil
			}

			if err := e.downloadOne(ctx, track, path, opts); err != nil {
				nFailed.Add(1)
				return nil
			}

			if opts.ModifyTags {
				// Tag failures leave the audio intact; not worth failing the song.
				_ = library.WriteTags(path, track)
			}
			e.cacheTrack(track, path)
			nDownloaded.Add(1)
			return nil
		})
	}

	err = g.Wait()
	return int(nDownloaded.Load()), int(nSkipped.Load()), int(nFailed.Load()), err
}

// downloadOne fetches a single track with retries and exponential cooldown.
func (e *Engine) downloadOne(ctx context.Context, track models.Track, path string, opts DownOpts) error {
	retries := opts.Retry.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var err error
	for attempt := 0; attempt < retries; attempt++ {
		if err = e.svc.DownloadTrack(ctx, track.ID, path, nil); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < retries-1 {
			opts.Retry.wait(ctx, attempt)
		}
	}
	return err
}

// existsWithSize reports whether path already holds a file close enough in
// size to the expected byte count.
func (e *Engine) existsWithSize(path string, expected int64, tolerance float64) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if expected <= 0 {
		// No remote size to compare against; presence is good enough.
		return true
	}
	diff := float64(info.Size()-expected) / float64(expected)
	return math.Abs(diff) <= tolerance
}

// relocateRemoved moves local songs absent from the remote library into
// removedDir, preserving their layout relative to base, then prunes empty
// directories left behind.
func (e *Engine) relocateRemoved(ctx context.Context, progress chan<- ProgressUpdate, base, removedDir string, remote []models.Track) (int, error) {
	absRemoved, err := filepath.Abs(removedDir)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve removed directory: %w", err)
	}
	if err := os.MkdirAll(absRemoved, 0o700); err != nil {
		return 0, fmt.Errorf("failed to create removed directory: %w", err)
	}

	// The base may not exist yet when nothing was downloaded; there is
	// nothing to relocate in that case.
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return 0, nil
	}

	// Full rescan without exclude patterns: a file excluded from download
	// comparison should still be relocated when its song is gone remotely.
	local, err := library.Scan([]string{base}, library.ScanOpts{MaxDepth: -1})
	if err != nil {
		return 0, fmt.Errorf("failed to rescan local songs: %w", err)
	}

	toMove := library.MissingSongs(local, remote)
	moved := 0

	for i, song := range toMove {
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}
		if strings.HasPrefix(song.Path, absRemoved+string(filepath.Separator)) {
			continue
		}

		rel, err := filepath.Rel(base, song.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(song.Path)
		}

		target := filepath.Join(absRemoved, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o700); err != nil {
			return moved, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}

		e.sendProgress(progress, relocateUpdate(i+1, len(toMove), rel))
		if err := os.Rename(song.Path, target); err != nil {
			return moved, fmt.Errorf("failed to move %s: %w", rel, err)
		}
		moved++
	}

	if err := library.RemoveEmptyDirs(base, false); err != nil {
		return moved, err
	}
	return moved, nil
}
