package tasks

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Up syncs local songs to the remote library.
//
// Local songs are scanned from the inputs, filtered, and compared against
// the remote library; missing songs are uploaded with a bounded worker
// pool. With DeleteOnSuccess, songs that uploaded (or already existed
// remotely) are removed locally.
func (e *Engine) Up(ctx context.Context, progress chan<- ProgressUpdate, opts UpOpts) (*UpResult, error) {
	if e.svc == nil {
		return nil, fmt.Errorf("%w: music service not initialized", shared.ErrServiceUnavailable)
	}

	inputs := opts.Inputs
	if len(inputs) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		inputs = []string{cwd}
	}

	e.sendProgress(progress, scanLocalUpdate(inputs[0]))
	local, err := library.Scan(inputs, library.ScanOpts{MaxDepth: opts.MaxDepth, ExcludePatterns: opts.ExcludePatterns})
	if err != nil {
		return nil, fmt.Errorf("failed to scan local songs: %w", err)
	}

	matched, excluded := partitionSongs(local, opts)

	e.sendProgress(progress, fetchLibraryUpdate())
	remote, err := e.svc.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list library: %v", shared.ErrAPIRequest, err)
	}

	toUpload := library.MissingSongs(matched, remote)
	e.sendProgress(progress, compareUpdate(len(toUpload)))

	result := &UpResult{ToUpload: toUpload, Excluded: excluded}

	if opts.DryRun {
		e.recordRun("up", true, 0, 0)
		return result, nil
	}

	uploaded, deleted, failed, err := e.uploadSongs(ctx, progress, toUpload, opts)
	result.Uploaded = uploaded
	result.Failed = failed
	result.Deleted = deleted
	if err != nil {
		return result, err
	}

	// Songs already on the remote also go when delete-on-success is set.
	if opts.DeleteOnSuccess {
		pending := make(map[string]bool, len(toUpload))
		for _, song := range toUpload {
			pending[song.Path] = true
		}
		for _, song := range matched {
			if pending[song.Path] {
				continue
			}
			if err := os.Remove(song.Path); err == nil {
				result.Deleted++
			}
		}
	}

	e.recordRun("up", false, uploaded, failed)
	e.sendProgress(progress, doneUpdate(fmt.Sprintf("Uploaded %d song(s), %d failed", uploaded, failed)))
	return result, nil
}

// uploadSongs uploads the given songs with a bounded worker pool and
// per-song retries. Failures are counted, not fatal; context cancellation
// stops the pool early and is returned as the error.
func (e *Engine) uploadSongs(ctx context.Context, progress chan<- ProgressUpdate, songs []models.LocalSong, opts UpOpts) (uploaded, deleted, failed int, err error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}

	var nUploaded, nDeleted, nFailed atomic.Int64
	var step atomic.Int64
	total := len(songs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, song := range songs {
		song := song
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			e.sendProgress(progress, uploadUpdate(int(step.Add(1)), total, song))

			remoteID, err := e.uploadOne(ctx, song, opts)
			if err != nil {
				nFailed.Add(1)
				return nil
			}
			nUploaded.Add(1)

			track := song.Track
			track.ID = remoteID
			e.cacheTrack(track, song.Path)

			if opts.DeleteOnSuccess {
				if err := os.Remove(song.Path); err == nil {
					nDeleted.Add(1)
				}
			}
			return nil
		})
	}

	err = g.Wait()
	return int(nUploaded.Load()), int(nDeleted.Load()), int(nFailed.Load()), err
}

// uploadOne uploads a single song with retries and exponential cooldown.
func (e *Engine) uploadOne(ctx context.Context, song models.LocalSong, opts UpOpts) (string, error) {
	retries := opts.Retry.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	var id string
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		if id, err = e.svc.UploadTrack(ctx, song, opts.Match); err == nil {
			return id, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < retries-1 {
			opts.Retry.wait(ctx, attempt)
		}
	}
	return "", err
}

// partitionSongs applies field filters to scanned songs.
func partitionSongs(songs []models.LocalSong, opts UpOpts) (matched, excluded []models.LocalSong) {
	for _, song := range songs {
		included := len(opts.Include) == 0 || library.Matches(song.Track, opts.Include, opts.AllIncludes)
		rejected := len(opts.Exclude) > 0 && library.Matches(song.Track, opts.Exclude, opts.AllExcludes)

		if included && !rejected {
			matched = append(matched, song)
		} else {
			excluded = append(excluded, song)
		}
	}
	return matched, excluded
}
