package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/gmsync/internal/repositories"
	"github.com/desertthunder/gmsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// openDB opens the configured database, failing when setup never ran.
func (r *Runner) openDB() (*sql.DB, error) {
	if _, err := os.Stat(r.config.Database.Path); err != nil {
		return nil, fmt.Errorf("database not initialized at %s (run 'gmsync setup' first)", r.config.Database.Path)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// cachedTrack is the JSON shape for cache list output.
type cachedTrack struct {
	RemoteID  string `json:"remote_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist,omitempty"`
	Album     string `json:"album,omitempty"`
	Track     int    `json:"track,omitempty"`
	Year      int    `json:"year,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
}

// CacheList lists tracks in the local cache.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{}
	if artist := cmd.String("artist"); artist != "" {
		criteria["artist"] = artist
	}
	if album := cmd.String("album"); album != "" {
		criteria["album"] = album
	}

	tracks, err := repositories.NewTrackRepository(db).List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]cachedTrack, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, cachedTrack{
				RemoteID:  t.RemoteID(),
				Title:     t.Title(),
				Artist:    t.Artist(),
				Album:     t.Album(),
				Track:     t.TrackNumber(),
				Year:      t.Year(),
				LocalPath: t.LocalPath(),
			})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	for _, t := range tracks {
		r.writePlain("%s -- %s -- %s", t.Title(), t.Artist(), t.Album())
		if t.LocalPath() != "" {
			r.writePlain(" (%s)", t.LocalPath())
		}
		r.writePlain("\n")
	}
	r.writePlain("\n%d cached track(s)\n", len(tracks))
	return nil
}

// CacheClear clears all cached tracks.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cleared, err := repositories.NewTrackRepository(db).Clear()
	if err != nil {
		return err
	}

	r.logger.Info("track cache cleared", "tracks", cleared)
	r.writePlain("✓ Cleared %d cached track(s)\n", cleared)
	return nil
}

// CacheRuns shows recent sync runs.
func (r *Runner) CacheRuns(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewSyncRunRepository(db).List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	for _, run := range runs {
		line := fmt.Sprintf("#%d %s", run.Sequence(), run.Direction())
		if run.DryRun() {
			line += " (dry-run)"
		}
		line += fmt.Sprintf(": %d transferred, %d failed", run.Transferred(), run.Failed())
		r.writePlain("%s -- %s\n", run.StartedAt().Format("2006-01-02 15:04:05"), line)
	}
	r.writePlain("\n%d sync run(s)\n", len(runs))
	return nil
}
