package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/gmsync/internal/formatter"
	"github.com/desertthunder/gmsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Down syncs the remote library down to the local filesystem.
func (r *Runner) Down(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyVerbosity(cmd); err != nil {
		return err
	}

	include, exclude, err := parseFilterFlags(cmd)
	if err != nil {
		return err
	}
	excludePatterns, err := parseExcludeFlags(cmd)
	if err != nil {
		return err
	}

	if err := r.authenticate(ctx, cmd); err != nil {
		return err
	}

	engine, cleanup, err := r.newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	workers := cmd.Int("workers")
	if workers <= 0 {
		workers = r.config.Download.Workers
	}

	opts := tasks.DownOpts{
		Template:        cmd.StringArg("template"),
		Include:         include,
		Exclude:         exclude,
		AllIncludes:     cmd.Bool("all-includes"),
		AllExcludes:     cmd.Bool("all-excludes"),
		ExcludePatterns: excludePatterns,
		DryRun:          cmd.Bool("dry-run"),
		Workers:         workers,
		Retry: tasks.RetryPolicy{
			MaxRetries: r.config.Download.MaxRetries,
			Cooldown:   r.config.Download.RetryCooldown,
			Exponent:   r.config.Download.RetryExponent,
		},
		SizeTolerance: r.config.Download.SizeTolerance,
		ModifyTags:    cmd.Bool("modify-tags") || r.config.Download.ModifyTags,
		PlaylistsDir:  cmd.String("playlists"),
		FavoritesName: cmd.String("favorites"),
		RemovedDir:    cmd.String("removed"),
	}

	r.logger.Info("starting down sync", "template", opts.Template, "dry_run", opts.DryRun)

	var result *tasks.DownResult
	if cmd.Bool("ui") {
		result, err = r.runDownUI(ctx, engine, opts)
	} else {
		result, err = r.runDown(ctx, engine, opts)
	}
	if err != nil {
		return err
	}

	if opts.DryRun {
		r.writePlain("Songs to download:\n\n")
		r.writePlain("%s", formatter.FormatTrackList(result.Missing))
		r.writePlain("\nFound %d song(s) to download under %s\n", len(result.Missing), result.BasePath)
		return nil
	}

	r.writePlainln("✓ Down sync complete")
	r.writePlain("Downloaded: %d\n", result.Downloaded)
	r.writePlain("Skipped (already present): %d\n", result.Skipped)
	if result.Failed > 0 {
		r.writePlain("Failed: %d\n", result.Failed)
	}
	if opts.RemovedDir != "" {
		r.writePlain("Relocated: %d\n", result.Relocated)
	}
	if opts.PlaylistsDir != "" {
		r.writePlain("Playlists written: %d\n", result.Playlists)
	}

	if report := cmd.String("report"); report != "" {
		if err := formatter.WriteTracksCSV(result.Missing, report); err != nil {
			return err
		}
		r.writePlain("Report written to %s\n", report)
	}

	if result.Failed > 0 {
		return fmt.Errorf("%d song(s) failed to download", result.Failed)
	}
	return nil
}

// runDown runs a down sync printing progress lines to the output.
func (r *Runner) runDown(ctx context.Context, engine tasks.SyncEngine, opts tasks.DownOpts) (*tasks.DownResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLibrary, tasks.ScanLocal:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Compare:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.Download, tasks.Relocate:
				r.writePlain("   %s\n", update.Message)
			case tasks.Playlists, tasks.Favorites:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Down(ctx, progressCh, opts)
	close(progressCh)
	return result, err
}
