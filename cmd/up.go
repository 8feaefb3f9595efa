package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/gmsync/internal/formatter"
	"github.com/desertthunder/gmsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Up syncs local songs up to the remote library.
func (r *Runner) Up(ctx context.Context, cmd *cli.Command) error {
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
		workers = r.config.Upload.Workers
	}

	maxDepth := cmd.Int("max-depth")
	if cmd.Bool("no-recursion") {
		maxDepth = 0
	}

	opts := tasks.UpOpts{
		Inputs:          cmd.Args().Slice(),
		MaxDepth:        maxDepth,
		Include:         include,
		Exclude:         exclude,
		AllIncludes:     cmd.Bool("all-includes"),
		AllExcludes:     cmd.Bool("all-excludes"),
		ExcludePatterns: excludePatterns,
		DryRun:          cmd.Bool("dry-run"),
		Match:           cmd.Bool("match"),
		DeleteOnSuccess: cmd.Bool("delete-on-success"),
		Workers:         workers,
		Retry: tasks.RetryPolicy{
			MaxRetries: r.config.Upload.MaxRetries,
		},
	}

	r.logger.Info("starting up sync", "inputs", len(opts.Inputs), "dry_run", opts.DryRun)

	var result *tasks.UpResult
	if cmd.Bool("ui") {
		result, err = r.runUpUI(ctx, engine, opts)
	} else {
		result, err = r.runUp(ctx, engine, opts)
	}
	if err != nil {
		return err
	}

	if opts.DryRun {
		r.writePlain("Songs to upload:\n\n")
		r.writePlain("%s", formatter.FormatSongList(result.ToUpload))
		r.writePlain("\nFound %d song(s) to upload (%d excluded by filters)\n", len(result.ToUpload), len(result.Excluded))
		return nil
	}

	r.writePlainln("✓ Up sync complete")
	r.writePlain("Uploaded: %d\n", result.Uploaded)
	if len(result.Excluded) > 0 {
		r.writePlain("Excluded by filters: %d\n", len(result.Excluded))
	}
	if opts.DeleteOnSuccess {
		r.writePlain("Deleted locally: %d\n", result.Deleted)
	}
	if result.Failed > 0 {
		r.writePlain("Failed: %d\n", result.Failed)
		return fmt.Errorf("%d song(s) failed to upload", result.Failed)
	}
	return nil
}

// runUp runs an up sync printing progress lines to the output.
func (r *Runner) runUp(ctx context.Context, engine tasks.SyncEngine, opts tasks.UpOpts) (*tasks.UpResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.ScanLocal, tasks.FetchLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Compare:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.Upload:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Up(ctx, progressCh, opts)
	close(progressCh)
	return result, err
}
