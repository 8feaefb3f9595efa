// package tasks implements the sync operations between the music service
// and the local filesystem.
//
// The core abstraction is SyncEngine, which orchestrates down syncs
// (download missing songs, relocate removed ones, write playlist files)
// and up syncs (upload missing local songs). Operations emit progress
// updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"math"
	"regexp"
	"time"

	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/services"
)

// TrackCacher persists remote track metadata seen during a sync.
// Implemented by repositories.TrackCache.
type TrackCacher interface {
	CacheTrack(track models.Track, localPath string) error
}

// RunRecorder persists sync run bookkeeping rows.
// Implemented by repositories.SyncRunRepository.
type RunRecorder interface {
	RecordRun(run *models.SyncRun) error
}

// SyncEngine defines the sync operations exposed to the CLI and TUI.
type SyncEngine interface {
	// Down syncs remote library songs to local files.
	Down(ctx context.Context, progress chan<- ProgressUpdate, opts DownOpts) (*DownResult, error)

	// Up syncs local songs to the remote library.
	Up(ctx context.Context, progress chan<- ProgressUpdate, opts UpOpts) (*UpResult, error)
}

// Engine implements SyncEngine against a music service client.
//
// The cache and recorder are optional; a nil value disables that piece of
// bookkeeping without affecting the sync itself.
type Engine struct {
	svc      services.Service
	cache    TrackCacher
	recorder RunRecorder
}

// NewEngine creates an Engine with the provided service and optional
// persistence hooks.
func NewEngine(svc services.Service, cache TrackCacher, recorder RunRecorder) *Engine {
	return &Engine{svc: svc, cache: cache, recorder: recorder}
}

// RetryPolicy controls per-track transfer retries.
type RetryPolicy struct {
	MaxRetries int
	Cooldown   float64 // seconds before first retry
	Exponent   float64 // cooldown multiplier per attempt
}

// wait sleeps for the attempt's cooldown or until the context is done.
func (p RetryPolicy) wait(ctx context.Context, attempt int) {
	cooldown := p.Cooldown
	if cooldown <= 0 {
		cooldown = 1
	}
	exponent := p.Exponent
	if exponent <= 0 {
		exponent = 2
	}
	d := time.Duration(cooldown * math.Pow(exponent, float64(attempt)) * float64(time.Second))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// DownOpts configures a down sync.
type DownOpts struct {
	Template        string // download path template
	Include         []library.FieldFilter
	Exclude         []library.FieldFilter
	AllIncludes     bool
	AllExcludes     bool
	ExcludePatterns []*regexp.Regexp
	DryRun          bool
	Workers         int
	Retry           RetryPolicy
	SizeTolerance   float64 // allowed relative size diff for skip-existing
	ModifyTags      bool
	PlaylistsDir    string // sync playlists to M3U files when set
	FavoritesName   string // favorites playlist name, defaults when empty
	RemovedDir      string // relocate removed local songs when set
}

// DownResult summarizes a down sync.
type DownResult struct {
	Missing    []models.Track // songs that were (or would be) downloaded
	Downloaded int
	Skipped    int
	Failed     int
	Relocated  int
	Playlists  int
	BasePath   string
}

// UpOpts configures an up sync.
type UpOpts struct {
	Inputs          []string // files, directories to scan
	MaxDepth        int      // negative means unlimited
	Include         []library.FieldFilter
	Exclude         []library.FieldFilter
	AllIncludes     bool
	AllExcludes     bool
	ExcludePatterns []*regexp.Regexp
	DryRun          bool
	Match           bool // let the service match by fingerprint
	DeleteOnSuccess bool
	Workers         int
	Retry           RetryPolicy
}

// UpResult summarizes an up sync.
type UpResult struct {
	ToUpload []models.LocalSong // songs that were (or would be) uploaded
	Excluded []models.LocalSong // local songs removed by filters
	Uploaded int
	Failed   int
	Deleted  int
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// cacheTrack records a track in the cache when one is configured.
func (e *Engine) cacheTrack(t models.Track, localPath string) {
	if e.cache == nil {
		return
	}
	// Cache failures never abort a sync.
	_ = e.cache.CacheTrack(t, localPath)
}

// recordRun persists run bookkeeping when a recorder is configured.
func (e *Engine) recordRun(direction string, dryRun bool, transferred, failed int) {
	if e.recorder == nil {
		return
	}
	run := models.NewSyncRun(direction, dryRun)
	run.Finish(transferred, failed)
	_ = e.recorder.RecordRun(run)
}
