package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a cached remote track row.
//
// Rows are keyed by the remote track id (unique) so repeated syncs
// deduplicate naturally. The local path records where the song was written
// during the last download, when known.
type PersistedTrack struct {
	id          string
	sequence    int
	remoteID    string
	title       string
	artist      string
	album       string
	trackNumber int
	year        int
	localPath   string
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// NewPersistedTrack creates a PersistedTrack from remote metadata.
// The id is assigned by the repository on Create.
func NewPersistedTrack(sequence int, track Track, localPath string) *PersistedTrack {
	now := time.Now().UTC()
	return &PersistedTrack{
		sequence:    sequence,
		remoteID:    track.ID,
		title:       track.Title,
		artist:      track.Artist,
		album:       track.Album,
		trackNumber: track.TrackNumber,
		year:        track.Year,
		localPath:   localPath,
		createdAt:   now,
		updatedAt:   now,
	}
}

// RestorePersistedTrack rebuilds a PersistedTrack from database columns.
func RestorePersistedTrack(id string, sequence int, remoteID, title, artist, album string, trackNumber, year int, localPath string, createdAt, updatedAt time.Time, deletedAt *time.Time) *PersistedTrack {
	return &PersistedTrack{
		id:          id,
		sequence:    sequence,
		remoteID:    remoteID,
		title:       title,
		artist:      artist,
		album:       album,
		trackNumber: trackNumber,
		year:        year,
		localPath:   localPath,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		deletedAt:   deletedAt,
	}
}

func (t *PersistedTrack) ID() string           { return t.id }
func (t *PersistedTrack) Sequence() int        { return t.sequence }
func (t *PersistedTrack) RemoteID() string     { return t.remoteID }
func (t *PersistedTrack) Title() string        { return t.title }
func (t *PersistedTrack) Artist() string       { return t.artist }
func (t *PersistedTrack) Album() string        { return t.album }
func (t *PersistedTrack) TrackNumber() int     { return t.trackNumber }
func (t *PersistedTrack) Year() int            { return t.year }
func (t *PersistedTrack) LocalPath() string    { return t.localPath }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time {
	return t.deletedAt
}

// SetID assigns the row id. Called by the repository on Create.
func (t *PersistedTrack) SetID(id string) { t.id = id }

// SetSequence assigns the sequence number. Called by the repository on Create.
func (t *PersistedTrack) SetSequence(seq int) { t.sequence = seq }

// SetLocalPath records where the track was written and bumps updated_at.
func (t *PersistedTrack) SetLocalPath(path string) {
	t.localPath = path
	t.updatedAt = time.Now().UTC()
}

// Validate checks required fields before persistence.
func (t *PersistedTrack) Validate() error {
	if t.id == "" {
		return fmt.Errorf("track id is required")
	}
	if t.remoteID == "" {
		return fmt.Errorf("remote id is required")
	}
	if t.title == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// SyncRun records a single up or down invocation for bookkeeping.
type SyncRun struct {
	id          string
	sequence    int
	direction   string // "up" or "down"
	dryRun      bool
	transferred int
	failed      int
	startedAt   time.Time
	finishedAt  *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewSyncRun creates a SyncRun for the given direction.
func NewSyncRun(direction string, dryRun bool) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		direction: direction,
		dryRun:    dryRun,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreSyncRun rebuilds a SyncRun from database columns.
func RestoreSyncRun(id string, sequence int, direction string, dryRun bool, transferred, failed int, startedAt time.Time, finishedAt *time.Time, createdAt, updatedAt time.Time) *SyncRun {
	return &SyncRun{
		id:          id,
		sequence:    sequence,
		direction:   direction,
		dryRun:      dryRun,
		transferred: transferred,
		failed:      failed,
		startedAt:   startedAt,
		finishedAt:  finishedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (r *SyncRun) ID() string             { return r.id }
func (r *SyncRun) Sequence() int          { return r.sequence }
func (r *SyncRun) Direction() string      { return r.direction }
func (r *SyncRun) DryRun() bool           { return r.dryRun }
func (r *SyncRun) Transferred() int       { return r.transferred }
func (r *SyncRun) Failed() int            { return r.failed }
func (r *SyncRun) StartedAt() time.Time   { return r.startedAt }
func (r *SyncRun) FinishedAt() *time.Time { return r.finishedAt }
func (r *SyncRun) CreatedAt() time.Time   { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time   { return r.updatedAt }

func (r *SyncRun) SetID(id string) { r.id = id }
func (r *SyncRun) SetSequence(seq int) { r.sequence = seq }

// Finish records final counts and the completion time.
func (r *SyncRun) Finish(transferred, failed int) {
	now := time.Now().UTC()
	r.transferred = transferred
	r.failed = failed
	r.finishedAt = &now
	r.updatedAt = now
}

// Validate checks required fields before persistence.
func (r *SyncRun) Validate() error {
	if r.id == "" {
		return fmt.Errorf("sync run id is required")
	}
	if r.direction != "up" && r.direction != "down" {
		return fmt.Errorf("direction must be up or down, got %q", r.direction)
	}
	return nil
}
