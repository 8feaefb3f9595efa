package repositories

import (
	"fmt"
	"strings"

	"github.com/desertthunder/gmsync/internal/models"
)

// TrackCache adapts [TrackRepository] to the engine's cache interface.
// Successful transfers are recorded here keyed by remote id, so the
// cache stays idempotent across repeated syncs.
type TrackCache struct {
	tracks *TrackRepository
}

// NewTrackCache creates a TrackCache backed by the given repository
func NewTrackCache(tracks *TrackRepository) *TrackCache {
	return &TrackCache{tracks: tracks}
}

// CacheTrack upserts a track row by remote id. Existing rows get their
// metadata and local path refreshed instead of a duplicate insert.
func (c *TrackCache) CacheTrack(track models.Track, localPath string) error {
	if track.ID == "" {
		return fmt.Errorf("track has no remote id")
	}

	existing, err := c.tracks.GetByRemoteID(track.ID)
	if err == nil {
		existing.SetLocalPath(localPath)
		return c.tracks.Update(existing)
	}

	row := models.NewPersistedTrack(0, track, localPath)
	if err := c.tracks.Create(row); err != nil {
		// Concurrent workers can race the lookup; the unique index on
		// remote_id makes the second insert lose, which is fine.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil
		}
		return err
	}
	return nil
}
