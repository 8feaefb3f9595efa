package services

import (
	"context"

	"github.com/desertthunder/gmsync/internal/models"
)

// Service defines the operations the sync engine needs from the music
// service: library listings, playlist listings, and track transfer.
type Service interface {
	// Authenticate performs device authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// ListTracks retrieves the full remote library, including ratings and
	// modification timestamps.
	ListTracks(ctx context.Context) ([]models.Track, error)

	// ListPlaylists retrieves all user playlists with ordered track ids.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// DownloadTrack streams a track's audio to destPath. onProgress, when
	// non-nil, is called with (bytesWritten, totalBytes) as data arrives.
	DownloadTrack(ctx context.Context, trackID, destPath string, onProgress func(written, total int64)) error

	// UploadTrack uploads a local song's audio and metadata.
	// When match is set the service may resolve the song by fingerprint
	// instead of storing the bytes.
	UploadTrack(ctx context.Context, song models.LocalSong, match bool) (string, error)

	// Name returns the name of the service for logs and output.
	Name() string
}
