package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// TrackRepository implements models.Repository[*models.PersistedTrack] for the track cache.
//
// Tracks are cached on every sync so later runs can answer "what did the
// last sync see, and where did it put it" without hitting the service.
// Rows are unique per remote id; soft deletes keep history around.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.SetID(shared.GenerateID())
	track.SetSequence(sequence)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO tracks (id, sequence, remote_id, title, artist, album, track_number, year, local_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		track.ID(),
		track.Sequence(),
		track.RemoteID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.TrackNumber(),
		track.Year(),
		track.LocalPath(),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, remote_id, title, artist, album, track_number, year, local_path, created_at, updated_at, deleted_at
		FROM tracks
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByRemoteID retrieves a track by its remote id
func (r *TrackRepository) GetByRemoteID(remoteID string) (*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, remote_id, title, artist, album, track_number, year, local_path, created_at, updated_at, deleted_at
		FROM tracks
		WHERE remote_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, remoteID))
}

// Update modifies an existing track in the database
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, track_number = ?, year = ?, local_path = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		track.Album(),
		track.TrackNumber(),
		track.Year(),
		track.LocalPath(),
		time.Now().UTC(),
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found: %s", track.ID())
	}

	return nil
}

// Delete soft-deletes a track by setting deleted_at
func (r *TrackRepository) Delete(id string) error {
	query := `UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found: %s", id)
	}

	return nil
}

// List retrieves tracks matching the given criteria.
// Supported criteria: "artist", "album" (exact match). Nil or empty
// criteria lists all cached tracks, newest first.
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := `
		SELECT id, sequence, remote_id, title, artist, album, track_number, year, local_path, created_at, updated_at, deleted_at
		FROM tracks
		WHERE deleted_at IS NULL
	`
	var args []any

	for _, field := range []string{"artist", "album"} {
		if value, ok := criteria[field]; ok {
			query += fmt.Sprintf(" AND %s = ?", field)
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// Clear soft-deletes every cached track and returns the number cleared.
func (r *TrackRepository) Clear() (int, error) {
	result, err := r.db.Exec(`UPDATE tracks SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clear tracks: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check clear result: %w", err)
	}
	return int(rows), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TrackRepository) scanOne(row *sql.Row) (*models.PersistedTrack, error) {
	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track not found")
	}
	return track, err
}

func scanTrack(row rowScanner) (*models.PersistedTrack, error) {
	var id, remoteID, title string
	var artist, album, localPath sql.NullString
	var sequence, trackNum, year int
	var createdAt, updatedAt time.Time
	var deletedAt sql.NullTime

	err := row.Scan(&id, &sequence, &remoteID, &title, &artist, &album, &trackNum, &year, &localPath, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestorePersistedTrack(id, sequence, remoteID, title, artist.String, album.String, trackNum, year, localPath.String, createdAt, updatedAt, deleted), nil
}
