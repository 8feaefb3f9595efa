package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
	"golang.org/x/time/rate"
)

// Client implements [Service] over the music service's HTTP API.
//
// All requests share a client-side rate limiter so bulk operations
// (library listings during sync, per-track uploads) stay under the
// service's request budget.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      string
	deviceID   string
}

// ClientOpts contains configuration options for creating a Client.
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second, 0 means default
	Timeout    time.Duration
	DeviceID   string
}

// NewClient creates a Client for the service at the configured base URL.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 60 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		deviceID:   opts.DeviceID,
	}
}

// Name returns the service name used in logs and CLI output.
func (c *Client) Name() string { return "Music Service" }

// Token returns the current auth token, empty when unauthenticated.
func (c *Client) Token() string { return c.token }

// SetToken installs a previously cached auth token.
func (c *Client) SetToken(token string) { c.token = token }

// trackDTO mirrors the service's track JSON.
type trackDTO struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Album          string `json:"album"`
	AlbumArtist    string `json:"albumArtist"`
	TrackNumber    int    `json:"trackNumber"`
	TotalTracks    int    `json:"totalTrackCount"`
	DiscNumber     int    `json:"discNumber"`
	TotalDiscs     int    `json:"totalDiscCount"`
	Year           int    `json:"year"`
	DurationMillis int64  `json:"durationMillis,string"`
	Rating         int    `json:"rating,string"`
	LastModified   int64  `json:"lastModifiedTimestamp,string"`
	SizeBytes      int64  `json:"estimatedSize,string"`
}

func (d trackDTO) toModel() models.Track {
	return models.Track{
		ID:             d.ID,
		Title:          d.Title,
		Artist:         d.Artist,
		Album:          d.Album,
		AlbumArtist:    d.AlbumArtist,
		TrackNumber:    d.TrackNumber,
		TotalTracks:    d.TotalTracks,
		DiscNumber:     d.DiscNumber,
		TotalDiscs:     d.TotalDiscs,
		Year:           d.Year,
		DurationMillis: d.DurationMillis,
		Rating:         d.Rating,
		LastModified:   d.LastModified,
		SizeBytes:      d.SizeBytes,
	}
}

// playlistDTO mirrors the service's playlist JSON.
type playlistDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Tracks []struct {
		TrackID string `json:"trackId"`
	} `json:"tracks"`
}

// Authenticate registers this device and obtains an auth token.
//
// credentials may carry "device_id" to override the configured one and
// "token" to resume a cached session without a round trip.
func (c *Client) Authenticate(ctx context.Context, credentials map[string]string) error {
	if token, ok := credentials["token"]; ok && token != "" {
		c.token = token
		return nil
	}

	deviceID := c.deviceID
	if id, ok := credentials["device_id"]; ok && id != "" {
		deviceID = id
	}
	if deviceID == "" {
		return fmt.Errorf("%w: device_id required", shared.ErrMissingCredentials)
	}

	body, err := json.Marshal(map[string]string{"device_id": deviceID})
	if err != nil {
		return fmt.Errorf("failed to marshal auth request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/device", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}
	if payload.Token == "" {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	c.token = payload.Token
	return nil
}

// VerifyAuth checks the stored token against the service.
func (c *Client) VerifyAuth(ctx context.Context) error {
	if c.token == "" {
		return shared.ErrNotAuthenticated
	}

	resp, err := c.do(ctx, http.MethodGet, "/auth/status", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return shared.ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}

// ListTracks retrieves the full remote library.
func (c *Client) ListTracks(ctx context.Context) ([]models.Track, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/library/tracks", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var payload struct {
		Tracks []trackDTO `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode track list: %w", err)
	}

	tracks := make([]models.Track, len(payload.Tracks))
	for i, dto := range payload.Tracks {
		tracks[i] = dto.toModel()
	}
	return tracks, nil
}

// ListPlaylists retrieves all user playlists with their ordered track ids.
func (c *Client) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/library/playlists", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var payload struct {
		Playlists []playlistDTO `json:"playlists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode playlist list: %w", err)
	}

	playlists := make([]models.Playlist, len(payload.Playlists))
	for i, dto := range payload.Playlists {
		ids := make([]string, len(dto.Tracks))
		for j, entry := range dto.Tracks {
			ids[j] = entry.TrackID
		}
		playlists[i] = models.Playlist{ID: dto.ID, Name: dto.Name, TrackIDs: ids}
	}
	return playlists, nil
}

// DownloadTrack streams a track's audio to destPath.
//
// The body is written to a temp file in the destination directory and
// renamed into place, so a partial download never looks like a finished
// song to a later sync.
func (c *Client) DownloadTrack(ctx context.Context, trackID, destPath string, onProgress func(written, total int64)) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/tracks/"+trackID+"/download", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", shared.ErrDownloadFailed, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".gmsync-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	if onProgress != nil {
		w = &progressWriter{writer: tmp, total: resp.ContentLength, onUpdate: onProgress}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// UploadTrack uploads a local song as multipart form data with a JSON
// metadata part. Returns the remote id assigned by the service.
func (c *Client) UploadTrack(ctx context.Context, song models.LocalSong, match bool) (string, error) {
	f, err := os.Open(song.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", song.Path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	meta, err := json.Marshal(map[string]any{
		"title":       song.Track.Title,
		"artist":      song.Track.Artist,
		"album":       song.Track.Album,
		"trackNumber": song.Track.TrackNumber,
		"year":        song.Track.Year,
		"match":       match,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return "", fmt.Errorf("failed to write metadata part: %w", err)
	}

	part, err := mw.CreateFormFile("audio", filepath.Base(song.Path))
	if err != nil {
		return "", fmt.Errorf("failed to create audio part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", song.Path, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/tracks/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", shared.ErrUploadFailed, resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return payload.ID, nil
}

// do waits on the rate limiter, then issues a request with auth headers set.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// progressWriter reports bytes written through an underlying writer.
type progressWriter struct {
	writer   io.Writer
	total    int64
	written  int64
	onUpdate func(written, total int64)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.onUpdate != nil {
		pw.onUpdate(pw.written, pw.total)
	}
	return n, err
}
