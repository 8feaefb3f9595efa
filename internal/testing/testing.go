// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/gmsync/internal/models"
)

// MockService is a configurable test double for [services.Service].
// Unset function fields fall back to empty successful responses.
type MockService struct {
	AuthenticateFunc  func(ctx context.Context, credentials map[string]string) error
	ListTracksFunc    func(ctx context.Context) ([]models.Track, error)
	ListPlaylistsFunc func(ctx context.Context) ([]models.Playlist, error)
	DownloadTrackFunc func(ctx context.Context, trackID, destPath string, onProgress func(written, total int64)) error
	UploadTrackFunc   func(ctx context.Context, song models.LocalSong, match bool) (string, error)
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, credentials)
	}
	return nil
}

func (m *MockService) ListTracks(ctx context.Context) ([]models.Track, error) {
	if m.ListTracksFunc != nil {
		return m.ListTracksFunc(ctx)
	}
	return []models.Track{}, nil
}

func (m *MockService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.ListPlaylistsFunc != nil {
		return m.ListPlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockService) DownloadTrack(ctx context.Context, trackID, destPath string, onProgress func(written, total int64)) error {
	if m.DownloadTrackFunc != nil {
		return m.DownloadTrackFunc(ctx, trackID, destPath, onProgress)
	}
	// The real client creates parent directories before writing.
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, StubMP3(), 0644)
}

func (m *MockService) UploadTrack(ctx context.Context, song models.LocalSong, match bool) (string, error) {
	if m.UploadTrackFunc != nil {
		return m.UploadTrackFunc(ctx, song, match)
	}
	return "uploaded-" + song.Path, nil
}

func (m *MockService) Name() string { return "mock" }

// StubMP3 returns bytes standing in for a tagless MP3 file: an MPEG frame
// sync pair followed by padding. Large enough for ID3 header parsing, so
// tags can be read from and written to files built from it.
func StubMP3() []byte {
	b := make([]byte, 256)
	b[0], b[1] = 0xFF, 0xFB
	return b
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustWriteFile writes a file, creating parent directories as needed.
func MustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
