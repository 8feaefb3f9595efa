package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/gmsync/internal/library"
	"github.com/desertthunder/gmsync/internal/models"
	tu "github.com/desertthunder/gmsync/internal/testing"
)

func remoteLibrary() []models.Track {
	return []models.Track{
		{ID: "t1", Title: "Starlight", Artist: "Muse", Album: "Black Holes", TrackNumber: 2, Rating: 5, LastModified: 200},
		{ID: "t2", Title: "Madness", Artist: "Muse", Album: "The 2nd Law", TrackNumber: 1, Rating: 0, LastModified: 100},
	}
}

func libraryService() *tu.MockService {
	return &tu.MockService{
		ListTracksFunc: func(ctx context.Context) ([]models.Track, error) {
			return remoteLibrary(), nil
		},
	}
}

func TestEngineDown(t *testing.T) {
	t.Run("downloads missing songs", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)

		result, err := engine.Down(context.Background(), nil, DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			Workers:    2,
			ModifyTags: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Downloaded != 2 {
			t.Errorf("expected 2 downloads, got %d", result.Downloaded)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "Muse", "Black Holes", "Starlight.mp3"))
		tu.AssertFileExists(t, filepath.Join(dir, "Muse", "The 2nd Law", "Madness.mp3"))
	})

	t.Run("skips songs already present", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)
		opts := DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			ModifyTags: true,
		}

		if _, err := engine.Down(context.Background(), nil, opts); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}

		result, err := engine.Down(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("second sync failed: %v", err)
		}

		if result.Downloaded != 0 {
			t.Errorf("expected 0 downloads on second sync, got %d", result.Downloaded)
		}
	})

	t.Run("dry run lists without downloading", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)

		result, err := engine.Down(context.Background(), nil, DownOpts{
			Template: filepath.Join(dir, "%artist%", "%album%", "%title%"),
			DryRun:   true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.Missing) != 2 {
			t.Errorf("expected 2 missing songs, got %d", len(result.Missing))
		}
		if result.Downloaded != 0 {
			t.Errorf("expected no downloads in dry run, got %d", result.Downloaded)
		}
		if _, err := os.Stat(filepath.Join(dir, "Muse")); !os.IsNotExist(err) {
			t.Error("dry run should not create files")
		}
	})

	t.Run("include filters restrict downloads", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)

		include := mustFilters(t, "album:Black Holes")
		result, err := engine.Down(context.Background(), nil, DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			Include:    include,
			ModifyTags: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Downloaded != 1 {
			t.Errorf("expected 1 download, got %d", result.Downloaded)
		}
		if _, err := os.Stat(filepath.Join(dir, "Muse", "The 2nd Law", "Madness.mp3")); !os.IsNotExist(err) {
			t.Error("filtered song should not be downloaded")
		}
	})

	t.Run("counts failed downloads", func(t *testing.T) {
		dir := t.TempDir()
		svc := libraryService()
		svc.DownloadTrackFunc = func(ctx context.Context, trackID, destPath string, onProgress func(written, total int64)) error {
			if trackID == "t2" {
				return errors.New("boom")
			}
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return err
			}
			return os.WriteFile(destPath, tu.StubMP3(), 0644)
		}
		engine := NewEngine(svc, nil, nil)

		result, err := engine.Down(context.Background(), nil, DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			ModifyTags: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Downloaded != 1 || result.Failed != 1 {
			t.Errorf("expected 1 downloaded and 1 failed, got %d and %d", result.Downloaded, result.Failed)
		}
	})

	t.Run("relocates removed songs preserving layout", func(t *testing.T) {
		dir := t.TempDir()
		removed := filepath.Join(dir, "..", "removed")
		engine := NewEngine(libraryService(), nil, nil)
		opts := DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			ModifyTags: true,
			RemovedDir: removed,
		}

		if _, err := engine.Down(context.Background(), nil, opts); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}

		// A song the library no longer has.
		strayDir := filepath.Join(dir, "Muse", "Old Album")
		if err := os.MkdirAll(strayDir, 0o755); err != nil {
			t.Fatalf("failed to create stray directory: %v", err)
		}
		stray := filepath.Join(strayDir, "stray.mp3")
		if err := os.WriteFile(stray, tu.StubMP3(), 0644); err != nil {
			t.Fatalf("failed to write stray song: %v", err)
		}

		result, err := engine.Down(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("second sync failed: %v", err)
		}

		if result.Relocated != 1 {
			t.Errorf("expected 1 relocated song, got %d", result.Relocated)
		}
		tu.AssertFileExists(t, filepath.Join(removed, "Old Album", "stray.mp3"))
		if _, err := os.Stat(strayDir); !os.IsNotExist(err) {
			t.Error("expected emptied stray directory to be pruned")
		}
	})

	t.Run("removed dir tolerates an absent base", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(&tu.MockService{}, nil, nil)

		// Empty remote library, nothing ever downloaded: the base
		// directory was never created.
		result, err := engine.Down(context.Background(), nil, DownOpts{
			Template:   filepath.Join(dir, "library", "%artist%", "%title%"),
			RemovedDir: filepath.Join(dir, "removed"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Relocated != 0 {
			t.Errorf("expected no relocations, got %d", result.Relocated)
		}
	})

	t.Run("cancelled context aborts the sync", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Down(ctx, nil, DownOpts{
			Template: filepath.Join(dir, "%artist%", "%title%"),
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		dir := t.TempDir()
		engine := NewEngine(libraryService(), nil, nil)

		progress := make(chan ProgressUpdate, 100)
		_, err := engine.Down(context.Background(), progress, DownOpts{
			Template:   filepath.Join(dir, "%artist%", "%album%", "%title%"),
			ModifyTags: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		phases := make(map[Phase]bool)
		for update := range progress {
			phases[update.Phase] = true
		}
		for _, want := range []Phase{FetchLibrary, Compare, Download, Done} {
			if !phases[want] {
				t.Errorf("expected a %s progress update", want)
			}
		}
	})

	t.Run("nil service errors", func(t *testing.T) {
		engine := NewEngine(nil, nil, nil)
		if _, err := engine.Down(context.Background(), nil, DownOpts{}); err == nil {
			t.Error("expected error with nil service")
		}
	})
}

func TestEngineDownPlaylists(t *testing.T) {
	dir := t.TempDir()
	playlistsDir := filepath.Join(dir, "playlists")

	svc := libraryService()
	svc.ListPlaylistsFunc = func(ctx context.Context) ([]models.Playlist, error) {
		return []models.Playlist{
			{ID: "p1", Name: "Driving", TrackIDs: []string{"t2", "t1"}},
		}, nil
	}

	engine := NewEngine(svc, nil, nil)
	result, err := engine.Down(context.Background(), nil, DownOpts{
		Template:     filepath.Join(dir, "music", "%artist%", "%title%"),
		ModifyTags:   true,
		PlaylistsDir: playlistsDir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One remote playlist plus the favorites playlist.
	if result.Playlists != 2 {
		t.Errorf("expected 2 playlist files, got %d", result.Playlists)
	}

	content := tu.MustReadFile(t, filepath.Join(playlistsDir, "Driving.m3u"))
	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("expected extended M3U header")
	}
	if !strings.Contains(content, filepath.Join("..", "music", "Muse", "Madness.mp3")) {
		t.Errorf("expected relative song path in playlist, got:\n%s", content)
	}

	// Ordering follows the playlist, not the library.
	if strings.Index(content, "Madness") > strings.Index(content, "Starlight") {
		t.Error("expected playlist order to be preserved")
	}

	favorites := tu.MustReadFile(t, filepath.Join(playlistsDir, DefaultFavoritesName+".m3u"))
	if !strings.Contains(favorites, "Starlight") {
		t.Error("expected thumbs-up song in favorites playlist")
	}
	if strings.Contains(favorites, "Madness") {
		t.Error("unrated song should not be in favorites")
	}
}

func TestEngineUp(t *testing.T) {
	writeLocal := func(t *testing.T, dir, name string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, tu.StubMP3(), 0644); err != nil {
			t.Fatalf("failed to write song: %v", err)
		}
		return path
	}

	t.Run("uploads missing songs", func(t *testing.T) {
		dir := t.TempDir()
		writeLocal(t, dir, "one.mp3")
		writeLocal(t, dir, "two.mp3")

		var mu sync.Mutex
		var uploaded []string
		svc := &tu.MockService{
			UploadTrackFunc: func(ctx context.Context, song models.LocalSong, match bool) (string, error) {
				mu.Lock()
				defer mu.Unlock()
				uploaded = append(uploaded, filepath.Base(song.Path))
				return fmt.Sprintf("id-%d", len(uploaded)), nil
			},
		}

		engine := NewEngine(svc, nil, nil)
		result, err := engine.Up(context.Background(), nil, UpOpts{
			Inputs:   []string{dir},
			MaxDepth: -1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Uploaded != 2 {
			t.Errorf("expected 2 uploads, got %d", result.Uploaded)
		}
		if len(uploaded) != 2 {
			t.Errorf("expected service to see 2 songs, got %d", len(uploaded))
		}
	})

	t.Run("dry run scans without uploading", func(t *testing.T) {
		dir := t.TempDir()
		writeLocal(t, dir, "one.mp3")

		svc := &tu.MockService{
			UploadTrackFunc: func(ctx context.Context, song models.LocalSong, match bool) (string, error) {
				t.Error("dry run should not upload")
				return "", nil
			},
		}

		engine := NewEngine(svc, nil, nil)
		result, err := engine.Up(context.Background(), nil, UpOpts{
			Inputs:   []string{dir},
			MaxDepth: -1,
			DryRun:   true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.ToUpload) != 1 {
			t.Errorf("expected 1 song to upload, got %d", len(result.ToUpload))
		}
	})

	t.Run("exclude filters partition songs", func(t *testing.T) {
		dir := t.TempDir()
		writeLocal(t, dir, "keep.mp3")
		writeLocal(t, dir, "skip.mp3")

		engine := NewEngine(&tu.MockService{}, nil, nil)
		result, err := engine.Up(context.Background(), nil, UpOpts{
			Inputs:   []string{dir},
			MaxDepth: -1,
			Exclude:  mustFilters(t, "title:skip"),
			DryRun:   true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(result.ToUpload) != 1 || len(result.Excluded) != 1 {
			t.Errorf("expected 1 to upload and 1 excluded, got %d and %d", len(result.ToUpload), len(result.Excluded))
		}
	})

	t.Run("delete on success removes local songs", func(t *testing.T) {
		dir := t.TempDir()
		path := writeLocal(t, dir, "one.mp3")

		engine := NewEngine(&tu.MockService{}, nil, nil)
		result, err := engine.Up(context.Background(), nil, UpOpts{
			Inputs:          []string{dir},
			MaxDepth:        -1,
			DeleteOnSuccess: true,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Deleted != 1 {
			t.Errorf("expected 1 deleted song, got %d", result.Deleted)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected uploaded song to be deleted")
		}
	})

	t.Run("cancelled context aborts the sync", func(t *testing.T) {
		dir := t.TempDir()
		writeLocal(t, dir, "one.mp3")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewEngine(&tu.MockService{}, nil, nil)
		_, err := engine.Up(ctx, nil, UpOpts{
			Inputs:   []string{dir},
			MaxDepth: -1,
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("counts failed uploads", func(t *testing.T) {
		dir := t.TempDir()
		writeLocal(t, dir, "one.mp3")

		svc := &tu.MockService{
			UploadTrackFunc: func(ctx context.Context, song models.LocalSong, match bool) (string, error) {
				return "", errors.New("boom")
			},
		}

		engine := NewEngine(svc, nil, nil)
		result, err := engine.Up(context.Background(), nil, UpOpts{
			Inputs:   []string{dir},
			MaxDepth: -1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Uploaded != 0 || result.Failed != 1 {
			t.Errorf("expected 0 uploaded and 1 failed, got %d and %d", result.Uploaded, result.Failed)
		}
	})
}

func mustFilters(t *testing.T, exprs ...string) []library.FieldFilter {
	t.Helper()
	filters, err := library.ParseFilters(exprs)
	if err != nil {
		t.Fatalf("failed to parse filters: %v", err)
	}
	return filters
}
