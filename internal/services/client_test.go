package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientOpts{BaseURL: server.URL, RateLimit: 1000, DeviceID: "00:11:22:33:44:55"})
}

func TestClientAuthenticate(t *testing.T) {
	t.Run("device auth obtains token", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/device" || r.Method != http.MethodPost {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			fmt.Fprint(w, `{"token": "tok123"}`)
		})

		if err := client.Authenticate(context.Background(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Token() != "tok123" {
			t.Errorf("expected token 'tok123', got %q", client.Token())
		}
	})

	t.Run("cached token short-circuits", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected with a cached token")
		})

		if err := client.Authenticate(context.Background(), map[string]string{"token": "cached"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client.Token() != "cached" {
			t.Errorf("expected cached token, got %q", client.Token())
		}
	})

	t.Run("missing device id", func(t *testing.T) {
		client := NewClient(ClientOpts{BaseURL: "http://localhost:1"})
		err := client.Authenticate(context.Background(), nil)
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("auth failure status", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})

		err := client.Authenticate(context.Background(), nil)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestClientVerifyAuth(t *testing.T) {
	t.Run("without token", func(t *testing.T) {
		client := NewClient(ClientOpts{})
		if err := client.VerifyAuth(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		client.SetToken("stale")

		if err := client.VerifyAuth(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("valid token sends bearer header", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
				t.Errorf("expected bearer header, got %q", got)
			}
			fmt.Fprint(w, `{"status": "ok"}`)
		})
		client.SetToken("tok123")

		if err := client.VerifyAuth(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestClientListTracks(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/library/tracks" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"tracks": [
			{
				"id": "t1",
				"title": "Starlight",
				"artist": "Muse",
				"album": "Black Holes and Revelations",
				"trackNumber": 2,
				"totalTrackCount": 11,
				"year": 2006,
				"durationMillis": "240000",
				"rating": "5",
				"lastModifiedTimestamp": "1700000000000000",
				"estimatedSize": "9600000"
			}
		]}`)
	})

	tracks, err := client.ListTracks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	track := tracks[0]
	if track.Title != "Starlight" || track.Artist != "Muse" {
		t.Errorf("unexpected metadata: %+v", track)
	}
	if track.DurationMillis != 240000 {
		t.Errorf("expected string-encoded duration to parse, got %d", track.DurationMillis)
	}
	if track.Rating != 5 {
		t.Errorf("expected rating 5, got %d", track.Rating)
	}
	if track.SizeBytes != 9600000 {
		t.Errorf("expected size 9600000, got %d", track.SizeBytes)
	}
	if track.DurationSeconds() != 240 {
		t.Errorf("expected 240 seconds, got %d", track.DurationSeconds())
	}
}

func TestClientListPlaylists(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/library/playlists" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"playlists": [
			{"id": "p1", "name": "Driving", "tracks": [{"trackId": "t2"}, {"trackId": "t1"}]}
		]}`)
	})

	playlists, err := client.ListPlaylists(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(playlists) != 1 {
		t.Fatalf("expected 1 playlist, got %d", len(playlists))
	}
	if playlists[0].Name != "Driving" {
		t.Errorf("expected name 'Driving', got %s", playlists[0].Name)
	}
	if len(playlists[0].TrackIDs) != 2 || playlists[0].TrackIDs[0] != "t2" {
		t.Errorf("expected ordered track ids, got %v", playlists[0].TrackIDs)
	}
}

func TestClientDownloadTrack(t *testing.T) {
	t.Run("writes audio to destination", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tracks/t1/download" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte("audio-bytes"))
		})

		dest := filepath.Join(t.TempDir(), "Muse", "Starlight.mp3")
		if err := client.DownloadTrack(context.Background(), "t1", dest, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(dest)
		if err != nil {
			t.Fatalf("failed to read download: %v", err)
		}
		if string(data) != "audio-bytes" {
			t.Errorf("unexpected content: %q", data)
		}

		// No temp files left behind.
		entries, _ := os.ReadDir(filepath.Dir(dest))
		if len(entries) != 1 {
			t.Errorf("expected only the song file, found %d entries", len(entries))
		}
	})

	t.Run("reports progress", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("audio-bytes"))
		})

		var lastWritten int64
		dest := filepath.Join(t.TempDir(), "song.mp3")
		err := client.DownloadTrack(context.Background(), "t1", dest, func(written, total int64) {
			lastWritten = written
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lastWritten != int64(len("audio-bytes")) {
			t.Errorf("expected %d bytes reported, got %d", len("audio-bytes"), lastWritten)
		}
	})

	t.Run("missing track", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		dest := filepath.Join(t.TempDir(), "song.mp3")
		err := client.DownloadTrack(context.Background(), "gone", dest, nil)
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})
}

func TestClientUploadTrack(t *testing.T) {
	t.Run("multipart upload returns id", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/tracks/upload" || r.Method != http.MethodPost {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			meta := r.FormValue("metadata")
			if meta == "" {
				t.Error("expected metadata part")
			}
			file, _, err := r.FormFile("audio")
			if err != nil {
				t.Fatalf("expected audio part: %v", err)
			}
			file.Close()
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "remote42"}`)
		})

		path := filepath.Join(t.TempDir(), "song.mp3")
		if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
			t.Fatalf("failed to write song: %v", err)
		}

		song := models.LocalSong{Path: path, Track: models.Track{Title: "Starlight", Artist: "Muse"}}
		id, err := client.UploadTrack(context.Background(), song, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "remote42" {
			t.Errorf("expected id 'remote42', got %q", id)
		}
	})

	t.Run("server rejection", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInsufficientStorage)
		})

		path := filepath.Join(t.TempDir(), "song.mp3")
		if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
			t.Fatalf("failed to write song: %v", err)
		}

		_, err := client.UploadTrack(context.Background(), models.LocalSong{Path: path}, false)
		if !errors.Is(err, shared.ErrUploadFailed) {
			t.Errorf("expected ErrUploadFailed, got %v", err)
		}
	})

	t.Run("missing local file", func(t *testing.T) {
		client := NewClient(ClientOpts{})
		if _, err := client.UploadTrack(context.Background(), models.LocalSong{Path: "/nonexistent.mp3"}, false); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
