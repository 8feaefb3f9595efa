package tasks

import (
	"fmt"

	"github.com/desertthunder/gmsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibrary Phase = iota
	ScanLocal
	Compare
	Download
	Relocate
	Playlists
	Favorites
	Upload
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchLibrary:
		return "fetch_library"
	case ScanLocal:
		return "scan_local"
	case Compare:
		return "compare"
	case Download:
		return "download"
	case Relocate:
		return "relocate"
	case Playlists:
		return "playlists"
	case Favorites:
		return "favorites"
	case Upload:
		return "upload"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchLibraryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    1,
		Total:   1,
		Message: "Fetching library songs...",
	}
}

func scanLocalUpdate(base string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanLocal,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scanning local songs under %s...", base),
	}
}

func compareUpdate(missing int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d song(s) to transfer", missing),
		Data:    missing,
	}
}

func downloadUpdate(step, total int, t models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Download,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, t.Label()),
		Data:    t,
	}
}

func relocateUpdate(step, total int, relPath string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Relocate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removing %s", relPath),
	}
}

func playlistUpdate(step, total int, name string, trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Playlists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Playlist (%d tracks): %s", trackCount, name),
	}
}

func favoritesUpdate(name string, trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Favorites,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Favorites (%d tracks): %s", trackCount, name),
	}
}

func uploadUpdate(step, total int, song models.LocalSong) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, song.Track.Label()),
		Data:    song,
	}
}

func doneUpdate(message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: message,
	}
}
