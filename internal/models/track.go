package models

// Track represents a song's metadata as reported by the music service or
// read from a local file's tags.
type Track struct {
	ID             string // remote track id, empty for purely local songs
	Title          string
	Artist         string
	Album          string
	AlbumArtist    string
	TrackNumber    int
	TotalTracks    int
	DiscNumber     int
	TotalDiscs     int
	Year           int
	DurationMillis int64
	Rating         int   // 0-5, thumbs up is > 3
	LastModified   int64 // service timestamp in microseconds
	SizeBytes      int64
}

// DurationSeconds returns the track duration rounded down to whole seconds.
func (t Track) DurationSeconds() int {
	return int(t.DurationMillis / 1000)
}

// Label renders the track as "Artist - Title" for playlists and logs,
// substituting placeholders for missing fields.
func (t Track) Label() string {
	artist := t.Artist
	if artist == "" {
		artist = "Unknown Artist"
	}
	title := t.Title
	if title == "" {
		title = "Unknown Title"
	}
	return artist + " - " + title
}

// Playlist represents a remote playlist with its ordered track ids.
type Playlist struct {
	ID       string
	Name     string
	TrackIDs []string
}

// LocalSong pairs a file on disk with the metadata read from its tags.
type LocalSong struct {
	Path      string
	SizeBytes int64
	Track     Track
}
