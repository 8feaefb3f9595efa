package library

import (
	"fmt"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/gmsync/internal/models"
)

// WriteTags writes remote metadata into a downloaded file's ID3 tags so
// later scans compare on the same fields the service reported.
func WriteTags(path string, t models.Track) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", path, err)
	}
	defer tag.Close()

	if t.Title != "" {
		tag.SetTitle(t.Title)
	}
	if t.Artist != "" {
		tag.SetArtist(t.Artist)
	}
	if t.Album != "" {
		tag.SetAlbum(t.Album)
	}
	if t.AlbumArtist != "" {
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, t.AlbumArtist)
	}
	if t.Year > 0 {
		tag.SetYear(fmt.Sprintf("%d", t.Year))
	}
	if t.TrackNumber > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, numberPair(t.TrackNumber, t.TotalTracks))
	}
	if t.DiscNumber > 0 {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, numberPair(t.DiscNumber, t.TotalDiscs))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags for %s: %w", path, err)
	}
	return nil
}

func numberPair(n, total int) string {
	if total > 0 {
		return fmt.Sprintf("%d/%d", n, total)
	}
	return fmt.Sprintf("%d", n)
}
