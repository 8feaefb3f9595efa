package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/gmsync/internal/models"
)

// ExportTracksCSV converts tracks to CSV with columns:
// ID, Title, Artist, Album, TrackNumber, Year, Duration.
func ExportTracksCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "TrackNumber", "Year", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range tracks {
		record := []string{
			t.ID,
			t.Title,
			t.Artist,
			t.Album,
			strconv.Itoa(t.TrackNumber),
			strconv.Itoa(t.Year),
			strconv.Itoa(t.DurationSeconds()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteTracksCSV writes the CSV report for tracks to path.
func WriteTracksCSV(tracks []models.Track, path string) error {
	data, err := ExportTracksCSV(tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
