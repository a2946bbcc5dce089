// package formatter provides functions to export scrobble history to various formats (CSV, JSON, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
)

// ExportToCSV converts scrobbles to CSV format with columns: Time, Artist, Track, Album, Duration, TrackMBID
func ExportToCSV(scrobbles []models.Scrobble) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Time", "Artist", "Track", "Album", "Duration", "TrackMBID"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range scrobbles {
		album := ""
		if s.Track.Album != nil {
			album = s.Track.Album.Name
		}
		record := []string{
			s.Time.UTC().Format(time.RFC3339),
			s.Track.Artist.Name,
			s.Track.Name,
			album,
			shared.FormatDuration(s.Track.Length),
			s.Track.MBID.String(),
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

// scrobbleDoc is the JSON export shape for a single listening event.
type scrobbleDoc struct {
	Time     string `json:"time"`
	Artist   string `json:"artist"`
	Track    string `json:"track"`
	Album    string `json:"album,omitempty"`
	Seconds  int    `json:"seconds"`
	TrackID  string `json:"track_mbid"`
	ArtistID string `json:"artist_mbid"`
}

// ExportToJSON converts scrobbles to an indented JSON array.
func ExportToJSON(scrobbles []models.Scrobble) ([]byte, error) {
	docs := make([]scrobbleDoc, 0, len(scrobbles))
	for _, s := range scrobbles {
		doc := scrobbleDoc{
			Time:     s.Time.UTC().Format(time.RFC3339),
			Artist:   s.Track.Artist.Name,
			Track:    s.Track.Name,
			Seconds:  int(s.Track.Length / time.Second),
			TrackID:  s.Track.MBID.String(),
			ArtistID: s.Track.Artist.MBID.String(),
		}
		if s.Track.Album != nil {
			doc.Album = s.Track.Album.Name
		}
		docs = append(docs, doc)
	}
	return shared.MarshalJSON(docs, true)
}

// ExportToMarkdown converts scrobbles to a Markdown listening log.
func ExportToMarkdown(user string, scrobbles []models.Scrobble) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Listening history for %s\n\n", user))
	buf.WriteString(fmt.Sprintf("**Scrobbles**: %d\n\n", len(scrobbles)))

	buf.WriteString("## Scrobbles\n\n")
	for i, s := range scrobbles {
		albumPart := ""
		if s.Track.Album != nil {
			albumPart = fmt.Sprintf(" (%s)", s.Track.Album.Name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s] at %s\n",
			i+1, s.Track.Artist.Name, s.Track.Name, albumPart,
			shared.FormatDuration(s.Track.Length),
			s.Time.UTC().Format("2006-01-02 15:04")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts scrobbles to plain text format
func ExportToText(user string, scrobbles []models.Scrobble) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("User: %s\n", user))
	buf.WriteString(fmt.Sprintf("Scrobbles: %d\n\n", len(scrobbles)))

	for i, s := range scrobbles {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, s.Track.Artist.Name, s.Track.Name))
	}

	return buf.Bytes(), nil
}

// WriteExport renders scrobbles in the requested format and writes the result to filepath.
//
// Format is one of json, csv, markdown, txt. The filename defaults to
// {user}_scrobbles.{ext} in the working directory.
func WriteExport(user string, scrobbles []models.Scrobble, format, filepath string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case "csv":
		data, err = ExportToCSV(scrobbles)
		ext = "csv"
	case "json", "":
		data, err = ExportToJSON(scrobbles)
		ext = "json"
	case "markdown", "md":
		data, err = ExportToMarkdown(user, scrobbles)
		ext = "md"
	case "txt", "text":
		data, err = ExportToText(user, scrobbles)
		ext = "txt"
	default:
		return "", fmt.Errorf("%w: unsupported format '%s'", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if filepath == "" {
		filepath = fmt.Sprintf("%s_scrobbles.%s", user, ext)
	}
	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return filepath, nil
}
