package model

import "strings"

// Track represents one playable file record in the library index.
// A track belongs to exactly one playlist and is immutable once scanned;
// rescans replace the whole batch for a media type rather than patching
// individual fields.
type Track struct {
	ID          string    `json:"id"`
	PlaylistID  string    `json:"playlistId"`
	MediaType   MediaType `json:"mediaType"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	TrackNumber int       `json:"trackNumber"`
	SourceURI   string    `json:"sourceUri"`
}

// LocalPath returns the filesystem path behind SourceURI.
func (t *Track) LocalPath() string {
	return strings.TrimPrefix(t.SourceURI, "file://")
}
