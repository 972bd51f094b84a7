// Package meta defines the metadata-extraction contract the scanner and the
// playback session depend on, plus the tag-reader-backed default
// implementation.
package meta

import (
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// ErrNoTitle marks a file whose tags decoded but carry no usable title.
// Title is the only hard requirement of extraction; a file without one is an
// extraction failure even when other fields decoded.
var ErrNoTitle = errors.New("no title found in metadata")

// ChapterMarker is one chapter boundary read from a file's embedded chapter
// frames.
type ChapterMarker struct {
	ID           int
	Title        string
	StartTimeSec int
}

// Metadata is the result of a successful extraction.
type Metadata struct {
	Title    string
	Artist   string
	Chapters []ChapterMarker
}

// Extractor retrieves title, artist and chapter markers from an audio file.
// Implementations are stateless and may be slow; callers must keep
// extraction off latency-sensitive paths.
type Extractor interface {
	Extract(path string) (*Metadata, error)
}

// TagExtractor reads metadata through the tag library. It covers ID3v1/v2,
// MP4 and Vorbis comments. Chapter frames are not exposed by the tag
// reader, so it returns no markers; multi-chapter single-file playlists
// still navigate correctly through the per-file fallback.
type TagExtractor struct{}

// NewTagExtractor creates a TagExtractor.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

// Extract opens the file and reads its tags. Returns ErrNoTitle when the
// tags carry no title.
func (e *TagExtractor) Extract(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for metadata extraction: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags from %s: %w", path, err)
	}

	if m.Title() == "" {
		return nil, ErrNoTitle
	}

	return &Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
	}, nil
}
