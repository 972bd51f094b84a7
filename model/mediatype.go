package model

import (
	"fmt"
	"strings"
)

// MediaType identifies one of the media categories the library manages.
// Each type maps to a fixed directory name under the media root.
type MediaType string

const (
	MediaTypeAudiobooks MediaType = "AUDIOBOOKS"
	MediaTypePodcasts   MediaType = "PODCASTS"
	MediaTypeMusic      MediaType = "MUSIC"
)

// AllMediaTypes lists every supported media type in scan order.
var AllMediaTypes = []MediaType{MediaTypeAudiobooks, MediaTypePodcasts, MediaTypeMusic}

// audiobook containers are kept restrictive on purpose; podcasts and music
// accept the broader set of common audio containers.
var audiobookExtensions = map[string]bool{
	".m4a": true,
	".m4b": true,
}

var broadExtensions = map[string]bool{
	".m4a":  true,
	".m4b":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
}

// ParseMediaType parses a media type from its string form (case-insensitive).
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(strings.ToUpper(strings.TrimSpace(s))) {
	case MediaTypeAudiobooks:
		return MediaTypeAudiobooks, nil
	case MediaTypePodcasts:
		return MediaTypePodcasts, nil
	case MediaTypeMusic:
		return MediaTypeMusic, nil
	}
	return "", fmt.Errorf("unknown media type: %q", s)
}

// DirectoryName returns the conventional folder name for this type under the
// media root (e.g. "Audiobooks").
func (m MediaType) DirectoryName() string {
	switch m {
	case MediaTypeAudiobooks:
		return "Audiobooks"
	case MediaTypePodcasts:
		return "Podcasts"
	case MediaTypeMusic:
		return "Music"
	}
	return string(m)
}

// Title returns the display name for this type.
func (m MediaType) Title() string {
	return m.DirectoryName()
}

// ValidExtension reports whether a file extension (with leading dot) is a
// playable container for this media type. The check is case-insensitive.
func (m MediaType) ValidExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if m == MediaTypeAudiobooks {
		return audiobookExtensions[ext]
	}
	return broadExtensions[ext]
}
