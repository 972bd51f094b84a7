package session

import (
	"sort"

	"playshelf/core/meta"
	"playshelf/model"
)

// Double-tap-back behavior: "previous" restarts the current chapter when
// more than this far past its start, and only then crosses into the
// previous chapter. Applied uniformly to both chapter provenances.
const prevRestartThresholdMs = 3000

type chapterProvenance int

const (
	// provenancePerFile synthesizes one chapter per track of a multi-file
	// playlist; navigation switches tracks.
	provenancePerFile chapterProvenance = iota
	// provenanceEmbedded takes chapters from a single file's embedded
	// chapter frames; navigation seeks within that file.
	provenanceEmbedded
)

// chapterList is the playlist's chapter view, resolved once at load time
// from one of the two provenances and then consulted for every navigation
// command and state recompute.
type chapterList struct {
	provenance chapterProvenance
	chapters   []model.Chapter
}

// resolveChapters builds the normalized chapter list for a playlist.
// A single-file playlist with embedded markers resolves to the embedded
// provenance; everything else synthesizes one chapter per track.
func resolveChapters(playlistID string, tracks []*model.Track, markers []meta.ChapterMarker) chapterList {
	if len(tracks) == 1 && len(markers) > 0 {
		sorted := make([]meta.ChapterMarker, len(markers))
		copy(sorted, markers)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

		chapters := make([]model.Chapter, 0, len(sorted))
		for i, m := range sorted {
			title := m.Title
			if title == "" {
				title = tracks[0].Title
			}
			chapters = append(chapters, model.Chapter{
				PlaylistID:   playlistID,
				Index:        i,
				Title:        title,
				StartTimeSec: m.StartTimeSec,
				SourceURI:    tracks[0].SourceURI,
			})
		}
		return chapterList{provenance: provenanceEmbedded, chapters: chapters}
	}

	chapters := make([]model.Chapter, 0, len(tracks))
	for i, t := range tracks {
		chapters = append(chapters, model.Chapter{
			PlaylistID:   playlistID,
			Index:        i,
			Title:        t.Title,
			StartTimeSec: 0,
			SourceURI:    t.SourceURI,
		})
	}
	return chapterList{provenance: provenancePerFile, chapters: chapters}
}

func (cl chapterList) empty() bool {
	return len(cl.chapters) == 0
}

func (cl chapterList) startMs(index int) int64 {
	return int64(cl.chapters[index].StartTimeSec) * 1000
}

// indexAt resolves the current chapter: for embedded chapters the last one
// whose start time is at or before the position, for per-file chapters the
// player's track index.
func (cl chapterList) indexAt(trackIndex int, positionMs int64) int {
	if cl.empty() {
		return 0
	}
	if cl.provenance == provenancePerFile {
		if trackIndex < 0 {
			return 0
		}
		if trackIndex >= len(cl.chapters) {
			return len(cl.chapters) - 1
		}
		return trackIndex
	}
	current := 0
	for i := range cl.chapters {
		if cl.startMs(i) <= positionMs {
			current = i
		}
	}
	return current
}

func (cl chapterList) titleAt(index int) string {
	if index < 0 || index >= len(cl.chapters) {
		return ""
	}
	return cl.chapters[index].Title
}

// nextStart returns the start of the first chapter past the position, or
// -1 when already in the last chapter. Only meaningful for the embedded
// provenance.
func (cl chapterList) nextStart(positionMs int64) int64 {
	for i := range cl.chapters {
		if start := cl.startMs(i); start > positionMs {
			return start
		}
	}
	return -1
}

// canSkipNext reports whether a chapter exists past the current position.
// Derived from the chapter list rather than the player's own availability
// flags, which are wrong for the single-file embedded case.
func (cl chapterList) canSkipNext(trackIndex int, positionMs int64) bool {
	if cl.empty() {
		return false
	}
	if cl.provenance == provenancePerFile {
		return trackIndex >= 0 && trackIndex < len(cl.chapters)-1
	}
	return cl.nextStart(positionMs) >= 0
}

// canSkipPrevious reports whether "previous" has anywhere to go: either a
// prior chapter exists or the position is far enough in to restart.
func (cl chapterList) canSkipPrevious(trackIndex int, positionMs int64) bool {
	if cl.empty() {
		return false
	}
	current := cl.indexAt(trackIndex, positionMs)
	if current > 0 {
		return true
	}
	var chapterStart int64
	if cl.provenance == provenanceEmbedded {
		chapterStart = cl.startMs(current)
	}
	return positionMs-chapterStart > prevRestartThresholdMs
}
