package model

import "time"

// Progress is the persisted resume point for a playlist: the last known
// track index and position. One record per playlist, upsert semantics.
type Progress struct {
	PlaylistID string    `json:"playlistId"`
	TrackIndex int       `json:"trackIndex"`
	PositionMs int64     `json:"positionMs"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
