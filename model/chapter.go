package model

// Chapter is a navigable sub-segment of a playlist, normalized from one of
// two provenances: a chapter frame embedded in a single audio file, or one
// synthesized per track of a multi-file playlist (start time 0, index =
// track position).
type Chapter struct {
	PlaylistID   string `json:"playlistId"`
	Index        int    `json:"index"`
	Title        string `json:"title"`
	StartTimeSec int    `json:"startTimeSec"`
	SourceURI    string `json:"sourceUri,omitempty"`
}
