package session

// State is the derived session snapshot pushed to the UI collaborator on
// every recompute. It is computed entirely from the opaque player's live
// state plus the resolved chapter list; nothing in it is persisted.
type State struct {
	ActivePlaylistID    string    `json:"activePlaylistId"`
	IsPlaying           bool      `json:"isPlaying"`
	CurrentChapterTitle string    `json:"currentChapterTitle"`
	CurrentChapterIndex int       `json:"currentChapterIndex"`
	CurrentPositionMs   int64     `json:"currentPositionMs"`
	DurationMs          int64     `json:"durationMs"`
	Lifecycle           Lifecycle `json:"lifecycle"`
	CanSkipPrevious     bool      `json:"canSkipPrevious"`
	CanSkipNext         bool      `json:"canSkipNext"`
}

// Progress returns playback progress in [0, 1]. DurationMs is floored at 1
// by the recompute, so this is always defined.
func (s State) Progress() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	p := float64(s.CurrentPositionMs) / float64(s.DurationMs)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func defaultState() State {
	return State{
		CurrentChapterTitle: "",
		DurationMs:          1,
		Lifecycle:           LifecycleIdle,
	}
}
