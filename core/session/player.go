package session

import "playshelf/model"

// Lifecycle mirrors the opaque player's coarse lifecycle for the UI.
type Lifecycle string

const (
	LifecycleIdle    Lifecycle = "IDLE"
	LifecycleLoading Lifecycle = "LOADING"
	LifecycleReady   Lifecycle = "READY"
	LifecycleEnded   Lifecycle = "ENDED"
)

// LoadedTrack is one entry of the ordered playlist handed to the player.
type LoadedTrack struct {
	ID         string
	PlaylistID string
	MediaType  model.MediaType
	Title      string
	Artist     string
	SourceURI  string
}

// Player is the opaque audio decode/output capability the session
// controller drives but does not implement. Implementations must be safe
// for concurrent use and must signal on Events after any state change;
// position advancing on its own is what the controller's poll covers.
type Player interface {
	// Load replaces the player's playlist with the given ordered tracks,
	// primed at startIndex/startPositionMs. Implies a stop of whatever was
	// loaded before.
	Load(tracks []LoadedTrack, startIndex int, startPositionMs int64)
	Play()
	Pause()
	Stop()
	// SeekTo seeks within the current track; clamping is the player's
	// responsibility.
	SeekTo(positionMs int64)
	// SkipToIndex jumps to another track of the loaded playlist.
	SkipToIndex(index int)

	// Current returns the currently loaded track, or nil when idle.
	Current() *LoadedTrack
	CurrentIndex() int
	PositionMs() int64
	// DurationMs returns the current track's duration, or 0 when unknown.
	DurationMs() int64
	IsPlaying() bool
	Lifecycle() Lifecycle

	// Events signals after every player-side state change.
	Events() <-chan struct{}
	// Release tears the player down and frees its resources.
	Release()
}
