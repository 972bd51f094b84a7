// Package player provides a headless reference implementation of the
// session's opaque player contract. It keeps the daemon runnable and
// testable without an audio pipeline: position advances in wall-clock time
// while playing, nothing is decoded or output.
package player

import (
	"sync"
	"time"

	"playshelf/core/session"
	"playshelf/logger"
)

// ClockPlayer implements session.Player by advancing the playback position
// with the wall clock. Durations are unknown (reported as 0) since no
// decoding happens.
type ClockPlayer struct {
	mu        sync.Mutex
	tracks    []session.LoadedTrack
	index     int
	playing   bool
	lifecycle session.Lifecycle

	// basePositionMs is the position when playback last started or seeked;
	// while playing, the elapsed wall time since anchor is added on read.
	basePositionMs int64
	anchor         time.Time

	events chan struct{}
}

// NewClockPlayer creates an idle ClockPlayer.
func NewClockPlayer() *ClockPlayer {
	return &ClockPlayer{
		lifecycle: session.LifecycleIdle,
		events:    make(chan struct{}, 16),
	}
}

func (p *ClockPlayer) notify() {
	select {
	case p.events <- struct{}{}:
	default:
	}
}

func (p *ClockPlayer) positionLocked() int64 {
	if p.playing {
		return p.basePositionMs + time.Since(p.anchor).Milliseconds()
	}
	return p.basePositionMs
}

// Load replaces the loaded playlist.
func (p *ClockPlayer) Load(tracks []session.LoadedTrack, startIndex int, startPositionMs int64) {
	p.mu.Lock()
	p.tracks = tracks
	p.index = startIndex
	if p.index < 0 || p.index >= len(tracks) {
		p.index = 0
	}
	p.basePositionMs = startPositionMs
	p.playing = false
	if len(tracks) > 0 {
		p.lifecycle = session.LifecycleReady
	} else {
		p.lifecycle = session.LifecycleIdle
	}
	p.mu.Unlock()

	logger.Debug("clock player loaded",
		logger.Int("tracks", len(tracks)),
		logger.Int("startIndex", startIndex),
		logger.Int64("startPositionMs", startPositionMs))
	p.notify()
}

func (p *ClockPlayer) Play() {
	p.mu.Lock()
	if len(p.tracks) > 0 && !p.playing {
		p.playing = true
		p.anchor = time.Now()
	}
	p.mu.Unlock()
	p.notify()
}

func (p *ClockPlayer) Pause() {
	p.mu.Lock()
	if p.playing {
		p.basePositionMs = p.positionLocked()
		p.playing = false
	}
	p.mu.Unlock()
	p.notify()
}

func (p *ClockPlayer) Stop() {
	p.mu.Lock()
	p.tracks = nil
	p.index = 0
	p.basePositionMs = 0
	p.playing = false
	p.lifecycle = session.LifecycleIdle
	p.mu.Unlock()
	p.notify()
}

func (p *ClockPlayer) SeekTo(positionMs int64) {
	p.mu.Lock()
	if positionMs < 0 {
		positionMs = 0
	}
	p.basePositionMs = positionMs
	p.anchor = time.Now()
	p.mu.Unlock()
	p.notify()
}

func (p *ClockPlayer) SkipToIndex(index int) {
	p.mu.Lock()
	if index >= 0 && index < len(p.tracks) {
		p.index = index
		p.basePositionMs = 0
		p.anchor = time.Now()
	}
	p.mu.Unlock()
	p.notify()
}

func (p *ClockPlayer) Current() *session.LoadedTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	t := p.tracks[p.index]
	return &t
}

func (p *ClockPlayer) CurrentIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

func (p *ClockPlayer) PositionMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// DurationMs is always 0: without decoding, track lengths are unknown.
func (p *ClockPlayer) DurationMs() int64 {
	return 0
}

func (p *ClockPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *ClockPlayer) Lifecycle() session.Lifecycle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifecycle
}

func (p *ClockPlayer) Events() <-chan struct{} {
	return p.events
}

func (p *ClockPlayer) Release() {
	p.Stop()
}
