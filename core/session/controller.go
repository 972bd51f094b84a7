// Package session owns the single active playback session: it resolves
// playlists from the library, merges persisted progress, drives the opaque
// player, tracks chapters and persists resume positions at the defined
// transition points.
package session

import (
	"errors"
	"sync"
	"time"

	"playshelf/core/meta"
	"playshelf/logger"
	"playshelf/model"
	"playshelf/repository"
)

const (
	// Progress this close to the end of a track is treated as finished and
	// not persisted, so a finished track doesn't resume at its own end.
	endSaveMarginMs = 1000

	// The poll cadence while playing. Position advances without discrete
	// player events, so events alone are not enough.
	pollInterval = time.Second
)

// ProgressSink receives a copy of every persisted progress record. Used for
// the optional recently-played cache mirror; implementations must be fast
// or internally asynchronous.
type ProgressSink interface {
	RecordProgress(progress *model.Progress)
}

// Controller is the playback session state machine. One controller drives
// one player; concurrent sessions are out of scope by design.
type Controller struct {
	mu        sync.Mutex
	player    Player
	tracks    repository.TrackRepository
	progress  repository.ProgressRepository
	extractor meta.Extractor
	sink      ProgressSink // optional

	chapters chapterList
	state    State

	subMu       sync.Mutex
	subscribers map[chan State]struct{}

	saves sync.WaitGroup
	done  chan struct{}
	once  sync.Once
}

// NewController creates a Controller. sink may be nil.
func NewController(player Player, tracks repository.TrackRepository,
	progress repository.ProgressRepository, extractor meta.Extractor,
	sink ProgressSink) *Controller {
	return &Controller{
		player:      player,
		tracks:      tracks,
		progress:    progress,
		extractor:   extractor,
		sink:        sink,
		state:       defaultState(),
		subscribers: make(map[chan State]struct{}),
		done:        make(chan struct{}),
	}
}

// Run is the single consumer of state updates: player events and the poll
// tick both land here, so only this goroutine ever recomputes the derived
// state. Blocks until Close.
func (c *Controller) Run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case _, ok := <-c.player.Events():
			if !ok {
				return
			}
			c.recompute()
		case <-ticker.C:
			if c.player.IsPlaying() {
				c.recompute()
			}
		}
	}
}

// Close tears the session down: stops the update loop, flushes one final
// progress save so an app close never drops the last seconds of progress,
// and releases the player.
func (c *Controller) Close() {
	c.once.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.saveCurrentProgressLocked()
		c.mu.Unlock()
		c.saves.Wait()

		c.player.Release()

		c.mu.Lock()
		c.chapters = chapterList{}
		c.state = defaultState()
		c.mu.Unlock()
		c.broadcast(defaultState())
	})
}

// Subscribe registers a state listener. Every recompute pushes a snapshot;
// slow consumers miss intermediate snapshots rather than blocking the
// session. The returned cancel func unregisters the listener.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	c.subMu.Lock()
	c.subscribers[ch] = struct{}{}
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.subMu.Unlock()
	}
	return ch, cancel
}

// CurrentState returns the latest derived state snapshot.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Activate loads and starts the playlist owning the given track or playlist
// id. Requesting the identity that is already current is a no-op, so
// duplicate UI events never cause a redundant reload. A playlist that
// cannot be resolved or is empty leaves any currently active session
// undisturbed.
func (c *Controller) Activate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur := c.player.Current(); cur != nil && (cur.ID == id || cur.PlaylistID == id) {
		logger.Debug("requested media already current, no action taken",
			logger.String("id", id))
		return
	}

	playlistID := id
	requestedTrackID := ""
	track, err := c.tracks.GetTrackByID(id)
	if err != nil {
		logger.Error("failed to resolve track for activate",
			logger.String("id", id), logger.ErrorField(err))
		return
	}
	if track != nil {
		playlistID = track.PlaylistID
		requestedTrackID = track.ID
	}

	playlistTracks, err := c.tracks.GetTracksByPlaylist(playlistID)
	if err != nil {
		logger.Error("failed to load playlist tracks",
			logger.String("playlistId", playlistID), logger.ErrorField(err))
		return
	}
	if len(playlistTracks) == 0 {
		logger.Warn("playlist not found or empty, session unchanged",
			logger.String("playlistId", playlistID))
		return
	}

	progress, err := c.progress.LoadProgress(playlistID)
	if err != nil {
		logger.Warn("failed to load progress, starting from the beginning",
			logger.String("playlistId", playlistID), logger.ErrorField(err))
		progress = nil
	}

	startIndex := 0
	if progress != nil {
		startIndex = progress.TrackIndex
	} else if requestedTrackID != "" {
		for i, t := range playlistTracks {
			if t.ID == requestedTrackID {
				startIndex = i
				break
			}
		}
	}
	if startIndex < 0 || startIndex >= len(playlistTracks) {
		startIndex = 0
	}

	var startPositionMs int64
	if progress != nil {
		startPositionMs = progress.PositionMs
	}

	c.chapters = resolveChapters(playlistID, playlistTracks, c.embeddedMarkers(playlistTracks))

	c.state.ActivePlaylistID = playlistID
	c.state.Lifecycle = LifecycleLoading
	c.broadcast(c.state)

	loaded := make([]LoadedTrack, 0, len(playlistTracks))
	for _, t := range playlistTracks {
		loaded = append(loaded, LoadedTrack{
			ID:         t.ID,
			PlaylistID: t.PlaylistID,
			MediaType:  t.MediaType,
			Title:      t.Title,
			Artist:     t.Artist,
			SourceURI:  t.SourceURI,
		})
	}

	c.player.Stop()
	c.player.Load(loaded, startIndex, startPositionMs)
	c.player.Play()

	logger.Info("session activated",
		logger.String("playlistId", playlistID),
		logger.Int("tracks", len(loaded)),
		logger.Int("startIndex", startIndex),
		logger.Int64("startPositionMs", startPositionMs))

	c.recomputeLocked()
}

// embeddedMarkers fetches chapter frames for a single-file playlist.
// Extraction failure just means no embedded chapters.
func (c *Controller) embeddedMarkers(tracks []*model.Track) []meta.ChapterMarker {
	if len(tracks) != 1 {
		return nil
	}
	md, err := c.extractor.Extract(tracks[0].LocalPath())
	if err != nil {
		if !errors.Is(err, meta.ErrNoTitle) {
			logger.Debug("chapter extraction failed, falling back to per-file chapters",
				logger.String("path", tracks[0].LocalPath()), logger.ErrorField(err))
		}
		return nil
	}
	return md.Chapters
}

// Play resumes playback.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.Play()
	c.recomputeLocked()
}

// Pause pauses playback. This is the primary durability checkpoint:
// stopping to listen is the event users actually perform, so progress is
// persisted on the playing-to-paused transition inside the recompute rather
// than on periodic ticks.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.Pause()
	c.recomputeLocked()
}

// SeekTo seeks to an absolute position within the current track.
func (c *Controller) SeekTo(positionMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.SeekTo(positionMs)
	c.recomputeLocked()
}

// Replay restarts the current track from the beginning and plays.
func (c *Controller) Replay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player.SeekTo(0)
	c.player.Play()
	c.recomputeLocked()
}

// SkipToNextChapter moves to the first chapter past the current position.
// No-op when already in the last chapter.
func (c *Controller) SkipToNextChapter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chapters.empty() {
		return
	}

	if c.chapters.provenance == provenanceEmbedded {
		if start := c.chapters.nextStart(c.player.PositionMs()); start >= 0 {
			c.player.SeekTo(start)
		}
	} else {
		next := c.player.CurrentIndex() + 1
		if next < len(c.chapters.chapters) {
			c.player.SkipToIndex(next)
		}
	}
	c.recomputeLocked()
}

// SkipToPreviousChapter restarts the current chapter when more than 3
// seconds past its start, otherwise moves to the previous chapter's start
// (or position 0 when there is none).
func (c *Controller) SkipToPreviousChapter() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chapters.empty() {
		return
	}

	positionMs := c.player.PositionMs()
	current := c.chapters.indexAt(c.player.CurrentIndex(), positionMs)

	if c.chapters.provenance == provenanceEmbedded {
		currentStart := c.chapters.startMs(current)
		if positionMs-currentStart > prevRestartThresholdMs {
			c.player.SeekTo(currentStart)
		} else if current > 0 {
			c.player.SeekTo(c.chapters.startMs(current - 1))
		} else {
			c.player.SeekTo(0)
		}
	} else {
		if positionMs > prevRestartThresholdMs {
			c.player.SeekTo(0)
		} else if current > 0 {
			c.player.SkipToIndex(current - 1)
		} else {
			c.player.SeekTo(0)
		}
	}
	c.recomputeLocked()
}

// recompute rebuilds the derived state from the player and broadcasts it.
func (c *Controller) recompute() {
	c.mu.Lock()
	c.recomputeLocked()
	c.mu.Unlock()
}

func (c *Controller) recomputeLocked() {
	wasPlaying := c.state.IsPlaying

	cur := c.player.Current()
	if cur == nil {
		c.state = defaultState()
		c.broadcast(c.state)
		return
	}

	positionMs := c.player.PositionMs()
	durationMs := c.player.DurationMs()
	if durationMs < 1 {
		// Floor at 1 so progress = position/duration stays defined.
		durationMs = 1
	}

	trackIndex := c.player.CurrentIndex()
	chapterIndex := c.chapters.indexAt(trackIndex, positionMs)

	c.state = State{
		ActivePlaylistID:    cur.PlaylistID,
		IsPlaying:           c.player.IsPlaying(),
		CurrentChapterTitle: c.chapters.titleAt(chapterIndex),
		CurrentChapterIndex: chapterIndex,
		CurrentPositionMs:   positionMs,
		DurationMs:          durationMs,
		Lifecycle:           c.player.Lifecycle(),
		CanSkipPrevious:     c.chapters.canSkipPrevious(trackIndex, positionMs),
		CanSkipNext:         c.chapters.canSkipNext(trackIndex, positionMs),
	}

	// Any transition out of playing is a durability checkpoint, covering
	// pauses issued behind the controller's back and natural track ends.
	if wasPlaying && !c.state.IsPlaying {
		c.saveCurrentProgressLocked()
	}

	c.broadcast(c.state)
}

// saveCurrentProgressLocked persists the resume point for the loaded
// playlist. No-ops when nothing is loaded, at position zero, or within one
// second of the end. The write itself runs asynchronously: a slow
// persistence write must never block playback.
func (c *Controller) saveCurrentProgressLocked() {
	cur := c.player.Current()
	if cur == nil {
		return
	}
	positionMs := c.player.PositionMs()
	if positionMs <= 0 {
		return
	}
	if durationMs := c.player.DurationMs(); durationMs > 0 && positionMs >= durationMs-endSaveMarginMs {
		return
	}

	record := &model.Progress{
		PlaylistID: cur.PlaylistID,
		TrackIndex: c.player.CurrentIndex(),
		PositionMs: positionMs,
		UpdatedAt:  time.Now(),
	}

	c.saves.Add(1)
	go func() {
		defer c.saves.Done()
		if err := c.progress.SaveProgress(record); err != nil {
			// Progress loss is preferable to playback disruption.
			logger.Error("failed to save playback progress",
				logger.String("playlistId", record.PlaylistID),
				logger.ErrorField(err))
			return
		}
		if c.sink != nil {
			c.sink.RecordProgress(record)
		}
		logger.Debug("saved playback progress",
			logger.String("playlistId", record.PlaylistID),
			logger.Int("trackIndex", record.TrackIndex),
			logger.Int64("positionMs", record.PositionMs))
	}()
}

// FlushSaves blocks until in-flight progress writes have landed.
func (c *Controller) FlushSaves() {
	c.saves.Wait()
}

func (c *Controller) broadcast(state State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}
