package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"playshelf/logger"
	"playshelf/model"

	"github.com/fsnotify/fsnotify"
)

const (
	// debounce window between the last filesystem event and the freshness
	// check, so a batch copy triggers one rescan rather than one per file.
	defaultSettle = 2 * time.Second

	// how often Run checks for settled dirty types and missing roots.
	defaultTick = 500 * time.Millisecond
)

// Watcher triggers the scanner's freshness check when files change under
// the media roots. It feeds the exact same serialized rescan path the
// startup check uses, so a watcher-triggered rescan can never overlap one
// already in flight for the same type.
type Watcher struct {
	scanner *Scanner
	watcher *fsnotify.Watcher
	done    chan struct{}

	// settle and tick default to defaultSettle and defaultTick. Tests
	// shrink them; they must not change once Run has started.
	settle time.Duration
	tick   time.Duration

	// per-type root registration state. Roots missing at construction are
	// retried on the tick, so creating a root later starts watching it
	// without a restart. Touched only by NewWatcher and the Run goroutine.
	watched map[model.MediaType]bool
}

// NewWatcher creates a Watcher over every media type root that exists.
// Roots that do not exist yet are picked up by Run once they appear.
func NewWatcher(s *Scanner) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create media watcher: %w", err)
	}

	w := &Watcher{
		scanner: s,
		watcher: fsWatcher,
		done:    make(chan struct{}),
		settle:  defaultSettle,
		tick:    defaultTick,
		watched: make(map[model.MediaType]bool),
	}

	for _, mt := range model.AllMediaTypes {
		w.watched[mt] = w.addTree(s.rootDir(mt))
	}

	return w, nil
}

// addTree registers a directory and all its subdirectories, reporting
// whether the root existed. fsnotify does not watch recursively on its own.
func (w *Watcher) addTree(root string) bool {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return false
	}
	filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			logger.Warn("failed to watch directory",
				logger.String("path", path), logger.ErrorField(err))
		}
		return nil
	})
	return true
}

// Run consumes filesystem events until Stop is called, marking affected
// media types dirty and rescanning them once events settle.
func (w *Watcher) Run() {
	dirty := make(map[model.MediaType]bool)
	var lastEvent time.Time

	checkTicker := time.NewTicker(w.tick)
	defer checkTicker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if mt, matched := w.mediaTypeFor(event.Name); matched {
				dirty[mt] = true
				lastEvent = time.Now()
			}
			// New playlist directories need their own watch.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("media watcher error", logger.ErrorField(err))

		case <-checkTicker.C:
			for _, mt := range model.AllMediaTypes {
				if !w.watched[mt] && w.addTree(w.scanner.rootDir(mt)) {
					w.watched[mt] = true
					// Files may have landed before the watch attached.
					dirty[mt] = true
					lastEvent = time.Now()
					logger.Info("media root appeared, now watching",
						logger.String("mediaType", string(mt)))
				}
			}
			if len(dirty) == 0 || time.Since(lastEvent) < w.settle {
				continue
			}
			for mt := range dirty {
				delete(dirty, mt)
				go func(mediaType model.MediaType) {
					if _, err := w.scanner.CheckAndRescanIfChanged(mediaType); err != nil {
						logger.Error("watcher-triggered rescan failed",
							logger.String("mediaType", string(mediaType)),
							logger.ErrorField(err))
					}
				}(mt)
			}
		}
	}
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

// mediaTypeFor maps an event path to the media type whose root contains it.
func (w *Watcher) mediaTypeFor(path string) (model.MediaType, bool) {
	for _, mt := range model.AllMediaTypes {
		root := w.scanner.rootDir(mt)
		if strings.HasPrefix(path, root+string(os.PathSeparator)) || path == root {
			return mt, true
		}
	}
	return "", false
}
