// Package scanner builds the library index from the filesystem: it walks
// the per-type media directories, extracts metadata, groups files into
// playlists by parent directory and persists the result through the track
// repository. A cheap file-count fingerprint gates full rescans.
package scanner

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"playshelf/config"
	"playshelf/core/meta"
	"playshelf/logger"
	"playshelf/model"
	"playshelf/repository"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Scanner synchronizes the library index with the filesystem.
type Scanner struct {
	cfg       *config.Config
	extractor meta.Extractor
	tracks    repository.TrackRepository
	counts    repository.FileCountRepository

	// One lock per media type: overlapping rescans of the same type are
	// serialized while different types may scan concurrently.
	locks map[model.MediaType]*sync.Mutex
}

// NewScanner creates a Scanner.
func NewScanner(cfg *config.Config, extractor meta.Extractor,
	tracks repository.TrackRepository, counts repository.FileCountRepository) *Scanner {
	locks := make(map[model.MediaType]*sync.Mutex, len(model.AllMediaTypes))
	for _, mt := range model.AllMediaTypes {
		locks[mt] = &sync.Mutex{}
	}
	return &Scanner{
		cfg:       cfg,
		extractor: extractor,
		tracks:    tracks,
		counts:    counts,
		locks:     locks,
	}
}

func (s *Scanner) rootDir(mediaType model.MediaType) string {
	return s.cfg.MediaTypeDir(mediaType.DirectoryName())
}

// Scan walks the media type's root and returns the ordered track batch.
// A missing or non-directory root is a normal condition and yields an empty
// result. Per-file extraction failures degrade that file's metadata but
// never abort the batch.
func (s *Scanner) Scan(mediaType model.MediaType) ([]*model.Track, error) {
	root := s.rootDir(mediaType)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		logger.Debug("media directory absent, returning empty scan",
			logger.String("mediaType", string(mediaType)),
			logger.String("root", root))
		return []*model.Track{}, nil
	}

	var paths []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			logger.Warn("skipping unreadable entry during scan",
				logger.String("path", path), logger.ErrorField(walkErr))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if mediaType.ValidExtension(filepath.Ext(path)) {
			paths = append(paths, path)
		}
		return nil
	})

	// Name order keeps rescans of an unchanged directory byte-identical.
	sort.Strings(paths)

	tracks := make([]*model.Track, 0, len(paths))
	for i, path := range paths {
		tracks = append(tracks, s.buildTrack(mediaType, path, i))
	}

	logger.Info("scan complete",
		logger.String("mediaType", string(mediaType)),
		logger.Int("tracks", len(tracks)))
	return tracks, nil
}

// buildTrack produces one Track record for a file, consulting the metadata
// extractor and falling back to filename-derived fields when extraction
// fails or yields no title.
func (s *Scanner) buildTrack(mediaType model.MediaType, path string, trackNumber int) *model.Track {
	parent := filepath.Base(filepath.Dir(path))

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	artist := "Unknown Artist"

	md, err := s.extractor.Extract(path)
	if err != nil {
		if !errors.Is(err, meta.ErrNoTitle) {
			logger.Warn("metadata extraction failed, using filename fallback",
				logger.String("path", path), logger.ErrorField(err))
		}
	} else {
		title = md.Title
		if md.Artist != "" {
			artist = md.Artist
		}
	}

	return &model.Track{
		ID:          TrackID(path),
		PlaylistID:  NormalizePlaylistID(parent),
		MediaType:   mediaType,
		Title:       title,
		Artist:      artist,
		TrackNumber: trackNumber,
		SourceURI:   "file://" + filepath.ToSlash(path),
	}
}

// CheckAndRescanIfChanged rescans the media type only when the file-count
// fingerprint says its directory changed. Returns true when a rescan ran.
// Idempotent and safe to invoke repeatedly.
func (s *Scanner) CheckAndRescanIfChanged(mediaType model.MediaType) (bool, error) {
	if !s.NeedsRescan(mediaType) {
		logger.Debug("no changes detected, scan skipped",
			logger.String("mediaType", string(mediaType)))
		return false, nil
	}
	logger.Info("change detected, rescanning",
		logger.String("mediaType", string(mediaType)))
	return true, s.rescan(mediaType)
}

// ForceRescan rescans the media type unconditionally.
func (s *Scanner) ForceRescan(mediaType model.MediaType) error {
	logger.Info("forced rescan", logger.String("mediaType", string(mediaType)))
	return s.rescan(mediaType)
}

// rescan performs the full scan-and-replace for one media type and records
// the new file count afterwards. Serialized per type.
func (s *Scanner) rescan(mediaType model.MediaType) error {
	lock := s.locks[mediaType]
	lock.Lock()
	defer lock.Unlock()

	count := s.countFiles(mediaType)

	tracks, err := s.Scan(mediaType)
	if err != nil {
		return err
	}

	if err := s.tracks.ReplaceTracks(mediaType, tracks); err != nil {
		return err
	}

	// Persisted only after the successful replace, so a failed scan is
	// retried by the next freshness check.
	if err := s.counts.SetFileCount(mediaType, count); err != nil {
		logger.Warn("failed to persist file count after rescan",
			logger.String("mediaType", string(mediaType)),
			logger.ErrorField(err))
	}
	return nil
}

// ClearLibrary empties the index for one media type and resets its stored
// file count, so the next freshness check rebuilds from the filesystem.
func (s *Scanner) ClearLibrary(mediaType model.MediaType) error {
	lock := s.locks[mediaType]
	lock.Lock()
	defer lock.Unlock()

	if err := s.tracks.ReplaceTracks(mediaType, nil); err != nil {
		return err
	}
	if err := s.counts.SetFileCount(mediaType, -1); err != nil {
		logger.Warn("failed to reset file count after clear",
			logger.String("mediaType", string(mediaType)),
			logger.ErrorField(err))
	}
	logger.Info("library cleared", logger.String("mediaType", string(mediaType)))
	return nil
}

// CheckAll runs the freshness check for every media type concurrently.
func (s *Scanner) CheckAll() {
	var wg sync.WaitGroup
	for _, mt := range model.AllMediaTypes {
		wg.Add(1)
		go func(mediaType model.MediaType) {
			defer wg.Done()
			if _, err := s.CheckAndRescanIfChanged(mediaType); err != nil {
				logger.Error("library freshness check failed",
					logger.String("mediaType", string(mediaType)),
					logger.ErrorField(err))
			}
		}(mt)
	}
	wg.Wait()
}

// NormalizePlaylistID derives the playlist grouping key from a directory
// name: whitespace collapsed to underscores, lowercased.
func NormalizePlaylistID(dirName string) string {
	return strings.ToLower(whitespacePattern.ReplaceAllString(dirName, "_"))
}

// TrackID derives the stable track identity from the source path, so
// progress recorded against a track survives rescans of the same file.
func TrackID(path string) string {
	sum := sha1.Sum([]byte(filepath.ToSlash(path)))
	return hex.EncodeToString(sum[:])
}
