package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	"playshelf/logger"
	"playshelf/model"
)

// countFiles returns the number of playable files under the media type's
// root, recursively, filtered by the type's valid extensions. A missing
// root counts as zero files.
func (s *Scanner) countFiles(mediaType model.MediaType) int {
	root := s.rootDir(mediaType)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return 0
	}

	count := 0
	filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if mediaType.ValidExtension(filepath.Ext(path)) {
			count++
		}
		return nil
	})
	return count
}

// NeedsRescan reports whether the media type's directory has changed since
// the last successful scan, using the persisted file-count fingerprint.
// This is a cheap heuristic, not a content hash: an in-place file
// replacement with an unchanged count is missed, which is why ForceRescan
// exists. The new count is persisted only after a successful rescan, so a
// crash mid-scan is naturally retried on the next check.
func (s *Scanner) NeedsRescan(mediaType model.MediaType) bool {
	stored, err := s.counts.GetFileCount(mediaType)
	if err != nil {
		logger.Warn("failed to read stored file count, forcing rescan",
			logger.String("mediaType", string(mediaType)),
			logger.ErrorField(err))
		return true
	}
	if stored < 0 {
		return true
	}
	return s.countFiles(mediaType) != stored
}
