package scanner

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"playshelf/config"
	"playshelf/core/meta"
	"playshelf/model"
)

// stubExtractor returns canned metadata per path, or ErrNoTitle when a path
// has no entry.
type stubExtractor struct {
	metadata map[string]*meta.Metadata
}

func (e *stubExtractor) Extract(path string) (*meta.Metadata, error) {
	if md, ok := e.metadata[path]; ok {
		return md, nil
	}
	return nil, meta.ErrNoTitle
}

// fakeTrackRepo records ReplaceTracks calls in memory. Rescans may run from
// several goroutines, so every access takes the mutex.
type fakeTrackRepo struct {
	mu       sync.Mutex
	byType   map[model.MediaType][]*model.Track
	replaces int
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{byType: make(map[model.MediaType][]*model.Track)}
}

func (r *fakeTrackRepo) ReplaceTracks(mediaType model.MediaType, tracks []*model.Track) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[mediaType] = tracks
	r.replaces++
	return nil
}

func (r *fakeTrackRepo) GetTrackByID(id string) (*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tracks := range r.byType {
		for _, t := range tracks {
			if t.ID == id {
				return t, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeTrackRepo) GetTracksByMediaType(mediaType model.MediaType) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byType[mediaType], nil
}

func (r *fakeTrackRepo) GetTracksByPlaylist(playlistID string) ([]*model.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Track
	for _, tracks := range r.byType {
		for _, t := range tracks {
			if t.PlaylistID == playlistID {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *fakeTrackRepo) DeleteAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType = make(map[model.MediaType][]*model.Track)
	return nil
}

func (r *fakeTrackRepo) tracksFor(mediaType model.MediaType) []*model.Track {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byType[mediaType]
}

func (r *fakeTrackRepo) replaceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaces
}

// fakeCountRepo stores file counts in memory, -1 until set.
type fakeCountRepo struct {
	mu     sync.Mutex
	counts map[model.MediaType]int
}

func newFakeCountRepo() *fakeCountRepo {
	return &fakeCountRepo{counts: make(map[model.MediaType]int)}
}

func (r *fakeCountRepo) GetFileCount(mediaType model.MediaType) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if count, ok := r.counts[mediaType]; ok {
		return count, nil
	}
	return -1, nil
}

func (r *fakeCountRepo) SetFileCount(mediaType model.MediaType, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[mediaType] = count
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func newTestScanner(t *testing.T, extractor meta.Extractor) (*Scanner, *fakeTrackRepo, *fakeCountRepo, string) {
	t.Helper()
	root := t.TempDir()
	if extractor == nil {
		extractor = &stubExtractor{}
	}
	tracks := newFakeTrackRepo()
	counts := newFakeCountRepo()
	s := NewScanner(&config.Config{MediaRoot: root}, extractor, tracks, counts)
	return s, tracks, counts, root
}

func TestScanMissingRootIsEmpty(t *testing.T) {
	s, _, _, _ := newTestScanner(t, nil)

	tracks, err := s.Scan(model.MediaTypeAudiobooks)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("expected empty scan for a missing root, got %d tracks", len(tracks))
	}
}

func TestScanFiltersExtensionsPerType(t *testing.T) {
	s, _, _, root := newTestScanner(t, nil)

	// Audiobooks accept only MPEG-4 audio; the mp3 must be ignored.
	writeFile(t, filepath.Join(root, "Audiobooks", "My Book", "01.m4b"))
	writeFile(t, filepath.Join(root, "Audiobooks", "My Book", "02.M4A"))
	writeFile(t, filepath.Join(root, "Audiobooks", "My Book", "notes.mp3"))
	writeFile(t, filepath.Join(root, "Audiobooks", "My Book", "cover.jpg"))

	tracks, err := s.Scan(model.MediaTypeAudiobooks)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 audiobook tracks, got %d", len(tracks))
	}
}

func TestScanOrdersAndNumbersByPath(t *testing.T) {
	s, _, _, root := newTestScanner(t, nil)

	writeFile(t, filepath.Join(root, "Music", "Album", "03 - last.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album", "01 - first.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album", "02 - second.mp3"))

	tracks, err := s.Scan(model.MediaTypeMusic)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(tracks))
	}
	for i, wantTitle := range []string{"01 - first", "02 - second", "03 - last"} {
		if tracks[i].Title != wantTitle {
			t.Errorf("position %d: expected title %q, got %q", i, wantTitle, tracks[i].Title)
		}
		if tracks[i].TrackNumber != i {
			t.Errorf("position %d: expected track number %d, got %d", i, i, tracks[i].TrackNumber)
		}
	}
}

func TestScanUsesExtractedMetadataWithFallbacks(t *testing.T) {
	root := t.TempDir()
	tagged := filepath.Join(root, "Music", "Album", "tagged.mp3")
	untagged := filepath.Join(root, "Music", "Album", "untagged.mp3")

	extractor := &stubExtractor{metadata: map[string]*meta.Metadata{
		tagged: {Title: "Real Title", Artist: "Real Artist"},
	}}
	s := NewScanner(&config.Config{MediaRoot: root}, extractor, newFakeTrackRepo(), newFakeCountRepo())

	writeFile(t, tagged)
	writeFile(t, untagged)

	tracks, err := s.Scan(model.MediaTypeMusic)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	byTitle := make(map[string]*model.Track)
	for _, track := range tracks {
		byTitle[track.Title] = track
	}
	if got := byTitle["Real Title"]; got == nil || got.Artist != "Real Artist" {
		t.Fatalf("expected extracted metadata to win, got %+v", got)
	}
	if got := byTitle["untagged"]; got == nil || got.Artist != "Unknown Artist" {
		t.Fatalf("expected filename and artist fallbacks, got %+v", got)
	}
}

func TestScanDerivesPlaylistFromParentDirectory(t *testing.T) {
	s, _, _, root := newTestScanner(t, nil)

	path := filepath.Join(root, "Audiobooks", "The Long  Winter", "part1.m4b")
	writeFile(t, path)

	tracks, err := s.Scan(model.MediaTypeAudiobooks)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].PlaylistID != "the_long_winter" {
		t.Fatalf("expected playlist the_long_winter, got %q", tracks[0].PlaylistID)
	}
	if tracks[0].ID != TrackID(path) {
		t.Fatalf("track id must be derived from the path")
	}
	if tracks[0].SourceURI != "file://"+filepath.ToSlash(path) {
		t.Fatalf("unexpected source uri %q", tracks[0].SourceURI)
	}
}

func TestNeedsRescan(t *testing.T) {
	s, _, counts, root := newTestScanner(t, nil)

	// No recorded count yet: always stale.
	if !s.NeedsRescan(model.MediaTypeMusic) {
		t.Fatal("expected rescan before any count is recorded")
	}

	writeFile(t, filepath.Join(root, "Music", "Album", "a.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album", "b.mp3"))
	counts.SetFileCount(model.MediaTypeMusic, 2)

	if s.NeedsRescan(model.MediaTypeMusic) {
		t.Fatal("expected no rescan when the count is unchanged")
	}

	writeFile(t, filepath.Join(root, "Music", "Album", "c.mp3"))
	if !s.NeedsRescan(model.MediaTypeMusic) {
		t.Fatal("expected rescan after a file was added")
	}
}

func TestCheckAndRescanIfChanged(t *testing.T) {
	s, tracks, counts, root := newTestScanner(t, nil)

	writeFile(t, filepath.Join(root, "Podcasts", "Show", "ep1.mp3"))

	rescanned, err := s.CheckAndRescanIfChanged(model.MediaTypePodcasts)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !rescanned {
		t.Fatal("expected the first check to rescan")
	}
	if got := len(tracks.tracksFor(model.MediaTypePodcasts)); got != 1 {
		t.Fatalf("expected 1 indexed track, got %d", got)
	}
	if count, _ := counts.GetFileCount(model.MediaTypePodcasts); count != 1 {
		t.Fatalf("expected recorded count 1, got %d", count)
	}

	// Unchanged directory: the second check is a no-op.
	rescanned, err = s.CheckAndRescanIfChanged(model.MediaTypePodcasts)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if rescanned {
		t.Fatal("expected no rescan for an unchanged directory")
	}
}

func TestForceRescanIsDeterministic(t *testing.T) {
	s, tracks, counts, root := newTestScanner(t, nil)

	writeFile(t, filepath.Join(root, "Music", "Album B", "02.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album A", "01.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album A", "03.flac"))

	if err := s.ForceRescan(model.MediaTypeMusic); err != nil {
		t.Fatalf("first rescan: %v", err)
	}
	first := tracks.tracksFor(model.MediaTypeMusic)
	if len(first) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(first))
	}

	// Same directory, same batch. A forced rescan of unchanged files must
	// reproduce identical ids, ordering and numbering.
	if err := s.ForceRescan(model.MediaTypeMusic); err != nil {
		t.Fatalf("second rescan: %v", err)
	}
	second := tracks.tracksFor(model.MediaTypeMusic)
	if len(second) != len(first) {
		t.Fatalf("expected %d tracks on the second rescan, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("position %d: id changed from %s to %s", i, first[i].ID, second[i].ID)
		}
		if first[i].TrackNumber != second[i].TrackNumber {
			t.Errorf("position %d: track number changed from %d to %d",
				i, first[i].TrackNumber, second[i].TrackNumber)
		}
		if first[i].PlaylistID != second[i].PlaylistID {
			t.Errorf("position %d: playlist changed from %q to %q",
				i, first[i].PlaylistID, second[i].PlaylistID)
		}
	}

	if count, _ := counts.GetFileCount(model.MediaTypeMusic); count != 3 {
		t.Fatalf("expected recorded count 3, got %d", count)
	}
}

func TestCheckAllCoversEveryMediaType(t *testing.T) {
	s, tracks, counts, root := newTestScanner(t, nil)

	writeFile(t, filepath.Join(root, "Audiobooks", "Book", "ch1.m4b"))
	writeFile(t, filepath.Join(root, "Podcasts", "Show", "ep1.mp3"))
	writeFile(t, filepath.Join(root, "Music", "Album", "song.mp3"))

	s.CheckAll()

	for _, mt := range model.AllMediaTypes {
		if got := len(tracks.tracksFor(mt)); got != 1 {
			t.Errorf("%s: expected 1 indexed track, got %d", mt, got)
		}
		if count, _ := counts.GetFileCount(mt); count != 1 {
			t.Errorf("%s: expected recorded count 1, got %d", mt, count)
		}
	}

	// Nothing changed, so a second pass replaces nothing.
	before := tracks.replaceCount()
	s.CheckAll()
	if got := tracks.replaceCount(); got != before {
		t.Fatalf("expected no further replaces, got %d extra", got-before)
	}
}

func TestNormalizePlaylistID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Audiobook", "my_audiobook"},
		{"Two  Spaces", "two_spaces"},
		{"Tab\tSeparated", "tab_separated"},
		{"already_normal", "already_normal"},
		{"MiXeD Case", "mixed_case"},
	}
	for _, tc := range cases {
		if got := NormalizePlaylistID(tc.in); got != tc.want {
			t.Errorf("NormalizePlaylistID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTrackIDStableAcrossSeparators(t *testing.T) {
	a := TrackID(filepath.Join("media", "book", "ch1.m4b"))
	b := TrackID("media/book/ch1.m4b")
	if a != b {
		t.Fatalf("track id must not depend on the path separator: %s vs %s", a, b)
	}
	if len(a) != 40 {
		t.Fatalf("expected a hex sha1 digest, got %q", a)
	}
}
