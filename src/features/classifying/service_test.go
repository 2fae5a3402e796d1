package classifying

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/contre95/song-classifier/src/features/syncing"
	"github.com/contre95/song-classifier/src/music"
)

// MockLibrary is an in-memory music.Library that counts calls.
type MockLibrary struct {
	tracks    map[string]*music.Track
	albums    map[string]*music.Album
	reads     int
	writes    int
	upsertErr error
}

func NewMockLibrary() *MockLibrary {
	return &MockLibrary{tracks: make(map[string]*music.Track), albums: make(map[string]*music.Album)}
}

func (m *MockLibrary) GetTrack(ctx context.Context, key string) (*music.Track, error) {
	m.reads++
	return m.tracks[key].Clone(), nil
}

func (m *MockLibrary) GetTracks(ctx context.Context) ([]*music.Track, error) {
	m.reads++
	var out []*music.Track
	for _, t := range m.tracks {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (m *MockLibrary) UpsertTrack(ctx context.Context, track *music.Track) error {
	m.writes++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.tracks[track.Key] = track.Clone()
	return nil
}

func (m *MockLibrary) GetAlbum(ctx context.Context, name string) (*music.Album, error) {
	m.reads++
	if a, ok := m.albums[name]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *MockLibrary) GetAlbums(ctx context.Context) ([]*music.Album, error) {
	m.reads++
	var out []*music.Album
	for _, a := range m.albums {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockLibrary) UpsertAlbum(ctx context.Context, album *music.Album) error {
	m.writes++
	cp := *album
	m.albums[album.Name] = &cp
	return nil
}

// MockTransport hands out scratch copies in a temp dir, like a remote transport.
type MockTransport struct {
	dir       string
	keys      []string
	owns      bool
	fetched   []string
	published []string
	fetchErr  error
}

func (m *MockTransport) List(ctx context.Context, root string) ([]string, error) {
	return m.keys, nil
}

func (m *MockTransport) Fetch(ctx context.Context, root, key string) (string, error) {
	m.fetched = append(m.fetched, key)
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	p := filepath.Join(m.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	return p, os.WriteFile(p, []byte("audio"), 0o644)
}

func (m *MockTransport) Publish(ctx context.Context, localPath, root, key string) error {
	m.published = append(m.published, key)
	return nil
}

func (m *MockTransport) OwnsLocalCopy() bool { return m.owns }

type MockCodec struct {
	marked   map[string]bool
	written  map[string]*music.Track
	writeErr error
}

func (m *MockCodec) ReadFileTags(ctx context.Context, filePath string) (*music.Track, error) {
	return nil, nil
}

func (m *MockCodec) HasMarker(ctx context.Context, filePath string) (bool, error) {
	return m.marked[filepath.Base(filePath)], nil
}

func (m *MockCodec) WriteFileTags(ctx context.Context, filePath string, track *music.Track) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.written == nil {
		m.written = make(map[string]*music.Track)
	}
	m.written[filepath.Base(filePath)] = track.Clone()
	return nil
}

type MockInferrer struct {
	calls int
	err   error
}

func (m *MockInferrer) InferTrack(ctx context.Context, key string, existing *music.Track) (*music.Track, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &music.Track{
		Key:    key,
		Title:  "Inferred " + key,
		Artist: "Artist",
		Album:  music.Album{Name: "Artist Sets", Artist: "Artist"},
		Genre:  "House",
		Date:   music.NewDate("2024"),
	}, nil
}

// MockConfirmer accepts proposals unchanged, or runs onConfirm when set.
type MockConfirmer struct {
	calls     int
	onConfirm func(call int, proposed *music.Track) (*music.Track, error)
}

func (m *MockConfirmer) Confirm(ctx context.Context, proposed *music.Track) (*music.Track, error) {
	m.calls++
	if m.onConfirm != nil {
		return m.onConfirm(m.calls, proposed)
	}
	return proposed.Clone(), nil
}

type MockSyncer struct {
	pulls, pushes int
}

func (m *MockSyncer) Pull(ctx context.Context) (syncing.Result, error) {
	m.pulls++
	return syncing.ResultSynced, nil
}

func (m *MockSyncer) Push(ctx context.Context) (syncing.Result, error) {
	m.pushes++
	return syncing.ResultSynced, nil
}

type fixture struct {
	lib       *MockLibrary
	transport *MockTransport
	codec     *MockCodec
	inferrer  *MockInferrer
	confirmer *MockConfirmer
	syncer    *MockSyncer
	service   *Service
}

func newFixture(t *testing.T, keys ...string) *fixture {
	t.Helper()
	f := &fixture{
		lib:       NewMockLibrary(),
		transport: &MockTransport{dir: t.TempDir(), keys: keys, owns: true},
		codec:     &MockCodec{marked: map[string]bool{}},
		inferrer:  &MockInferrer{},
		confirmer: &MockConfirmer{},
		syncer:    &MockSyncer{},
	}
	f.service = NewService(f.lib, f.transport, f.codec, f.codec, f.inferrer, f.confirmer, f.syncer)
	return f
}

func TestClassifyAsset_NewAssetIsProcessed(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "new.mp3", DefaultOptions())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if outcome.Status != StatusProcessed || !outcome.Persisted {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if f.inferrer.calls != 1 || f.confirmer.calls != 1 {
		t.Errorf("expected inference and confirmation, got %d/%d", f.inferrer.calls, f.confirmer.calls)
	}
	stored := f.lib.tracks["new.mp3"]
	if stored == nil || !stored.Equal(outcome.Track) {
		t.Errorf("expected confirmed record persisted, got %+v", stored)
	}
	if _, ok := f.lib.albums["Artist Sets"]; !ok {
		t.Error("expected album upserted")
	}
	if f.codec.written["new.mp3"] == nil {
		t.Error("expected tags written")
	}
	if len(f.transport.published) != 1 || f.transport.published[0] != "new.mp3" {
		t.Errorf("expected publish of new.mp3, got %v", f.transport.published)
	}
	if _, err := os.Stat(filepath.Join(f.transport.dir, "new.mp3")); !os.IsNotExist(err) {
		t.Error("expected scratch copy removed")
	}
}

func TestClassifyAsset_KnownAssetSkippedAtStart(t *testing.T) {
	f := newFixture(t)
	f.lib.tracks["known.mp3"] = &music.Track{Key: "known.mp3", Title: "Known"}

	outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "known.mp3", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusSkippedKnown {
		t.Errorf("expected %s, got %s", StatusSkippedKnown, outcome.Status)
	}
	if len(f.transport.fetched) != 0 || len(f.transport.published) != 0 {
		t.Errorf("expected no transport calls, got fetch=%v publish=%v", f.transport.fetched, f.transport.published)
	}
	if f.lib.writes != 0 {
		t.Errorf("expected no store writes, got %d", f.lib.writes)
	}
	if f.inferrer.calls != 0 {
		t.Error("expected no inference")
	}
}

func TestClassifyAsset_KnownAssetReprocessedWhenCheckDisabled(t *testing.T) {
	f := newFixture(t)
	f.lib.tracks["known.mp3"] = &music.Track{Key: "known.mp3", Title: "Known"}

	opts := DefaultOptions()
	opts.SkipIfInStore = false
	outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "known.mp3", opts)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusProcessed {
		t.Errorf("expected %s, got %s", StatusProcessed, outcome.Status)
	}
	if len(f.lib.tracks) != 1 || f.lib.tracks["known.mp3"].Title != "Inferred known.mp3" {
		t.Errorf("expected record replaced in place, got %+v", f.lib.tracks)
	}
}

func TestClassifyAsset_ProcessedMarkerSkips(t *testing.T) {
	f := newFixture(t)
	f.codec.marked["done.flac"] = true

	outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "done.flac", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusSkippedProcessed {
		t.Errorf("expected %s, got %s", StatusSkippedProcessed, outcome.Status)
	}
	if f.inferrer.calls != 0 {
		t.Error("expected no inference for processed asset")
	}
	if _, err := os.Stat(filepath.Join(f.transport.dir, "done.flac")); !os.IsNotExist(err) {
		t.Error("expected scratch copy removed")
	}
}

func TestClassifyAsset_DryRun(t *testing.T) {
	f := newFixture(t)
	opts := DefaultOptions()
	opts.DryRun = true

	outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "maybe.mp3", opts)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Status != StatusWouldProcess {
		t.Errorf("expected %s, got %s", StatusWouldProcess, outcome.Status)
	}
	if f.inferrer.calls != 1 {
		t.Errorf("expected inference to run, got %d calls", f.inferrer.calls)
	}
	if outcome.Track == nil || outcome.Track.Title != "Inferred maybe.mp3" {
		t.Errorf("expected proposed record returned, got %+v", outcome.Track)
	}
	if f.confirmer.calls != 0 {
		t.Error("expected no confirmation on dry run")
	}
	if f.lib.writes != 0 || len(f.codec.written) != 0 || len(f.transport.published) != 0 {
		t.Errorf("expected no writes, got store=%d tags=%d publish=%d", f.lib.writes, len(f.codec.written), len(f.transport.published))
	}
}

func TestClassifyAsset_PerAssetFailures(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(f *fixture)
		wantPersisted bool
	}{
		{"fetch", func(f *fixture) { f.transport.fetchErr = music.Wrap(music.ErrTransport, "fetch", "boom", nil) }, false},
		{"inference", func(f *fixture) { f.inferrer.err = music.Wrap(music.ErrAsset, "infer", "bad json", nil) }, false},
		{"tag write", func(f *fixture) { f.codec.writeErr = errors.New("codec failure") }, true},
		{"invalid date", func(f *fixture) {
			f.confirmer.onConfirm = func(_ int, p *music.Track) (*music.Track, error) {
				p.Date = music.NewDate("last summer")
				return p, nil
			}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			outcome, err := f.service.ClassifyAsset(context.Background(), "/music", "a.mp3", DefaultOptions())
			if err != nil {
				t.Fatalf("expected per-asset failure to be reported in the outcome, got %v", err)
			}
			if outcome.Status != StatusFailed || outcome.Err == nil {
				t.Errorf("unexpected outcome %+v", outcome)
			}
			if outcome.Persisted != tt.wantPersisted {
				t.Errorf("Persisted = %v, want %v", outcome.Persisted, tt.wantPersisted)
			}
		})
	}
}

func TestClassifyAsset_StoreErrorIsFatal(t *testing.T) {
	f := newFixture(t)
	f.lib.upsertErr = music.Wrap(music.ErrStore, "upsert", "disk full", nil)

	_, err := f.service.ClassifyAsset(context.Background(), "/music", "a.mp3", DefaultOptions())
	if !errors.Is(err, music.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}
