package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/songdeck/songdeck/internal/model"
	"github.com/songdeck/songdeck/internal/state"
	"github.com/songdeck/songdeck/internal/tagreader"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), nil)
	saver := state.NewSaver(store, time.Hour, nil)
	e := New(store, saver, nil, tagreader.NewReader(nil), nil)
	e.Load()
	return e
}

func TestImportFilesSkipsNonAudioAndDuplicates(t *testing.T) {
	e := newTestEngine(t)

	paths := []string{
		"/music/one.mp3",
		"/music/two.flac",
		"/music/readme.txt",
		"/music/one.mp3",
	}
	if added := e.ImportFiles(paths); added != 2 {
		t.Errorf("ImportFiles() added %d, expected 2", added)
	}

	if added := e.ImportFiles(paths); added != 0 {
		t.Errorf("re-import added %d, expected 0", added)
	}

	st := e.State()
	if n := len(st.ActivePlaylist().Tracks); n != 2 {
		t.Errorf("active playlist has %d tracks, expected 2", n)
	}
}

func TestImportFolderWalksRecursively(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.ogg", filepath.Join("sub", "c.wav"), "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	e := newTestEngine(t)
	added, err := e.ImportFolder(dir)
	if err != nil {
		t.Fatalf("ImportFolder() error: %v", err)
	}
	if added != 3 {
		t.Errorf("ImportFolder() added %d, expected 3", added)
	}

	tracks := e.State().ActivePlaylist().Tracks
	if len(tracks) != 3 {
		t.Fatalf("active playlist has %d tracks, expected 3", len(tracks))
	}
	// Sorted path order, not discovery order.
	if filepath.Base(tracks[0].Path) != "a.ogg" {
		t.Errorf("first track = %q, expected a.ogg", tracks[0].Path)
	}
}

func TestDeleteLastPlaylistForbidden(t *testing.T) {
	e := newTestEngine(t)

	if err := e.DeletePlaylist(model.DefaultPlaylistID); err == nil {
		t.Fatal("DeletePlaylist() removed the last playlist")
	}

	id := e.CreatePlaylist("Second")
	if err := e.DeletePlaylist(model.DefaultPlaylistID); err != nil {
		t.Fatalf("DeletePlaylist() with two playlists failed: %v", err)
	}

	st := e.State()
	if len(st.Playlists) != 1 || st.Playlists[0].ID != id {
		t.Errorf("playlists = %+v, expected only the new one", st.Playlists)
	}
	if st.ActivePlaylistID != id {
		t.Errorf("active id = %q, expected fallback to remaining playlist", st.ActivePlaylistID)
	}
}

func TestCreatePlaylistBecomesActive(t *testing.T) {
	e := newTestEngine(t)
	id := e.CreatePlaylist("  ")

	st := e.State()
	if st.ActivePlaylistID != id {
		t.Errorf("active id = %q, expected the new playlist %q", st.ActivePlaylistID, id)
	}
	for _, pl := range st.Playlists {
		if pl.ID == id && pl.Name == "" {
			t.Error("blank playlist name survived creation")
		}
	}
}

func TestToggleLikedPrunesUnknownTracks(t *testing.T) {
	e := newTestEngine(t)
	e.ImportFiles([]string{"/music/liked.mp3"})

	e.ToggleLiked("/music/liked.mp3")
	if liked := e.State().LikedTrackIDs; len(liked) != 1 || liked[0] != "/music/liked.mp3" {
		t.Errorf("liked = %v, expected the imported track", liked)
	}

	// A second toggle unlikes.
	e.ToggleLiked("/music/liked.mp3")
	if liked := e.State().LikedTrackIDs; len(liked) != 0 {
		t.Errorf("liked = %v, expected empty after second toggle", liked)
	}

	// Liking an id that exists in no playlist is dropped by normalization.
	e.ToggleLiked("/music/ghost.mp3")
	if liked := e.State().LikedTrackIDs; len(liked) != 0 {
		t.Errorf("liked = %v, expected ghost id pruned", liked)
	}
}

func TestRemoveTrackReclampsIndices(t *testing.T) {
	e := newTestEngine(t)
	e.ImportFiles([]string{"/music/a.mp3", "/music/b.mp3"})
	e.SetCurrentIndex(1)

	if err := e.RemoveTrack("/music/b.mp3"); err != nil {
		t.Fatalf("RemoveTrack() error: %v", err)
	}

	st := e.State()
	if st.CurrentIndex != 0 {
		t.Errorf("currentIndex = %d, expected re-clamped 0", st.CurrentIndex)
	}

	if err := e.RemoveTrack("/music/ghost.mp3"); err == nil {
		t.Error("RemoveTrack() of unknown id succeeded, expected error")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	e := newTestEngine(t)

	e.SetVolume(2.5)
	if v := e.State().Volume; v != 1 {
		t.Errorf("volume = %v, expected clamped 1", v)
	}

	e.SetVolume(-3)
	if v := e.State().Volume; v != 0 {
		t.Errorf("volume = %v, expected clamped 0", v)
	}
}

func TestUpdateSettingsKeepsAccentOnGarbage(t *testing.T) {
	e := newTestEngine(t)

	e.UpdateSettings(model.Settings{ThemeAccent: "#ff0000", AutoPlayOnStartup: true})
	if accent := e.State().Settings.ThemeAccent; accent != "#ff0000" {
		t.Fatalf("accent = %q, expected applied", accent)
	}

	e.UpdateSettings(model.Settings{ThemeAccent: "not-a-color", AutoPlayOnStartup: true})
	if accent := e.State().Settings.ThemeAccent; accent != "#ff0000" {
		t.Errorf("accent = %q, expected previous value kept", accent)
	}
}

func TestMutationsDuringDebouncedSaves(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), nil)
	saver := state.NewSaver(store, time.Millisecond, nil)
	e := New(store, saver, nil, nil, nil)
	e.Load()
	e.ImportFiles([]string{"/music/a.mp3", "/music/b.mp3"})

	// Keep mutating while background saves fire between calls. The saver must
	// serialize its own snapshot, never the state a later mutation rewrites.
	for i := 0; i < 50; i++ {
		e.SetVolume(float64(i%10) / 10)
		e.SetSearchQuery(fmt.Sprintf("query %d", i))
		time.Sleep(2 * time.Millisecond)
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	loaded := store.Load()
	if loaded.SearchQuery != "query 49" {
		t.Errorf("persisted query = %q, expected the final mutation", loaded.SearchQuery)
	}
	if loaded.Volume != 0.9 {
		t.Errorf("persisted volume = %v, expected the final mutation", loaded.Volume)
	}
}

type fakePreparer struct {
	track *model.Track
	err   error
	calls int
}

func (p *fakePreparer) Prepare(_ context.Context, _ string) (*model.Track, error) {
	p.calls++
	return p.track, p.err
}

func TestPrepareLinkTrackAddsToActivePlaylist(t *testing.T) {
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), nil)
	saver := state.NewSaver(store, time.Hour, nil)

	preparer := &fakePreparer{track: &model.Track{
		ID:             "link:abc",
		Path:           "https://example.com/song",
		SourceType:     model.SourceTypeLink,
		SourceURL:      "https://example.com/song",
		CachedFilePath: "/cache/abc.m4a",
		Title:          "Linked Song",
	}}

	e := New(store, saver, preparer, nil, nil)
	e.Load()

	track, err := e.PrepareLinkTrack(context.Background(), "https://example.com/song")
	if err != nil {
		t.Fatalf("PrepareLinkTrack() error: %v", err)
	}
	if track.ID != "link:abc" {
		t.Errorf("track id = %q, expected preparer's result", track.ID)
	}
	if !e.State().ActivePlaylist().ContainsTrack("link:abc") {
		t.Error("prepared track missing from active playlist")
	}

	preparer.err = errors.New("resolution failed")
	preparer.track = nil
	if _, err := e.PrepareLinkTrack(context.Background(), "https://example.com/other"); err == nil {
		t.Error("PrepareLinkTrack() swallowed resolution failure")
	}
}
