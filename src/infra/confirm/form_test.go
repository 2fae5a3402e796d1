package confirm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/contre95/song-classifier/src/music"
)

func proposal() *music.Track {
	return &music.Track{
		Key:    "sets/live.mp3",
		Title:  "Live at Dusk",
		Artist: "DJ Pulse",
		Album:  music.Album{Name: "Pulse Sets", Artist: "DJ Pulse"},
		Genre:  "Deep House",
		Date:   music.NewDate("2023"),
	}
}

func press(m formModel, keys ...tea.KeyMsg) formModel {
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(formModel)
	}
	return m
}

func typeText(m formModel, text string) formModel {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(formModel)
}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keySave  = tea.KeyMsg{Type: tea.KeyCtrlS}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyCtrlK = tea.KeyMsg{Type: tea.KeyCtrlK}
	keyCtrlU = tea.KeyMsg{Type: tea.KeyCtrlU}
)

func TestFormModel_SaveUnchanged(t *testing.T) {
	m := press(newFormModel(proposal(), nil), keySave)
	if !m.submitted {
		t.Fatal("expected form to be submitted")
	}
	got, err := formResult(m)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(proposal()) {
		t.Errorf("expected proposal unchanged, got %+v", got)
	}
}

func TestFormModel_EditTitle(t *testing.T) {
	m := newFormModel(proposal(), nil)
	m = press(m, keyCtrlU)
	m = typeText(m, "Sunrise")
	m = press(m, keySave)

	got, err := formResult(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Sunrise" {
		t.Errorf("Title = %q, want %q", got.Title, "Sunrise")
	}
}

func TestFormModel_Navigation(t *testing.T) {
	m := newFormModel(proposal(), nil)
	m = press(m, keyEnter, keyDown)
	if m.focus != fieldAlbum {
		t.Fatalf("focus = %d, want %d", m.focus, fieldAlbum)
	}
	m = press(m, keyUp, tea.KeyMsg{Type: tea.KeyShiftTab}, keyUp)
	if m.focus != fieldTrack {
		t.Errorf("focus = %d, want %d", m.focus, fieldTrack)
	}
	m = press(m, keyDown, keyDown, keyDown, keyDown, keyDown)
	if m.focus != fieldDate {
		t.Fatalf("focus = %d, want %d", m.focus, fieldDate)
	}
	m = press(m, keyEnter)
	if !m.submitted {
		t.Error("expected enter on the last field to submit")
	}
}

func TestFormModel_CancelReturnsErrCancelled(t *testing.T) {
	for _, k := range []tea.KeyMsg{keyEsc, {Type: tea.KeyCtrlC}} {
		m := press(newFormModel(proposal(), nil), k)
		if !m.cancelled {
			t.Fatalf("%s: expected cancelled", k)
		}
		if _, err := formResult(m); !errors.Is(err, music.ErrCancelled) {
			t.Errorf("%s: expected ErrCancelled, got %v", k, err)
		}
	}
}

func TestFormModel_CompilationToggle(t *testing.T) {
	m := press(newFormModel(proposal(), nil), keyCtrlK)
	got := m.track()
	if got.Album.Artist != music.VariousArtistsName {
		t.Errorf("album artist = %q, want %q", got.Album.Artist, music.VariousArtistsName)
	}

	m = press(m, keyCtrlK)
	if got := m.track(); got.Album.Artist != "DJ Pulse" {
		t.Errorf("album artist = %q after toggling back, want %q", got.Album.Artist, "DJ Pulse")
	}
}

func TestFormModel_KnownAlbumFillsAlbumArtist(t *testing.T) {
	albums := []*music.Album{{Name: "Summer Mix", Artist: "Various Artists"}, {Name: "Night Drive", Artist: "Neon"}}
	m := newFormModel(proposal(), albums)
	m = press(m, keyDown, keyDown, keyCtrlU)
	m = typeText(m, "Night Drive")
	m = press(m, keyDown)

	got := m.track()
	if got.Album.Name != "Night Drive" || got.Album.Artist != "Neon" {
		t.Errorf("unexpected album %+v", got.Album)
	}
}

func TestFormModel_InvalidDateBlocksSubmit(t *testing.T) {
	m := newFormModel(proposal(), nil)
	m = press(m, keyDown, keyDown, keyDown, keyDown, keyDown, keyCtrlU)
	m = typeText(m, "summer")
	m = press(m, keySave)
	if m.submitted {
		t.Fatal("expected invalid date to block submit")
	}
	if m.err == "" {
		t.Error("expected an error message")
	}

	m = press(m, keyCtrlU, keySave)
	got, err := formResult(m)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date != nil {
		t.Errorf("expected blank date to become nil, got %q", *got.Date)
	}
}

func TestFormModel_ProposedGenreListedFirst(t *testing.T) {
	m := newFormModel(proposal(), nil)
	if len(m.genres) != len(GenreSuggestions)+1 || m.genres[0] != "Deep House" {
		t.Errorf("expected proposed genre first, got %v", m.genres)
	}

	m = newFormModel(&music.Track{Key: "a.mp3", Genre: "techno"}, nil)
	if len(m.genres) != len(GenreSuggestions) {
		t.Errorf("expected known genre not duplicated, got %v", m.genres)
	}
}

func TestAutoConfirmer(t *testing.T) {
	p := proposal()
	got, err := AutoConfirmer{}.Confirm(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(p) || got == p {
		t.Errorf("expected an equal copy, got %+v", got)
	}
}

func TestNewRefusesNonTerminalInput(t *testing.T) {
	in, err := os.Create(filepath.Join(t.TempDir(), "stdin"))
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	if _, err := New(nil, in, os.Stdout, false); !errors.Is(err, ErrNotInteractive) {
		t.Fatalf("expected ErrNotInteractive, got %v", err)
	}
	c, err := New(nil, in, os.Stdout, true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(AutoConfirmer); !ok {
		t.Errorf("expected AutoConfirmer with auto accept, got %T", c)
	}
}
