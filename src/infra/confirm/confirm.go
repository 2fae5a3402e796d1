// Package confirm provides the operator facing confirmation of inferred records.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/contre95/song-classifier/src/features/classifying"
	"github.com/contre95/song-classifier/src/music"
	"github.com/mattn/go-isatty"
)

// AlbumSource lists the albums offered in the album field.
type AlbumSource interface {
	GetAlbums(ctx context.Context) ([]*music.Album, error)
}

// ErrNotInteractive is returned by New when no form can be shown and
// proposals were not explicitly auto-accepted.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// New returns an AutoConfirmer when autoAccept is set and a FormConfirmer when
// in is a terminal. Any other input yields ErrNotInteractive.
func New(albums AlbumSource, in *os.File, out io.Writer, autoAccept bool) (classifying.Confirmer, error) {
	if autoAccept {
		slog.Debug("confirm.New: accepting proposals unchanged")
		return AutoConfirmer{}, nil
	}
	if IsTerminal(in) {
		return NewFormConfirmer(albums, in, out), nil
	}
	return nil, ErrNotInteractive
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// FormConfirmer shows an editable form for every proposed record.
type FormConfirmer struct {
	albums AlbumSource
	in     io.Reader
	out    io.Writer
}

// NewFormConfirmer creates a new FormConfirmer.
func NewFormConfirmer(albums AlbumSource, in io.Reader, out io.Writer) *FormConfirmer {
	return &FormConfirmer{albums: albums, in: in, out: out}
}

// Confirm runs the form until the operator saves or cancels.
// Cancelling returns music.ErrCancelled.
func (c *FormConfirmer) Confirm(ctx context.Context, proposed *music.Track) (*music.Track, error) {
	albums, err := c.albums.GetAlbums(ctx)
	if err != nil {
		return nil, err
	}

	program := tea.NewProgram(newFormModel(proposed, albums),
		tea.WithContext(ctx),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
	)
	final, err := program.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("FormConfirmer.Confirm: running form: %w", err)
	}
	return formResult(final)
}

func formResult(final tea.Model) (*music.Track, error) {
	m, ok := final.(formModel)
	if !ok || !m.submitted {
		return nil, music.ErrCancelled
	}
	return m.track(), nil
}

// AutoConfirmer accepts every proposal unchanged.
type AutoConfirmer struct{}

func (AutoConfirmer) Confirm(ctx context.Context, proposed *music.Track) (*music.Track, error) {
	slog.Info("AutoConfirmer.Confirm: accepting proposed record", "key", proposed.Key, "track", proposed.Title)
	return proposed.Clone(), nil
}
