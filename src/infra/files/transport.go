package files

import (
	"github.com/contre95/song-classifier/src/features/classifying"
	"github.com/contre95/song-classifier/src/music"
)

// Kind selects a transport implementation.
type Kind int

const (
	KindLocal Kind = iota
	KindWebDAV
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "local"
	case KindWebDAV:
		return "webdav"
	default:
		return "unknown"
	}
}

// Options carries what the remote transport needs. The local transport ignores it.
type Options struct {
	Host     string
	Username string
	Password string
	TempDir  string
}

// NewTransport builds the transport for kind.
func NewTransport(kind Kind, opts Options) (classifying.Transport, error) {
	switch kind {
	case KindLocal:
		return NewLocalTransport(), nil
	case KindWebDAV:
		if opts.Host == "" {
			return nil, music.Wrap(music.ErrConfiguration, "files.NewTransport", "webdav host is required", nil)
		}
		if opts.TempDir == "" {
			return nil, music.Wrap(music.ErrConfiguration, "files.NewTransport", "scratch directory is required", nil)
		}
		return NewWebDAVTransport(opts.Host, opts.Username, opts.Password, opts.TempDir), nil
	default:
		return nil, music.Wrap(music.ErrConfiguration, "files.NewTransport", "unknown transport "+kind.String(), nil)
	}
}
