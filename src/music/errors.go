package music

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrStore             = errors.New("record store error")
	ErrAsset             = errors.New("asset error")
	ErrTransport         = errors.New("transport error")
	ErrSync              = errors.New("sync error")
	ErrLockTimeout       = errors.New("lock timeout")
	ErrNotConfigured     = errors.New("not configured")
	ErrMissingAPIKey     = errors.New("missing inference api key")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrCancelled         = errors.New("cancelled by operator")
)

// Wrap builds an error that carries the operation context and the marker so
// callers can classify it with errors.Is.
func Wrap(marker error, operation, message string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "failure"
	}
	if marker == nil {
		marker = ErrAsset
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err must stop a batch instead of skipping one asset.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrStore)
}
