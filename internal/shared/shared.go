// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that appends to the file at path, creating parent directories as needed.
func NewFileLogger(path string) (*log.Logger, io.Closer, error) {
	f, err := openLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f), f, nil
}

// NewTeeLogger creates a [log.Logger] that writes to w and also appends to the file at path.
//
// When path is empty the logger only writes to w.
func NewTeeLogger(w io.Writer, path string) (*log.Logger, io.Closer, error) {
	if w == nil {
		w = os.Stderr
	}
	if path == "" {
		return NewLogger(w), nopCloser{}, nil
	}
	f, err := openLogFile(path)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(io.MultiWriter(w, f)), f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create log directory: %v", ErrLocalIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open log file: %v", ErrLocalIO, err)
	}
	return f, nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel parses a level name, falling back to [log.InfoLevel].
func ParseLogLevel(s string) log.Level {
	if s == "" {
		return log.InfoLevel
	}
	ll, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return ll
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// NormalizeTrackKey builds a case and whitespace insensitive key for a title/artist pair.
func NormalizeTrackKey(title, artist string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ") + "|" +
		strings.Join(strings.Fields(strings.ToLower(artist)), " ")
}

// MarshalJSON encodes v as JSON, indented with two spaces when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}
