// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

// Minimal payloads that mimetype recognizes as audio/mpeg and audio/flac.
var (
	MP3Bytes  = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), bytes.Repeat([]byte{0xff, 0xfb, 0x90, 0x00}, 64)...)
	FLACBytes = append([]byte("fLaC\x00\x00\x00\x22"), bytes.Repeat([]byte{0x01}, 64)...)
)

// MockProvider is a test double for [services.CatalogProvider]
type MockProvider struct {
	Playlists []models.Playlist
	Items     map[string][]models.CatalogItem
	AuthErr   error
}

func (m *MockProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.AuthErr
}

func (m *MockProvider) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, nil
}

func (m *MockProvider) ResolvePlaylist(ctx context.Context, idOrName string) (*models.Playlist, error) {
	for _, pl := range m.Playlists {
		if pl.ID == idOrName || strings.EqualFold(pl.Name, idOrName) {
			return &pl, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

func (m *MockProvider) PlaylistItems(ctx context.Context, playlistID string) ([]models.CatalogItem, error) {
	return m.Items[playlistID], nil
}

func (m *MockProvider) ExportPlaylist(ctx context.Context, idOrName string) (*models.PlaylistExport, error) {
	pl, err := m.ResolvePlaylist(ctx, idOrName)
	if err != nil {
		return nil, err
	}
	return &models.PlaylistExport{Playlist: *pl, Items: m.Items[pl.ID]}, nil
}

func (m *MockProvider) Name() string { return "mock" }

// MockLocator returns a fixed candidate list and counts calls.
type MockLocator struct {
	mu         sync.Mutex
	Candidates []models.SourceCandidate
	Queries    []string
}

func (m *MockLocator) Locate(ctx context.Context, query string) []models.SourceCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	return m.Candidates
}

// Calls returns the number of Locate calls so far.
func (m *MockLocator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func MustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be absent", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
