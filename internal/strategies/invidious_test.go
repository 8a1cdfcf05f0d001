package strategies

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/songdl/internal/audio"
	"github.com/desertthunder/songdl/internal/shared"
	th "github.com/desertthunder/songdl/internal/testing"
)

// newMirror serves a manifest whose audio streams point back at the same server.
func newMirror(t *testing.T, manifest func(base string) string, stream []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, manifest(srv.URL))
	})
	mux.HandleFunc("/stream/high", func(w http.ResponseWriter, r *http.Request) {
		w.Write(stream)
	})
	mux.HandleFunc("/stream/low", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("low quality"))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func audioManifest(base string) string {
	return fmt.Sprintf(`{
		"title": "test",
		"adaptiveFormats": [
			{"type": "video/mp4; codecs=\"avc1\"", "bitrate": "900000", "url": "%[1]s/stream/video"},
			{"type": "audio/webm; codecs=\"opus\"", "bitrate": "64000", "url": "%[1]s/stream/low"},
			{"type": "audio/mp4; codecs=\"mp4a.40.2\"", "bitrate": 160000, "url": "%[1]s/stream/high"}
		]
	}`, base)
}

// newTrickleMirror serves th.MP3Bytes in chunks with gap between them. With stall set
// the stream goes silent after the first chunk until the client hangs up.
func newTrickleMirror(t *testing.T, chunks int, gap time.Duration, stall bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, audioManifest(srv.URL))
	})
	mux.HandleFunc("/stream/high", func(w http.ResponseWriter, r *http.Request) {
		size := (len(th.MP3Bytes) + chunks - 1) / chunks
		for start := 0; start < len(th.MP3Bytes); start += size {
			if start > 0 {
				wait := gap
				if stall {
					wait = time.Minute
				}
				select {
				case <-time.After(wait):
				case <-r.Context().Done():
					return
				}
			}
			w.Write(th.MP3Bytes[start:min(start+size, len(th.MP3Bytes))])
			w.(http.Flusher).Flush()
		}
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newDeadMirror(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestSelectAudioStream(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantURL  string
		wantOK   bool
	}{
		{
			name:     "highest bitrate wins across string and number",
			manifest: audioManifest("http://m"),
			wantURL:  "http://m/stream/high",
			wantOK:   true,
		},
		{
			name:     "video only",
			manifest: `{"adaptiveFormats":[{"type":"video/webm","bitrate":"1","url":"http://m/v"}]}`,
			wantOK:   false,
		},
		{
			name:     "missing formats",
			manifest: `{"title":"x"}`,
			wantOK:   false,
		},
		{
			name:     "audio without url is ignored",
			manifest: `{"adaptiveFormats":[{"type":"audio/webm","bitrate":"999999"},{"type":"audio/mp4","bitrate":"1","url":"http://m/a"}]}`,
			wantURL:  "http://m/a",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectAudioStream([]byte(tt.manifest))
			if ok != tt.wantOK {
				t.Fatalf("SelectAudioStream() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.URL != tt.wantURL {
				t.Errorf("SelectAudioStream() url = %s, want %s", got.URL, tt.wantURL)
			}
		})
	}
}

func TestInvidious(t *testing.T) {
	t.Run("Streams Best Audio", func(t *testing.T) {
		srv, _ := newMirror(t, audioManifest, th.MP3Bytes)
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL + "/"}, HTTPClient: srv.Client()})

		dir := t.TempDir()
		res := inv.Attempt(context.Background(), candidate, dir)
		if !res.OK {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if res.Codec != audio.CanonicalMIME || res.ScratchDir != dir {
			t.Errorf("unexpected result: %+v", res)
		}
		if got := th.MustReadFile(t, res.PayloadPath); got != string(th.MP3Bytes) {
			t.Error("payload does not match the high bitrate stream")
		}
	})

	t.Run("Non-canonical Stream Is Normalized", func(t *testing.T) {
		srv, _ := newMirror(t, audioManifest, th.FLACBytes)
		norm := &fakeNormalizer{}
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}, HTTPClient: srv.Client(), Normalizer: norm})

		dir := t.TempDir()
		res := inv.Attempt(context.Background(), candidate, dir)
		if !res.OK || norm.calls != 1 {
			t.Fatalf("expected normalized success, got %+v (calls %d)", res, norm.calls)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Errorf("expected only the normalized payload in scratch, got %d entries", len(entries))
		}
	})

	t.Run("Fails Over To Next Mirror", func(t *testing.T) {
		dead, deadHits := newDeadMirror(t)
		good, goodHits := newMirror(t, audioManifest, th.MP3Bytes)
		inv := NewInvidious(InvidiousOpts{Instances: []string{dead.URL, good.URL}})

		res := inv.Attempt(context.Background(), candidate, t.TempDir())
		if !res.OK {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if deadHits.Load() != 1 || goodHits.Load() != 1 {
			t.Errorf("expected one hit per mirror, got dead=%d good=%d", deadHits.Load(), goodHits.Load())
		}
	})

	t.Run("Open Breaker Skips Dead Mirror", func(t *testing.T) {
		dead, deadHits := newDeadMirror(t)
		inv := NewInvidious(InvidiousOpts{Instances: []string{dead.URL}})

		for range mirrorTripAfter + 2 {
			res := inv.Attempt(context.Background(), candidate, t.TempDir())
			if res.OK || !res.Retryable {
				t.Fatalf("expected retryable failure, got %+v", res)
			}
		}
		if got := deadHits.Load(); got != mirrorTripAfter {
			t.Errorf("expected %d requests before the breaker opened, got %d", mirrorTripAfter, got)
		}
	})

	t.Run("No Audio Does Not Trip Breaker", func(t *testing.T) {
		srv, hits := newMirror(t, func(string) string { return `{"adaptiveFormats":[]}` }, nil)
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}})

		for range mirrorTripAfter + 1 {
			res := inv.Attempt(context.Background(), candidate, t.TempDir())
			if res.OK || !errors.Is(res.Err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %+v", res)
			}
		}
		if got := hits.Load(); got != mirrorTripAfter+1 {
			t.Errorf("expected every attempt to reach the mirror, got %d", got)
		}
	})

	t.Run("Empty Stream", func(t *testing.T) {
		srv, _ := newMirror(t, audioManifest, []byte{})
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}})

		dir := t.TempDir()
		res := inv.Attempt(context.Background(), candidate, dir)
		if res.OK {
			t.Fatal("expected failure for empty stream")
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected empty stream file to be removed, found %d entries", len(entries))
		}
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		srv, _ := newMirror(t, func(string) string { return "<html>rate limited</html>" }, nil)
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}})

		res := inv.Attempt(context.Background(), candidate, t.TempDir())
		if res.OK || !errors.Is(res.Err, shared.ErrTransientNetwork) {
			t.Errorf("expected transient failure, got %+v", res)
		}
	})

	t.Run("No Instances", func(t *testing.T) {
		res := NewInvidious(InvidiousOpts{Instances: []string{" ", ""}}).Attempt(context.Background(), candidate, t.TempDir())
		if res.OK || !errors.Is(res.Err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %+v", res)
		}
	})

	t.Run("Mirrors Trimmed", func(t *testing.T) {
		inv := NewInvidious(InvidiousOpts{Instances: []string{"https://a.example/", " https://b.example "}})
		if len(inv.mirrors) != 2 || inv.mirrors[0].base != "https://a.example" || inv.mirrors[1].base != "https://b.example" {
			t.Errorf("unexpected mirrors %+v", inv.mirrors)
		}
	})

	t.Run("Slow Steady Stream Outlasts Timeout", func(t *testing.T) {
		srv := newTrickleMirror(t, 5, 30*time.Millisecond, false)
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}, HTTPClient: srv.Client(), StreamTimeout: 80 * time.Millisecond})

		start := time.Now()
		res := inv.Attempt(context.Background(), candidate, t.TempDir())
		if !res.OK {
			t.Fatalf("expected success, got %v", res.Err)
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("stream finished in %s, expected it to run past the timeout", elapsed)
		}
		if got := th.MustReadFile(t, res.PayloadPath); got != string(th.MP3Bytes) {
			t.Error("payload does not match the trickled stream")
		}
	})

	t.Run("Stalled Stream Fails", func(t *testing.T) {
		srv := newTrickleMirror(t, 4, 0, true)
		inv := NewInvidious(InvidiousOpts{Instances: []string{srv.URL}, HTTPClient: srv.Client(), StreamTimeout: 50 * time.Millisecond})

		res := inv.Attempt(context.Background(), candidate, t.TempDir())
		if res.OK || !errors.Is(res.Err, shared.ErrTransientNetwork) {
			t.Errorf("expected transient failure, got %+v", res)
		}
	})

	t.Run("Stream Extensions", func(t *testing.T) {
		tests := map[string]string{
			`audio/webm; codecs="opus"`: ".webm",
			"audio/mp4":                 ".m4a",
			"audio/mpeg":                ".mp3",
			"audio/ogg":                 ".audio",
		}
		for in, want := range tests {
			if got := streamExt(in); got != want {
				t.Errorf("streamExt(%q) = %s, want %s", in, got, want)
			}
		}
	})
}
