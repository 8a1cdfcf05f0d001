package strategies

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
)

const (
	defaultMirrorTimeout = 10 * time.Second
	defaultStreamTimeout = 30 * time.Second
	streamChunkSize      = 8192
	maxManifestBody      = 4 << 20

	mirrorTripAfter = 3
	mirrorCooldown  = 10 * time.Minute
)

// InvidiousOpts configures [Invidious].
type InvidiousOpts struct {
	Instances     []string
	Timeout       time.Duration // Per manifest request
	StreamTimeout time.Duration // Longest wait for headers or the next chunk of an audio stream
	HTTPClient    *http.Client
	Normalizer    Normalizer
	UserAgent     func() string
	Logger        *log.Logger
}

type mirror struct {
	base string
	cb   *gobreaker.CircuitBreaker[string]
}

// Invidious fetches audio from public Invidious API mirrors.
//
// Each mirror sits behind a circuit breaker that opens after consecutive
// transport or server failures; an open mirror is skipped until the cooldown ends.
type Invidious struct {
	mirrors       []*mirror
	timeout       time.Duration
	streamTimeout time.Duration
	httpClient    *http.Client
	normalizer    Normalizer
	userAgent     func() string
	logger        *log.Logger
}

// NewInvidious creates the direct API strategy.
func NewInvidious(opts InvidiousOpts) *Invidious {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultMirrorTimeout
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = defaultStreamTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.UserAgent == nil {
		opts.UserAgent = shared.RandomUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	logger := opts.Logger.WithPrefix(NameInvidious)

	inv := &Invidious{
		timeout:       opts.Timeout,
		streamTimeout: opts.StreamTimeout,
		httpClient:    opts.HTTPClient,
		normalizer:    opts.Normalizer,
		userAgent:     opts.UserAgent,
		logger:        logger,
	}

	for _, base := range opts.Instances {
		base = strings.TrimRight(strings.TrimSpace(base), "/")
		if base == "" {
			continue
		}
		inv.mirrors = append(inv.mirrors, &mirror{
			base: base,
			cb: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
				Name:        base,
				MaxRequests: 1,
				Timeout:     mirrorCooldown,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= mirrorTripAfter
				},
				// A video without audio formats says nothing about the mirror's health.
				IsSuccessful: func(err error) bool {
					return err == nil || errors.Is(err, shared.ErrNotFound)
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Info("mirror state changed", "mirror", name, "from", from.String(), "to", to.String())
				},
			}),
		})
	}
	return inv
}

func (i *Invidious) Name() string { return NameInvidious }

// Attempt tries each mirror in order until one yields a non-empty stream.
func (i *Invidious) Attempt(ctx context.Context, candidate models.SourceCandidate, scratchDir string) models.RetrievalResult {
	if len(i.mirrors) == 0 {
		return fail(fmt.Errorf("%w: no invidious instances configured", shared.ErrServiceUnavailable))
	}

	var lastErr error
	for _, m := range i.mirrors {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("%w: %v", shared.ErrTransientNetwork, err))
		}

		path, err := m.cb.Execute(func() (string, error) {
			return i.fetch(ctx, m.base, candidate.Identifier, scratchDir)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				i.logger.Debug("mirror open, skipping", "mirror", m.base)
				err = fmt.Errorf("%w: mirror %s: %v", shared.ErrServiceUnavailable, m.base, err)
			} else {
				i.logger.Debug("mirror failed", "mirror", m.base, "candidate", candidate.Identifier, "error", err)
			}
			lastErr = err
			continue
		}

		i.logger.Debug("stream saved", "mirror", m.base, "candidate", candidate.Identifier, "path", path)
		return finalize(ctx, i.normalizer, scratchDir)
	}

	if errors.Is(lastErr, shared.ErrServiceUnavailable) {
		lastErr = fmt.Errorf("%w: %v", shared.ErrTransientNetwork, lastErr)
	}
	return fail(lastErr)
}

// AudioStream is the selected audio format from a manifest.
type AudioStream struct {
	URL     string
	Type    string
	Bitrate int64
}

// SelectAudioStream picks the highest-bitrate audio/* entry of adaptiveFormats.
// Bitrates may be encoded as numbers or strings.
func SelectAudioStream(manifest []byte) (AudioStream, bool) {
	var best AudioStream
	found := false
	gjson.GetBytes(manifest, "adaptiveFormats").ForEach(func(_, f gjson.Result) bool {
		typ := f.Get("type").String()
		link := f.Get("url").String()
		if !strings.HasPrefix(typ, "audio/") || link == "" {
			return true
		}
		br := f.Get("bitrate").Int()
		if !found || br > best.Bitrate {
			best = AudioStream{URL: link, Type: typ, Bitrate: br}
			found = true
		}
		return true
	})
	return best, found
}

// fetch downloads the best audio stream for id from one mirror into scratchDir.
func (i *Invidious) fetch(ctx context.Context, base, id, scratchDir string) (string, error) {
	manifest, err := i.manifest(ctx, base, id)
	if err != nil {
		return "", err
	}

	stream, ok := SelectAudioStream(manifest)
	if !ok {
		return "", fmt.Errorf("%w: no audio formats for %s", shared.ErrNotFound, id)
	}

	path := filepath.Join(scratchDir, "stream"+streamExt(stream.Type))
	n, err := i.stream(ctx, stream.URL, path)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if n == 0 {
		os.Remove(path)
		return "", fmt.Errorf("%w: empty audio stream", shared.ErrTransientNetwork)
	}
	return path, nil
}

func (i *Invidious) manifest(ctx context.Context, base, id string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	endpoint := base + "/api/v1/videos/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", i.userAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, shared.StatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read manifest: %v", shared.ErrTransientNetwork, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid manifest from %s", shared.ErrTransientNetwork, base)
	}
	return body, nil
}

func (i *Invidious) stream(ctx context.Context, link, path string) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	idle := time.AfterFunc(i.streamTimeout, cancel)
	defer idle.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", i.userAgent())

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, shared.StatusError(resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrLocalIO, err)
	}

	body := &idleReader{r: resp.Body, timer: idle, timeout: i.streamTimeout}
	n, err := io.CopyBuffer(f, body, make([]byte, streamChunkSize))
	if cerr := f.Close(); err == nil && cerr != nil {
		return n, fmt.Errorf("%w: %v", shared.ErrLocalIO, cerr)
	}
	if err != nil {
		return n, fmt.Errorf("%w: stream stalled or interrupted after %d bytes: %v", shared.ErrTransientNetwork, n, err)
	}
	return n, nil
}

// idleReader re-arms timer whenever a read makes progress, so only a silent
// connection trips the stream timeout.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.timeout)
	}
	return n, err
}

func streamExt(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return ".webm"
	case "audio/mp4":
		return ".m4a"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".audio"
	}
}
