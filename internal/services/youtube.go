// YouTube search implementation of [Locator]
//
// Scrapes the public results page; no API key is involved.
package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultSearchURL     = "https://www.youtube.com/results"
	defaultSearchTimeout = 10 * time.Second
	defaultCandidates    = 3
	maxSearchBody        = 8 << 20
	youtubeProvider      = "youtube"
)

var videoIDPattern = regexp.MustCompile(`watch\?v=([A-Za-z0-9_-]{11})`)

// YouTubeSearchOpts configures a [YouTubeSearch].
type YouTubeSearchOpts struct {
	SearchURL  string
	Limit      int           // Maximum candidates per query
	Interval   time.Duration // Minimum spacing between requests, zero disables pacing
	Timeout    time.Duration
	HTTPClient *http.Client
	UserAgent  func() string
	Logger     *log.Logger
}

// YouTubeSearch implements [Locator] against the YouTube results page.
type YouTubeSearch struct {
	searchURL  string
	limit      int
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  func() string
	logger     *log.Logger
}

// NewYouTubeSearch creates a new YouTube search locator.
func NewYouTubeSearch(opts YouTubeSearchOpts) *YouTubeSearch {
	if opts.SearchURL == "" {
		opts.SearchURL = defaultSearchURL
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultCandidates
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultSearchTimeout
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

	var limiter *rate.Limiter
	if opts.Interval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Interval), 1)
	}

	return &YouTubeSearch{
		searchURL:  opts.SearchURL,
		limit:      opts.Limit,
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
	}
}

// Locate issues one search request and returns at most limit unique candidates in page order.
func (y *YouTubeSearch) Locate(ctx context.Context, query string) []models.SourceCandidate {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			y.logger.Warn("search cancelled", "query", query, "error", err)
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	searchURL := y.searchURL + "?search_query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		y.logger.Error("failed to create search request", "query", query, "error", err)
		return nil
	}
	for k, v := range shared.BrowserHeaders(y.userAgent()) {
		req.Header.Set(k, v)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		y.logger.Error("search request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		y.logger.Error("search returned non-success status", "query", query, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchBody))
	if err != nil {
		y.logger.Error("failed to read search response", "query", query, "error", err)
		return nil
	}

	ids := ExtractVideoIDs(body, y.limit)
	y.logger.Debug("search complete", "query", query, "candidates", len(ids))

	candidates := make([]models.SourceCandidate, 0, len(ids))
	for _, id := range ids {
		candidates = append(candidates, models.SourceCandidate{Identifier: id, ProviderHint: youtubeProvider})
	}
	return candidates
}

// ExtractVideoIDs returns up to limit unique video IDs in order of first appearance.
func ExtractVideoIDs(body []byte, limit int) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, m := range videoIDPattern.FindAllSubmatch(body, -1) {
		id := string(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids
}
