package strategies

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

const (
	shortSocketTimeout = 15 * time.Second
	socketTimeout      = 30 * time.Second
	defaultRetries     = 10
)

var aria2cArgs = []string{"--min-split-size=1M", "--max-connection-per-server=16", "--max-concurrent-downloads=16", "--split=16"}

// optionsFunc renders the options for one attempt. It is evaluated per call so
// rotated User-Agents differ between attempts.
type optionsFunc func(url, output string) ExtractOptions

// extractorStrategy is a named extractor profile.
type extractorStrategy struct {
	name       string
	extractor  Extractor
	options    optionsFunc
	normalizer Normalizer
	logger     *log.Logger
}

func newExtractorStrategy(name string, ex Extractor, opts optionsFunc, d Deps) *extractorStrategy {
	return &extractorStrategy{
		name:       name,
		extractor:  ex,
		options:    opts,
		normalizer: d.Normalizer,
		logger:     d.Logger.WithPrefix(name),
	}
}

func (s *extractorStrategy) Name() string { return s.name }

// Attempt runs the extractor into scratchDir and finalizes whatever it produced.
func (s *extractorStrategy) Attempt(ctx context.Context, candidate models.SourceCandidate, scratchDir string) models.RetrievalResult {
	opts := s.options(candidate.URL(), filepath.Join(scratchDir, outputTemplate))
	s.logger.Debug("extracting", "candidate", candidate.Identifier)

	if err := s.extractor.Extract(ctx, opts); err != nil {
		s.logger.Debug("extractor failed", "candidate", candidate.Identifier, "error", err)
		return fail(err)
	}
	return finalize(ctx, s.normalizer, scratchDir)
}

// anonymousOptions sends no cookies, keeps no cache and rotates the User-Agent.
func anonymousOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		return ExtractOptions{
			URL:                    url,
			OutputTemplate:         output,
			Headers:                map[string]string{"User-Agent": d.UserAgent()},
			SocketTimeout:          shortSocketTimeout,
			Retries:                defaultRetries,
			NoCheckCertificate:     true,
			GeoBypass:              true,
			SkipStreamingManifests: true,
			NoCookies:              true,
			NoCacheDir:             true,
		}
	}
}

// legacyOptions pins an old desktop agent and the legacy TLS handshake.
func legacyOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		return ExtractOptions{
			URL:                    url,
			OutputTemplate:         output,
			Headers:                map[string]string{"User-Agent": shared.LegacyUserAgent},
			SocketTimeout:          socketTimeout,
			Retries:                defaultRetries,
			NoCheckCertificate:     true,
			GeoBypass:              true,
			LegacyServerConnect:    true,
			SkipStreamingManifests: true,
		}
	}
}

// alternativeOptions sends full browser headers and hands the transfer to aria2c when installed.
func alternativeOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		o := ExtractOptions{
			URL:                    url,
			OutputTemplate:         output,
			Headers:                shared.BrowserHeaders(d.UserAgent()),
			SocketTimeout:          socketTimeout,
			Retries:                defaultRetries,
			NoCheckCertificate:     true,
			GeoBypass:              true,
			SkipStreamingManifests: true,
		}
		if d.Aria2c != "" {
			o.ExternalDownloader = d.Aria2c
			o.ExternalDownloaderArgs = aria2cArgs
		}
		return o
	}
}

// browserOptions borrows Chrome cookies when a profile exists and raises every retry counter.
func browserOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		o := ExtractOptions{
			URL:                url,
			OutputTemplate:     output,
			Headers:            shared.BrowserHeaders(d.UserAgent()),
			SocketTimeout:      socketTimeout,
			Retries:            defaultRetries,
			FragmentRetries:    defaultRetries,
			FileAccessRetries:  defaultRetries,
			ExtractorRetries:   defaultRetries,
			NoCheckCertificate: true,
			GeoBypass:          true,
		}
		if d.ChromeProfile {
			o.CookiesFromBrowser = chromeBrowser
		}
		return o
	}
}

func cliOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		o := ExtractOptions{
			URL:                url,
			OutputTemplate:     output,
			NoCheckCertificate: true,
			GeoBypass:          true,
		}
		if d.ChromeProfile {
			o.CookiesFromBrowser = chromeBrowser
		}
		return o
	}
}

func directOptions(d Deps) optionsFunc {
	return func(url, output string) ExtractOptions {
		return ExtractOptions{
			URL:                url,
			OutputTemplate:     output,
			Headers:            map[string]string{"User-Agent": d.UserAgent()},
			SocketTimeout:      socketTimeout,
			Retries:            defaultRetries,
			NoCheckCertificate: true,
			GeoBypass:          true,
		}
	}
}
