package strategies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songdl/internal/audio"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const (
	audioFormat      = "bestaudio/best"
	audioQuality     = "192K"
	outputTemplate   = "payload.%(ext)s"
	skipManifestsArg = "youtube:skip=dash,hls"
	chromeBrowser    = "chrome"
)

// ExtractOptions describes one extractor invocation. Every profile downloads
// the best audio stream of a single video, extracted to mp3 at 192K.
type ExtractOptions struct {
	URL            string
	OutputTemplate string
	Headers        map[string]string

	SocketTimeout     time.Duration
	Retries           int
	FragmentRetries   int
	FileAccessRetries int
	ExtractorRetries  int

	NoCheckCertificate     bool
	GeoBypass              bool
	LegacyServerConnect    bool
	NoCookies              bool
	NoCacheDir             bool
	SkipStreamingManifests bool

	CookiesFromBrowser     string
	ExternalDownloader     string
	ExternalDownloaderArgs []string
}

// headerArgs returns "Name:Value" pairs sorted by name.
func (o ExtractOptions) headerArgs() []string {
	keys := make([]string, 0, len(o.Headers))
	for k := range o.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+":"+o.Headers[k])
	}
	return out
}

// Extractor downloads a media URL according to [ExtractOptions].
type Extractor interface {
	Extract(ctx context.Context, opts ExtractOptions) error
}

// EmbeddedExtractor drives yt-dlp through go-ytdlp's command builder.
type EmbeddedExtractor struct {
	Executable string // Empty uses the yt-dlp found on PATH
}

// Command builds the go-ytdlp command for opts.
func (e *EmbeddedExtractor) Command(opts ExtractOptions) *ytdlp.Command {
	dl := ytdlp.New().
		Format(audioFormat).
		ExtractAudio().
		AudioFormat(audio.CanonicalExt).
		AudioQuality(audioQuality).
		NoPlaylist().
		Quiet().
		NoWarnings().
		ForceOverwrites().
		Output(opts.OutputTemplate)

	if e.Executable != "" {
		dl.SetExecutable(e.Executable)
	}
	for _, h := range opts.headerArgs() {
		dl.AddHeaders(h)
	}
	if opts.SocketTimeout > 0 {
		dl.SocketTimeout(opts.SocketTimeout.Seconds())
	}
	if opts.Retries > 0 {
		dl.Retries(strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		dl.FragmentRetries(strconv.Itoa(opts.FragmentRetries))
	}
	if opts.FileAccessRetries > 0 {
		dl.FileAccessRetries(strconv.Itoa(opts.FileAccessRetries))
	}
	if opts.ExtractorRetries > 0 {
		dl.ExtractorRetries(strconv.Itoa(opts.ExtractorRetries))
	}
	if opts.NoCheckCertificate {
		dl.NoCheckCertificates()
	}
	if opts.LegacyServerConnect {
		dl.LegacyServerConnect()
	}
	if opts.NoCookies {
		dl.NoCookies()
	}
	if opts.NoCacheDir {
		dl.NoCacheDir()
	}
	if opts.SkipStreamingManifests {
		dl.ExtractorArgs(skipManifestsArg)
	}
	if opts.CookiesFromBrowser != "" {
		dl.CookiesFromBrowser(opts.CookiesFromBrowser)
	}
	if opts.ExternalDownloader != "" {
		dl.Downloader(opts.ExternalDownloader)
		if len(opts.ExternalDownloaderArgs) > 0 {
			dl.DownloaderArgs("aria2c:" + strings.Join(opts.ExternalDownloaderArgs, " "))
		}
	}
	return dl
}

// Extract runs the command and classifies a failure from its stderr.
func (e *EmbeddedExtractor) Extract(ctx context.Context, opts ExtractOptions) error {
	result, err := e.Command(opts).Run(ctx, opts.URL)
	if err != nil {
		var stderr string
		if result != nil {
			stderr = result.Stderr
		}
		return classifyExtractorError(err, stderr)
	}
	return nil
}

// ProcessExtractor runs a standalone yt-dlp executable.
type ProcessExtractor struct {
	Path           string
	FFmpegLocation string
}

// Args returns the yt-dlp argument list for opts.
func (p *ProcessExtractor) Args(opts ExtractOptions) []string {
	args := []string{
		"--format", audioFormat,
		"--output", opts.OutputTemplate,
		"--extract-audio",
		"--audio-format", audio.CanonicalExt,
		"--audio-quality", audioQuality,
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--force-overwrites",
	}
	if opts.GeoBypass {
		args = append(args, "--geo-bypass")
	}
	if opts.NoCheckCertificate {
		args = append(args, "--no-check-certificate")
	}
	for _, h := range opts.headerArgs() {
		args = append(args, "--add-header", h)
	}
	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.FormatFloat(opts.SocketTimeout.Seconds(), 'f', -1, 64))
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.LegacyServerConnect {
		args = append(args, "--legacy-server-connect")
	}
	if opts.NoCookies {
		args = append(args, "--no-cookies")
	}
	if opts.NoCacheDir {
		args = append(args, "--no-cache-dir")
	}
	if opts.SkipStreamingManifests {
		args = append(args, "--extractor-args", skipManifestsArg)
	}
	if opts.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", opts.CookiesFromBrowser)
	}
	if opts.ExternalDownloader != "" {
		args = append(args, "--downloader", opts.ExternalDownloader)
		if len(opts.ExternalDownloaderArgs) > 0 {
			args = append(args, "--downloader-args", "aria2c:"+strings.Join(opts.ExternalDownloaderArgs, " "))
		}
	}
	if p.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", p.FFmpegLocation)
	}
	return append(args, opts.URL)
}

// Extract executes yt-dlp and waits for it to exit.
func (p *ProcessExtractor) Extract(ctx context.Context, opts ExtractOptions) error {
	path := p.Path
	if path == "" {
		path = "yt-dlp"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, p.Args(opts)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return classifyExtractorError(err, stderr.String())
	}
	return nil
}

var (
	notFoundMarkers = []string{"video unavailable", "http error 404", "http error 410", "private video", "has been removed", "not available"}
	rejectedMarkers = []string{"http error 403", "http error 429", "sign in to confirm", "too many requests", "http error 401"}
)

// classifyExtractorError maps an extractor failure onto the error taxonomy.
func classifyExtractorError(err error, stderr string) error {
	detail := lastLine(stderr)
	if detail == "" {
		detail = err.Error()
	}

	var execErr *exec.Error
	switch {
	case errors.As(err, &execErr), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", shared.ErrMissingDependency, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: extractor interrupted: %v", shared.ErrTransientNetwork, err)
	}

	lower := strings.ToLower(stderr + " " + err.Error())
	for _, m := range notFoundMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s", shared.ErrNotFound, detail)
		}
	}
	for _, m := range rejectedMarkers {
		if strings.Contains(lower, m) {
			return fmt.Errorf("%w: %s", shared.ErrProviderRejected, detail)
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrTransientNetwork, detail)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
