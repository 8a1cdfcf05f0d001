package strategies

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

// Strategy names accepted in download.strategies.
const (
	NameInvidious   = "invidious"
	NameAnonymous   = "anonymous"
	NameLegacy      = "legacy"
	NameAlternative = "alternative"
	NameBrowser     = "browser"
	NameCLI         = "cli"
	NameDirect      = "direct"
)

// DefaultOrder is the strategy chain used when none is configured.
var DefaultOrder = []string{NameInvidious, NameAnonymous, NameLegacy, NameAlternative, NameBrowser, NameCLI, NameDirect}

// Strategy turns a candidate into a local payload inside scratchDir.
//
// Implementations never panic on provider errors and report OK only for a
// non-empty file in the canonical codec.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, candidate models.SourceCandidate, scratchDir string) models.RetrievalResult
}

// Normalizer converts a payload into the canonical codec.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outputPath string) error
}

// Deps are the collaborators shared by every strategy in a chain.
type Deps struct {
	Download      shared.DownloadConfig
	HTTPClient    *http.Client
	Embedded      Extractor
	Process       Extractor
	Normalizer    Normalizer
	Aria2c        string // Resolved aria2c path, empty when not installed
	ChromeProfile bool
	UserAgent     func() string
	Logger        *log.Logger
}

func (d Deps) withDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	if d.Embedded == nil {
		d.Embedded = &EmbeddedExtractor{Executable: d.Download.YtdlpPath}
	}
	if d.Process == nil {
		d.Process = &ProcessExtractor{Path: d.Download.YtdlpPath, FFmpegLocation: d.Download.FFmpegPath}
	}
	if d.UserAgent == nil {
		d.UserAgent = shared.RandomUserAgent
	}
	if d.Logger == nil {
		d.Logger = shared.NewLogger(nil)
	}
	return d
}

// Factory builds a strategy from shared dependencies.
type Factory func(Deps) Strategy

// Registry maps strategy names to factories.
type Registry struct {
	factories map[string]Factory
	names     []string
}

// NewRegistry returns a registry holding every built-in strategy.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(NameInvidious, func(d Deps) Strategy {
		return NewInvidious(InvidiousOpts{
			Instances:     d.Download.Invidious.Instances,
			Timeout:       shared.Seconds(d.Download.Invidious.TimeoutSeconds),
			StreamTimeout: shared.Seconds(d.Download.Invidious.StreamTimeoutSeconds),
			HTTPClient:    d.HTTPClient,
			Normalizer:    d.Normalizer,
			UserAgent:     d.UserAgent,
			Logger:        d.Logger,
		})
	})
	r.Register(NameAnonymous, func(d Deps) Strategy {
		return newExtractorStrategy(NameAnonymous, d.Embedded, anonymousOptions(d), d)
	})
	r.Register(NameLegacy, func(d Deps) Strategy {
		return newExtractorStrategy(NameLegacy, d.Embedded, legacyOptions(d), d)
	})
	r.Register(NameAlternative, func(d Deps) Strategy {
		return newExtractorStrategy(NameAlternative, d.Embedded, alternativeOptions(d), d)
	})
	r.Register(NameBrowser, func(d Deps) Strategy {
		return newExtractorStrategy(NameBrowser, d.Embedded, browserOptions(d), d)
	})
	r.Register(NameCLI, func(d Deps) Strategy {
		return newExtractorStrategy(NameCLI, d.Process, cliOptions(d), d)
	})
	r.Register(NameDirect, func(d Deps) Strategy {
		return newExtractorStrategy(NameDirect, d.Embedded, directOptions(d), d)
	})
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; !ok {
		r.names = append(r.names, name)
	}
	r.factories[name] = f
}

// Build instantiates the chain named by order. Unknown or repeated names are configuration errors.
func (r *Registry) Build(order []string, deps Deps) ([]Strategy, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured", shared.ErrInvalidConfig)
	}
	deps = deps.withDefaults()

	seen := make(map[string]bool, len(order))
	chain := make([]Strategy, 0, len(order))
	for _, raw := range order {
		name := strings.ToLower(strings.TrimSpace(raw))
		f, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown strategy %q (known: %s)", shared.ErrInvalidConfig, raw, strings.Join(r.names, ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: strategy %q listed twice", shared.ErrInvalidConfig, raw)
		}
		seen[name] = true
		chain = append(chain, f(deps))
	}
	return chain, nil
}

// fail builds a failure whose retryability follows the error taxonomy.
func fail(err error) models.RetrievalResult {
	return models.Failure(err, shared.ClassifyError(err).Retryable())
}
