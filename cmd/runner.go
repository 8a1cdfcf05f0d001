package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ToolChecker resolves external executables before a download starts.
type ToolChecker func(tools []shared.Tool) ([]shared.ToolStatus, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.CatalogProvider
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
	checkTools ToolChecker
	authed     bool
	mu         sync.Mutex // Serializes writes to output
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.CatalogProvider
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Engine     *tasks.Engine // Prebuilt pipeline, built from Config when nil
	CheckTools ToolChecker
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.CheckTools == nil {
		opts.CheckTools = shared.CheckTools
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     opts.Engine,
		checkTools: opts.CheckTools,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, spotifyCommand, downloadCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by subsequent commands.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// authenticatedCatalog returns the catalog provider after authenticating it once with the configured credentials.
func (r *Runner) authenticatedCatalog(ctx context.Context) (services.CatalogProvider, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized (set credentials.spotify in %s)", shared.ErrServiceUnavailable, r.configName())
	}
	if r.authed {
		return r.catalog, nil
	}
	if err := r.catalog.Authenticate(ctx, r.config.Credentials.Spotify.Map()); err != nil {
		return nil, err
	}
	r.authed = true
	return r.catalog, nil
}

func (r *Runner) configName() string {
	if r.configPath == "" {
		return defaultConfigPath
	}
	return r.configPath
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
