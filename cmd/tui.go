package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdl/internal/shared"
	"github.com/desertthunder/songdl/internal/ui"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/songdl-tui.log"

// TUI launches the interactive terminal UI for playlist downloads.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	outputDir := cmd.String("output")
	if outputDir == "" {
		outputDir = r.config.Download.OutputDir
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = tuiLogFile
	}
	fileLogger, closer, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	engine, engineCloser, err := r.downloadEngine(ctx)
	if err != nil {
		return err
	}
	defer engineCloser.Close()

	catalog, err := r.authenticatedCatalog(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, catalog, engine, outputDir)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
