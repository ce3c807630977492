package main

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/shared"
	"github.com/desertthunder/spotfetch/internal/tasks"
	"github.com/desertthunder/spotfetch/internal/ui"
)

// tuiLogger redirects logs to a file in the download directory until the returned func is called.
func (r *Runner) tuiLogger() (func(), error) {
	logPath := filepath.Join(r.config.DownloadDir(), "spotfetch-tui.log")
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	prev := r.logger
	r.SetLogger(fileLogger)
	return func() { r.SetLogger(prev) }, nil
}

// runTUI previews tracks and runs the batch inside the interactive UI.
//
// The result is nil when the user quits before a batch finishes. Quitting mid-batch cancels it,
// and runTUI returns once the runner has stopped.
func (r *Runner) runTUI(ctx context.Context, title string, tracks []models.TrackDescriptor, runner ui.BatchRunner) (*tasks.BatchResult, error) {
	model := ui.NewModel(ctx, title, tracks, runner)
	_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	model.Wait()
	if err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.Result(), nil
}
