package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmsync/internal/shared"
	"github.com/desertthunder/gmsync/internal/tasks"
	"github.com/desertthunder/gmsync/internal/ui"
)

// runDownUI runs a down sync inside the interactive progress view.
func (r *Runner) runDownUI(ctx context.Context, engine tasks.SyncEngine, opts tasks.DownOpts) (*tasks.DownResult, error) {
	if err := r.redirectLogs(); err != nil {
		return nil, err
	}

	model := ui.NewDownModel(ctx, engine, opts)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.DownResult()
}

// runUpUI runs an up sync inside the interactive progress view.
func (r *Runner) runUpUI(ctx context.Context, engine tasks.SyncEngine, opts tasks.UpOpts) (*tasks.UpResult, error) {
	if err := r.redirectLogs(); err != nil {
		return nil, err
	}

	model := ui.NewUpModel(ctx, engine, opts)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}
	return model.UpResult()
}

// redirectLogs sends logs to a file to avoid interfering with TUI rendering.
func (r *Runner) redirectLogs() error {
	fileLogger, err := shared.NewFileLogger("./tmp/gmsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}
