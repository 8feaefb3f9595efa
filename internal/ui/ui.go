package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SyncView ViewState = iota
	ResultView
)

// Direction selects which sync operation the TUI runs.
type Direction int

const (
	Down Direction = iota
	Up
)

// Model represents the TUI application state for a running sync.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	engine       tasks.SyncEngine
	direction    Direction
	downOpts     tasks.DownOpts
	upOpts       tasks.UpOpts
	width        int
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	bar          progress.Model
	spin         spinner.Model
	downResult   *tasks.DownResult
	upResult     *tasks.UpResult
	err          error
	help         help.Model
	keys         keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	down *tasks.DownResult
	up   *tasks.UpResult
	err  error
}

// NewDownModel creates a TUI model that runs a down sync with the given options.
func NewDownModel(ctx context.Context, engine tasks.SyncEngine, opts tasks.DownOpts) *Model {
	return newModel(ctx, engine, Down, opts, tasks.UpOpts{})
}

// NewUpModel creates a TUI model that runs an up sync with the given options.
func NewUpModel(ctx context.Context, engine tasks.SyncEngine, opts tasks.UpOpts) *Model {
	return newModel(ctx, engine, Up, tasks.DownOpts{}, opts)
}

func newModel(ctx context.Context, engine tasks.SyncEngine, direction Direction, downOpts tasks.DownOpts, upOpts tasks.UpOpts) *Model {
	ctx, cancel := context.WithCancel(ctx)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.title

	return &Model{
		ctx:       ctx,
		cancel:    cancel,
		view:      SyncView,
		engine:    engine,
		direction: direction,
		downOpts:  downOpts,
		upOpts:    upOpts,
		bar:       progress.New(progress.WithDefaultGradient()),
		spin:      spin,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// DownResult returns the down sync result after the TUI exits. Quitting
// before the sync finishes reports the context cancellation instead of a
// nil result.
func (m *Model) DownResult() (*tasks.DownResult, error) {
	if m.err == nil && m.downResult == nil {
		return nil, m.ctx.Err()
	}
	return m.downResult, m.err
}

// UpResult returns the up sync result after the TUI exits. Quitting
// before the sync finishes reports the context cancellation instead of a
// nil result.
func (m *Model) UpResult() (*tasks.UpResult, error) {
	if m.err == nil && m.upResult == nil {
		return nil, m.ctx.Err()
	}
	return m.upResult, m.err
}

// Init starts the sync in the background and begins listening for progress.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startSync(), m.spin.Tick)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 8
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		var cmd tea.Cmd
		if m.progress.Total > 0 {
			cmd = m.bar.SetPercent(float64(m.progress.Step) / float64(m.progress.Total))
		}
		return m, tea.Batch(m.waitForProgress(), cmd)

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd

	case syncCompleteMsg:
		m.downResult = msg.down
		m.upResult = msg.up
		m.err = msg.err
		m.view = ResultView
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderSync() string {
	title := styles.title.Render(m.operationName())

	phase := m.progress.Message
	if phase == "" {
		phase = "Starting..."
	}

	var bar string
	if m.progress.Total > 1 {
		bar = "\n" + m.bar.View()
	}

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	return fmt.Sprintf("%s\n%s %s%s\n\n%s", title, m.spin.View(), phase, bar, helpView)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)) + "\n"
	}

	title := styles.ok.Render("✓ Sync complete")

	var info string
	switch {
	case m.downResult != nil:
		r := m.downResult
		info = fmt.Sprintf(
			"\nDownloaded: %d\nSkipped: %d\nFailed: %d\nRelocated: %d\nPlaylists: %d\n",
			r.Downloaded, r.Skipped, r.Failed, r.Relocated, r.Playlists,
		)
		if r.Failed > 0 {
			info += styles.warn.Render(fmt.Sprintf("%d song(s) failed to download", r.Failed)) + "\n"
		}
	case m.upResult != nil:
		r := m.upResult
		info = fmt.Sprintf("\nUploaded: %d\nFailed: %d\nDeleted: %d\n", r.Uploaded, r.Failed, r.Deleted)
		if r.Failed > 0 {
			info += styles.warn.Render(fmt.Sprintf("%d song(s) failed to upload", r.Failed)) + "\n"
		}
	}

	return fmt.Sprintf("%s\n%s", title, info)
}

func (m *Model) operationName() string {
	if m.direction == Up {
		return "Syncing up"
	}
	return "Syncing down"
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		defer close(m.progressChan)
		switch m.direction {
		case Down:
			m.downResult, m.err = m.engine.Down(m.ctx, m.progressChan, m.downOpts)
		case Up:
			m.upResult, m.err = m.engine.Up(m.ctx, m.progressChan, m.upOpts)
		}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{down: m.downResult, up: m.upResult, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}
