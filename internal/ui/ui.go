package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotfetch/internal/models"
	"github.com/desertthunder/spotfetch/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TrackListView ViewState = iota
	ConfirmView
	DownloadView
	ResultView
)

// recentLines is how many progress messages the download view keeps on screen.
const recentLines = 6

// BatchRunner runs a download batch, reporting progress on the channel.
//
// Implemented by [tasks.DownloadEngine].
type BatchRunner interface {
	RunBatch(ctx context.Context, tracks []models.TrackDescriptor, progress chan<- tasks.ProgressUpdate) *tasks.BatchResult
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc // stops the running batch
	done         chan struct{}      // closed when the running batch returns
	view         ViewState
	title        string
	tracks       []models.TrackDescriptor
	pending      []models.TrackDescriptor
	runner       BatchRunner
	width        int
	height       int
	trackList    list.Model
	spinner      spinner.Model
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	resultChan   chan *tasks.BatchResult
	progress     tasks.ProgressUpdate
	recent       []string
	result       *tasks.BatchResult
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI that previews tracks and downloads them with runner.
func NewModel(ctx context.Context, title string, tracks []models.TrackDescriptor, runner BatchRunner) *Model {
	tl := list.New(trackItems(tracks), list.NewDefaultDelegate(), 0, 0)
	tl.Title = title

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.warn

	return &Model{
		ctx:       ctx,
		view:      TrackListView,
		title:     title,
		tracks:    tracks,
		runner:    runner,
		trackList: tl,
		spinner:   s,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:      newHelp(),
		keys:      newKeyMap(),
	}
}

// Result returns the outcome of the most recent batch, or nil if none finished.
func (m *Model) Result() *tasks.BatchResult {
	return m.result
}

// Wait blocks until the most recently started batch has returned.
func (m *Model) Wait() {
	if m.done != nil {
		<-m.done
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState {
	return m.view
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		if w := msg.Width - 8; w > 0 && w < 60 {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DownloadView:
			if key.Matches(msg, m.keys.quit) {
				m.cancel()
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != DownloadView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.progress = update
			m.pushRecent(update.Message)
			return m, m.waitForProgress()
		case MsgBatchComplete:
			m.result, _ = msg.data.(*tasks.BatchResult)
			m.progressChan = nil
			m.resultChan = nil
			m.view = ResultView
			return m, nil
		}
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case DownloadView:
		return m.renderDownload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.start):
		if len(m.tracks) == 0 {
			return m, nil
		}
		m.pending = m.tracks
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.pending = nil
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		return m, m.startBatch(m.pending)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.retry):
		failed := m.failedTracks()
		if len(failed) == 0 {
			return m, nil
		}
		m.pending = failed
		m.view = ConfirmView
		return m, nil
	}
	return m, nil
}

// startBatch switches to the download view and runs tracks in the background.
//
// The batch runs under its own context, cancelled on quit. The runner's result is
// buffered before the progress channel closes so that [Model.waitForProgress] always finds it.
func (m *Model) startBatch(tracks []models.TrackDescriptor) tea.Cmd {
	m.view = DownloadView
	m.result = nil
	m.recent = nil
	m.progress = tasks.ProgressUpdate{Phase: tasks.DownloadTracks, Total: len(tracks)}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.resultChan = make(chan *tasks.BatchResult, 1)

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	progressChan, resultChan, done := m.progressChan, m.resultChan, m.done
	go func() {
		defer close(done)
		defer cancel()
		resultChan <- m.runner.RunBatch(ctx, tracks, progressChan)
		close(progressChan)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, resultChan := m.progressChan, m.resultChan
	return func() tea.Msg {
		if progressChan == nil {
			return batchCompleteMsg(nil)
		}

		update, ok := <-progressChan
		if !ok {
			return batchCompleteMsg(<-resultChan)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) pushRecent(line string) {
	if line == "" {
		return
	}
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

func (m *Model) failedTracks() []models.TrackDescriptor {
	if m.result == nil {
		return nil
	}
	var failed []models.TrackDescriptor
	for _, item := range m.result.Items {
		if !item.Success {
			failed = append(failed, item.Track)
		}
	}
	return failed
}

func (m *Model) fraction() float64 {
	bp, ok := m.progress.Data.(models.BatchProgress)
	if !ok || bp.Total == 0 {
		if m.progress.Total == 0 {
			return 0
		}
		return float64(m.progress.Step) / float64(m.progress.Total)
	}
	return float64(bp.Completed) / float64(bp.Total)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.start, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Download %d track(s) from '%s'?", len(m.pending), m.title)))
	b.WriteString("\n")
	if len(m.pending) < len(m.tracks) {
		b.WriteString(styles.warn.Render("Only tracks that failed in the previous run will be retried."))
		b.WriteString("\n\n")
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no}))
	return b.String()
}

func (m *Model) renderDownload() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Downloading '%s'", m.title)))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("%s %s\n\n", m.spinner.View(), m.progress.Phase))
	b.WriteString(m.bar.ViewAs(m.fraction()))
	b.WriteString("\n\n")

	for _, line := range m.recent {
		b.WriteString(styles.muted.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Download Complete"))
	b.WriteString("\n")

	if m.result == nil {
		b.WriteString(styles.err.Render("No result was produced."))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.quit}))
		return b.String()
	}

	r := m.result
	b.WriteString(fmt.Sprintf("Total: %d\n", r.Total))
	b.WriteString(styles.ok.Render(fmt.Sprintf("Downloaded: %d", r.Succeeded)))
	b.WriteString("\n")
	if r.Skipped > 0 {
		b.WriteString(styles.warn.Render(fmt.Sprintf("Already downloaded: %d", r.Skipped)))
		b.WriteString("\n")
	}
	if r.Failed > 0 {
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed: %d", r.Failed)))
		b.WriteString("\n\n")
		for _, item := range r.Items {
			if !item.Success {
				b.WriteString(fmt.Sprintf("  ✗ %s: %s\n", item.Track.String(), item.Error))
			}
		}
	}

	b.WriteString("\n")
	helpKeys := []key.Binding{m.keys.quit}
	if r.Failed > 0 {
		helpKeys = []key.Binding{m.keys.retry, m.keys.quit}
	}
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}
