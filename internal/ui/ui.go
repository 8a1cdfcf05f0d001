package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/services"
	"github.com/desertthunder/songdl/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmView
	BatchView
	ResultView
)

const failedListLimit = 10

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	catalog      services.CatalogProvider
	engine       *tasks.Engine
	outputDir    string
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     *models.PlaylistExport
	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan Msg
	progress     tasks.ProgressUpdate
	bar          progress.Model
	current      int
	total        int
	cancelling   bool
	failed       []tasks.ItemResult
	result       *tasks.DownloadResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, catalog services.CatalogProvider, engine *tasks.Engine, outputDir string) *Model {
	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		catalog:      catalog,
		engine:       engine,
		outputDir:    outputDir,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		bar:          progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching playlists from Spotify.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(m.listSize())
		m.trackList.SetSize(m.listSize())
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case BatchView:
			return m.handleBatchKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		items := make([]list.Item, len(data.playlists))
		for i, pl := range data.playlists {
			items[i] = playlistItem{playlist: pl}
		}
		m.playlistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Spotify Playlists"
		m.playlistList.SetSize(m.listSize())
		return m, nil

	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		if data.err != nil {
			m.err = data.err
			m.view = PlaylistListView
			return m, nil
		}
		m.selected = data.playlist
		items := make([]list.Item, len(data.playlist.Items))
		for i, item := range data.playlist.Items {
			items[i] = trackItem{item: item}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", data.playlist.Playlist.Name)
		m.trackList.SetSize(m.listSize())
		m.view = TrackListView
		return m, nil

	case MsgProgressUpdate:
		m.applyProgress(msg.data.(tasks.ProgressUpdate))
		return m, waitForProgress(m.progressChan, m.doneChan)

	case MsgBatchComplete:
		data := msg.data.(batchComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 0), max(m.height-8, 0)
}

// applyProgress folds a progress update into the batch view state.
func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	m.progress = update
	switch update.Phase {
	case tasks.PrepareBatch:
		m.current, m.total = 0, update.Total
	case tasks.ItemDone:
		m.current, m.total = update.Step, update.Total
		if res, ok := update.Data.(tasks.ItemResult); ok && res.Outcome == models.GaveUp {
			m.failed = append(m.failed, res)
		}
	case tasks.BatchDone, tasks.BatchCancelled:
		m.current, m.total = update.Step, update.Total
	}
}

// Percent is the fraction of the batch that has finished.
func (m *Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.current) / float64(m.total)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case BatchView:
		return m.renderBatch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.err != nil {
			return m, nil
		}
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchTracks(pl.playlist.ID)
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = BatchView
		return m, m.startBatch()
	}
	return m, nil
}

// handleBatchKeys only sets the cancel flag. The worker stops at the next item boundary.
func (m *Model) handleBatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.cancel) || key.Matches(msg, m.keys.quit) {
		if !m.cancelling {
			m.cancelling = true
			m.engine.State().Cancel()
		}
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.failed = nil
		m.cancelling = false
		m.current, m.total = 0, 0
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.catalog.GetPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.catalog.ExportPlaylist(m.ctx, playlistID)
		return tracksFetchedMsg(playlist, err)
	}
}

// startBatch runs the download on a worker goroutine.
//
// The worker publishes its result before closing the progress channel, so the
// reader sees every buffered update before the completion message.
func (m *Model) startBatch() tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 50)
	doneChan := make(chan Msg, 1)
	m.progressChan = progressChan
	m.doneChan = doneChan

	ctx, engine, outputDir := m.ctx, m.engine, m.outputDir
	playlistID := m.selected.Playlist.ID

	go func() {
		result, err := engine.DownloadPlaylist(ctx, playlistID, outputDir, progressChan)
		doneChan <- batchCompleteMsg(result, err)
		close(progressChan)
	}()

	return waitForProgress(progressChan, doneChan)
}

func waitForProgress(progressChan <-chan tasks.ProgressUpdate, doneChan <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	downloadKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "download"),
	)
	helpKeys := []key.Binding{downloadKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Download '%s'?", m.selected.Playlist.Name))
	info := fmt.Sprintf("\nPlaylist: %s\nTracks: %d\nOutput: %s\n",
		m.selected.Playlist.Name,
		len(m.selected.Items),
		m.engine.OutputDir(m.outputDir, m.selected.Playlist),
	)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderBatch() string {
	title := styles.title.Render(fmt.Sprintf("Downloading '%s'", m.selected.Playlist.Name))
	counts := fmt.Sprintf("%d/%d tracks", m.current, m.total)

	status := m.progress.Message
	if status == "" {
		status = "Starting..."
	}
	if m.cancelling {
		status = styles.warn.Render("Cancelling after the current track...")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.cancel})
	return fmt.Sprintf("%s\n\n%s  %s\n\n%s\n\n%s", title, m.bar.ViewAs(m.Percent()), counts, status, helpView)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Download failed: %v", m.err)) + "\n\n" + helpView
	}
	if m.result == nil || m.result.Summary == nil {
		return styles.err.Render("No result available") + "\n\n" + helpView
	}

	s := m.result.Summary
	title := styles.ok.Render("✓ Download Complete!")
	if s.Cancelled {
		title = styles.warn.Render(fmt.Sprintf("Cancelled after %d of %d tracks", s.Processed(), s.Total))
	}

	info := styles.box.Render(fmt.Sprintf(
		"Playlist: %s\nOutput: %s\n\nDownloaded: %d\nSkipped: %d\nFailed: %d\nTotal: %d",
		m.result.Playlist.Name,
		m.result.OutputDir,
		s.Succeeded,
		s.Skipped,
		s.Failed,
		s.Total,
	))

	var failed strings.Builder
	if len(m.failed) > 0 {
		failed.WriteString("\n\n" + styles.warn.Render(fmt.Sprintf("Failed to download %d tracks:", len(m.failed))))
		for i, res := range m.failed {
			if i == failedListLimit {
				failed.WriteString(fmt.Sprintf("\n  … and %d more", len(m.failed)-failedListLimit))
				break
			}
			failed.WriteString(fmt.Sprintf("\n  • %s", res.Item))
		}
	}

	return fmt.Sprintf("%s\n\n%s%s\n\n%s", title, info, failed.String(), helpView)
}
