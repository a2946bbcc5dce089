package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/lfx/internal/models"
	"github.com/desertthunder/lfx/internal/shared"
	"github.com/desertthunder/lfx/internal/tasks"
)

// browsePageSize caps the number of scrobbles loaded into the table.
const browsePageSize = 500

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	ImportView
	ResultView
	BrowseView
)

// ScrobbleBrowser reads archived listening history for display.
// Implemented by [repositories.LibraryRepository].
type ScrobbleBrowser interface {
	Scrobbles(user, match string, limit int) ([]models.Scrobble, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	cancel  context.CancelFunc
	view    ViewState
	user    string
	engine  tasks.ScrobbleEngine
	browser ScrobbleBrowser

	width  int
	height int

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	progressBar  progress.Model
	importing    bool

	result *tasks.ImportResult
	err    error

	scrobbleTable table.Model

	help help.Model
	keys keyMap
}

type progressUpdateMsg tasks.ProgressUpdate

type importCompleteMsg struct {
	result *tasks.ImportResult
	err    error
}

type scrobblesFetchedMsg struct {
	scrobbles []models.Scrobble
	err       error
}

// NewModel creates a new TUI model with the provided dependencies.
//
// The context governs the import; cancelling it stops fetching while leaving
// the persisted resume point intact.
func NewModel(ctx context.Context, user string, engine tasks.ScrobbleEngine, browser ScrobbleBrowser) *Model {
	ctx, cancel := context.WithCancel(ctx)
	return &Model{
		ctx:         ctx,
		cancel:      cancel,
		view:        ConfirmView,
		user:        user,
		engine:      engine,
		browser:     browser,
		progressBar: progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init implements [tea.Model].
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progressBar.Width = msg.Width - 8
		if m.scrobbleTable.Width() == 0 {
			m.scrobbleTable.SetWidth(msg.Width - 4)
			m.scrobbleTable.SetHeight(msg.Height - 8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ImportView:
			return m.handleImportKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case BrowseView:
			return m.handleBrowseKeys(msg)
		}

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case importCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.importing = false
		m.view = ResultView
		m.progressChan = nil
		return m, nil

	case scrobblesFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		m.scrobbleTable = newScrobbleTable(msg.scrobbles, m.width, m.height)
		m.view = BrowseView
		return m, nil
	}

	if m.view == BrowseView {
		var cmd tea.Cmd
		m.scrobbleTable, cmd = m.scrobbleTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	case BrowseView:
		return m.renderBrowse()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.cancel()
		return m, tea.Quit
	case "b":
		return m, m.fetchScrobbles()
	case "y", "enter":
		m.view = ImportView
		return m, m.startImport()
	}
	return m, nil
}

func (m *Model) handleImportKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		// stops fetching; the resume point is already persisted on exit
		m.cancel()
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "b":
		return m, m.fetchScrobbles()
	}
	return m, nil
}

func (m *Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "esc":
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	m.scrobbleTable, cmd = m.scrobbleTable.Update(msg)
	return m, cmd
}

func (m *Model) startImport() tea.Cmd {
	m.importing = true
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Import(m.ctx, m.user, progressChan)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return importCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return importCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) fetchScrobbles() tea.Cmd {
	return func() tea.Msg {
		scrobbles, err := m.browser.Scrobbles(m.user, "", browsePageSize)
		return scrobblesFetchedMsg{scrobbles: scrobbles, err: err}
	}
}

func newScrobbleTable(scrobbles []models.Scrobble, width, height int) table.Model {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Artist", Width: 24},
		{Title: "Track", Width: 32},
		{Title: "Album", Width: 24},
		{Title: "Length", Width: 6},
	}

	rows := make([]table.Row, len(scrobbles))
	for i, s := range scrobbles {
		album := ""
		if s.Track.Album != nil {
			album = s.Track.Album.Name
		}
		rows[i] = table.Row{
			s.Time.Format("2006-01-02 15:04"),
			s.Track.Artist.Name,
			s.Track.Name,
			album,
			shared.FormatDuration(s.Track.Length),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
	)
	if width > 0 {
		t.SetWidth(width - 4)
		t.SetHeight(height - 8)
	}
	return t
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Import new scrobbles for '%s'?", m.user))
	info := "\nFetches listening history past the last archived scrobble.\nAlready-archived records are never duplicated.\n"

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.browse, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing Listening History")

	var phase string
	switch m.progress.Phase {
	case tasks.CheckAccount:
		phase = "Checking play counts..."
	case tasks.FetchHistory, tasks.StoreRecords:
		phase = fmt.Sprintf("Importing records (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ResolveDuration:
		phase = fmt.Sprintf("Resolving track durations (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Finalize:
		phase = "Saving resume point..."
	default:
		phase = "Processing..."
	}

	var bar string
	if m.progress.Total > 0 {
		bar = m.progressBar.ViewAs(float64(m.progress.Step) / float64(m.progress.Total))
	}

	cancelHint := styles.help.Render("esc to stop (progress is kept)")
	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s", title, phase, bar, m.progress.Message, cancelHint)
}

func (m *Model) renderResult() string {
	if m.err != nil && m.result == nil {
		return styles.err.Render(fmt.Sprintf("Import failed: %v\n\nPress q to quit", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress q to quit")
	}

	title := styles.ok.Render("✓ Import Complete")
	if m.err != nil {
		title = styles.warn.Render(fmt.Sprintf("Import stopped early: %v", m.err))
	} else if m.result.Aborted {
		title = styles.warn.Render("Import stopped early: the history stream dropped. Run again to resume.")
	}

	info := fmt.Sprintf(
		"\nRecords examined: %d\nScrobbles archived: %d\nSkipped (bad identifiers): %d\nSkipped (unknown duration): %d\nResume point: %d",
		m.result.Seen,
		m.result.Imported,
		m.result.SkippedInvalid,
		m.result.SkippedUnknownDuration,
		m.result.LastTimestamp,
	)

	helpKeys := []key.Binding{m.keys.browse, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *Model) renderBrowse() string {
	title := styles.title.Render(fmt.Sprintf("Listening history for '%s'", m.user))
	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.scrobbleTable.View(), helpView)
}
