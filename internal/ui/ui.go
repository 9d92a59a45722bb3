package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/runx/internal/progress"
)

const defaultPollInterval = 500 * time.Millisecond

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.quit}}
}

type tickMsg time.Time

// Model renders a live monitor for the two transfer stages. Percentages come
// from the file-backed progress store, so the monitor works in a separate
// process from the transfer itself.
type Model struct {
	store       *progress.Store
	interval    time.Duration
	downloadBar progressbar.Model
	uploadBar   progressbar.Model
	downloadPct float64
	uploadPct   float64
	width       int
	help        help.Model
	keys        keyMap
}

// NewModel creates a progress monitor polling the given store.
func NewModel(store *progress.Store) *Model {
	return &Model{
		store:       store,
		interval:    defaultPollInterval,
		downloadBar: progressbar.New(progressbar.WithDefaultGradient()),
		uploadBar:   progressbar.New(progressbar.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init starts the polling loop.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		barWidth := msg.Width - 8
		if barWidth > 0 {
			m.downloadBar.Width = barWidth
			m.uploadBar.Width = barWidth
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		m.downloadPct = m.store.Get(progress.StageDownload)
		m.uploadPct = m.store.Get(progress.StageUpload)
		return m, m.tick()
	}

	return m, nil
}

// View renders both stage bars with their percentages.
func (m *Model) View() string {
	title := styles.title.Render("Workout Transfer Progress")

	download := fmt.Sprintf("%s\n%s %s",
		styles.warn.Render("Download (MapMyRun)"),
		m.downloadBar.ViewAs(m.downloadPct/100),
		renderPercent(m.downloadPct))

	upload := fmt.Sprintf("%s\n%s %s",
		styles.warn.Render("Upload (Strava)"),
		m.uploadBar.ViewAs(m.uploadPct/100),
		renderPercent(m.uploadPct))

	helpView := m.help.ShortHelpView(m.keys.ShortHelp())

	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n", title, download, upload, helpView)
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func renderPercent(pct float64) string {
	if pct >= 100 {
		return styles.ok.Render("done")
	}
	return styles.help.Render(fmt.Sprintf("%.0f%%", pct))
}
