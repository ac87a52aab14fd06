package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/miradorstack/mirador-thermal/internal/models"
)

// FetchFunc produces one snapshot.
type FetchFunc func(ctx context.Context) (models.Snapshot, error)

type tickMsg time.Time

type snapshotMsg struct {
	feed string
	snap models.Snapshot
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Model is the bubbletea model for the live view. It polls the page feed and
// can switch to the table feed with "t".
type Model struct {
	page     FetchFunc
	table    FetchFunc
	interval time.Duration
	timeout  time.Duration

	showTable bool
	paused    bool
	snap      *models.Snapshot
	err       error
	lastPoll  time.Time
	width     int
}

// New creates the live view model.
func New(page, table FetchFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return Model{page: page, table: table, interval: interval, timeout: interval}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) feed() string {
	if m.showTable {
		return "table"
	}
	return "page"
}

func (m Model) fetchCmd() tea.Cmd {
	fetch := m.page
	if m.showTable {
		fetch = m.table
	}
	feed, timeout := m.feed(), m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snap, err := fetch(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{feed: feed, snap: snap}
	}
}

// Init starts the first fetch and the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), m.tickCmd())
}

// Update handles key presses, timer ticks and fetch results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "t":
			if m.table != nil {
				m.showTable = !m.showTable
				return m, m.fetchCmd()
			}
		case "r":
			return m, m.fetchCmd()
		case " ", "p":
			m.paused = !m.paused
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		if m.paused {
			return m, m.tickCmd()
		}
		return m, tea.Batch(m.fetchCmd(), m.tickCmd())

	case snapshotMsg:
		// Late results for the feed that is no longer shown are dropped.
		if msg.feed != m.feed() {
			return m, nil
		}
		snap := msg.snap
		m.snap = &snap
		m.err = nil
		m.lastPoll = time.Now()

	case errMsg:
		m.err = msg.err
	}
	return m, nil
}

// View renders the latest snapshot.
func (m Model) View() string {
	out := ""
	switch {
	case m.snap != nil:
		out = RenderSnapshot(*m.snap)
	case m.err == nil:
		out = labelStyle.Render("waiting for first snapshot...")
	}
	if m.err != nil {
		out += "\n" + critStyle.Render("error: "+m.err.Error())
	}

	status := "feed " + m.feed()
	if m.paused {
		status += " (paused)"
	}
	if !m.lastPoll.IsZero() {
		status += "  updated " + m.lastPoll.Format("15:04:05")
	}
	return out + "\n" + helpStyle.Render(status+"  q quit  t page/table  p pause  r refresh") + "\n"
}

// SnapshotMsg wraps a page-feed snapshot pushed from outside the model, for
// example from a streaming subscription.
func SnapshotMsg(snap models.Snapshot) tea.Msg {
	return snapshotMsg{feed: "page", snap: snap}
}

// ErrorMsg wraps an error pushed from outside the model.
func ErrorMsg(err error) tea.Msg {
	return errMsg{err}
}
