// Package dashboard implements a terminal dashboard that polls the
// orchestrator's published stats snapshot and renders it live, in the
// bubbletea model/update/view style.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ankitkpandey1/aetherless/internal/stats"
)

const pollInterval = time.Second

var (
	colorPrimary = lipgloss.Color("39")
	colorDim     = lipgloss.Color("244")
	colorWarm    = lipgloss.Color("214")
	colorRunning = lipgloss.Color("42")
)

type keyMap struct {
	Quit key.Binding
	Help key.Binding
}

func (k keyMap) ShortHelp() []key.Binding { return []key.Binding{k.Help, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Help, k.Quit}}
}

// snapshotLoadedMsg carries a freshly read stats snapshot, or an error if
// the read failed (e.g. the orchestrator isn't running).
type snapshotLoadedMsg struct {
	snap stats.Snapshot
	err  error
}

type tickMsg struct{}

// Reader loads the current stats snapshot from wherever it is published.
type Reader func() (stats.Snapshot, error)

// Model is the dashboard's bubbletea model.
type Model struct {
	read   Reader
	keys   keyMap
	help   help.Model
	snap   stats.Snapshot
	err    error
	width  int
	height int
}

// New creates a dashboard Model that polls read once per second.
func New(read Reader) Model {
	return Model{
		read: read,
		keys: keyMap{
			Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
			Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		},
		help: help.New(),
		snap: stats.Snapshot{Functions: make(map[string]stats.FunctionStatus)},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tick())
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.read()
		return snapshotLoadedMsg{snap: snap, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotLoadedMsg:
		m.snap = msg.snap
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tick())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("aetherless — live stats"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(fmt.Sprintf("  error reading stats: %v\n", m.err))
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  active instances: %d   warm pool active: %v   shm latency: %dus\n\n",
		m.snap.ActiveInstances, m.snap.WarmPoolActive, m.snap.ShmLatencyUs))

	ids := make([]string, 0, len(m.snap.Functions))
	for id := range m.snap.Functions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("  no registered functions"))
		b.WriteString("\n")
	}

	for _, id := range ids {
		fn := m.snap.Functions[id]
		stateColor := colorDim
		switch fn.State {
		case "Running":
			stateColor = colorRunning
		case "WarmSnapshot":
			stateColor = colorWarm
		}
		pid := "-"
		if fn.PID != nil {
			pid = fmt.Sprintf("%d", *fn.PID)
		}
		line := fmt.Sprintf("  %-20s %-14s port=%-6d mem=%-6dMB pid=%s",
			fn.ID, fn.State, fn.Port, fn.MemoryMB, pid)
		b.WriteString(lipgloss.NewStyle().Foreground(stateColor).Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
