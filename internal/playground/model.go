// Package playground is an interactive terminal view of a running machine.
// Events are picked from a list and sent to the machine; timer driven
// transitions show up as they fire.
package playground

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/uikit"
	"github.com/felixgeelhaar/uikit/internal/catalog"
)

const historySize = 8

// busyStates show a spinner while the machine waits on something
var busyStates = map[string]bool{
	"loading": true,
	"opening": true,
	"closing": true,
}

// samplePayloads are attached to events that read payload fields
var samplePayloads = map[uikit.EventType]map[string]any{
	"SUCCESS":     {"message": "Saved!"},
	"ERROR":       {"error": "Network error"},
	"OPEN":        {"triggerElement": "playground"},
	"OPEN_PLAYER": {"mediaUrl": "https://example.com/demo.mp4"},
}

// SnapshotMsg carries a snapshot published by the machine
type SnapshotMsg struct {
	Snapshot catalog.Snapshot
}

// Model is the playground model
type Model struct {
	driver  catalog.Driver
	events  []uikit.EventType
	updates chan catalog.Snapshot
	cancel  func()

	snapshot catalog.Snapshot
	history  []string
	cursor   int

	spinner  spinner.Model
	width    int
	quitting bool
}

// NewModel creates a playground for a started driver
func NewModel(driver catalog.Driver) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	updates := make(chan catalog.Snapshot, 16)
	cancel := driver.Subscribe(func(snap catalog.Snapshot) {
		select {
		case updates <- snap:
		default:
			// the model re-reads the driver on every message
		}
	})

	return Model{
		driver:   driver,
		events:   driver.Events(),
		updates:  updates,
		cancel:   cancel,
		snapshot: driver.Snapshot(),
		spinner:  s,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.updates))
}

// Close stops listening to the driver
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Run starts the playground on the terminal and blocks until the user quits
func Run(driver catalog.Driver) error {
	m := NewModel(driver)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func waitForSnapshot(updates <-chan catalog.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return SnapshotMsg{Snapshot: <-updates}
	}
}

func (m Model) busy() bool {
	if busyStates[m.snapshot.Value] {
		return true
	}
	for _, leaf := range m.snapshot.Regions {
		if busyStates[leaf] {
			return true
		}
	}
	return false
}
