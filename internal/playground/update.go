package playground

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/uikit/internal/catalog"
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.snapshot = m.driver.Snapshot()
		return m, waitForSnapshot(m.updates)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.events)-1 {
			m.cursor++
		}
	case "enter", " ":
		return m.send(m.cursor), nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		index := int(msg.String()[0] - '1')
		if index < len(m.events) {
			m.cursor = index
			return m.send(index), nil
		}
	}
	return m, nil
}

func (m Model) send(index int) Model {
	if index < 0 || index >= len(m.events) {
		return m
	}
	event := m.events[index]
	before := m.snapshot.String()

	m.driver.Send(catalog.NewEvent(event, samplePayloads[event]))
	m.snapshot = m.driver.Snapshot()

	entry := string(event) + ": " + before + " → " + m.snapshot.String()
	m.history = append(m.history, entry)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	return m
}
