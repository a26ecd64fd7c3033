package playground

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/uikit/internal/catalog"
)

// View renders the model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		titleStyle.Render("uikit playground: " + m.driver.Name()),
		m.renderState(),
		sectionStyle.Render("Context"),
		renderContext(m.snapshot.Context),
	}
	for _, child := range m.snapshot.Children {
		sections = append(sections,
			sectionStyle.Render("Child "+child.Machine),
			"  "+stateStyle.Render(child.Value),
			renderContext(child.Context),
		)
	}
	sections = append(sections,
		sectionStyle.Render("Events"),
		m.renderEvents(),
	)
	if len(m.history) > 0 {
		sections = append(sections, sectionStyle.Render("History"), m.renderHistory())
	}
	sections = append(sections, footerStyle.Render("↑/↓ select  •  enter send  •  1-9 send  •  q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderState() string {
	value := stateStyle.Render(m.snapshot.Value)
	if m.busy() {
		value = m.spinner.View() + " " + value
	}
	lines := []string{"State: " + value}

	regions := make([]string, 0, len(m.snapshot.Regions))
	for region := range m.snapshot.Regions {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	for _, region := range regions {
		lines = append(lines, fmt.Sprintf("  %s: %s", region, stateStyle.Render(m.snapshot.Regions[region])))
	}
	return strings.Join(lines, "\n")
}

func renderContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return mutedStyle.Render("  (empty)")
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		value, err := json.Marshal(ctx[k])
		if err != nil {
			value = []byte(fmt.Sprint(ctx[k]))
		}
		lines = append(lines, fmt.Sprintf("  %s = %s", k, value))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEvents() string {
	lines := make([]string, 0, len(m.events))
	for i, e := range m.events {
		label := fmt.Sprintf("%d. %s", i+1, e)
		if i >= 9 {
			label = "   " + string(e)
		}
		if i == m.cursor {
			lines = append(lines, selectedStyle.Render("› "+label))
			continue
		}
		lines = append(lines, "  "+label)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHistory() string {
	lines := make([]string, len(m.history))
	for i, h := range m.history {
		lines[i] = mutedStyle.Render("  " + h)
	}
	return strings.Join(lines, "\n")
}

// Snapshot returns the snapshot currently shown
func (m Model) Snapshot() catalog.Snapshot {
	return m.snapshot
}
