package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/tui/components/calendar"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateCheckinForm:
		content = panelStyle.Render(m.form.View())
	default:
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			panelStyle.Width(calendarWidth).Render(m.calendar.View()),
			panelStyle.Render(m.dayPanel.View()),
		)
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		content,
		statusStyle.Render(calendar.Legend()),
		m.viewStatus(),
		m.help.View(m),
	))
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return errorStyle.Render(m.status)
	}
	return statusStyle.Render(m.status)
}
