package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.dayPanel.SetSize(max(msg.Width-calendarWidth-8, 20), max(msg.Height-6, 5))
		return m, nil

	case syncEventMsg:
		m.handleEvent(moodsync.Event(msg))
		return m, tea.Batch(m.refresh(), waitForEvent(m.events))

	case submitResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Saved %s locally, but the server rejected it: %v", msg.date, msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Check-in for %s saved", msg.date), false)
		}
		return m, m.refresh()
	}

	if m.state == constants.StateCheckinForm {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.state == constants.StateHelp {
			m.state = constants.StateCalendar
			m.help.ShowAll = false
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleEvent(ev moodsync.Event) {
	if ev.Err == nil {
		return
	}
	switch ev.Kind {
	case moodsync.EventHistory:
		m.setStatus(fmt.Sprintf("Could not load predictions for %s (r to retry)", ev.Period), true)
	case moodsync.EventCheckins:
		m.setStatus(fmt.Sprintf("Could not load check-ins for %s (r to retry)", ev.Period), true)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected := m.machine.Selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.state = constants.StateHelp
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.Left):
		return m, m.selectDate(utils.ShiftByDays(selected, -1))
	case key.Matches(msg, m.keys.Right):
		return m, m.selectDate(utils.ShiftByDays(selected, 1))
	case key.Matches(msg, m.keys.Up):
		return m, m.selectDate(utils.ShiftByDays(selected, -7))
	case key.Matches(msg, m.keys.Down):
		return m, m.selectDate(utils.ShiftByDays(selected, 7))
	case key.Matches(msg, m.keys.PrevMonth):
		return m, m.selectDate(shiftMonths(selected, -1))
	case key.Matches(msg, m.keys.NextMonth):
		return m, m.selectDate(shiftMonths(selected, 1))
	case key.Matches(msg, m.keys.Today):
		return m, m.selectDate(m.today())
	case key.Matches(msg, m.keys.Edit):
		if err := m.machine.BeginEdit(); err != nil {
			if errors.Is(err, dayview.ErrFutureDate) {
				m.setStatus("Check-ins can't be recorded for future dates", true)
			} else {
				m.setStatus(err.Error(), true)
			}
			return m, nil
		}
		m.setStatus("", false)
		return m, m.refresh()
	case key.Matches(msg, m.keys.Retry):
		period := selected.Period()
		retried := m.history.Retry(m.ctx, period)
		if m.checkins.Retry(m.ctx, period) {
			retried = true
		}
		if retried {
			m.setStatus(fmt.Sprintf("Retrying %s…", period), false)
		}
		return m, m.refresh()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.closeForm()
		return m, m.refresh()
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		date := m.machine.Selected()
		done, err := m.machine.Submit(m.ctx, m.formValues.Mood, m.formValues.Note)
		if err != nil {
			logger.Warn("Check-in rejected", "date", date, "error", err)
			m.setStatus(err.Error(), true)
			// Stay in the form so the value can be corrected
			m.form.State = huh.StateNormal
			return m, tea.Batch(cmds...)
		}
		m.form, m.formValues = nil, nil
		m.state = constants.StateCalendar
		m.setStatus(fmt.Sprintf("Saving check-in for %s…", date), false)
		cmds = append(cmds, waitForSubmit(date, done), m.refresh())
	case huh.StateAborted:
		m.closeForm()
		cmds = append(cmds, m.refresh())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) closeForm() {
	m.machine.CancelEdit()
	m.form, m.formValues = nil, nil
	m.state = constants.StateCalendar
}

// shiftMonths moves date by n months, clamping the day to the target month.
func shiftMonths(date models.DateKey, n int) models.DateKey {
	period := date.Period().AddMonths(n)
	_, last := utils.PeriodBounds(period)
	day := min(date.Day, last.Day)
	return models.DateKey{Year: period.Year, Month: period.Month, Day: day}
}
