package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/tui/components/calendar"
	"github.com/julianstephens/moodlit/internal/tui/components/checkinform"
	"github.com/julianstephens/moodlit/internal/tui/components/day"
	"github.com/julianstephens/moodlit/internal/utils"
)

const calendarWidth = 30

// syncEventMsg carries a settled fetch or submit from the sync layer
type syncEventMsg moodsync.Event

// submitResultMsg reports the network outcome of a check-in
type submitResultMsg struct {
	date models.DateKey
	err  error
}

type Model struct {
	ctx      context.Context
	history  *moodsync.HistorySync
	checkins *moodsync.CheckinSync
	machine  *dayview.Machine
	events   <-chan moodsync.Event
	today    func() models.DateKey

	state      constants.SessionState
	keys       KeyMap
	help       help.Model
	calendar   calendar.Model
	dayPanel   day.Model
	form       *huh.Form
	formValues *checkinform.Values
	status     string
	statusErr  bool
	width      int
	height     int
	quitting   bool
}

// ModelOption configures a Model
type ModelOption func(*Model)

// WithClock overrides how the model determines today's date.
func WithClock(today func() models.DateKey) ModelOption {
	return func(m *Model) { m.today = today }
}

// NewModel builds the calendar UI on top of the two sync stores and selects
// today. events must be the channel both stores publish to.
func NewModel(ctx context.Context, history *moodsync.HistorySync, checkins *moodsync.CheckinSync, events <-chan moodsync.Event, loc *time.Location, opts ...ModelOption) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{
		ctx:      ctx,
		history:  history,
		checkins: checkins,
		events:   events,
		today:    func() models.DateKey { return utils.Today(loc) },
		state:    constants.StateCalendar,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		dayPanel: day.New(60, 20),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.machine = dayview.New(history, checkins, loc, dayview.WithClock(m.today))

	today := m.today()
	m.calendar = calendar.New(today.Period())
	m.selectDate(today)
	return m
}

func (m Model) ShortHelp() []key.Binding {
	return m.keys.ShortHelp()
}

func (m Model) FullHelp() [][]key.Binding {
	return m.keys.FullHelp()
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events)}
	if m.state == constants.StateCheckinForm && m.form != nil {
		cmds = append(cmds, m.form.Init())
	}
	return tea.Batch(cmds...)
}

// Selected returns the date the calendar cursor is on.
func (m Model) Selected() models.DateKey {
	return m.machine.Selected()
}

// selectDate moves the cursor and kicks off the month fetches. The returned
// command is non-nil only when the check-in form opens.
func (m *Model) selectDate(date models.DateKey) tea.Cmd {
	m.machine.Select(m.ctx, date)
	return m.refresh()
}

// refresh re-reads the selected day and the visible month from the stores.
func (m *Model) refresh() tea.Cmd {
	v := m.machine.Current()
	m.dayPanel.SetView(v)

	period := v.Date.Period()
	m.calendar.Period = period
	m.calendar.Selected = v.Date
	m.calendar.Today = m.today()
	m.calendar.Index = m.history.BucketIndex(period)
	m.calendar.SetNotes(m.checkins.NotesIndex(period))
	m.calendar.Loading = m.history.IsMonthLoading(period)
	m.calendar.Err = m.history.MonthError(period)

	if v.Mode == dayview.ModeEditing && m.state == constants.StateCalendar {
		return m.openForm(v)
	}
	return nil
}

func (m *Model) openForm(v dayview.View) tea.Cmd {
	m.form, m.formValues = checkinform.New(v.Date, v.Checkin)
	m.state = constants.StateCheckinForm
	return m.form.Init()
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func waitForEvent(ch <-chan moodsync.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return syncEventMsg(ev)
	}
}

func waitForSubmit(date models.DateKey, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return submitResultMsg{date: date, err: <-done}
	}
}
