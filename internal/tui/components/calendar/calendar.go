// Package calendar renders a month grid colored by mood bucket.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/utils"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(4).Align(lipgloss.Right)
	cellStyle  = lipgloss.NewStyle().Width(4).Align(lipgloss.Right)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	classStyles = map[moodsync.Class]lipgloss.Style{
		moodsync.ClassLow:           cellStyle.Foreground(lipgloss.Color("203")),
		moodsync.ClassMedium:        cellStyle.Foreground(lipgloss.Color("221")),
		moodsync.ClassHigh:          cellStyle.Foreground(lipgloss.Color("78")),
		moodsync.ClassLowConfidence: cellStyle.Foreground(lipgloss.Color("111")).Italic(true),
		moodsync.ClassMissing:       cellStyle.Foreground(lipgloss.Color("238")),
	}

	todayStyle    = lipgloss.NewStyle().Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
)

// NoteMarker is appended to days that have a check-in note
const NoteMarker = "•"

type Model struct {
	Period   models.PeriodKey
	Selected models.DateKey
	Today    models.DateKey
	Index    moodsync.BucketIndex
	Notes    map[models.DateKey]bool
	Loading  bool
	Err      error
}

func New(period models.PeriodKey) Model {
	return Model{Period: period, Notes: map[models.DateKey]bool{}}
}

// SetNotes replaces the annotated dates.
func (m *Model) SetNotes(dates []models.DateKey) {
	m.Notes = make(map[models.DateKey]bool, len(dates))
	for _, d := range dates {
		m.Notes[d] = true
	}
}

func (m Model) View() string {
	var b strings.Builder

	title := time.Date(m.Period.Year, m.Period.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	b.WriteString(titleStyle.Render(title))
	switch {
	case m.Loading:
		b.WriteString(" " + mutedStyle.Render("loading…"))
	case m.Err != nil:
		b.WriteString(" " + errorStyle.Render("failed (r to retry)"))
	}
	b.WriteString("\n")

	for _, wd := range []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"} {
		b.WriteString(headStyle.Render(wd))
	}
	b.WriteString("\n")

	first, _ := utils.PeriodBounds(m.Period)
	offset := int(first.Time(time.UTC).Weekday())
	b.WriteString(strings.Repeat(cellStyle.Render(""), offset))

	col := offset
	for _, date := range utils.DaysInPeriod(m.Period) {
		b.WriteString(m.cell(date))
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) cell(date models.DateKey) string {
	label := fmt.Sprintf("%d", date.Day)
	if m.Notes[date] {
		label += NoteMarker
	}

	style, ok := classStyles[m.Index.ClassOf(date)]
	if !ok {
		style = cellStyle
	}
	if date == m.Today {
		style = style.Inherit(todayStyle)
	}
	if date == m.Selected {
		style = style.Inherit(selectedStyle)
	}
	return style.Render(label)
}

// Legend explains the cell colors.
func Legend() string {
	entries := []struct {
		class moodsync.Class
		label string
	}{
		{moodsync.ClassLow, "low"},
		{moodsync.ClassMedium, "medium"},
		{moodsync.ClassHigh, "high"},
		{moodsync.ClassLowConfidence, "low confidence"},
		{moodsync.ClassMissing, "no data"},
	}
	parts := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		parts = append(parts, classStyles[e.class].UnsetWidth().Render("■ "+e.label))
	}
	parts = append(parts, NoteMarker+" note")
	return strings.Join(parts, "  ")
}

// Summary counts the days of each group, e.g. "high 4 · medium 10 · ...".
func Summary(idx moodsync.BucketIndex) string {
	return fmt.Sprintf("high %d · medium %d · low %d · low confidence %d · no data %d",
		len(idx.High), len(idx.Medium), len(idx.Low), len(idx.LowConfidence), len(idx.Missing))
}
