// Package day renders the selected-day panel: the prediction, its
// explanation and the day's check-in.
package day

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	bucketStyles = map[models.MoodBucket]lipgloss.Style{
		models.BucketLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		models.BucketMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("221")).Bold(true),
		models.BucketHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
	}
)

// MoodLabels names each point of the check-in scale.
var MoodLabels = map[int]string{
	1: "awful",
	2: "bad",
	3: "okay",
	4: "good",
	5: "great",
}

type Model struct {
	viewport viewport.Model
	Day      *dayview.View
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.Day == nil {
		return mutedStyle.Render("No date selected.")
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.render()
}

// SetView replaces the displayed snapshot.
func (m *Model) SetView(v dayview.View) {
	m.Day = &v
	m.render()
}

func (m *Model) render() {
	if m.Day == nil {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(Render(*m.Day))
}

// Render formats a day view as plain panel text.
func Render(v dayview.View) string {
	var b strings.Builder

	title := v.Date.Time(time.UTC).Format("Monday, January 2 2006")
	if v.IsToday {
		title += " (today)"
	}
	b.WriteString(headerStyle.Render(title) + "\n\n")

	switch v.Status {
	case dayview.StatusLoading:
		b.WriteString(mutedStyle.Render("Loading prediction…") + "\n")
	case dayview.StatusError:
		b.WriteString(errorStyle.Render("Could not load predictions: "+v.Reason) + "\n")
		b.WriteString(mutedStyle.Render("Press r to retry.") + "\n")
	case dayview.StatusNotComputed:
		b.WriteString(mutedStyle.Render(v.Reason) + "\n")
	case dayview.StatusOK:
		style, ok := bucketStyles[v.Bucket()]
		if !ok {
			style = valueStyle
		}
		b.WriteString(row("Predicted", style.Render(fmt.Sprintf("%.1f (%s)", v.PredictedMood, v.Bucket()))))
		b.WriteString(row("Confidence", valueStyle.Render(string(v.Confidence))))
		if v.ModelVersion != "" {
			b.WriteString(row("Model", mutedStyle.Render(v.ModelVersion)))
		}
		if len(v.Explanation) > 0 {
			b.WriteString("\n")
			for _, line := range v.Explanation {
				b.WriteString("  • " + line + "\n")
			}
		}
	}

	b.WriteString("\n" + headerStyle.Render("Check-in") + "\n")
	switch {
	case v.CheckinLoading:
		b.WriteString(mutedStyle.Render("Loading check-in…") + "\n")
	case v.Checkin != nil:
		b.WriteString(row("Mood", valueStyle.Render(MoodLabel(v.Checkin.Mood))))
		if v.Checkin.HasNote() {
			b.WriteString(row("Note", v.Checkin.Note))
		}
	case v.IsFuture:
		b.WriteString(mutedStyle.Render("Check-ins open on the day itself.") + "\n")
	default:
		b.WriteString(mutedStyle.Render("No check-in. Press e to add one.") + "\n")
	}
	return b.String()
}

// MoodLabel formats a check-in mood as "4 (good)".
func MoodLabel(mood int) string {
	if label, ok := MoodLabels[mood]; ok {
		return fmt.Sprintf("%d (%s)", mood, label)
	}
	return fmt.Sprintf("%d", mood)
}

func row(label, value string) string {
	return labelStyle.Render(label) + " " + value + "\n"
}
