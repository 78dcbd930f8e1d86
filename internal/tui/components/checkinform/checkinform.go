// Package checkinform builds the mood check-in form.
package checkinform

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlit/internal/constants"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/tui/components/day"
)

// MaxNoteLength caps the free-text note
const MaxNoteLength = 1000

// Values holds the form's bound fields.
type Values struct {
	Mood int
	Note string
}

// New builds a form for date, prefilled from existing when a check-in was
// already recorded.
func New(date models.DateKey, existing *models.CheckinRecord) (*huh.Form, *Values) {
	v := &Values{Mood: 3}
	if existing != nil {
		v.Mood = existing.Mood
		v.Note = existing.Note
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(fmt.Sprintf("How are you feeling on %s?", date)).
				Options(MoodOptions()...).
				Value(&v.Mood),
			huh.NewText().
				Title("Note").
				Description("Optional").
				CharLimit(MaxNoteLength).
				Validate(ValidateNote).
				Value(&v.Note),
		),
	).WithShowHelp(true)
	return form, v
}

// MoodOptions lists the check-in scale with labels.
func MoodOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, constants.MaxMood-constants.MinMood+1)
	for mood := constants.MinMood; mood <= constants.MaxMood; mood++ {
		opts = append(opts, huh.NewOption(day.MoodLabel(mood), mood))
	}
	return opts
}

func ValidateNote(s string) error {
	if len([]rune(strings.TrimSpace(s))) > MaxNoteLength {
		return fmt.Errorf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}
