package mood

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/tui/components/checkinform"
	"github.com/julianstephens/moodlit/internal/tui/components/day"
)

type CheckinCmd struct {
	Date string `help:"Date of the check-in (YYYY-MM-DD or 'today')." default:"today"`
	Mood int    `short:"m" help:"Mood from 1 (awful) to 5 (great). Prompts when omitted."`
	Note string `short:"n" help:"Optional note."`
}

func (cmd *CheckinCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ParseDate(cmd.Date)
	if err != nil {
		return err
	}
	if date.After(ctx.Today()) {
		return dayview.ErrFutureDate
	}

	client, err := ctx.Client()
	if err != nil {
		return err
	}
	checkins := moodsync.NewCheckinSync(client)

	mood, note := cmd.Mood, cmd.Note
	if mood == 0 {
		// Prefill the form with an existing check-in when there is one
		checkins.EnsureMonth(ctx.Ctx(), date.Period())
		_ = checkins.Wait()

		var existing *models.CheckinRecord
		if rec, ok := checkins.RecordFor(date); ok {
			existing = &rec
		}
		form, values := checkinform.New(date, existing)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(ctx.Stdout(), "Check-in cancelled")
				return nil
			}
			return err
		}
		mood, note = values.Mood, values.Note
	}

	done, err := checkins.Submit(ctx.Ctx(), date, mood, note)
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("failed to save check-in: %w", err)
	}

	fmt.Fprintf(ctx.Stdout(), "✓ Checked in %s for %s\n", day.MoodLabel(mood), date)
	return nil
}
