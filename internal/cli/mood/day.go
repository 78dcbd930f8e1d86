package mood

import (
	"fmt"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/dayview"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/tui/components/day"
)

type DayCmd struct {
	Date string `arg:"" optional:"" default:"today" help:"Date to show (YYYY-MM-DD or 'today')."`
}

func (cmd *DayCmd) Run(ctx *cli.Context) error {
	date, err := ctx.ParseDate(cmd.Date)
	if err != nil {
		return err
	}

	client, err := ctx.Client()
	if err != nil {
		return err
	}

	history := moodsync.NewHistorySync(client)
	checkins := moodsync.NewCheckinSync(client)
	machine := dayview.New(history, checkins, ctx.Loc(), dayview.WithClock(ctx.Today))

	machine.Select(ctx.Ctx(), date)
	// Failures surface through the view
	_ = history.Wait()
	_ = checkins.Wait()

	v := machine.Current()
	fmt.Fprint(ctx.Stdout(), day.Render(v))

	if v.Status == dayview.StatusError {
		return v.Err
	}
	if err := checkins.MonthError(date.Period()); err != nil {
		return fmt.Errorf("failed to load check-ins: %w", err)
	}
	return nil
}
