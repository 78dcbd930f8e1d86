package mood

import (
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/tui/components/calendar"
	"github.com/julianstephens/moodlit/internal/tui/components/day"
	"github.com/julianstephens/moodlit/internal/utils"
)

type HistoryCmd struct {
	Month  string `arg:"" optional:"" default:"current" help:"Last month to show (YYYY-MM or 'current')."`
	Months int    `short:"n" default:"1" help:"Number of months to show, ending at MONTH."`
	List   bool   `short:"l" help:"Print a table of days instead of calendars."`
}

func (cmd *HistoryCmd) Run(ctx *cli.Context) error {
	if cmd.Months < 1 || cmd.Months > 12 {
		return fmt.Errorf("--months must be between 1 and 12, got %d", cmd.Months)
	}
	last := ctx.Today().Period()
	if cmd.Month != "current" && cmd.Month != "" {
		p, err := utils.ParsePeriod(cmd.Month, ctx.Loc())
		if err != nil {
			return err
		}
		last = p
	}

	periods := make([]models.PeriodKey, cmd.Months)
	for i := range periods {
		periods[i] = last.AddMonths(i - cmd.Months + 1)
	}

	client, err := ctx.Client()
	if err != nil {
		return err
	}
	history := moodsync.NewHistorySync(client)
	checkins := moodsync.NewCheckinSync(client)

	// Prefetch every month; each sync runs its fetches concurrently
	var g errgroup.Group
	g.Go(func() error {
		for _, p := range periods {
			history.EnsureMonth(ctx.Ctx(), p)
		}
		return history.Wait()
	})
	g.Go(func() error {
		for _, p := range periods {
			checkins.EnsureMonth(ctx.Ctx(), p)
		}
		return checkins.Wait()
	})
	fetchErr := g.Wait()

	out := ctx.Stdout()
	for _, p := range periods {
		if cmd.List {
			printTable(out, p, history, checkins)
		} else {
			printCalendar(out, p, ctx.Today(), history, checkins)
		}
	}
	if !cmd.List {
		fmt.Fprintln(out, calendar.Legend())
	}

	if fetchErr != nil {
		return fmt.Errorf("some months could not be loaded: %w", fetchErr)
	}
	return nil
}

func printCalendar(out io.Writer, p models.PeriodKey, today models.DateKey, history *moodsync.HistorySync, checkins *moodsync.CheckinSync) {
	cal := calendar.New(p)
	cal.Today = today
	cal.Index = history.BucketIndex(p)
	cal.SetNotes(checkins.NotesIndex(p))
	cal.Err = history.MonthError(p)

	fmt.Fprintln(out, cal.View())
	if cal.Err == nil {
		fmt.Fprintln(out, calendar.Summary(cal.Index))
	}
	fmt.Fprintln(out)
}

func printTable(out io.Writer, p models.PeriodKey, history *moodsync.HistorySync, checkins *moodsync.CheckinSync) {
	if err := history.MonthError(p); err != nil {
		fmt.Fprintf(out, "%s: failed to load predictions: %v\n\n", p, err)
		return
	}

	tbl := uitable.New()
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	tbl.AddRow("DATE", "PREDICTED", "CONFIDENCE", "CHECK-IN", "NOTE")
	for _, date := range utils.DaysInPeriod(p) {
		predicted, confidence := "-", "-"
		if rec, ok := history.RecordFor(date); ok && rec.Available() {
			predicted = fmt.Sprintf("%.1f (%s)", rec.PredictedMood, utils.BucketOf(rec.PredictedMood))
			confidence = string(rec.Confidence)
		}
		mood, note := "-", ""
		if rec, ok := checkins.RecordFor(date); ok {
			mood = day.MoodLabel(rec.Mood)
			note = strings.TrimSpace(rec.Note)
		}
		tbl.AddRow(date.String(), predicted, confidence, mood, note)
	}
	fmt.Fprintln(out, tbl)
	fmt.Fprintln(out)
}
