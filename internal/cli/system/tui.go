package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/moodsync"
	"github.com/julianstephens/moodlit/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx.Ctx())
	defer cancel()

	events := make(chan moodsync.Event, 64)
	history := moodsync.NewHistorySync(client, moodsync.WithEvents(events))
	checkins := moodsync.NewCheckinSync(client, moodsync.WithEvents(events))

	model := tui.NewModel(runCtx, history, checkins, events, ctx.Loc(), tui.WithClock(ctx.Today))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(runCtx))
	_, runErr := p.Run()

	// Let pending submissions finish, then abandon month fetches
	checkins.WaitSubmits()
	cancel()
	_ = history.Wait()
	_ = checkins.Wait()

	if runErr != nil {
		return fmt.Errorf("tui failed: %w", runErr)
	}
	return nil
}
