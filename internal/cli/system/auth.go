package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/keyring"
)

// LoginCmd stores a session token in the OS keyring. The token comes from the
// global --token flag (or MOODLIT_TOKEN) and is prompted for otherwise.
type LoginCmd struct{}

func (cmd *LoginCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available on this system; pass --token or set MOODLIT_TOKEN instead")
	}

	token := strings.TrimSpace(ctx.Token)
	if token == "" {
		err := huh.NewInput().
			Title("Session token").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("token cannot be empty")
				}
				return nil
			}).
			Value(&token).
			Run()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}

	if err := keyring.SetToken(token); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout(), "✓ Session token stored in OS keyring")
	return nil
}

// LogoutCmd removes the session token from the OS keyring
type LogoutCmd struct{}

func (cmd *LogoutCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteToken(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			fmt.Fprintln(ctx.Stdout(), "ℹ No session token stored")
			return nil
		}
		return err
	}
	fmt.Fprintln(ctx.Stdout(), "✓ Session token deleted from OS keyring")
	return nil
}
