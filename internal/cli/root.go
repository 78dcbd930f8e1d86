package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/julianstephens/moodlit/internal/api"
	"github.com/julianstephens/moodlit/internal/auth"
	"github.com/julianstephens/moodlit/internal/models"
	"github.com/julianstephens/moodlit/internal/utils"
)

// Context is shared by every command.
type Context struct {
	Base       context.Context
	APIURL     string
	Token      string
	Timeout    time.Duration
	Location   *time.Location
	ConfigDir  string
	ConfigFile string
	Debug      bool
	Out        io.Writer

	// Clock overrides today's date; nil means the wall clock in Location
	Clock func() models.DateKey
}

// Ctx returns the run's context, cancelled on interrupt.
func (c *Context) Ctx() context.Context {
	if c.Base == nil {
		return context.Background()
	}
	return c.Base
}

// Stdout is where commands print their results.
func (c *Context) Stdout() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Loc returns the timezone that defines the local day.
func (c *Context) Loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c *Context) Today() models.DateKey {
	if c.Clock != nil {
		return c.Clock()
	}
	return utils.Today(c.Loc())
}

// ParseDate accepts YYYY-MM-DD or "today".
func (c *Context) ParseDate(s string) (models.DateKey, error) {
	if s == "" || s == "today" {
		return c.Today(), nil
	}
	return models.ParseDateKey(s)
}

// Session returns the active session: --token first, then the keyring.
func (c *Context) Session() auth.Session {
	return auth.Resolve(c.Token)
}

// Client builds an API client for the configured service.
func (c *Context) Client() (*api.Client, error) {
	var opts []api.Option
	if c.Timeout > 0 {
		opts = append(opts, api.WithTimeout(c.Timeout))
	}
	if s := c.Session(); s != nil {
		opts = append(opts, api.WithSession(s))
	}
	return api.New(c.APIURL, opts...)
}
