package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/config"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/server"
	"github.com/julianstephens/moodlit/internal/storage"
)

// DBFlags selects the development service database.
type DBFlags struct {
	DB string `help:"SQLite file path or PostgreSQL URL. PostgreSQL URLs must NOT embed a password; use .pgpass or PGPASSWORD." default:"~/.config/moodlit/moodlit.db" env:"MOODLIT_DB"`
}

// DSN returns the database location with ~ expanded for SQLite paths.
func (f DBFlags) DSN() (string, error) {
	if storage.IsPostgres(f.DB) {
		return f.DB, nil
	}
	return config.ExpandPath(f.DB)
}

// SQLitePath returns the database file, or false for PostgreSQL.
func (f DBFlags) SQLitePath() (string, bool, error) {
	if storage.IsPostgres(f.DB) {
		return "", false, nil
	}
	path, err := f.DSN()
	return path, err == nil, err
}

// Open creates and initializes the store, applying pending migrations.
func (f DBFlags) Open(ctx context.Context) (storage.Provider, error) {
	dsn, err := f.DSN()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open %s: %w", store.Describe(), err)
	}
	return store, nil
}

type ServeCmd struct {
	DBFlags `embed:""`

	Addr         string `help:"Address to listen on." default:"127.0.0.1:8000" env:"MOODLIT_ADDR"`
	RequireToken string `help:"Require this bearer token on data endpoints." env:"MOODLIT_SERVER_TOKEN"`
	UserID       string `help:"User id check-ins are filed under." default:"${default_user_id}"`
}

func (cmd *ServeCmd) Run(ctx *cli.Context) error {
	store, err := cmd.Open(ctx.Ctx())
	if err != nil {
		return err
	}
	defer store.Close()

	if cmd.RequireToken == "" {
		logger.Warn("Serving without authentication")
	}

	srv := server.New(store,
		server.WithToken(cmd.RequireToken),
		server.WithLocation(ctx.Loc()),
		server.WithUserID(cmd.UserID),
	)
	fmt.Fprintf(ctx.Stdout(), "Serving %s on http://%s\n", store.Describe(), cmd.Addr)
	return srv.ListenAndServe(ctx.Ctx(), cmd.Addr)
}
