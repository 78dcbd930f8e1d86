package system

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/julianstephens/moodlit/internal/backup"
	"github.com/julianstephens/moodlit/internal/cli"
)

var errPostgresBackup = errors.New("backups are only supported for SQLite databases; use pg_dump for PostgreSQL")

func (f DBFlags) backupManager() (*backup.Manager, error) {
	path, ok, err := f.SQLitePath()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errPostgresBackup
	}
	return backup.NewManager(path), nil
}

type BackupCreateCmd struct {
	DBFlags `embed:""`
}

func (cmd *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := cmd.backupManager()
	if err != nil {
		return err
	}
	snap, err := mgr.Create(ctx.Ctx())
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "✓ Backup created: %s\n", snap.Path)
	return nil
}

type BackupListCmd struct {
	DBFlags `embed:""`
}

func (cmd *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := cmd.backupManager()
	if err != nil {
		return err
	}
	snaps, err := mgr.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintf(ctx.Stdout(), "No backups in %s\n", mgr.Dir())
		return nil
	}

	tbl := uitable.New()
	tbl.AddRow("NAME", "CREATED", "SIZE")
	for _, s := range snaps {
		tbl.AddRow(filepath.Base(s.Path), humanize.Time(s.Created), humanize.Bytes(uint64(s.Size)))
	}
	fmt.Fprintln(ctx.Stdout(), tbl)
	return nil
}

type BackupRestoreCmd struct {
	DBFlags `embed:""`

	Name string `arg:"" optional:"" help:"Backup file name or path. Defaults to the newest backup."`
}

func (cmd *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := cmd.backupManager()
	if err != nil {
		return err
	}

	path := cmd.Name
	switch {
	case path == "":
		snaps, err := mgr.List()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return fmt.Errorf("no backups in %s", mgr.Dir())
		}
		path = snaps[0].Path
	case filepath.Base(path) == path:
		path = filepath.Join(mgr.Dir(), path)
	}

	if err := mgr.Restore(ctx.Ctx(), path); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "✓ Restored %s\n", filepath.Base(path))
	return nil
}
