package system

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/moodlit/internal/backup"
	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/models"
)

// ImportCmd loads prediction records into the development service database.
type ImportCmd struct {
	DBFlags `embed:""`

	File     string `arg:"" type:"existingfile" help:"JSON file: an array of prediction records or a history response."`
	NoBackup bool   `help:"Skip the automatic backup of a SQLite database."`
}

func (cmd *ImportCmd) Run(ctx *cli.Context) error {
	data, err := os.ReadFile(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.File, err)
	}
	records, err := DecodePredictions(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.File, err)
	}

	if err := cmd.snapshot(ctx); err != nil {
		return err
	}

	store, err := cmd.Open(ctx.Ctx())
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.UpsertPredictions(ctx.Ctx(), records)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "✓ Imported %d predictions (%d missing days skipped)\n", n, len(records)-n)
	return nil
}

// snapshot backs up an existing SQLite database before it is overwritten.
func (cmd *ImportCmd) snapshot(ctx *cli.Context) error {
	if cmd.NoBackup {
		return nil
	}
	path, ok, err := cmd.SQLitePath()
	if err != nil || !ok {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	snap, err := backup.NewManager(path).Create(ctx.Ctx())
	if err != nil {
		return fmt.Errorf("failed to back up database before import: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "✓ Backup created: %s\n", filepath.Base(snap.Path))
	return nil
}

// DecodePredictions accepts either a bare JSON array of records or an object
// with a "days" array.
func DecodePredictions(data []byte) ([]models.PredictionRecord, error) {
	data = bytes.TrimSpace(data)
	var records []models.PredictionRecord
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	} else {
		var resp models.HistoryResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, err
		}
		records = resp.Days
	}

	for i, rec := range records {
		if rec.Date.IsZero() {
			return nil, fmt.Errorf("record %d: date is required", i)
		}
		if rec.Available() && !rec.Confidence.Valid() {
			return nil, fmt.Errorf("record %d (%s): invalid confidence %q", i, rec.Date, rec.Confidence)
		}
	}
	return records, nil
}
