package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/config"
	apperrors "github.com/julianstephens/moodlit/internal/errors"
	"github.com/julianstephens/moodlit/internal/keyring"
	"github.com/julianstephens/moodlit/internal/logger"
)

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	out := ctx.Stdout()
	fmt.Fprintln(out, "Running diagnostics...")
	fmt.Fprintln(out)

	hasError := false

	// Check 1: Config file parses
	switch found, err := checkConfigFile(ctx.ConfigFile); {
	case err != nil:
		fail(out, "Config file", err)
		hasError = true
	case !found:
		fmt.Fprintf(out, "⊘ Config file: SKIPPED (%s not found, using defaults)\n", ctx.ConfigFile)
	default:
		fmt.Fprintf(out, "✓ Config file: OK\n")
	}

	// Check 2: Clock/timezone sanity
	if err := checkClockTimezone(ctx); err != nil {
		fail(out, "Clock/timezone", err)
		hasError = true
	} else {
		fmt.Fprintf(out, "✓ Clock/timezone: OK (%s, today is %s)\n", ctx.Loc(), ctx.Today())
	}

	// Check 3: Keyring (warning only, --token works without it)
	if keyring.IsAvailable() {
		fmt.Fprintf(out, "✓ OS keyring: OK\n")
	} else {
		fmt.Fprintf(out, "⚠ OS keyring: WARNING\n")
		fmt.Fprintf(out, "   Keyring unavailable; use --token or MOODLIT_TOKEN\n")
	}

	if path := logger.FilePath(); path != "" {
		fmt.Fprintf(out, "ℹ Log file: %s\n", path)
	}

	// Check 4: Service reachable
	reachable := false
	client, err := ctx.Client()
	if err == nil {
		err = client.Ping(ctx.Ctx())
	}
	if err != nil {
		fail(out, "Prediction service reachable", err)
		hasError = true
	} else {
		fmt.Fprintf(out, "✓ Prediction service reachable: OK (%s)\n", client.BaseURL())
		reachable = true
	}

	// Check 5: Authenticated (only if the service is reachable)
	if reachable {
		if err := checkAuth(ctx); err != nil {
			fail(out, "Authentication", err)
			hasError = true
		} else {
			fmt.Fprintf(out, "✓ Authentication: OK\n")
		}
	} else {
		fmt.Fprintf(out, "⊘ Authentication: SKIPPED (service not reachable)\n")
	}

	fmt.Fprintln(out)
	if hasError {
		fmt.Fprintln(out, "Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}

	fmt.Fprintln(out, "All diagnostics passed!")
	return nil
}

func fail(out io.Writer, check string, err error) {
	fmt.Fprintf(out, "❌ %s: FAIL\n", check)
	fmt.Fprintf(out, "   Error: %v\n", err)
}

func checkConfigFile(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return false, err
	}
	f, err := os.Open(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	if _, err := config.YAML(f); err != nil {
		return true, err
	}
	return true, nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now().In(ctx.Loc())
	if now.Year() < 2000 || now.Year() > 2100 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	if ctx.Today().IsZero() {
		return errors.New("could not determine today's date")
	}
	return nil
}

// checkAuth fetches today's history entry, which requires a valid session
// when the service enforces authentication.
func checkAuth(ctx *cli.Context) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx.Ctx(), 10*time.Second)
	defer cancel()

	today := ctx.Today()
	_, err = client.History(reqCtx, today, today)
	if err == nil {
		return nil
	}
	var fe *apperrors.FetchError
	if errors.As(err, &fe) && fe.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("service rejected the session token; run 'moodlit login': %w", err)
	}
	if errors.Is(err, apperrors.ErrNotAuthenticated) {
		return fmt.Errorf("no session token; run 'moodlit login' or pass --token: %w", err)
	}
	return err
}
