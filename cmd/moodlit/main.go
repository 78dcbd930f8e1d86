package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/moodlit/internal/cli"
	"github.com/julianstephens/moodlit/internal/cli/mood"
	"github.com/julianstephens/moodlit/internal/cli/system"
	"github.com/julianstephens/moodlit/internal/config"
	"github.com/julianstephens/moodlit/internal/constants"
	apperrors "github.com/julianstephens/moodlit/internal/errors"
	"github.com/julianstephens/moodlit/internal/logger"
	"github.com/julianstephens/moodlit/internal/utils"
)

var CLI struct {
	Version   kong.VersionFlag
	Config    kong.ConfigFlag `help:"YAML config file (default ~/.config/moodlit/config.yaml)."`
	APIURL    string          `name:"api-url" help:"Prediction service base URL." default:"${default_api_url}" env:"MOODLIT_API_URL"`
	Token     string          `help:"Session token. Overrides the token stored by 'moodlit login'." env:"MOODLIT_TOKEN"`
	Timeout   time.Duration   `help:"Per-request timeout." default:"10s" env:"MOODLIT_TIMEOUT"`
	Timezone  string          `help:"IANA timezone that defines the local day." default:"Local" env:"MOODLIT_TIMEZONE"`
	Debug     bool            `help:"Enable debug logging to stderr." env:"MOODLIT_DEBUG"`
	LogLevel  string          `name:"log-level" help:"Log level (debug, info, warn, error). Defaults from --debug." env:"MOODLIT_LOG_LEVEL"`
	LogFormat string          `name:"log-format" help:"Log format: text, json or logfmt." default:"text" enum:"text,json,logfmt" env:"MOODLIT_LOG_FORMAT"`

	Tui     system.TuiCmd    `cmd:"" help:"Launch the interactive calendar." default:"1"`
	Day     mood.DayCmd      `cmd:"" help:"Show the prediction and check-in for a day."`
	History mood.HistoryCmd  `cmd:"" help:"Show monthly prediction calendars."`
	Checkin mood.CheckinCmd  `cmd:"" help:"Record a mood check-in."`
	Login   system.LoginCmd  `cmd:"" help:"Store a session token in the OS keyring."`
	Logout  system.LogoutCmd `cmd:"" help:"Remove the session token from the OS keyring."`
	Doctor  system.DoctorCmd `cmd:"" help:"Run health checks and diagnostics."`
	Serve   system.ServeCmd  `cmd:"" help:"Run the development prediction service."`
	Import  system.ImportCmd `cmd:"" help:"Import predictions into the development service database."`
	Backup  struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Back up the development database." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List backups."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Restore a backup."`
	} `cmd:"" help:"Manage development database backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Mood prediction calendar and daily check-ins"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Configuration(config.YAML, constants.DefaultConfigFile),
		kong.Vars{
			"version":         constants.Version,
			"default_api_url": constants.DefaultAPIURL,
			"default_user_id": constants.DefaultUserID,
		},
	)

	configDir, err := config.ExpandPath(constants.DefaultConfigDir)
	if err != nil {
		apperrors.Fatal(err)
	}
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir,
		Stderr:    ctx.Command() == "serve",
		Level:     CLI.LogLevel,
		Format:    CLI.LogFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	if !utils.ValidateTimezone(CLI.Timezone) {
		apperrors.Fatalf("invalid timezone %q", CLI.Timezone)
	}
	loc, err := utils.LoadLocation(CLI.Timezone)
	if err != nil {
		apperrors.Fatal(err)
	}

	configFile := string(CLI.Config)
	if configFile == "" {
		configFile = constants.DefaultConfigFile
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	appCtx := &cli.Context{
		Base:       runCtx,
		APIURL:     CLI.APIURL,
		Token:      CLI.Token,
		Timeout:    CLI.Timeout,
		Location:   loc,
		ConfigDir:  configDir,
		ConfigFile: configFile,
		Debug:      CLI.Debug,
	}

	err = ctx.Run(appCtx)
	stop()
	apperrors.Fatal(err)
	logger.Close()
}
