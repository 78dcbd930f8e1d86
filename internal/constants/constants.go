package constants

import "time"

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName            = "moodlit"
	DefaultKeyringUser = "session-token"
	DefaultConfigDir   = "~/.config/moodlit"
	DefaultConfigFile  = "~/.config/moodlit/config.yaml"
	DefaultDBPath      = "~/.config/moodlit/moodlit.db"
	DefaultAPIURL      = "http://localhost:8000"
	DefaultServeAddr   = "127.0.0.1:8000"
	DefaultTimezone    = "Local" // Use system local timezone by default
	DefaultTimeout     = 10 * time.Second
	Version            = "v0.1.0"

	// DateFormat is the canonical DateKey layout (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// PeriodFormat is the canonical PeriodKey layout (YYYY-MM)
	PeriodFormat = "2006-01"

	// DefaultUserID is the single-user placeholder the development service files check-ins under
	DefaultUserID = "b1101f5b-a68d-4cb9-bf48-bfc4697a761a"

	// Mood scale bounds for user check-ins
	MinMood = 1
	MaxMood = 5

	// Bucket thresholds on predicted_mood
	LowMoodCeiling  = 2.0
	HighMoodFloor   = 4.0
	NoPredictionMsg = "No prediction for this date"
	NotComputedMsg  = "No prediction exists for this date"

	// HTTP
	RequestIDHeader = "X-Request-ID"
)

// Session States
const (
	StateCalendar SessionState = iota
	StateCheckinForm
	StateHelp
)
