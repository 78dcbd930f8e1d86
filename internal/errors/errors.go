package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/moodlit/internal/logger"
)

var (
	// ErrInvalidDateFormat is returned when a date or period string cannot be parsed
	ErrInvalidDateFormat = errors.New("invalid date format")
	// ErrFetchFailed is returned when a request to the prediction service fails
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNotAuthenticated is returned when a request needs a session and none is active
	ErrNotAuthenticated = errors.New("not authenticated")
)

// FetchError describes a failed request to the prediction service.
// StatusCode is zero for transport failures.
type FetchError struct {
	Op         string
	Start      string
	End        string
	StatusCode int
	Detail     string
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.Start != "" {
		msg += fmt.Sprintf(" for %s..%s", e.Start, e.End)
	}
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		msg += fmt.Sprintf(": status %d: %s", e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap lets errors.Is match both ErrFetchFailed and the underlying cause
func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetchFailed, e.Err}
	}
	return []error{ErrFetchFailed}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
