// Package auth supplies the bearer token for requests to the prediction
// service. It does not issue sessions; it only reports whether one is active.
package auth

import (
	"errors"
	"strings"

	apperrors "github.com/julianstephens/moodlit/internal/errors"
	"github.com/julianstephens/moodlit/internal/keyring"
)

// Session is the currently authenticated user, if any.
type Session interface {
	// Active reports whether a session is currently active
	Active() bool
	// Token returns the bearer token of the active session
	Token() (string, error)
}

// StaticSession is a fixed token, typically from a flag or MOODLIT_TOKEN.
type StaticSession string

func (s StaticSession) Active() bool { return strings.TrimSpace(string(s)) != "" }

func (s StaticSession) Token() (string, error) {
	if !s.Active() {
		return "", apperrors.ErrNotAuthenticated
	}
	return strings.TrimSpace(string(s)), nil
}

// KeyringSession reads the token stored by `moodlit login` on every call, so
// a logout in another process takes effect immediately.
type KeyringSession struct{}

func (KeyringSession) Active() bool {
	_, err := keyring.GetToken()
	return err == nil
}

func (KeyringSession) Token() (string, error) {
	token, err := keyring.GetToken()
	if errors.Is(err, keyring.ErrNotFound) {
		return "", apperrors.ErrNotAuthenticated
	}
	return token, err
}

// Resolve picks the session for a run: an explicit token wins, then the
// keyring. It returns nil (anonymous) when neither has a token.
func Resolve(token string) Session {
	if s := StaticSession(token); s.Active() {
		return s
	}
	if (KeyringSession{}).Active() {
		return KeyringSession{}
	}
	return nil
}
