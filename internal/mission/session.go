package mission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lunarmonkeys/internal/logging"
)

var (
	// ErrLoginFailed wraps any failure of the credential exchange or the
	// profile fetch that follows it.
	ErrLoginFailed = errors.New("login failed")
	// ErrNoSession is returned by operations that need a logged-in user.
	ErrNoSession = errors.New("no active session")
	// ErrPrimateRequired rejects a discovery without a primate before any
	// request is made.
	ErrPrimateRequired = errors.New("a primate must be selected")
)

// Session holds the current user, or none.
type Session struct {
	remote Remote

	mu   sync.RWMutex
	user *User
}

// NewSession creates an empty session.
func NewSession(remote Remote) *Session {
	return &Session{remote: remote}
}

// User returns a copy of the current user, or nil when logged out.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsScientist reports whether the current user may create records.
func (s *Session) IsScientist() bool {
	return s.User().IsScientist()
}

func (s *Session) set(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Login exchanges credentials and then fetches the profile. On any failure
// the session stays empty and the returned error matches ErrLoginFailed.
func (s *Session) Login(ctx context.Context, email, password string) error {
	logging.Session("Login attempt for %s", email)

	if err := s.remote.Login(ctx, email, password); err != nil {
		logging.SessionError("Login failed for %s: %v", email, err)
		logging.Audit().Login(email, err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	u, err := s.remote.Me(ctx)
	if err != nil {
		logging.SessionError("Profile fetch after login failed: %v", err)
		logging.Audit().Login(email, err)
		return fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	s.set(u)
	logging.AuditWithUser(u.ID).Login(email, nil)
	logging.Session("Logged in as %s (%s)", u.Name, u.Role)
	return nil
}

// Logout ends the remote session and always empties the local user. The
// remote error, if any, is returned for diagnostics only.
func (s *Session) Logout(ctx context.Context) error {
	audit := logging.Audit()
	if u := s.User(); u != nil {
		audit = logging.AuditWithUser(u.ID)
	}

	err := s.remote.Logout(ctx)
	s.set(nil)
	audit.Logout(err)
	if err != nil {
		logging.SessionError("Remote logout failed, local session cleared anyway: %v", err)
		return err
	}
	logging.Session("Logged out")
	return nil
}

// Bootstrap restores the user of a stored session. Having no session, or a
// stale one, is the normal logged-out state and is not an error.
func (s *Session) Bootstrap(ctx context.Context) error {
	if !s.remote.HasSession() {
		logging.SessionDebug("No stored session token")
		s.set(nil)
		return nil
	}

	u, err := s.remote.Me(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.Session("No active session found: %v", err)
		s.set(nil)
		return nil
	}

	s.set(u)
	logging.AuditWithUser(u.ID).SessionRestored()
	logging.Session("Restored session for %s (%s)", u.Name, u.Role)
	return nil
}
