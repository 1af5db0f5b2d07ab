// Package session tracks the authenticated identity for the lifetime
// of a run and the one-time register-or-login handshake against the
// backend. Sync status is an explicit tri-state rather than a
// render-guarded flag, so callers can re-trigger it on every pass and
// still get exactly one network call per session.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
)

// SyncStatus is the state of the backend handshake.
type SyncStatus int

const (
	// StatusUnsynced means the handshake has not run, or its last
	// attempt failed and it may be retried.
	StatusUnsynced SyncStatus = iota
	// StatusSyncing means a handshake call is in flight.
	StatusSyncing
	// StatusSynced means the handshake succeeded; it will not run again
	// for this session.
	StatusSynced
)

func (s SyncStatus) String() string {
	switch s {
	case StatusSyncing:
		return "syncing"
	case StatusSynced:
		return "synced"
	default:
		return "unsynced"
	}
}

// Backend is the slice of the API client the session needs.
type Backend interface {
	Login(ctx context.Context, id api.Identity) (exists bool, err error)
}

// Session holds the signed-in identity and sync state. The zero
// identity means signed out.
type Session struct {
	mu       sync.Mutex
	identity api.Identity
	status   SyncStatus
	existed  bool

	backend Backend
	logger  *zap.Logger
}

// New creates a session. identity may be zero; call SignIn later.
func New(backend Backend, identity api.Identity, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		identity: identity,
		backend:  backend,
		logger:   logger,
	}
}

// Identity returns the current identity.
func (s *Session) Identity() api.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SignedIn reports whether an identity is present.
func (s *Session) SignedIn() bool {
	return s.Identity().Valid()
}

// Status returns the current sync status.
func (s *Session) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SignIn installs an identity and resets sync state so the handshake
// runs for the new user.
func (s *Session) SignIn(identity api.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
	s.status = StatusUnsynced
	s.existed = false
}

// SignOut clears the identity and sync state. The caller is
// responsible for discarding the context snapshot.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = api.Identity{}
	s.status = StatusUnsynced
	s.existed = false
}

// Sync runs the idempotent register-or-login handshake at most once
// per signed-in session. Repeat calls while syncing or after success
// are no-ops that report the cached result. A failed attempt returns
// the session to unsynced so a later pass may retry; the failure is
// logged and never fatal to the main flow.
//
// existed reports whether the backend already knew the account, which
// lets the caller skip the upload screen and fetch context directly.
func (s *Session) Sync(ctx context.Context) (existed bool, err error) {
	s.mu.Lock()
	switch s.status {
	case StatusSynced:
		existed = s.existed
		s.mu.Unlock()
		return existed, nil
	case StatusSyncing:
		s.mu.Unlock()
		return false, nil
	}
	if !s.identity.Valid() {
		s.mu.Unlock()
		return false, nil
	}
	s.status = StatusSyncing
	id := s.identity
	s.mu.Unlock()

	exists, err := s.backend.Login(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusUnsynced
		s.logger.Warn("backend sync failed, will retry",
			zap.String("user_id", id.UserID),
			zap.Error(err))
		return false, err
	}

	s.status = StatusSynced
	s.existed = exists
	s.logger.Info("backend sync complete",
		zap.String("user_id", id.UserID),
		zap.Bool("existing_account", exists))
	return exists, nil
}
