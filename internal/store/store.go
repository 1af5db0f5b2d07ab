// Package store owns the financial context snapshot for a session.
// The snapshot is the only shared mutable state in the application: it
// is guarded by one mutex and replaced as a whole object, never
// patched field-by-field. Mutations follow confirm-then-swap: the
// snapshot changes only after the backend confirms, and a failed
// mutation leaves the pre-mutation snapshot in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/finsight/internal/api"
	"github.com/fyrsmithlabs/finsight/internal/finance"
)

// State is the load state of the context snapshot.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unloaded"
	}
}

// ErrNoTransactions reports an upload that parsed to zero rows. It is
// informational, not fatal: the caller stays on the upload screen and
// prior state is preserved.
var ErrNoTransactions = errors.New("no transactions found in statement")

// Backend is the slice of the API client the store needs.
type Backend interface {
	FetchContext(ctx context.Context, id api.Identity) (finance.Context, error)
	Upload(ctx context.Context, id api.Identity, filename string, r io.Reader) (api.UploadResult, error)
	AddTransaction(ctx context.Context, id api.Identity, tx finance.NewTransaction) (finance.Context, error)
	AddPolicy(ctx context.Context, id api.Identity, p finance.NewPolicy) (finance.Context, error)
	SetGoal(ctx context.Context, id api.Identity, g finance.NewGoal) error
}

// Store holds the context snapshot for one signed-in identity.
type Store struct {
	mu       sync.Mutex
	state    State
	snapshot finance.Context
	lastErr  error

	backend Backend
	logger  *zap.Logger
}

// New creates an unloaded store.
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// State returns the current load state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that put the store into StateError, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a read-only copy of the current context.
func (s *Store) Snapshot() finance.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.Clone()
}

// Reset discards the snapshot, e.g. on sign-out.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUnloaded
	s.snapshot = finance.Context{}
	s.lastErr = nil
}

// Refresh fetches the full context and replaces the snapshot
// wholesale. On failure the store enters StateError but keeps the last
// known-good snapshot so a retry can start from it.
func (s *Store) Refresh(ctx context.Context, id api.Identity) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	fin, err := s.backend.FetchContext(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.lastErr = err
		s.logger.Error("context fetch failed", zap.Error(err))
		return err
	}
	s.state = StateReady
	s.lastErr = nil
	s.snapshot = fin
	s.logger.Debug("context refreshed",
		zap.Int("transactions", len(fin.Transactions)),
		zap.Int("policies", len(fin.Policies)))
	return nil
}

// Upload sends a statement to the backend and refreshes the context on
// a nonzero import. The filename is validated client-side first; this
// check is advisory, the backend re-validates. Zero imported rows
// return ErrNoTransactions with all state unchanged. Callers are
// responsible for gating concurrent uploads.
func (s *Store) Upload(ctx context.Context, id api.Identity, filename string, r io.Reader) (int, error) {
	if !finance.IsCSVFilename(filename) {
		return 0, fmt.Errorf("%q is not a CSV file", filename)
	}

	res, err := s.backend.Upload(ctx, id, filename, r)
	if isNoRowsError(err) {
		s.logger.Info("upload imported no transactions", zap.String("file", filename))
		return 0, ErrNoTransactions
	}
	if err != nil {
		s.logger.Warn("upload failed", zap.String("file", filename), zap.Error(err))
		return 0, err
	}
	if res.ImportedCount == 0 {
		s.logger.Info("upload imported no transactions", zap.String("file", filename))
		return 0, ErrNoTransactions
	}

	s.logger.Info("statement uploaded",
		zap.String("file", filename),
		zap.Int("imported", res.ImportedCount))

	if err := s.Refresh(ctx, id); err != nil {
		return res.ImportedCount, err
	}
	return res.ImportedCount, nil
}

// isNoRowsError reports whether the backend rejected a statement for
// holding no usable rows. It answers 400 for that case rather than a
// success with a zero count.
func isNoRowsError(err error) bool {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Detail), "no valid transactions")
}

// AddTransaction creates a transaction and swaps in the backend's
// replacement context. On failure the pre-mutation snapshot is
// restored untouched and the error is logged and returned.
func (s *Store) AddTransaction(ctx context.Context, id api.Identity, tx finance.NewTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "add transaction", func() (finance.Context, error) {
		return s.backend.AddTransaction(ctx, id, tx)
	})
}

// AddPolicy creates a spending policy and swaps in the backend's
// replacement context, with the same rollback contract as
// AddTransaction.
func (s *Store) AddPolicy(ctx context.Context, id api.Identity, p finance.NewPolicy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.mutate(ctx, "add policy", func() (finance.Context, error) {
		return s.backend.AddPolicy(ctx, id, p)
	})
}

// SetGoal creates or replaces the savings goal, then refreshes the
// context since the goal endpoint does not return one.
func (s *Store) SetGoal(ctx context.Context, id api.Identity, g finance.NewGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := s.backend.SetGoal(ctx, id, g); err != nil {
		s.logger.Error("set goal failed", zap.Error(err))
		return err
	}
	return s.Refresh(ctx, id)
}

// mutate runs a mutation that returns a full replacement context. The
// snapshot is only swapped after the backend confirms; any error keeps
// the previous snapshot.
func (s *Store) mutate(ctx context.Context, op string, call func() (finance.Context, error)) error {
	fin, err := call()
	if err != nil {
		s.logger.Error("mutation failed, snapshot unchanged",
			zap.String("op", op),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = fin
	s.state = StateReady
	s.lastErr = nil
	return nil
}
