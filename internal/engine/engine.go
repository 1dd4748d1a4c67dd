package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lotboard/lotboard/internal/auction"
)

// Persister saves a consistent copy of the auction aggregate.
// Implemented by *store.Store in production and by in-memory fakes in tests.
type Persister interface {
	Save(ctx context.Context, state *auction.State) error
}

// Config carries the engine tunables. Zero fields are replaced with the
// corresponding DefaultConfig values in New.
type Config struct {
	// IdleTimeout is how long a round may go without a bid before it
	// auto-closes.
	IdleTimeout time.Duration

	// Increments is the set of bid deltas accepted by PlaceBid.
	Increments []int64

	// PresenceExpiry is how long a participant stays listed after their
	// last contact.
	PresenceExpiry time.Duration

	// RefreshThrottle bounds how often a single participant's presence
	// timestamp is rewritten.
	RefreshThrottle time.Duration

	// CheckThrottle bounds how often the read path runs idle-close and
	// presence-sweep housekeeping.
	CheckThrottle time.Duration
}

// DefaultConfig returns the tunables used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:     30 * time.Second,
		Increments:      []int64{1, 5, 10, 50, 100},
		PresenceExpiry:  30 * time.Second,
		RefreshThrottle: 5 * time.Second,
		CheckThrottle:   time.Second,
	}
}

// Engine is the single-writer transaction engine for the auction
// aggregate.
//
// All mutations are serialized through one mutex. Each transaction
// operates on a deep clone of the aggregate and the clone is published
// only after the store has accepted it, so callers never observe a
// state that is not on disk.
type Engine struct {
	mu    sync.Mutex
	state *auction.State

	persister Persister
	clock     clockwork.Clock
	cfg       Config
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock replaces the wall clock. Tests pass a clockwork fake clock
// to drive idle timeouts and presence expiry deterministically.
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// New creates an Engine serving the given aggregate. A nil initial
// state starts a fresh auction.
func New(p Persister, initial *auction.State, cfg Config, opts ...Option) *Engine {
	if initial == nil {
		initial = auction.NewState()
	}

	def := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if len(cfg.Increments) == 0 {
		cfg.Increments = def.Increments
	}
	if cfg.PresenceExpiry <= 0 {
		cfg.PresenceExpiry = def.PresenceExpiry
	}
	if cfg.RefreshThrottle <= 0 {
		cfg.RefreshThrottle = def.RefreshThrottle
	}
	if cfg.CheckThrottle <= 0 {
		cfg.CheckThrottle = def.CheckThrottle
	}

	e := &Engine{
		state:     initial,
		persister: p,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Increments returns a copy of the accepted bid deltas.
func (e *Engine) Increments() []int64 {
	out := make([]int64, len(e.cfg.Increments))
	copy(out, e.cfg.Increments)
	return out
}

// transact applies fn to a clone of the aggregate and publishes the
// clone once the store has accepted it. Any error, from fn or from the
// save, leaves the published aggregate untouched.
//
// The idle check runs before fn so a mutation can never land on a
// round whose deadline has already passed.
func (e *Engine) transact(ctx context.Context, fn func(next *auction.State, now time.Time) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	next := e.state.Clone()

	closed := next.CloseIfIdle(now, e.cfg.IdleTimeout)

	if err := fn(next, now); err != nil {
		return err
	}

	if err := e.persister.Save(ctx, next); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}

	e.state = next
	if closed != nil {
		logRoundClosed(closed)
	}
	return nil
}

func logRoundClosed(entry *auction.HistoryEntry) {
	slog.Info("round closed",
		"round_id", entry.RoundID,
		"item", entry.Item,
		"winner", entry.WinnerName,
		"final_amount", entry.FinalAmount,
		"bids", len(entry.Bids),
	)
}
