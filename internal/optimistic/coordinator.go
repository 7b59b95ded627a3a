package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shoplist/shoplist-go/internal/platform/logutil"
)

var (
	// ErrInFlight is returned when a mutation targets an entity that already
	// has an unresolved mutation instance. No optimistic edit is applied in
	// that case; the caller should keep the triggering control disabled.
	ErrInFlight = errors.New("mutation already in flight for entity")

	// ErrTimeout classifies rollbacks forced by the coordinator deadline.
	ErrTimeout = errors.New("authoritative call timed out")

	// ErrIncompleteMutation is returned for a Mutation missing required parts.
	ErrIncompleteMutation = errors.New("incomplete mutation")
)

// DefaultTimeout bounds the authoritative round-trip. A call that has not
// resolved by then is rolled back with a timeout-classified notice rather
// than leaving its entity in the pending state forever.
const DefaultTimeout = 15 * time.Second

// State identifies a mutation instance's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateApplied
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateApplied:
		return "applied"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notice is the user-facing failure raised exactly once per rolled-back
// mutation. Timeout marks notices caused by the coordinator deadline.
type Notice struct {
	Op       string
	EntityID string
	Message  string
	Timeout  bool
}

// NoticeFunc receives rollback notices. The coordinator calls it
// synchronously on the mutation's goroutine.
type NoticeFunc func(Notice)

// Mutation describes one user-triggered optimistic cycle end to end.
type Mutation struct {
	// Op names the user operation (create-list, toggle-item, ...).
	Op string

	// EntityID is the id whose lifecycle this instance owns. The reentrancy
	// latch is keyed by it: concurrent mutations on distinct ids never
	// interact, overlapping mutations on the same id are rejected.
	EntityID string

	// Apply performs the optimistic transform. It runs synchronously, before
	// the authoritative call is issued, so the tentative state is visible to
	// the rendering layer immediately.
	Apply func()

	// Call invokes the authoritative operation. A nil return commits the
	// overlay; any error (structured failure, transport failure, timeout)
	// rolls it back.
	Call func(ctx context.Context) error

	// Commit finalizes the overlay on success, typically a Replace swapping
	// the tentative entity for the authoritative record. Nil when the
	// optimistic value is already confirmed correct (toggles, renames,
	// deletes).
	Commit func()

	// Rollback reverts the optimistic transform exactly: Delete for a prior
	// Add, Restore with the captured pre-deletion entity for a prior Delete,
	// or a compensating Update. Required.
	Rollback func()
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout overrides the authoritative-call deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// WithNotice registers the rollback notice sink.
func WithNotice(fn NoticeFunc) Option {
	return func(c *Coordinator) { c.notify = fn }
}

// WithLogger sets the coordinator logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logutil.NoopIfNil(l) }
}

// Coordinator sequences user-triggered mutations:
//
//	IDLE -> OPTIMISTIC_APPLIED -> {COMMITTED | ROLLED_BACK}
//
// Multiple mutations against the same collection may be in flight at once;
// each instance touches only the entity id it owns, so cross-instance
// interleavings (including out-of-order resolution) are safe by construction.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]struct{}

	timeout time.Duration
	notify  NoticeFunc
	logger  *slog.Logger
}

// New creates a Coordinator with the default timeout.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		inflight: make(map[string]struct{}),
		timeout:  DefaultTimeout,
		logger:   logutil.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InFlight reports whether an unresolved mutation owns the given entity id.
// The rendering layer uses it to disable the triggering control.
func (c *Coordinator) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[id]
	return ok
}

// Run drives one mutation to COMMITTED or ROLLED_BACK and reports the final
// state. The optimistic transform is applied synchronously before the
// authoritative call is issued; Run then blocks until the call resolves or
// the deadline expires. Callers wanting a non-blocking trigger run it on
// their own goroutine and read the store for the tentative state.
func (c *Coordinator) Run(ctx context.Context, m Mutation) (State, error) {
	if m.EntityID == "" || m.Apply == nil || m.Call == nil || m.Rollback == nil {
		return StateIdle, fmt.Errorf("%w: op %q", ErrIncompleteMutation, m.Op)
	}

	if !c.acquire(m.EntityID) {
		return StateIdle, fmt.Errorf("%w: %s", ErrInFlight, m.EntityID)
	}
	defer c.release(m.EntityID)

	// IDLE -> OPTIMISTIC_APPLIED. Must complete before the call goes out.
	m.Apply()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := m.Call(callCtx)
	if err == nil {
		if m.Commit != nil {
			m.Commit()
		}
		c.logger.Debug("mutation committed", "op", m.Op, "entity_id", m.EntityID)
		return StateCommitted, nil
	}

	m.Rollback()

	timedOut := errors.Is(err, context.DeadlineExceeded)
	if timedOut {
		err = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	c.logger.Debug("mutation rolled back",
		"op", m.Op, "entity_id", m.EntityID, "timeout", timedOut, "error", err)

	if c.notify != nil {
		c.notify(Notice{
			Op:       m.Op,
			EntityID: m.EntityID,
			Message:  err.Error(),
			Timeout:  timedOut,
		})
	}
	return StateRolledBack, err
}

func (c *Coordinator) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, id)
}
