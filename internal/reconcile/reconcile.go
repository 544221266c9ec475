// Package reconcile consumes time-ordered log events and maintains the
// derived session and player tables.
//
// The caller must present events sorted by timestamp; the reconciler does
// not re-sort. Session upserts are keyed on (world, instance, join time) so
// replaying history is a no-op, and player facts are stored independently of
// sessions so earlier-timestamped log lines discovered later never cascade
// into association rewrites.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/logline"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// SessionStore defines the store operations needed by the Reconciler.
type SessionStore interface {
	UpsertSession(ctx context.Context, e *store.Session) (bool, error)
	SetSessionWorldName(ctx context.Context, sessionID int64, name string) error
	InsertPlayerEvent(ctx context.Context, e *store.PlayerEvent) (bool, error)
}

// Clock provides time for deterministic testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// DefaultClock is the production clock.
var DefaultClock Clock = realClock{}

// Result summarizes one reconciliation pass.
type Result struct {
	SessionsCreated      int
	PlayerEventsInserted int
	Errors               int
}

// Reconciler applies parsed log events to the derived store.
type Reconciler struct {
	store  SessionStore
	logger *slog.Logger
	clock  Clock
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger for the Reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the clock for the Reconciler (for testing).
func WithClock(clock Clock) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// New creates a new Reconciler.
func New(s SessionStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  s,
		logger: slog.Default(),
		clock:  DefaultClock,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply processes events in order. A failure on one event is logged and
// counted, not fatal to the batch; only context cancellation aborts.
func (r *Reconciler) Apply(ctx context.Context, events []logline.Event) (Result, error) {
	var res Result

	// Room-name lines follow their world-join line; track the session the
	// name should attach to.
	var pendingSessionID int64

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch ev.Kind {
		case logline.KindWorldJoin:
			sess := &store.Session{
				WorldID:    ev.WorldID.String(),
				InstanceID: ev.InstanceID.String(),
				JoinTs:     ev.Timestamp,
				CreatedAt:  r.clock.Now(),
			}
			inserted, err := r.store.UpsertSession(ctx, sess)
			if err != nil {
				r.logger.Error("failed to upsert session",
					"world_id", sess.WorldID,
					"error", err,
				)
				res.Errors++
				pendingSessionID = 0
				continue
			}
			pendingSessionID = sess.ID
			if inserted {
				res.SessionsCreated++
			}

		case logline.KindRoomName:
			if pendingSessionID == 0 {
				// Room name with no preceding join in this batch: stale log
				// tail, nothing to attach to.
				continue
			}
			if err := r.store.SetSessionWorldName(ctx, pendingSessionID, ev.RoomName); err != nil {
				r.logger.Error("failed to set world name",
					"session_id", pendingSessionID,
					"error", err,
				)
				res.Errors++
			}

		case logline.KindPlayerJoin, logline.KindPlayerLeave:
			kind := store.KindPlayerJoin
			if ev.Kind == logline.KindPlayerLeave {
				kind = store.KindPlayerLeft
			}
			pe := &store.PlayerEvent{
				Ts:         ev.Timestamp,
				Kind:       kind,
				PlayerName: ev.PlayerName,
				DedupeKey:  sha256Hex(ev.Raw),
				IngestedAt: r.clock.Now(),
			}
			if ev.PlayerID != "" {
				pe.PlayerID = store.StringPtr(ev.PlayerID.String())
			}
			inserted, err := r.store.InsertPlayerEvent(ctx, pe)
			if err != nil {
				r.logger.Error("failed to insert player event",
					"kind", kind,
					"error", err,
				)
				res.Errors++
				continue
			}
			if inserted {
				res.PlayerEventsInserted++
			}
		}
	}

	return res, nil
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
