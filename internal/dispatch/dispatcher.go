// Package dispatch queues outbound notifications per destination guild and
// drains them at a fixed cadence, one send per guild per tick. The pacing
// is a deliberate rate limit: a poll cycle that discovers many events at
// once must not burst them all into the chat connection.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultInterval is the drain cadence when none is configured.
const DefaultInterval = 10 * time.Second

// Action is one deferred send, queued at notification time and executed on
// a later drain tick. Do carries the actual platform call; the remaining
// fields exist for logging.
type Action struct {
	ID      string
	GuildID string
	Summary string
	Do      func() error
}

// Dispatcher owns one FIFO queue per destination guild. Enqueue may be
// called concurrently with the drain loop; each tick executes at most one
// action per guild, in enqueue order. Delivery is at-most-once: a failed
// action is logged and dropped, never requeued.
type Dispatcher struct {
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	queues map[string][]Action
	order  []string
}

// New creates a dispatcher draining every interval. A non-positive
// interval falls back to DefaultInterval.
func New(interval time.Duration, log *zap.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Dispatcher{
		interval: interval,
		log:      log,
		queues:   make(map[string][]Action),
	}
}

// Enqueue appends an action to its guild's queue. An empty ID gets a
// generated one for log correlation.
func (d *Dispatcher) Enqueue(a Action) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, known := d.queues[a.GuildID]; !known {
		d.order = append(d.order, a.GuildID)
	}
	d.queues[a.GuildID] = append(d.queues[a.GuildID], a)
}

// QueueLen reports the number of pending actions for a guild.
func (d *Dispatcher) QueueLen(guildID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues[guildID])
}

// DrainTick pops at most one action per known destination and executes
// them synchronously, in destination first-seen order. Empty queues are
// skipped. Execution happens outside the lock so producers are never
// blocked on a slow send.
func (d *Dispatcher) DrainTick() {
	d.mu.Lock()
	batch := make([]Action, 0, len(d.order))
	for _, guildID := range d.order {
		q := d.queues[guildID]
		if len(q) == 0 {
			continue
		}
		batch = append(batch, q[0])
		d.queues[guildID] = q[1:]
	}
	d.mu.Unlock()

	for _, a := range batch {
		if err := a.Do(); err != nil {
			d.log.Error("notification delivery failed",
				zap.Error(err),
				zap.String("action_id", a.ID),
				zap.String("guild_id", a.GuildID),
				zap.String("summary", a.Summary),
			)
			continue
		}
		d.log.Debug("notification delivered",
			zap.String("action_id", a.ID),
			zap.String("guild_id", a.GuildID),
		)
	}
}

// Run drains on the configured cadence until ctx is canceled. Pending
// actions are lost on shutdown; delivery is best-effort by design.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("dispatcher started", zap.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.DrainTick()
		}
	}
}
