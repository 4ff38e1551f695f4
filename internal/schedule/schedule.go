// Package schedule drives the periodic work: polling calendar feeds,
// refreshing the roster and draining the notification queues. Task errors
// are logged at the task boundary and never stop the schedule.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/amryu/dibot/internal/calendar"
	"github.com/amryu/dibot/internal/notify"
	"github.com/amryu/dibot/internal/roster"
)

// Options configures the scheduler's cadences.
type Options struct {
	// RosterCron schedules the roster refresh, e.g. "30 4 * * *".
	RosterCron string

	// CalendarCron schedules the steady-state calendar poll.
	CalendarCron string

	// FastStart is the delay before the very first calendar poll after
	// startup; the steady cron takes over afterwards.
	FastStart time.Duration
}

// Scheduler owns the cron runner and the per-task pipelines.
type Scheduler struct {
	cron     *cron.Cron
	registry *roster.Registry
	feed     calendar.FeedSource
	set      *calendar.Set
	notifier *notify.Notifier
	opts     Options
	log      *zap.Logger
}

// New assembles a scheduler; nothing runs until Start.
func New(registry *roster.Registry, feed calendar.FeedSource, set *calendar.Set, notifier *notify.Notifier, opts Options, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		registry: registry,
		feed:     feed,
		set:      set,
		notifier: notifier,
		opts:     opts,
		log:      log,
	}
}

// Start registers the cron entries, kicks off the fast first calendar
// poll and starts the runner. ctx bounds every task run; cancellation
// also suppresses the fast-start poll if it has not fired yet.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.opts.CalendarCron, func() { s.PollCalendars(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.opts.RosterCron, func() { s.RefreshRoster(ctx) }); err != nil {
		return err
	}

	if s.opts.FastStart > 0 {
		go func() {
			select {
			case <-time.After(s.opts.FastStart):
				s.PollCalendars(ctx)
			case <-ctx.Done():
			}
		}()
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("calendar_cron", s.opts.CalendarCron),
		zap.String("roster_cron", s.opts.RosterCron),
		zap.Duration("fast_start", s.opts.FastStart))
	return nil
}

// Stop stops the cron runner and waits for in-flight task runs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// PollCalendars runs one full poll cycle over every calendar: fetch the
// feed, sync it into the store, hand the changes to the notifier and
// persist the store. A failing calendar is skipped; the rest still run.
func (s *Scheduler) PollCalendars(ctx context.Context) {
	for _, store := range s.set.All() {
		name := store.Name()

		parsed, err := s.feed.FetchFeed(ctx, name)
		if err != nil {
			s.log.Warn("calendar fetch failed",
				zap.String("calendar", name),
				zap.Error(err))
			continue
		}

		changes := store.Sync(parsed)
		if len(changes) > 0 {
			s.log.Info("calendar changes",
				zap.String("calendar", name),
				zap.Int("count", len(changes)))
			s.notifier.HandleChanges(store, changes)
		}

		if err := s.set.Save(name); err != nil {
			s.log.Error("calendar snapshot save failed",
				zap.String("calendar", name),
				zap.Error(err))
		}
	}
}

// RefreshRoster runs one roster refresh. Failures keep the previous tree.
func (s *Scheduler) RefreshRoster(ctx context.Context) {
	count, err := s.registry.Refresh(ctx)
	if err != nil {
		s.log.Warn("roster refresh failed", zap.Error(err))
		return
	}
	s.log.Info("roster refreshed", zap.Int("members", count))
}
