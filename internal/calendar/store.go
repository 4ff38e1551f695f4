package calendar

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ChangeKind classifies what Sync detected for an event.
type ChangeKind int

const (
	// ChangeNew is an event seen for the first time while still upcoming.
	ChangeNew ChangeKind = iota
	// ChangeUpdated is a stored event whose start, end, title or
	// description moved in the feed.
	ChangeUpdated
)

func (k ChangeKind) String() string {
	if k == ChangeUpdated {
		return "updated"
	}
	return "new"
}

// Change pairs an event with what happened to it during a sync.
type Change struct {
	Event *Event
	Kind  ChangeKind
}

// ErrTriggerExists is returned when a (guild, channel) pair already has a
// trigger on this calendar.
var ErrTriggerExists = errors.New("channel already has a trigger for this calendar")

// ErrTriggerNotFound is returned when removing a trigger the calendar does
// not have.
var ErrTriggerNotFound = errors.New("channel has no trigger for this calendar")

// Store is the persisted state of one calendar feed: every event ever seen
// and the triggers registered against it. One mutex guards the store; the
// feed fetch itself happens outside it.
type Store struct {
	mu sync.Mutex

	name     string
	events   []*Event
	triggers []*Trigger

	// now is replaceable for tests.
	now func() time.Time
}

// NewStore creates an empty store for the named calendar.
func NewStore(name string) *Store {
	return &Store{name: name, now: time.Now}
}

// Name returns the calendar name.
func (s *Store) Name() string { return s.name }

// Sync diffs a parsed feed against the stored events, oldest start first.
//
//   - A known UID whose start, end, raw title or normalized description
//     changed is overwritten in place and reported as ChangeUpdated.
//   - An unknown UID is stored; it is reported as ChangeNew only when its
//     end is still in the future, so backfilling an old feed stays silent.
//   - Identical events report nothing. Events are never removed; feed
//     withdrawal is not detected.
func (s *Store) Sync(parsed []ParsedEvent) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Sort a copy; the caller's slice stays as delivered.
	parsed = append([]ParsedEvent(nil), parsed...)
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Start.Before(parsed[j].Start)
	})

	now := s.now().UTC()

	var changes []Change
	for _, p := range parsed {
		if ev := s.eventByUID(p.UID); ev != nil {
			if ev.Start.Equal(p.Start.UTC()) &&
				ev.End.Equal(p.End.UTC()) &&
				ev.RawTitle == p.Summary &&
				ev.Description == parseDetails(p.Description) {
				continue
			}

			ev.apply(p, now)
			changes = append(changes, Change{Event: ev, Kind: ChangeUpdated})
			continue
		}

		ev := &Event{}
		ev.apply(p, now)
		s.events = append(s.events, ev)

		if ev.End.After(now) {
			changes = append(changes, Change{Event: ev, Kind: ChangeNew})
		}
	}

	return changes
}

func (s *Store) eventByUID(uid string) *Event {
	for _, ev := range s.events {
		if ev.UID == uid {
			return ev
		}
	}
	return nil
}

// EventByID returns the stored event with the given numeric ID, or nil.
func (s *Store) EventByID(id int) *Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events {
		if ev.EventID == id {
			return ev
		}
	}
	return nil
}

// EventCount reports the number of stored events.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// AddTrigger registers a trigger, rejecting a second trigger for the same
// (guild, channel) pair.
func (s *Store) AddTrigger(t Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.triggers {
		if existing.GuildID == t.GuildID && existing.ChannelID == t.ChannelID {
			return ErrTriggerExists
		}
	}

	s.triggers = append(s.triggers, &t)
	return nil
}

// RemoveTrigger deletes the trigger registered for the (guild, channel)
// pair.
func (s *Store) RemoveTrigger(guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.triggers {
		if t.GuildID == guildID && t.ChannelID == channelID {
			s.triggers = append(s.triggers[:i], s.triggers[i+1:]...)
			return nil
		}
	}
	return ErrTriggerNotFound
}

// HasTriggerForChannel reports whether any trigger targets the channel.
func (s *Store) HasTriggerForChannel(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.triggers {
		if t.ChannelID == channelID {
			return true
		}
	}
	return false
}

// Triggers returns a copy of the registered triggers.
func (s *Store) Triggers() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Trigger, len(s.triggers))
	for i, t := range s.triggers {
		out[i] = *t
	}
	return out
}
