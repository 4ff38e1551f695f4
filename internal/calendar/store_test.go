package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	s := NewStore("events")
	s.now = func() time.Time { return testNow }
	return s
}

func upcoming(uid, summary string) ParsedEvent {
	return ParsedEvent{
		UID:         uid,
		Summary:     summary,
		Description: "Host: @Amryu\nDetails: Be there.",
		Start:       testNow.Add(24 * time.Hour),
		End:         testNow.Add(26 * time.Hour),
	}
}

func TestSyncNewUpcomingEvent(t *testing.T) {
	s := newTestStore()

	changes := s.Sync([]ParsedEvent{upcoming(testUID, "[Raid] Molten Core")})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeNew, changes[0].Kind)
	assert.Equal(t, "Molten Core", changes[0].Event.Title)
	assert.Equal(t, 1, s.EventCount())
}

func TestSyncPastEventRecordedSilently(t *testing.T) {
	s := newTestStore()

	p := upcoming(testUID, "[Raid] Molten Core")
	p.Start = testNow.Add(-48 * time.Hour)
	p.End = testNow.Add(-46 * time.Hour)

	changes := s.Sync([]ParsedEvent{p})
	assert.Empty(t, changes)
	assert.Equal(t, 1, s.EventCount())
}

func TestSyncUnchangedEventEmitsNothing(t *testing.T) {
	s := newTestStore()
	p := upcoming(testUID, "[Raid] Molten Core")

	require.Len(t, s.Sync([]ParsedEvent{p}), 1)
	assert.Empty(t, s.Sync([]ParsedEvent{p}))
	assert.Equal(t, 1, s.EventCount())
}

func TestSyncDescriptionChangeEmitsOneUpdate(t *testing.T) {
	s := newTestStore()
	p := upcoming(testUID, "[Raid] Molten Core")
	require.Len(t, s.Sync([]ParsedEvent{p}), 1)

	p.Description = "Host: @Amryu\nDetails: Moved to the other server."
	changes := s.Sync([]ParsedEvent{p})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
	assert.Equal(t, "Moved to the other server.", changes[0].Event.Description)
	assert.Equal(t, 1, s.EventCount())
}

func TestSyncTimeChangeEmitsUpdate(t *testing.T) {
	s := newTestStore()
	p := upcoming(testUID, "[Raid] Molten Core")
	require.Len(t, s.Sync([]ParsedEvent{p}), 1)

	p.Start = p.Start.Add(time.Hour)
	p.End = p.End.Add(time.Hour)
	changes := s.Sync([]ParsedEvent{p})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
}

func TestSyncUpdateOfPastEventStillEmits(t *testing.T) {
	// Edits re-notify regardless of the event's end time; only the
	// first-sight notification is gated on the future.
	s := newTestStore()
	p := upcoming(testUID, "[Raid] Molten Core")
	p.Start = testNow.Add(-48 * time.Hour)
	p.End = testNow.Add(-46 * time.Hour)
	require.Empty(t, s.Sync([]ParsedEvent{p}))

	p.Summary = "[Raid] Molten Core (rescheduled)"
	changes := s.Sync([]ParsedEvent{p})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdated, changes[0].Kind)
}

func TestSyncProcessesInStartOrder(t *testing.T) {
	s := newTestStore()

	later := upcoming("900-1-00000000000000000000000000000abc@di.community", "Later")
	later.Start = testNow.Add(72 * time.Hour)
	later.End = testNow.Add(74 * time.Hour)
	earlier := upcoming("901-1-00000000000000000000000000000abc@di.community", "Earlier")

	changes := s.Sync([]ParsedEvent{later, earlier})
	require.Len(t, changes, 2)
	assert.Equal(t, "Earlier", changes[0].Event.Title)
	assert.Equal(t, "Later", changes[1].Event.Title)
}

func TestSyncLeavesInputUntouched(t *testing.T) {
	s := newTestStore()

	later := upcoming("900-1-00000000000000000000000000000abc@di.community", "Later")
	later.Start = testNow.Add(72 * time.Hour)
	later.End = testNow.Add(74 * time.Hour)
	earlier := upcoming("901-1-00000000000000000000000000000abc@di.community", "Earlier")

	parsed := []ParsedEvent{later, earlier}
	s.Sync(parsed)

	assert.Equal(t, "Later", parsed[0].Summary)
	assert.Equal(t, "Earlier", parsed[1].Summary)
}

func TestEventByID(t *testing.T) {
	s := newTestStore()
	s.Sync([]ParsedEvent{upcoming(testUID, "[Raid] Molten Core")})

	require.NotNil(t, s.EventByID(123))
	assert.Nil(t, s.EventByID(999))
}

func TestTriggerMatching(t *testing.T) {
	ev := &Event{TagPrimary: "raid", TagSecondary: "Mandatory", Hosts: []string{"Amryu"}}

	tests := []struct {
		name    string
		trigger Trigger
		want    bool
	}{
		{"all wildcards", Trigger{}, true},
		{"tag case-insensitive", Trigger{TagPrimary: "Raid"}, true},
		{"tag mismatch", Trigger{TagPrimary: "Social"}, false},
		{"secondary match", Trigger{TagSecondary: "mandatory"}, true},
		{"host membership", Trigger{Host: "amryu"}, true},
		{"host mismatch", Trigger{Host: "Bob"}, false},
		{"all filters", Trigger{TagPrimary: "RAID", TagSecondary: "Mandatory", Host: "Amryu"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.trigger.Matches(ev))
		})
	}
}

func TestTriggerManagement(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.AddTrigger(Trigger{GuildID: "g1", ChannelID: "c1", TagPrimary: "Raid"}))
	assert.ErrorIs(t, s.AddTrigger(Trigger{GuildID: "g1", ChannelID: "c1"}), ErrTriggerExists)
	require.NoError(t, s.AddTrigger(Trigger{GuildID: "g1", ChannelID: "c2"}))

	assert.True(t, s.HasTriggerForChannel("c1"))
	assert.False(t, s.HasTriggerForChannel("c9"))

	require.NoError(t, s.RemoveTrigger("g1", "c1"))
	assert.ErrorIs(t, s.RemoveTrigger("g1", "c1"), ErrTriggerNotFound)
	assert.Len(t, s.Triggers(), 1)
}

func TestStoreSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := newTestStore()
	s.Sync([]ParsedEvent{upcoming(testUID, "[Raid] Molten Core")})
	require.NoError(t, s.AddTrigger(Trigger{GuildID: "g1", ChannelID: "c1", TagPrimary: "Raid"}))
	require.NoError(t, SaveStore(dir, s))

	loaded, err := LoadStore(dir, "events")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.EventCount())
	require.Len(t, loaded.Triggers(), 1)
	assert.Equal(t, "Raid", loaded.Triggers()[0].TagPrimary)

	// Re-syncing the loaded store with the identical feed emits nothing.
	loaded.now = func() time.Time { return testNow }
	assert.Empty(t, loaded.Sync([]ParsedEvent{upcoming(testUID, "[Raid] Molten Core")}))
}

func TestLoadStoreMissingFile(t *testing.T) {
	s, err := LoadStore(t.TempDir(), "events")
	require.NoError(t, err)
	assert.Equal(t, 0, s.EventCount())
	assert.Equal(t, "events", s.Name())
}

func TestLoadSet(t *testing.T) {
	dir := t.TempDir()
	set, err := LoadSet(dir, []string{"events", "social"})
	require.NoError(t, err)

	require.NotNil(t, set.Get("events"))
	assert.Nil(t, set.Get("missing"))
	assert.Len(t, set.All(), 2)

	require.NoError(t, set.Save("events"))
	assert.Error(t, set.Save("missing"))
}
