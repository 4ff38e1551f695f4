package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const feedBody = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//community//calendar//EN
BEGIN:VEVENT
UID:123-45-0123456789abcdef0123456789abcdef@di.community
DTSTART:20250610T180000Z
DTEND:20250610T200000Z
SUMMARY:[Raid] Molten Core
DESCRIPTION:Host: @Amryu\nDetails: Bring consumables.
END:VEVENT
BEGIN:VEVENT
UID:broken-no-start@di.community
SUMMARY:No start
END:VEVENT
END:VCALENDAR
`

const recurringFeedBody = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//community//calendar//EN
BEGIN:VEVENT
UID:200-45-0123456789abcdef0123456789abcdef@di.community
DTSTART:20250602T190000Z
DTEND:20250602T200000Z
RRULE:FREQ=WEEKLY;COUNT=10
SUMMARY:[Social] Game Night
DESCRIPTION:Details: Weekly games.
END:VEVENT
END:VCALENDAR
`

func testWindow() ExpandWindow {
	return ExpandWindow{
		Start: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseFeed(t *testing.T) {
	events, err := ParseFeed([]byte(strings.ReplaceAll(feedBody, "\n", "\r\n")), testWindow(), zap.NewNop())
	require.NoError(t, err)

	// The VEVENT without DTSTART is skipped, not fatal.
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, testUID, ev.UID)
	assert.Equal(t, "[Raid] Molten Core", ev.Summary)
	assert.Equal(t, time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC), ev.Start.UTC())
	assert.Equal(t, time.Date(2025, 6, 10, 20, 0, 0, 0, time.UTC), ev.End.UTC())
}

func TestParseFeedExpandsRecurrence(t *testing.T) {
	events, err := ParseFeed([]byte(strings.ReplaceAll(recurringFeedBody, "\n", "\r\n")), testWindow(), zap.NewNop())
	require.NoError(t, err)

	// Mondays at 19:00 falling inside the window: Jun 2, 9, 16 and 23.
	require.Len(t, events, 4)

	// The first occurrence keeps the feed UID, later ones derive from it.
	assert.Equal(t, "200-45-0123456789abcdef0123456789abcdef@di.community", events[0].UID)
	assert.Equal(t, "200-45-0123456789abcdef0123456789abcdef@di.community#20250609T190000Z", events[1].UID)

	for _, ev := range events {
		assert.Equal(t, 200, eventIDFromUID(ev.UID))
		assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
	}
}

func TestParseFeedEmptyBody(t *testing.T) {
	_, err := ParseFeed(nil, testWindow(), zap.NewNop())
	assert.Error(t, err)
}
