package calendar

import (
	"bytes"
	"errors"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"
)

// ParsedEvent is one concrete feed event after parsing and recurrence
// expansion. End is the zero time when the feed omits DTEND.
type ParsedEvent struct {
	UID         string
	Summary     string
	Description string

	Start time.Time
	End   time.Time
}

// ParseFeed parses an ICS payload into concrete events. Recurring VEVENTs
// are expanded within the window; a malformed VEVENT is logged and skipped
// so one broken entry cannot poison the whole feed.
func ParseFeed(body []byte, window ExpandWindow, log *zap.Logger) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []ParsedEvent
	for _, ve := range cal.Events() {
		parsed, rawRRule, perr := parseVEvent(ve)
		if perr != nil {
			log.Warn("skipping malformed feed event", zap.Error(perr))
			continue
		}

		if rawRRule == "" {
			events = append(events, parsed)
			continue
		}

		occurrences, eerr := expandRecurrence(parsed, rawRRule, window)
		if eerr != nil {
			log.Warn("recurrence expansion failed, keeping base event",
				zap.Error(eerr), zap.String("uid", parsed.UID))
			events = append(events, parsed)
			continue
		}
		events = append(events, occurrences...)
	}

	log.Debug("feed parsed", zap.Int("events", len(events)))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, string, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, "", errors.New("missing UID")
	}
	out.UID = uidProp.Value

	start, err := ve.GetStartAt()
	if err != nil {
		return out, "", errors.New("missing or invalid DTSTART")
	}
	out.Start = start

	// DTEND is optional; absence means an open-ended (instant) event.
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	}

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	var rawRRule string
	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		rawRRule = p.Value
	}

	return out, rawRRule, nil
}
