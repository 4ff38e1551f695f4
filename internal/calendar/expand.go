package calendar

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ExpandWindow bounds recurrence expansion. Occurrences outside the window
// are dropped; without a bound an unbounded RRULE would expand forever.
type ExpandWindow struct {
	Start time.Time
	End   time.Time
}

// maxOccurrencesPerEvent caps expansion per event as a safety net against
// pathological rules.
const maxOccurrencesPerEvent = 500

// expandRecurrence expands a recurring feed event into one ParsedEvent per
// occurrence inside the window. The occurrence matching the base DTSTART
// keeps the original UID so the stored event retains its identity; every
// other occurrence gets a derived "<uid>#<start>" UID. The numeric event
// ID parses identically from both forms.
func expandRecurrence(base ParsedEvent, rawRRule string, w ExpandWindow) ([]ParsedEvent, error) {
	opt, err := rrule.StrToROption(rawRRule)
	if err != nil {
		return nil, fmt.Errorf("parse RRULE: %w", err)
	}
	opt.Dtstart = base.Start

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build RRULE: %w", err)
	}

	starts := rule.Between(w.Start, w.End, true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	var duration time.Duration
	if !base.End.IsZero() {
		duration = base.End.Sub(base.Start)
	}

	out := make([]ParsedEvent, 0, len(starts))
	for _, start := range starts {
		occ := base
		occ.Start = start
		if duration > 0 {
			occ.End = start.Add(duration)
		}
		if !start.Equal(base.Start) {
			occ.UID = fmt.Sprintf("%s#%s", base.UID, start.UTC().Format("20060102T150405Z"))
		}
		out = append(out, occ)
	}
	return out, nil
}
