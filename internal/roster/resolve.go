package roster

import (
	"fmt"
	"strings"
)

// Wildcard is the explicit marker callers may pass to skip a level during
// resolution; the empty string behaves the same.
const Wildcard = "*"

// NotFoundError reports which level of a path lookup failed to match.
type NotFoundError struct {
	Level Kind
	Query string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Level, e.Query)
}

// Resolve walks the tree along the given level queries and returns the
// deepest unit reached. A wildcard (or empty) query stops resolution at
// the current level, so Resolve("", ...) on the root returns the root.
//
// Matching is suffix match on the unit ID rather than exact equality.
// Upstream labels carry inconsistent chapter prefixes ("House Alpha" vs
// "EU House Alpha"), so loose matching is deliberate; callers relying on
// exact names should pass the full label.
func (u *Unit) Resolve(house, division, team, roster string) (*Unit, error) {
	unit := u

	for _, step := range []struct {
		level Kind
		query string
	}{
		{KindHouse, house},
		{KindDivision, division},
		{KindTeam, team},
		{KindRoster, roster},
	} {
		if step.query == "" || step.query == Wildcard {
			return unit, nil
		}

		next := unit.matchChild(step.query)
		if next == nil {
			return nil, &NotFoundError{Level: step.level, Query: step.query}
		}
		unit = next
	}

	return unit, nil
}

func (u *Unit) matchChild(query string) *Unit {
	for _, c := range u.Children {
		if strings.HasSuffix(c.ID, query) {
			return c
		}
	}
	return nil
}
