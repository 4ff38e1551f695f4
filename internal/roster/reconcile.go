package roster

import (
	"context"
	"fmt"
)

// RawMember is one scraped roster record before resolution. Rank and
// Position are raw page tokens; the unit labels may be empty when the page
// lists the member outside a full chain (house or division leadership).
type RawMember struct {
	ID   int
	Name string

	Rank     string
	Position string

	House    string
	Division string
	Team     string
	Roster   string
}

// Source produces a raw roster snapshot from the authoritative site.
type Source interface {
	FetchMembers(ctx context.Context) ([]RawMember, error)
}

// ReconcileError marks a snapshot that could not be fully resolved into a
// tree. The snapshot is rejected as a whole; the previous tree stays
// current.
type ReconcileError struct {
	MemberID int
	Name     string
	Err      error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("reconcile member %d (%s): %v", e.MemberID, e.Name, e.Err)
}

func (e *ReconcileError) Unwrap() error { return e.Err }

// Reconcile builds a fresh tree from a raw snapshot. For every record the
// rank and position tokens are resolved (an unresolvable token aborts the
// whole snapshot), the member is placed on its House/Division/Team/Roster
// chain, and the locally owned chat binding and avatar URL are migrated
// from prev by external ID. prev is never mutated; callers swap in the
// returned tree only on success.
func Reconcile(prev *Unit, raw []RawMember) (*Unit, error) {
	next := NewTree()

	for _, r := range raw {
		rank, err := ParseRank(r.Rank)
		if err != nil {
			return nil, &ReconcileError{MemberID: r.ID, Name: r.Name, Err: err}
		}

		pos, err := ParsePosition(r.Position)
		if err != nil {
			return nil, &ReconcileError{MemberID: r.ID, Name: r.Name, Err: err}
		}

		m := &Member{
			ID:       r.ID,
			Name:     r.Name,
			Rank:     rank,
			Position: pos,
			House:    r.House,
			Division: r.Division,
			Team:     r.Team,
			Roster:   r.Roster,
		}

		if prev != nil {
			if old := prev.FindMember(r.ID); old != nil {
				m.DiscordID = old.DiscordID
				m.AvatarURL = old.AvatarURL
			}
		}

		next.AddMember(m)
	}

	return next, nil
}
