// Package roster maintains the organizational unit tree scraped from the
// community site. The tree has exactly four levels below the root
// organization: House -> Division -> Team -> Roster, with members attached
// only at the roster level. Refreshes rebuild the whole tree; nothing is
// patched in place.
package roster

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies a unit's level in the tree.
type Kind string

const (
	KindOrganization Kind = "organization"
	KindHouse        Kind = "house"
	KindDivision     Kind = "division"
	KindTeam         Kind = "team"
	KindRoster       Kind = "roster"
)

// RootID is the identifier of the organization root unit.
const RootID = "MDR"

// UnassignedID is substituted for any absent unit label so that every
// member still lands on a full four-level chain.
const UnassignedID = "Unassigned"

// Member is one person on the roster. Identity, rank, position and the
// denormalized path labels come from the scrape; DiscordID and AvatarURL
// are locally owned and survive refreshes via ID-keyed migration.
type Member struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	Rank     Rank     `json:"rank"`
	Position Position `json:"position"`

	DiscordID string `json:"discord_id,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	House    string `json:"house,omitempty"`
	Division string `json:"division,omitempty"`
	Team     string `json:"team,omitempty"`
	Roster   string `json:"roster,omitempty"`
}

// ProfileURL is the member's profile page on the community site.
func (m *Member) ProfileURL(baseURL string) string {
	return fmt.Sprintf("%sprofile/%d-%s", baseURL, m.ID, url.PathEscape(m.Name))
}

// Unit is a node in the organizational tree. Children is populated for
// every kind except KindRoster, which instead carries Members. Occupants
// maps position names to the external ID of the member last seen holding
// that position; the relation is weak and resolved against the tree on
// demand so a rebuild can never dangle.
type Unit struct {
	Kind     Kind      `json:"kind"`
	ID       string    `json:"id"`
	Children []*Unit   `json:"children,omitempty"`
	Members  []*Member `json:"members,omitempty"`

	Occupants map[string]int `json:"occupants,omitempty"`
}

// NewTree returns an empty organization root.
func NewTree() *Unit {
	return &Unit{Kind: KindOrganization, ID: RootID}
}

// childKind returns the unit kind one level below u.
func (u *Unit) childKind() Kind {
	switch u.Kind {
	case KindOrganization:
		return KindHouse
	case KindHouse:
		return KindDivision
	case KindDivision:
		return KindTeam
	case KindTeam:
		return KindRoster
	default:
		return ""
	}
}

// child returns the direct child with the given ID, creating it if absent.
// Child IDs are unique among siblings; insertion order is preserved.
func (u *Unit) child(id string) *Unit {
	for _, c := range u.Children {
		if c.ID == id {
			return c
		}
	}
	c := &Unit{Kind: u.childKind(), ID: id}
	u.Children = append(u.Children, c)
	return c
}

// occupantPositions lists the positions each unit kind tracks as
// back-references.
var occupantPositions = map[Kind][]Position{
	KindHouse:    {PositionHouseGeneral, PositionFirstCommander, PositionHouseAide},
	KindDivision: {PositionDivisionCommander, PositionDivisionVice},
	KindTeam:     {PositionTeamLeader, PositionSecondInCommand},
	KindRoster:   {PositionRosterLeader},
}

// noteOccupant records m as the occupant of its position if this unit kind
// tracks it. Last write wins; the upstream roster does not prevent two
// members from claiming the same position.
func (u *Unit) noteOccupant(m *Member) {
	for _, p := range occupantPositions[u.Kind] {
		if m.Position == p {
			if u.Occupants == nil {
				u.Occupants = make(map[string]int)
			}
			u.Occupants[p.String()] = m.ID
		}
	}
}

// AddMember walks (creating as needed) the House -> Division -> Team ->
// Roster chain named by the member's path labels and appends the member to
// the resolved roster. Absent labels default to "Unassigned" at that level,
// and the member's own labels are rewritten to match so the denormalized
// path always reflects the actual placement.
func (u *Unit) AddMember(m *Member) {
	if u.Kind != KindOrganization {
		panic("roster: AddMember called on non-root unit")
	}

	if m.House == "" {
		m.House = UnassignedID
	}
	if m.Division == "" {
		m.Division = UnassignedID
	}
	if m.Team == "" {
		m.Team = UnassignedID
	}
	if m.Roster == "" {
		m.Roster = UnassignedID
	}

	house := u.child(m.House)
	division := house.child(m.Division)
	team := division.child(m.Team)
	ros := team.child(m.Roster)

	ros.Members = append(ros.Members, m)

	house.noteOccupant(m)
	division.noteOccupant(m)
	team.noteOccupant(m)
	ros.noteOccupant(m)
}

// AllMembers returns every member below this unit in tree order.
func (u *Unit) AllMembers() []*Member {
	if u.Kind == KindRoster {
		out := make([]*Member, len(u.Members))
		copy(out, u.Members)
		return out
	}
	var out []*Member
	for _, c := range u.Children {
		out = append(out, c.AllMembers()...)
	}
	return out
}

// FindMember returns the member with the given external ID, or nil.
func (u *Unit) FindMember(id int) *Member {
	if u.Kind == KindRoster {
		for _, m := range u.Members {
			if m.ID == id {
				return m
			}
		}
		return nil
	}
	for _, c := range u.Children {
		if m := c.FindMember(id); m != nil {
			return m
		}
	}
	return nil
}

// FindMemberByName returns the first member with the given display name,
// or nil. Names are compared case-insensitively; the roster page shows
// them with original casing but commands rarely do.
func (u *Unit) FindMemberByName(name string) *Member {
	for _, m := range u.AllMembers() {
		if strings.EqualFold(m.Name, name) {
			return m
		}
	}
	return nil
}

// Occupant resolves a tracked position back-reference to the member
// currently holding it, or nil if the position is vacant or the recorded
// member is no longer below this unit.
func (u *Unit) Occupant(p Position) *Member {
	id, ok := u.Occupants[p.String()]
	if !ok {
		return nil
	}
	return u.FindMember(id)
}
