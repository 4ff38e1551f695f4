package roster

import (
	"fmt"
	"strings"
)

// Rank is a member's community rank, ordered by seniority. The scraped
// roster encodes ranks as CSS class tokens ("initiate-star"), which parse
// case-insensitively with dashes ignored.
type Rank int

const (
	RankInitiate Rank = iota
	RankInitiateStar
	RankMember
	RankVeteran
	RankElite
	RankMentor
	RankGeneral
	RankCommander
	RankVice
	RankCaptain
	RankWarden
	RankAssociate
	RankAwayST
	RankAwayLT
)

var rankNames = []string{
	"Initiate",
	"InitiateStar",
	"Member",
	"Veteran",
	"Elite",
	"Mentor",
	"General",
	"Commander",
	"Vice",
	"Captain",
	"Warden",
	"Associate",
	"AwayST",
	"AwayLT",
}

func (r Rank) String() string {
	if r < 0 || int(r) >= len(rankNames) {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	return rankNames[r]
}

// ParseRank resolves a rank token. Comparison is case-insensitive and
// ignores dashes, so both "InitiateStar" and "initiate-star" resolve.
func ParseRank(s string) (Rank, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, "-", ""))
	for i, name := range rankNames {
		if strings.ToLower(name) == norm {
			return Rank(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

// Away reports whether the rank marks the member as inactive or external;
// such members are excluded from automatic role assignment.
func (r Rank) Away() bool {
	return r == RankAssociate || r == RankAwayST || r == RankAwayLT
}

// Position is an organizational role a member can hold in addition to a
// rank. Positions above None drive the role-occupant back-references on
// the unit that owns them.
type Position int

const (
	PositionNone Position = iota
	PositionLeader
	PositionChiefOfStaff
	PositionChiefAdministrator
	PositionChiefAide
	PositionHouseGeneral
	PositionFirstCommander
	PositionHouseAide
	PositionDivisionCommander
	PositionDivisionVice
	PositionTeamLeader
	PositionSecondInCommand
	PositionRosterLeader
)

var positionNames = []string{
	"None",
	"Leader",
	"ChiefOfStaff",
	"ChiefAdministrator",
	"ChiefAide",
	"HouseGeneral",
	"FirstCommander",
	"HouseAide",
	"DivisionCommander",
	"DivisionVice",
	"TeamLeader",
	"SecondInCommand",
	"RosterLeader",
}

// positionBadges maps the short leadership badge tokens used on the roster
// page to positions.
var positionBadges = map[string]Position{
	"HG":    PositionHouseGeneral,
	"FC":    PositionFirstCommander,
	"DC":    PositionDivisionCommander,
	"DV":    PositionDivisionVice,
	"TL":    PositionTeamLeader,
	"2IC":   PositionSecondInCommand,
	"twoIC": PositionSecondInCommand,
	"RL":    PositionRosterLeader,
}

func (p Position) String() string {
	if p < 0 || int(p) >= len(positionNames) {
		return fmt.Sprintf("Position(%d)", int(p))
	}
	return positionNames[p]
}

// ParsePosition resolves a position token: either a badge abbreviation
// ("HG", "2IC") or a full position name, case-insensitively. The empty
// string is PositionNone.
func ParsePosition(s string) (Position, error) {
	if s == "" {
		return PositionNone, nil
	}
	if p, ok := positionBadges[s]; ok {
		return p, nil
	}
	norm := strings.ToLower(s)
	for i, name := range positionNames {
		if strings.ToLower(name) == norm {
			return Position(i), nil
		}
	}
	return 0, fmt.Errorf("unknown position %q", s)
}
