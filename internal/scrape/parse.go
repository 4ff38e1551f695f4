// Package scrape is the roster source adapter: it fetches the JS-rendered
// roster page through a headless browser and parses the markup into raw
// member records for reconciliation.
package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amryu/dibot/internal/roster"
)

var (
	// profilePattern matches member profile links and captures the
	// external member ID.
	profilePattern = regexp.MustCompile(`^https?://di\.community/profile/([0-9]{1,6})-([A-Za-z0-9_\-]+)$`)

	// unitHeaderPattern strips the trailing member count from unit
	// headers such as "Roster A(6) - EU".
	unitHeaderPattern = regexp.MustCompile(`^(.+)\([0-9]+\)`)
)

// ParseRoster extracts raw member records from the roster page markup.
//
// A member row is any anchor whose class attribute is a rank token and
// whose href is a profile link; every other anchor is ignored. Unit labels
// come from the enclosing house/division/team/roster containers; a
// leadership badge preceding the anchor (or an RL list item enclosing it)
// supplies the position hint. A member row that cannot be attributed to a
// house fails the whole parse: a partially attributed snapshot must never
// reach the reconciler.
func ParseRoster(html string) ([]roster.RawMember, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var members []roster.RawMember
	var parseErr error

	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		class := a.AttrOr("class", "")
		if _, err := roster.ParseRank(class); err != nil {
			return true
		}

		href := a.AttrOr("href", "")
		m := profilePattern.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return true
		}

		fields := strings.Fields(a.Text())
		if len(fields) == 0 {
			return true
		}

		raw := roster.RawMember{
			ID:       id,
			Name:     fields[0],
			Rank:     class,
			Position: parsePositionBadge(a),
			House:    parseHouse(a),
			Division: parseDivision(a),
			Team:     parseTeam(a),
			Roster:   parseRosterName(a),
		}

		if raw.House == "" {
			parseErr = fmt.Errorf("member %d (%s) could not be attributed to a house", raw.ID, raw.Name)
			return false
		}

		members = append(members, raw)
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return members, nil
}

// parsePositionBadge reads the leadership badge: an RL list item enclosing
// the anchor wins over a preceding position badge anchor.
func parsePositionBadge(a *goquery.Selection) string {
	if a.Closest("li.RL-li").Length() > 0 {
		return "RL"
	}

	badge := a.PrevAllFiltered("a.position").First()
	if badge.Length() == 0 {
		return ""
	}
	for _, class := range strings.Fields(badge.AttrOr("class", "")) {
		if class != "position" && class != "topdisplay" {
			return class
		}
	}
	return ""
}

func parseHouse(a *goquery.Selection) string {
	container := a.Closest("div.house-container")
	if container.Length() == 0 {
		return ""
	}
	for _, class := range strings.Fields(container.AttrOr("class", "")) {
		if class != "house-container" {
			return "House " + strings.ToUpper(class[:1]) + class[1:]
		}
	}
	return ""
}

// parseDivision reads the division ID from the extra class on the
// division title heading; the heading text is a human label, the class is
// the stable identifier.
func parseDivision(a *goquery.Selection) string {
	title := a.Closest("div.div-container").Find("div.div-header h3.division-title").First()
	for _, class := range strings.Fields(title.AttrOr("class", "")) {
		if class != "division-title" {
			return class
		}
	}
	return ""
}

func parseTeam(a *goquery.Selection) string {
	header := a.Closest("div.team-wrapper").PrevAllFiltered("h4").First()
	return headerLabel(header)
}

func parseRosterName(a *goquery.Selection) string {
	header := a.Closest("div.roster-container").PrevAllFiltered("h5.roster-header").First()
	return headerLabel(header)
}

func headerLabel(header *goquery.Selection) string {
	if header.Length() == 0 {
		return ""
	}
	m := unitHeaderPattern.FindStringSubmatch(strings.TrimSpace(header.Text()))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
