package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amryu/dibot/internal/roster"
)

const rosterPage = `<html><body>
<div class="house-container alpha">
  <a class="position topdisplay HG" href="#"></a>
  <a class="general" href="https://di.community/profile/10-Carol">Carol DI</a>
  <div class="div-container">
    <div class="div-header"><h3 class="division-title LoL">League of Legends</h3></div>
    <a class="position topdisplay DC" href="#"></a>
    <a class="commander" href="https://di.community/profile/20-Dana">Dana</a>
    <h4>Team 1(12)</h4>
    <div class="team-wrapper">
      <h5 class="roster-header">Roster A(6) - EU evenings</h5>
      <div class="roster-container">
        <ul>
          <li class="RL-li"><a class="veteran" href="https://di.community/profile/11-Bob">Bob</a></li>
          <li><a class="member" href="https://di.community/profile/12-Alice">Alice</a></li>
        </ul>
      </div>
    </div>
  </div>
</div>
<a class="nav-link" href="https://di.community/forums/">Forums</a>
<a class="member" href="https://di.community/settings/">Settings</a>
</body></html>`

func TestParseRosterMembers(t *testing.T) {
	members, err := ParseRoster(rosterPage)
	require.NoError(t, err)
	require.Len(t, members, 4)

	byID := make(map[int]roster.RawMember)
	for _, m := range members {
		byID[m.ID] = m
	}

	carol := byID[10]
	assert.Equal(t, "Carol", carol.Name)
	assert.Equal(t, "general", carol.Rank)
	assert.Equal(t, "HG", carol.Position)
	assert.Equal(t, "House Alpha", carol.House)
	assert.Empty(t, carol.Division)
	assert.Empty(t, carol.Team)
	assert.Empty(t, carol.Roster)

	dana := byID[20]
	assert.Equal(t, "DC", dana.Position)
	assert.Equal(t, "LoL", dana.Division)
	assert.Empty(t, dana.Team)

	bob := byID[11]
	assert.Equal(t, "veteran", bob.Rank)
	assert.Equal(t, "RL", bob.Position)
	assert.Equal(t, "House Alpha", bob.House)
	assert.Equal(t, "LoL", bob.Division)
	assert.Equal(t, "Team 1", bob.Team)
	assert.Equal(t, "Roster A", bob.Roster)

	alice := byID[12]
	assert.Equal(t, "member", alice.Rank)
	assert.Empty(t, alice.Position)
	assert.Equal(t, "Roster A", alice.Roster)
}

func TestParseRosterSkipsNonMemberAnchors(t *testing.T) {
	members, err := ParseRoster(rosterPage)
	require.NoError(t, err)

	// The nav link has no rank class and the settings link has no
	// profile href; neither may appear as a member.
	for _, m := range members {
		assert.NotEqual(t, "Forums", m.Name)
		assert.NotEqual(t, "Settings", m.Name)
	}
}

func TestParseRosterRejectsHouselessMember(t *testing.T) {
	page := `<html><body>
<a class="member" href="https://di.community/profile/99-Stray">Stray</a>
</body></html>`

	_, err := ParseRoster(page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "99")
}

func TestParseRosterEmptyPage(t *testing.T) {
	members, err := ParseRoster("<html><body></body></html>")
	require.NoError(t, err)
	assert.Empty(t, members)
}
