package calendar

import "strings"

// Trigger routes matching events of one calendar to a guild channel. Empty
// filter fields are wildcards. At most one trigger per (guild, channel)
// pair is expected; AddTrigger enforces that, the type itself does not.
type Trigger struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`

	TagPrimary   string `json:"tag_primary,omitempty"`
	TagSecondary string `json:"tag_secondary,omitempty"`
	Host         string `json:"host,omitempty"`

	// Everyone prefixes the notification with @everyone; RoleID mentions
	// a specific role instead. Everyone wins if both are set.
	Everyone bool   `json:"everyone,omitempty"`
	RoleID   string `json:"role_id,omitempty"`
}

// Matches reports whether the event passes every non-wildcard filter.
// Tag comparison is case-insensitive equality; the host filter is
// case-insensitive membership in the event's host list.
func (t *Trigger) Matches(ev *Event) bool {
	if t.TagPrimary != "" && !strings.EqualFold(t.TagPrimary, ev.TagPrimary) {
		return false
	}
	if t.TagSecondary != "" && !strings.EqualFold(t.TagSecondary, ev.TagSecondary) {
		return false
	}
	if t.Host != "" && !containsFold(ev.Hosts, t.Host) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
