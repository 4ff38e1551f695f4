package notify

import (
	"github.com/bwmarrin/discordgo"

	"github.com/amryu/dibot/internal/calendar"
	"github.com/amryu/dibot/internal/roster"
)

const timeLayout = "02 January 2006 | 15:04"

// buildEmbed renders the notification payload for an event: the host as
// author (with avatar and profile link when the host is a known roster
// member), the time range, the details section and the event link.
func (n *Notifier) buildEmbed(ev *calendar.Event, kind calendar.ChangeKind) *discordgo.MessageEmbed {
	title := "New event!"
	if kind == calendar.ChangeUpdated {
		title = "Event updated!"
	}

	var host *roster.Member
	if len(ev.Hosts) > 0 && n.registry != nil {
		host = n.registry.FindMember(ev.Hosts[0])
	}

	author := &discordgo.MessageEmbedAuthor{Name: "Unknown"}
	if host != nil {
		author.Name = host.Name
		author.IconURL = host.AvatarURL
		author.URL = host.ProfileURL(n.baseURL)
	}

	description := n.resolveMentions(ev.Description)
	if description == "" {
		description = "-"
	}

	url := ev.URL(n.baseURL)

	return &discordgo.MessageEmbed{
		Author:      author,
		Title:       title,
		URL:         url,
		Description: ev.RawTitle,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Time",
				Value: ev.Start.UTC().Format(timeLayout) + " - " + ev.End.UTC().Format("15:04") + " GMT/UTC",
			},
			{
				Name:  "Description",
				Value: description,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: url},
	}
}

// resolveMentions swaps @name tokens in the description for real user
// mentions when the name belongs to a bound roster member.
func (n *Notifier) resolveMentions(s string) string {
	if n.registry == nil {
		return s
	}
	return calendar.ReplaceMentions(s, func(name string) string {
		m := n.registry.FindMember(name)
		if m == nil || m.DiscordID == "" {
			return ""
		}
		return n.messenger.UserMention(m.DiscordID)
	})
}
