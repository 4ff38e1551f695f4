// Package notify turns calendar sync changes into queued chat
// notifications: every change is evaluated against the calendar's
// triggers, and each match becomes one send-action on the destination
// guild's dispatch queue.
package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/amryu/dibot/internal/calendar"
	"github.com/amryu/dibot/internal/dispatch"
	"github.com/amryu/dibot/internal/roster"
)

// Messenger is the outbound chat surface the notifier needs.
type Messenger interface {
	SendMessage(channelID, content string, embed *discordgo.MessageEmbed) error
	RoleMention(guildID, roleID string) string
	UserMention(userID string) string
}

// Notifier renders and routes event notifications.
type Notifier struct {
	disp      *dispatch.Dispatcher
	messenger Messenger
	registry  *roster.Registry
	baseURL   string
	log       *zap.Logger
}

// New creates a notifier. The registry is consulted only for embellishing
// embeds with the host's avatar and profile link.
func New(disp *dispatch.Dispatcher, messenger Messenger, registry *roster.Registry, baseURL string, log *zap.Logger) *Notifier {
	return &Notifier{
		disp:      disp,
		messenger: messenger,
		registry:  registry,
		baseURL:   baseURL,
		log:       log,
	}
}

// HandleChanges evaluates every trigger of the calendar against every
// change and enqueues one send-action per match. Rendering happens now, at
// notification time; delivery happens later on a drain tick.
func (n *Notifier) HandleChanges(store *calendar.Store, changes []calendar.Change) {
	if len(changes) == 0 {
		return
	}

	triggers := store.Triggers()
	for _, change := range changes {
		for _, trigger := range triggers {
			if !trigger.Matches(change.Event) {
				continue
			}
			n.enqueue(trigger, change.Event, change.Kind)
		}
	}
}

// PostEvent queues a plain announcement of a stored event to a channel,
// with no mention prefix. Used for on-demand event display.
func (n *Notifier) PostEvent(guildID, channelID string, ev *calendar.Event) {
	n.enqueue(calendar.Trigger{GuildID: guildID, ChannelID: channelID}, ev, calendar.ChangeNew)
}

func (n *Notifier) enqueue(trigger calendar.Trigger, ev *calendar.Event, kind calendar.ChangeKind) {
	content := ""
	switch {
	case trigger.Everyone:
		content = "@everyone"
	case trigger.RoleID != "":
		content = n.messenger.RoleMention(trigger.GuildID, trigger.RoleID)
	}

	embed := n.buildEmbed(ev, kind)
	channelID := trigger.ChannelID

	n.disp.Enqueue(dispatch.Action{
		GuildID: trigger.GuildID,
		Summary: fmt.Sprintf("event %d %s -> #%s", ev.EventID, kind, channelID),
		Do: func() error {
			return n.messenger.SendMessage(channelID, content, embed)
		},
	})

	n.log.Info("notification queued",
		zap.Int("event_id", ev.EventID),
		zap.String("kind", kind.String()),
		zap.String("guild_id", trigger.GuildID),
		zap.String("channel_id", channelID),
	)
}
