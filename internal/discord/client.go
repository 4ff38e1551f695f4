// Package discord wraps the gateway session behind the small surface the
// rest of the bot needs: message delivery, role mentions and roster role
// application.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/amryu/dibot/internal/config"
	"github.com/amryu/dibot/internal/roster"
)

// guildAPI is the slice of the session the role sync needs; split out so
// the mapping decisions are testable without a live gateway.
type guildAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

// Client is a connected Discord session.
type Client struct {
	session *discordgo.Session
	guild   guildAPI
	log     *zap.Logger
}

// New creates a client from a bot token. The session is not connected
// until Open is called.
func New(token string, log *zap.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers

	return &Client{session: session, guild: session, log: log}, nil
}

// Session exposes the underlying gateway session for handler registration.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

// Open connects to the gateway.
func (c *Client) Open() error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

// SendMessage delivers one message to a channel. Content and embed may
// each be empty, but not both.
func (c *Client) SendMessage(channelID, content string, embed *discordgo.MessageEmbed) error {
	msg := &discordgo.MessageSend{Content: content}
	if embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if _, err := c.session.ChannelMessageSendComplex(channelID, msg); err != nil {
		return fmt.Errorf("discord: send to channel %s: %w", channelID, err)
	}
	return nil
}

// RoleMention renders the mention string for a role.
func (c *Client) RoleMention(_, roleID string) string {
	return fmt.Sprintf("<@&%s>", roleID)
}

// UserMention renders the mention string for a user.
func (c *Client) UserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// ApplyRoles grants each bound roster member the Discord role mapped to
// their roster. A member whose "Team,Roster" pair has no mapping gets the
// guild's default role instead; away and associate members are skipped
// entirely, as automatic assignment does not apply to them. Existing roles
// are never removed; rank and position roles are out of scope for the
// sync. Returns the number of role grants performed.
func (c *Client) ApplyRoles(rm config.RoleMap, members []*roster.Member) (int, error) {
	granted := 0
	for _, m := range members {
		if m.DiscordID == "" || m.Rank.Away() {
			continue
		}

		roleID := rm.RosterRoles[m.Team+","+m.Roster]
		if roleID == "" {
			roleID = rm.DefaultRole
		}
		if roleID == "" {
			continue
		}

		gm, err := c.guild.GuildMember(rm.GuildID, m.DiscordID)
		if err != nil {
			// Bound members who left the guild are expected; skip
			// them and keep going.
			c.log.Debug("guild member lookup failed",
				zap.String("discord_id", m.DiscordID),
				zap.Int("member_id", m.ID),
				zap.Error(err))
			continue
		}
		if hasRole(gm, roleID) {
			continue
		}

		if err := c.guild.GuildMemberRoleAdd(rm.GuildID, m.DiscordID, roleID); err != nil {
			return granted, fmt.Errorf("discord: grant role %s to %s: %w", roleID, m.DiscordID, err)
		}
		c.log.Info("roster role granted",
			zap.String("member", m.Name),
			zap.String("role_id", roleID))
		granted++
	}
	return granted, nil
}

func hasRole(gm *discordgo.Member, roleID string) bool {
	for _, r := range gm.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}
