package bot

import (
	"context"
	"log"

	"discord-invite-tracker/internal/commands"
	"discord-invite-tracker/internal/models"
	"discord-invite-tracker/internal/tracker"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) Ready(s *discordgo.Session, r *discordgo.Ready) {
	// Manually populate state user since state tracking is disabled
	if s.State.User == nil {
		s.State.User = r.User
	}

	log.Printf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
	log.Printf("Serving %d guilds", len(r.Guilds))

	// Seed the invite counters for every guild so the first join after a
	// (re)connect still diffs against real numbers.
	for _, guild := range r.Guilds {
		b.trackGuild(guild.ID)
		b.snapshotInvites(guild.ID)
	}
}

func (b *Bot) GuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	log.Printf("Guild joined/loaded: %s (%s)", g.Name, g.ID)

	b.trackGuild(g.ID)
	b.snapshotInvites(g.ID)

	// Guild-scoped registration so command updates land instantly
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, g.ID, commands.Commands)
	if err != nil {
		log.Printf("Failed to register commands for guild %s: %v", g.ID, err)
	}
}

func (b *Bot) GuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}
	b.forgetGuild(g.ID)
}

// snapshotInvites fetches the guild's live invite list and replaces the
// cached use counts wholesale.
func (b *Bot) snapshotInvites(guildID string) {
	invites, err := b.Session.GuildInvites(guildID)
	if err != nil {
		log.Printf("Failed to fetch invites for guild %s: %v", guildID, err)
		return
	}
	b.Dispatcher.Dispatch(context.Background(), tracker.InviteListSnapshot{
		GuildID: guildID,
		Invites: toInviteUses(invites),
	})
}

func toInviteUses(invites []*discordgo.Invite) []models.InviteUse {
	uses := make([]models.InviteUse, 0, len(invites))
	for _, inv := range invites {
		use := models.InviteUse{Code: inv.Code, Uses: inv.Uses}
		if inv.Inviter != nil {
			use.OwnerID = inv.Inviter.ID
		}
		uses = append(uses, use)
	}
	return uses
}

func (b *Bot) GuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}

	// The invite list must be read as close to the join as possible, before
	// another join shifts the counters again.
	invites, err := s.GuildInvites(m.GuildID)
	if err != nil {
		log.Printf("Failed to fetch invites on join in guild %s: %v", m.GuildID, err)
		return
	}

	createdAt, err := discordgo.SnowflakeTimestamp(m.User.ID)
	if err != nil {
		log.Printf("Bad user snowflake %s: %v", m.User.ID, err)
		return
	}

	evt := tracker.MemberJoined{
		GuildID:          m.GuildID,
		UserID:           m.User.ID,
		AccountCreatedAt: createdAt,
		Roles:            m.Roles,
		Invites:          toInviteUses(invites),
	}
	if err := b.Dispatcher.Dispatch(context.Background(), evt); err != nil {
		log.Printf("Member join handling failed for %s: %v", m.User.ID, err)
	}
}

func (b *Bot) GuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
	if m.User == nil || m.User.Bot {
		return
	}

	evt := tracker.MemberLeft{GuildID: m.GuildID, UserID: m.User.ID}
	if err := b.Dispatcher.Dispatch(context.Background(), evt); err != nil {
		log.Printf("Member leave handling failed for %s: %v", m.User.ID, err)
	}
}

func (b *Bot) GuildMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if m.User == nil || m.User.Bot {
		return
	}

	evt := tracker.MemberRoleSetChanged{
		GuildID:    m.GuildID,
		UserID:     m.User.ID,
		RolesAfter: m.Roles,
	}
	if m.BeforeUpdate != nil {
		evt.RolesBefore = m.BeforeUpdate.Roles
	}
	if err := b.Dispatcher.Dispatch(context.Background(), evt); err != nil {
		log.Printf("Role update handling failed for %s: %v", m.User.ID, err)
	}
}

func (b *Bot) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "getinvite":
		commands.HandleGetInvite(s, i, b.Tracker, b)
	case "points":
		commands.HandlePoints(s, i, b.Tracker)
	case "leaderboard":
		commands.HandleLeaderboard(s, i, b.Tracker, b.Prizes)
	case "adjustpoints":
		commands.HandleAdjustPoints(s, i, b.Tracker)
	case "reset":
		commands.HandleReset(s, i, b.Tracker)
	case "help":
		commands.HandleHelp(s, i)
	case "ping":
		commands.HandlePing(s, i, b.DB, b.Redis)
	}
}
