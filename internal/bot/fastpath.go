package bot

import (
	"context"
	"log"

	"discord-invite-tracker/internal/tracker"

	"github.com/bwmarrin/discordgo"
	"github.com/tidwall/gjson"
)

// RawEvent keeps the invite counters current straight off the gateway frame.
// Invite create/delete bursts are common (mass invite pruning, raid cleanup)
// and the counters must not lag behind, so the relevant fields are pulled out
// of the raw payload without a full decode.
func (b *Bot) RawEvent(s *discordgo.Session, e *discordgo.Event) {
	if len(e.RawData) == 0 {
		return
	}

	switch e.Type {
	case "INVITE_CREATE":
		guildID := gjson.GetBytes(e.RawData, "guild_id").String()
		code := gjson.GetBytes(e.RawData, "code").String()
		if guildID == "" || code == "" {
			return
		}

		uses := int(gjson.GetBytes(e.RawData, "uses").Int())
		b.Dispatcher.Dispatch(context.Background(), tracker.InviteCreated{
			GuildID: guildID,
			Code:    code,
			Uses:    uses,
		})

		// An invite created outside /getinvite still names its creator here;
		// recording it keeps attribution working for hand-made links.
		inviterID := gjson.GetBytes(e.RawData, "inviter.id").String()
		if inviterID != "" && (s.State.User == nil || inviterID != s.State.User.ID) {
			if err := b.Tracker.RecordInviteLink(context.Background(), guildID, code, inviterID); err != nil {
				log.Printf("Failed to record invite %s for guild %s: %v", code, guildID, err)
			}
		}

	case "INVITE_DELETE":
		guildID := gjson.GetBytes(e.RawData, "guild_id").String()
		code := gjson.GetBytes(e.RawData, "code").String()
		if guildID == "" || code == "" {
			return
		}
		b.Dispatcher.Dispatch(context.Background(), tracker.InviteDeleted{
			GuildID: guildID,
			Code:    code,
		})

	case "GUILD_ROLE_UPDATE", "GUILD_ROLE_DELETE":
		if guildID := gjson.GetBytes(e.RawData, "guild_id").String(); guildID != "" {
			b.Roles.Invalidate(guildID)
		}
	}
}
