package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Channel posts the end-of-month standings into a guild announcement channel
// as an embed plus a rendered card image.
type Channel struct {
	session  *discordgo.Session
	channels map[string]string // guild id -> announcement channel id
	prizes   utils.PrizeTable
	log      *zap.Logger
}

func NewChannel(session *discordgo.Session, channels map[string]string, prizes utils.PrizeTable, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{session: session, channels: channels, prizes: prizes, log: log}
}

func (c *Channel) Notify(ctx context.Context, report tracker.Report) error {
	channelID, ok := c.channels[report.GuildID]
	if !ok {
		return fmt.Errorf("discord notify: no announcement channel for guild %s", report.GuildID)
	}

	description := "The month is over! Final standings below. All points have been reset."
	if len(report.Standings) == 0 {
		description = "The month is over! No points were earned this time. Fresh start for everyone."
	}

	embed := &discordgo.MessageEmbed{
		Title:       utils.EmojiTrophy + " Monthly Invite Leaderboard — Final",
		Description: description,
		Color:       utils.ColorGold,
		Timestamp:   report.GeneratedAt.Format(time.RFC3339),
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}

	if len(report.Standings) > 0 {
		rows := make([]utils.LeaderboardRow, len(report.Standings))
		for i, s := range report.Standings {
			rows[i] = utils.LeaderboardRow{
				Rank:   i + 1,
				Name:   c.displayName(report.GuildID, s.UserID),
				Points: s.Points,
				Prize:  c.prizes.ForRank(i + 1),
			}
		}
		card, err := utils.RenderLeaderboardCard(report.GeneratedAt.Format("January 2006"), rows)
		if err != nil {
			// Embed alone still carries the announcement.
			c.log.Warn("leaderboard card render failed", zap.Error(err))
		} else {
			msg.Files = []*discordgo.File{{
				Name:        "standings.png",
				ContentType: "image/png",
				Reader:      bytes.NewReader(card),
			}}
			embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://standings.png"}
		}
	}

	if _, err := c.session.ChannelMessageSendComplex(channelID, msg); err != nil {
		return fmt.Errorf("post standings: %w", err)
	}
	return nil
}

func (c *Channel) displayName(guildID, userID string) string {
	member, err := c.session.State.Member(guildID, userID)
	if err == nil && member != nil {
		if member.Nick != "" {
			return member.Nick
		}
		if member.User != nil {
			return member.User.Username
		}
	}
	user, err := c.session.User(userID)
	if err == nil {
		return user.Username
	}
	return userID
}
