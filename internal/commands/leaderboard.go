package commands

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"discord-invite-tracker/internal/commands/framework"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Leaderboard = &discordgo.ApplicationCommand{
	Name:        "leaderboard",
	Description: "Show the monthly invite points leaderboard",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "count",
			Description: "How many places to show (default 10)",
			Required:    false,
			MinValue:    floatPtr(1),
			MaxValue:    25,
		},
	},
}

// Helper for float pointers
func floatPtr(v float64) *float64 {
	return &v
}

func rankLabel(rank int) string {
	switch rank {
	case 1:
		return utils.EmojiFirst
	case 2:
		return utils.EmojiSecond
	case 3:
		return utils.EmojiThird
	default:
		return fmt.Sprintf("**%d.**", rank)
	}
}

func LeaderboardCmd(ctx framework.Context, svc *tracker.Service, prizes utils.PrizeTable, count int) {
	standings, err := svc.GetLeaderboard(context.Background(), ctx.GetGuildID(), count)
	if err != nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Could not read the leaderboard right now.", utils.EmojiCross))
		return
	}

	if len(standings) == 0 {
		ctx.ReplyEphemeral("Nobody has earned points yet this month. Use `/getinvite` to start!")
		return
	}

	var sb strings.Builder
	rows := make([]utils.LeaderboardRow, len(standings))
	for idx, standing := range standings {
		rank := idx + 1
		name := "Unknown User"
		if member, err := ctx.GetSession().GuildMember(ctx.GetGuildID(), standing.UserID); err == nil {
			name = member.User.Username
			if member.Nick != "" {
				name = member.Nick
			}
		}

		line := fmt.Sprintf("%s %s — **%d** points", rankLabel(rank), name, standing.Points)
		if prize := prizes.ForRank(rank); prize != "" {
			line += fmt.Sprintf(" · %s", prize)
		}
		sb.WriteString(line + "\n")

		rows[idx] = utils.LeaderboardRow{
			Rank:   rank,
			Name:   name,
			Points: standing.Points,
			Prize:  prizes.ForRank(rank),
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       utils.EmojiTrophy + " Monthly Invite Leaderboard",
		Description: sb.String(),
		Color:       utils.ColorGold,
		Timestamp:   time.Now().Format(time.RFC3339),
	}

	card, err := utils.RenderLeaderboardCard(time.Now().Format("January 2006"), rows)
	if err != nil {
		ctx.ReplyEmbed(embed)
		return
	}

	embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://leaderboard.png"}
	ctx.ReplyEmbedWithFile(embed, &discordgo.File{
		Name:        "leaderboard.png",
		ContentType: "image/png",
		Reader:      bytes.NewReader(card),
	})
}

func HandleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, svc *tracker.Service, prizes utils.PrizeTable) {
	count := 0
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}
	ctx := framework.NewSlashContext(s, i)
	LeaderboardCmd(ctx, svc, prizes, count)
}
