package commands

import (
	"context"
	"fmt"
	"time"

	"discord-invite-tracker/internal/commands/framework"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Points = &discordgo.ApplicationCommand{
	Name:        "points",
	Description: "Check invite points",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to check (defaults to you)",
			Required:    false,
		},
	},
}

func PointsCmd(ctx framework.Context, svc *tracker.Service, target *discordgo.User) {
	if target == nil {
		target = ctx.GetAuthor()
	}

	points, err := svc.GetPoints(context.Background(), ctx.GetGuildID(), target.ID)
	if err != nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Could not read points right now.", utils.EmojiCross))
		return
	}

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("%s <@%s> has **%d** invite points this month.", utils.EmojiTrophy, target.ID, points),
		Color:       utils.ColorDark,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	ctx.ReplyEmbed(embed)
}

func HandlePoints(s *discordgo.Session, i *discordgo.InteractionCreate, svc *tracker.Service) {
	var target *discordgo.User
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}
	ctx := framework.NewSlashContext(s, i)
	PointsCmd(ctx, svc, target)
}
