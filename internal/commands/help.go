package commands

import (
	"time"

	"discord-invite-tracker/internal/commands/framework"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var Help = &discordgo.ApplicationCommand{
	Name:        "help",
	Description: "Show how the invite points competition works",
}

func HelpCmd(ctx framework.Context) {
	embed := &discordgo.MessageEmbed{
		Title: utils.EmojiTrophy + " Invite Points",
		Description: "Invite people with your personal link and earn points when they become active members. " +
			"Points reset at the end of every month and the top inviters win prizes.",
		Color: utils.ColorDark,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "How it works",
				Value: "• `/getinvite` gives you a personal invite link\n" +
					"• **+1 point** when your invitee gets the Members role\n" +
					"• **+2 points** when they get the Striker role\n" +
					"• Points are removed if they lose the role or leave\n" +
					"• Accounts younger than 30 days never earn points",
			},
			{
				Name: "Commands",
				Value: "`/getinvite` — your personal invite link\n" +
					"`/points [user]` — current points\n" +
					"`/leaderboard [count]` — monthly standings\n" +
					"`/ping` — bot health",
			},
			{
				Name:   "Admin",
				Value:  "`/adjustpoints` — manual point correction\n`/reset` — wipe all points",
				Inline: false,
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	ctx.ReplyEmbed(embed)
}

func HandleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := framework.NewSlashContext(s, i)
	HelpCmd(ctx)
}
