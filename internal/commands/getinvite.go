package commands

import (
	"context"
	"fmt"

	"discord-invite-tracker/internal/commands/framework"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var GetInvite = &discordgo.ApplicationCommand{
	Name:        "getinvite",
	Description: "Get your personal invite link for the points competition",
}

func GetInviteCmd(ctx framework.Context, svc *tracker.Service, minter tracker.InviteMinter) {
	code, err := svc.CreatePersonalInvite(context.Background(), minter,
		ctx.GetGuildID(), ctx.GetChannelID(), ctx.GetAuthor().ID)
	if err != nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Could not create an invite here. Try a channel where I can create invites.", utils.EmojiCross))
		return
	}

	ctx.ReplyEphemeral(fmt.Sprintf("%s Your personal invite link: https://discord.gg/%s\nEveryone who joins through it counts toward your points.", utils.EmojiInvite, code))
}

func HandleGetInvite(s *discordgo.Session, i *discordgo.InteractionCreate, svc *tracker.Service, minter tracker.InviteMinter) {
	ctx := framework.NewSlashContext(s, i)
	GetInviteCmd(ctx, svc, minter)
}
