package commands

import (
	"context"
	"fmt"

	"discord-invite-tracker/internal/commands/framework"
	"discord-invite-tracker/internal/tracker"
	"discord-invite-tracker/internal/utils"

	"github.com/bwmarrin/discordgo"
)

var AdjustPoints = &discordgo.ApplicationCommand{
	Name:                     "adjustpoints",
	Description:              "Add or remove invite points for a user (admin)",
	DefaultMemberPermissions: ptrInt64(discordgo.PermissionManageServer),
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User whose points to adjust",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "Points to add (negative to remove)",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Why the adjustment is made",
			Required:    false,
		},
	},
}

var Reset = &discordgo.ApplicationCommand{
	Name:                     "reset",
	Description:              "Reset all invite points for this server (admin)",
	DefaultMemberPermissions: ptrInt64(discordgo.PermissionManageServer),
}

// canManageGuild is the shared gate for admin commands. Server owners pass
// via Administrator, everyone else needs Manage Server.
func canManageGuild(ctx framework.Context) bool {
	member := ctx.GetMember()
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&discordgo.PermissionManageServer != 0
}

func AdjustPointsCmd(ctx framework.Context, svc *tracker.Service, target *discordgo.User, amount int64, reason string) {
	if !canManageGuild(ctx) {
		ctx.ReplyEphemeral(fmt.Sprintf("%s You need Manage Server permission to use this command.", utils.EmojiCross))
		return
	}
	if target == nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s No user given.", utils.EmojiCross))
		return
	}
	if amount == 0 {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Amount must not be zero.", utils.EmojiCross))
		return
	}

	newTotal, err := svc.AdjustPoints(context.Background(), true,
		ctx.GetGuildID(), ctx.GetAuthor().ID, target.ID, amount, reason)
	if err != nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Adjustment failed.", utils.EmojiCross))
		return
	}

	verb := "added to"
	shown := amount
	if amount < 0 {
		verb = "removed from"
		shown = -amount
	}
	ctx.Reply(fmt.Sprintf("%s **%d** points %s <@%s>. New total: **%d**.",
		utils.EmojiTick, shown, verb, target.ID, newTotal))
}

func ResetCmd(ctx framework.Context, svc *tracker.Service) {
	if !canManageGuild(ctx) {
		ctx.ReplyEphemeral(fmt.Sprintf("%s You need Manage Server permission to use this command.", utils.EmojiCross))
		return
	}

	if err := svc.ResetAllPoints(context.Background(), true, ctx.GetGuildID(), ctx.GetAuthor().ID); err != nil {
		ctx.ReplyEphemeral(fmt.Sprintf("%s Reset failed.", utils.EmojiCross))
		return
	}

	ctx.Reply(utils.EmojiTick + " All invite points have been reset for this server.")
}

func HandleAdjustPoints(s *discordgo.Session, i *discordgo.InteractionCreate, svc *tracker.Service) {
	var target *discordgo.User
	var amount int64
	var reason string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "amount":
			amount = opt.IntValue()
		case "reason":
			reason = opt.StringValue()
		}
	}
	ctx := framework.NewSlashContext(s, i)
	AdjustPointsCmd(ctx, svc, target, amount, reason)
}

func HandleReset(s *discordgo.Session, i *discordgo.InteractionCreate, svc *tracker.Service) {
	ctx := framework.NewSlashContext(s, i)
	ResetCmd(ctx, svc)
}
