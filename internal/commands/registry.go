package commands

import (
	"github.com/bwmarrin/discordgo"
)

func ptrInt64(v int64) *int64 {
	return &v
}

var Commands = []*discordgo.ApplicationCommand{
	GetInvite,
	Points,
	Leaderboard,
	AdjustPoints,
	Reset,
	Help,
	Ping,
}
