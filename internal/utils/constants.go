package utils

const (
	// Emojis
	EmojiTick   = "<:tcet_tick:1437995479567962184>"
	EmojiCross  = "<:tcet_cross:1437995480754946178>"
	EmojiInvite = "✉️"
	EmojiTrophy = "🏆"
	EmojiFirst  = "🥇"
	EmojiSecond = "🥈"
	EmojiThird  = "🥉"

	// Colors
	ColorDark  = 0x2f3136
	ColorGreen = 0x00FF00
	ColorRed   = 0xFF0000
	ColorGold  = 0xFFD700
)
