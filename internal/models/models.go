package models

import "time"

// InviteLink is a personal invite minted through the bot. One row per
// (guild, code); replaced wholesale if the same code is registered again.
type InviteLink struct {
	GuildID   string `json:"guild_id"`
	Code      string `json:"code"`
	CreatorID string `json:"creator_id"`
	CreatedAt int64  `json:"created_at"`
}

// Attribution maps an invitee to the inviter credited for their join.
// At most one row exists per (guild, invitee) at a time.
//
// ValidAccount is computed once from the account age at join time and never
// recomputed. MembersAwarded/StrikerAwarded are the idempotency flags that
// gate every award and revoke.
type Attribution struct {
	GuildID        string `json:"guild_id"`
	InviteeID      string `json:"invitee_id"`
	InviterID      string `json:"inviter_id"`
	UsedCode       string `json:"used_code"`
	ValidAccount   bool   `json:"valid_account"`
	MembersAwarded bool   `json:"members_awarded"`
	StrikerAwarded bool   `json:"striker_awarded"`
}

// AwardKind names one of the role-based point grants.
type AwardKind string

const (
	AwardMembers AwardKind = "members"
	AwardStriker AwardKind = "striker"
)

// Standing is one leaderboard row.
type Standing struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// InviteUse is one entry of a guild invite snapshot as reported by the
// gateway. OwnerID is the platform-reported inviter, which may be empty
// (vanity or widget invites).
type InviteUse struct {
	Code    string `json:"code"`
	Uses    int    `json:"uses"`
	OwnerID string `json:"owner_id"`
}

// AuditEntry is one append-only row recording admin overrides and resets.
type AuditEntry struct {
	ID        int64  `json:"id"`
	GuildID   string `json:"guild_id"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	Payload   string `json:"payload"`
	CreatedAt int64  `json:"created_at"`
}

// Helper to get current time in milliseconds
func Now() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
