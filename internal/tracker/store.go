package tracker

import (
	"context"
	"errors"

	"discord-invite-tracker/internal/models"
)

// Store is the durable backend for both ledgers: invite links plus
// attribution records, and inviter point totals. The Postgres implementation
// lives in internal/database; tests use an in-memory fake.
//
// GrantAward and RevokeAward are the only way role transitions reach the
// point ledger. Both check the award flag and flip it in the same
// transaction that applies the point delta, so a replayed or racing event
// observes the flag already flipped and applies nothing.
type Store interface {
	SaveInviteLink(ctx context.Context, link models.InviteLink) error
	// InviteCreator reports the bot-recorded creator of a code, ok=false
	// when the code was never registered.
	InviteCreator(ctx context.Context, guildID, code string) (string, bool, error)

	PutAttribution(ctx context.Context, rec models.Attribution) error
	// Attribution returns nil (and no error) for an unattributed invitee.
	Attribution(ctx context.Context, guildID, inviteeID string) (*models.Attribution, error)

	// GrantAward flips the kind's flag false->true and credits delta to the
	// attributed inviter atomically. applied=false means the guard blocked
	// the transition: flag already set, invalid account, or no attribution.
	GrantAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (applied bool, inviterID string, newTotal int64, err error)
	// RevokeAward flips true->false and debits delta atomically.
	RevokeAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (applied bool, inviterID string, newTotal int64, err error)
	// RemoveInvitee revokes all outstanding awards and deletes the
	// attribution row in one transaction. Returns the total points revoked.
	RemoveInvitee(ctx context.Context, guildID, inviteeID string, membersWeight, strikerWeight int64) (revoked int64, inviterID string, newTotal int64, err error)

	// AddPoints bypasses award-flag gating; admin override path only.
	AddPoints(ctx context.Context, guildID, userID string, delta int64) (int64, error)
	Points(ctx context.Context, guildID, userID string) (int64, error)
	TopInviters(ctx context.Context, guildID string, n int) ([]models.Standing, error)

	// ResetPoints deletes ledger rows only; ClearGuild wipes every
	// collection for the guild in one transaction.
	ResetPoints(ctx context.Context, guildID string) error
	ClearGuild(ctx context.Context, guildID string) error

	AppendAudit(ctx context.Context, guildID, actorID, action, payload string) error
}

// RoleResolver maps a guild to the role ids that carry point weight.
// The bot layer implements it against the live guild role list; missing
// roles are reported as empty ids, not errors.
type RoleResolver interface {
	QualifyingRoles(guildID string) (membersRoleID, strikerRoleID string, err error)
}

// PointsCache is an optional read cache for point totals, kept write-through
// on every ledger mutation. A nil cache disables caching.
type PointsCache interface {
	GetPoints(guildID, userID string) (int64, bool)
	SetPoints(guildID, userID string, points int64)
	InvalidateGuild(guildID string) error
}

// InviteMinter mints a real invite through the gateway. Implemented by the
// bot layer over the Discord session.
type InviteMinter interface {
	MintInvite(ctx context.Context, guildID, channelID, requesterID string) (code string, err error)
}

// ErrNotAuthorized is returned by privileged operations when the caller did
// not assert authorization. The permission check itself belongs to the
// command layer; the tracker only refuses to run without the assertion.
var ErrNotAuthorized = errors.New("tracker: caller is not authorized")
