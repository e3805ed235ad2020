package tracker

import (
	"context"
	"fmt"
	"time"

	"discord-invite-tracker/internal/models"
)

// Normalized gateway events. The bot layer translates discordgo payloads
// into these; tests construct them directly. Events for the same invitee
// are assumed to arrive in order, which the gateway guarantees per entity.

// MemberJoined carries the freshly fetched invite list alongside the member,
// since the list must be read as close to the join as possible for the
// use-count diff to be meaningful.
type MemberJoined struct {
	GuildID          string
	UserID           string
	AccountCreatedAt time.Time
	Roles            []string // role ids held at join, usually empty
	Invites          []models.InviteUse
}

type MemberLeft struct {
	GuildID string
	UserID  string
}

// MemberRoleSetChanged reports the role set after the change. The before
// set is informational: awards reconcile the after set against the stored
// flags, which are the authoritative record of what has been credited.
type MemberRoleSetChanged struct {
	GuildID     string
	UserID      string
	RolesBefore []string
	RolesAfter  []string
}

// InviteListSnapshot replaces a guild's cached counters wholesale, sent on
// connect and reconnect.
type InviteListSnapshot struct {
	GuildID string
	Invites []models.InviteUse
}

type InviteCreated struct {
	GuildID string
	Code    string
	Uses    int
}

type InviteDeleted struct {
	GuildID string
	Code    string
}

// Dispatcher routes normalized events to the tracker service. It keeps the
// gateway wiring out of the core so event flows can be replayed in tests.
type Dispatcher struct {
	svc *Service
}

func NewDispatcher(svc *Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

func (d *Dispatcher) Dispatch(ctx context.Context, evt any) error {
	switch e := evt.(type) {
	case MemberJoined:
		return d.svc.HandleMemberJoined(ctx, e)
	case MemberLeft:
		return d.svc.HandleMemberLeft(ctx, e)
	case MemberRoleSetChanged:
		return d.svc.HandleRoleSetChanged(ctx, e)
	case InviteListSnapshot:
		d.svc.Invites().Refresh(e.GuildID, e.Invites)
		return nil
	case InviteCreated:
		d.svc.Invites().RecordCreate(e.GuildID, e.Code, e.Uses)
		return nil
	case InviteDeleted:
		d.svc.Invites().RecordDelete(e.GuildID, e.Code)
		return nil
	default:
		return fmt.Errorf("tracker: unknown event type %T", evt)
	}
}
