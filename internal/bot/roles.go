package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"discord-invite-tracker/internal/tracker"

	"github.com/bwmarrin/discordgo"
)

const roleCacheTTL = 5 * time.Minute

// roleDirectory resolves the configured role names to their ids per guild.
// Role ids are stable but renames and deletions happen, so entries expire
// instead of living forever.
type roleDirectory struct {
	session     *discordgo.Session
	membersName string
	strikerName string

	mu      sync.Mutex
	entries map[string]roleEntry
}

type roleEntry struct {
	membersID string
	strikerID string
	fetchedAt time.Time
}

func newRoleDirectory(session *discordgo.Session, cfg tracker.Config) *roleDirectory {
	return &roleDirectory{
		session:     session,
		membersName: cfg.MembersRoleName,
		strikerName: cfg.StrikerRoleName,
		entries:     make(map[string]roleEntry),
	}
}

func (d *roleDirectory) QualifyingRoles(guildID string) (string, string, error) {
	d.mu.Lock()
	entry, ok := d.entries[guildID]
	d.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < roleCacheTTL {
		return entry.membersID, entry.strikerID, nil
	}

	roles, err := d.session.GuildRoles(guildID)
	if err != nil {
		// Serve stale over failing the whole event when we have anything.
		if ok {
			return entry.membersID, entry.strikerID, nil
		}
		return "", "", fmt.Errorf("fetch guild roles: %w", err)
	}

	entry = roleEntry{fetchedAt: time.Now()}
	for _, role := range roles {
		switch role.Name {
		case d.membersName:
			entry.membersID = role.ID
		case d.strikerName:
			entry.strikerID = role.ID
		}
	}

	d.mu.Lock()
	d.entries[guildID] = entry
	d.mu.Unlock()

	return entry.membersID, entry.strikerID, nil
}

// Invalidate drops the cached entry, used when role events arrive.
func (d *roleDirectory) Invalidate(guildID string) {
	d.mu.Lock()
	delete(d.entries, guildID)
	d.mu.Unlock()
}

// DeferredRoleResolver breaks the startup cycle: the tracker service needs a
// role resolver at construction, but the real one needs the session that the
// bot only has once the tracker exists. Bind is called exactly once during
// wiring, before any gateway event can arrive.
type DeferredRoleResolver struct {
	mu    sync.RWMutex
	inner tracker.RoleResolver
}

func DeferredRoles() *DeferredRoleResolver {
	return &DeferredRoleResolver{}
}

func (d *DeferredRoleResolver) Bind(inner tracker.RoleResolver) {
	d.mu.Lock()
	d.inner = inner
	d.mu.Unlock()
}

func (d *DeferredRoleResolver) QualifyingRoles(guildID string) (string, string, error) {
	d.mu.RLock()
	inner := d.inner
	d.mu.RUnlock()
	if inner == nil {
		return "", "", fmt.Errorf("role resolver not bound yet")
	}
	return inner.QualifyingRoles(guildID)
}

// MintInvite implements tracker.InviteMinter over the live session. Invites
// are non-expiring and unlimited so points accumulate over the whole month.
func (b *Bot) MintInvite(ctx context.Context, guildID, channelID, requesterID string) (string, error) {
	invite, err := b.Session.ChannelInviteCreate(channelID, discordgo.Invite{
		MaxAge:    0,
		MaxUses:   0,
		Temporary: false,
		Unique:    true,
	})
	if err != nil {
		return "", fmt.Errorf("create channel invite: %w", err)
	}
	return invite.Code, nil
}
