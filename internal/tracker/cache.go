package tracker

import (
	"sync"

	"discord-invite-tracker/internal/models"
)

// InviteCache holds the most recently observed per-guild invite use counts.
// It is the "before" side of use-count diffing: a join is attributed to the
// first invite whose live use count exceeds the cached one.
//
// The cache is purely in-memory. Losing it on restart only degrades
// attribution for joins that race the rebuild; it is repopulated from the
// live invite list on every Ready.
type InviteCache struct {
	mu     sync.RWMutex
	guilds map[string]map[string]int
}

func NewInviteCache() *InviteCache {
	return &InviteCache{guilds: make(map[string]map[string]int)}
}

// Refresh replaces the stored map for the guild wholesale.
func (c *InviteCache) Refresh(guildID string, invites []models.InviteUse) {
	uses := make(map[string]int, len(invites))
	for _, inv := range invites {
		uses[inv.Code] = inv.Uses
	}

	c.mu.Lock()
	c.guilds[guildID] = uses
	c.mu.Unlock()
}

// RecordCreate upserts a single code from an invite-create notification.
func (c *InviteCache) RecordCreate(guildID, code string, uses int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.guilds[guildID]
	if !ok {
		g = make(map[string]int)
		c.guilds[guildID] = g
	}
	g[code] = uses
}

// RecordDelete removes a single code from an invite-delete notification.
func (c *InviteCache) RecordDelete(guildID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.guilds[guildID]; ok {
		delete(g, code)
	}
}

// Snapshot returns a copy of the guild's cached use counts. A guild that was
// never refreshed yields an empty map, which diffing treats as all-zero.
func (c *InviteCache) Snapshot(guildID string) map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g := c.guilds[guildID]
	out := make(map[string]int, len(g))
	for code, uses := range g {
		out[code] = uses
	}
	return out
}
