package tracker

import (
	"context"
	"sort"
	"sync"

	"discord-invite-tracker/internal/models"
)

// memStore is an in-memory Store with the same guard semantics as the
// Postgres implementation, used to exercise the engine without a database.
type memStore struct {
	mu     sync.Mutex
	links  map[string]string              // guild:code -> creator
	attrs  map[string]*models.Attribution // guild:invitee
	points map[string]int64               // guild:user
	seq    map[string]int                 // ledger row creation order
	nextSq int
	audits []models.AuditEntry
}

func newMemStore() *memStore {
	return &memStore{
		links:  make(map[string]string),
		attrs:  make(map[string]*models.Attribution),
		points: make(map[string]int64),
		seq:    make(map[string]int),
	}
}

func key(guildID, id string) string { return guildID + ":" + id }

func (m *memStore) SaveInviteLink(ctx context.Context, link models.InviteLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[key(link.GuildID, link.Code)] = link.CreatorID
	return nil
}

func (m *memStore) InviteCreator(ctx context.Context, guildID, code string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creator, ok := m.links[key(guildID, code)]
	return creator, ok, nil
}

func (m *memStore) PutAttribution(ctx context.Context, rec models.Attribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := rec
	cp.MembersAwarded = false
	cp.StrikerAwarded = false
	m.attrs[key(rec.GuildID, rec.InviteeID)] = &cp
	return nil
}

func (m *memStore) Attribution(ctx context.Context, guildID, inviteeID string) (*models.Attribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.attrs[key(guildID, inviteeID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) flag(rec *models.Attribution, kind models.AwardKind) *bool {
	if kind == models.AwardStriker {
		return &rec.StrikerAwarded
	}
	return &rec.MembersAwarded
}

func (m *memStore) GrantAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (bool, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.attrs[key(guildID, inviteeID)]
	if !ok || !rec.ValidAccount || rec.InviterID == "" {
		return false, "", 0, nil
	}
	flag := m.flag(rec, kind)
	if *flag {
		return false, "", 0, nil
	}
	*flag = true
	total := m.addPointsLocked(guildID, rec.InviterID, delta)
	return true, rec.InviterID, total, nil
}

func (m *memStore) RevokeAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (bool, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.attrs[key(guildID, inviteeID)]
	if !ok {
		return false, "", 0, nil
	}
	flag := m.flag(rec, kind)
	if !*flag {
		return false, "", 0, nil
	}
	*flag = false
	total := m.addPointsLocked(guildID, rec.InviterID, -delta)
	return true, rec.InviterID, total, nil
}

func (m *memStore) RemoveInvitee(ctx context.Context, guildID, inviteeID string, membersWeight, strikerWeight int64) (int64, string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(guildID, inviteeID)
	rec, ok := m.attrs[k]
	if !ok {
		return 0, "", 0, nil
	}

	var revoked, total int64
	if rec.MembersAwarded {
		revoked += membersWeight
	}
	if rec.StrikerAwarded {
		revoked += strikerWeight
	}
	if revoked != 0 && rec.InviterID != "" {
		total = m.addPointsLocked(guildID, rec.InviterID, -revoked)
	}
	delete(m.attrs, k)
	return revoked, rec.InviterID, total, nil
}

func (m *memStore) addPointsLocked(guildID, userID string, delta int64) int64 {
	k := key(guildID, userID)
	if _, ok := m.seq[k]; !ok {
		m.seq[k] = m.nextSq
		m.nextSq++
	}
	m.points[k] += delta
	return m.points[k]
}

func (m *memStore) AddPoints(ctx context.Context, guildID, userID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPointsLocked(guildID, userID, delta), nil
}

func (m *memStore) Points(ctx context.Context, guildID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[key(guildID, userID)], nil
}

func (m *memStore) TopInviters(ctx context.Context, guildID string, n int) ([]models.Standing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := guildID + ":"
	var standings []models.Standing
	for k, pts := range m.points {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			standings = append(standings, models.Standing{UserID: k[len(prefix):], Points: pts})
		}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Points != standings[j].Points {
			return standings[i].Points > standings[j].Points
		}
		return m.seq[key(guildID, standings[i].UserID)] < m.seq[key(guildID, standings[j].UserID)]
	})
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings, nil
}

func (m *memStore) ResetPoints(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := guildID + ":"
	for k := range m.points {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.points, k)
			delete(m.seq, k)
		}
	}
	return nil
}

func (m *memStore) ClearGuild(ctx context.Context, guildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := guildID + ":"
	for k := range m.links {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.links, k)
		}
	}
	for k := range m.attrs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.attrs, k)
		}
	}
	for k := range m.points {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.points, k)
			delete(m.seq, k)
		}
	}
	m.audits = nil
	return nil
}

func (m *memStore) AppendAudit(ctx context.Context, guildID, actorID, action, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, models.AuditEntry{
		GuildID: guildID, ActorID: actorID, Action: action, Payload: payload,
	})
	return nil
}

// staticRoles resolves the same two role ids for every guild.
type staticRoles struct {
	membersID string
	strikerID string
}

func (r staticRoles) QualifyingRoles(guildID string) (string, string, error) {
	return r.membersID, r.strikerID, nil
}

// captureNotifier records reports and optionally fails.
type captureNotifier struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (n *captureNotifier) Notify(ctx context.Context, report Report) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
	return n.err
}
