package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"discord-invite-tracker/internal/models"

	"go.uber.org/zap"
)

const (
	membersRole = "role-members"
	strikerRole = "role-striker"
)

func newTestService(store Store, cfg Config) *Service {
	return NewService(store, staticRoles{membersRole, strikerRole}, cfg, zap.NewNop())
}

func oldAccount() time.Time   { return time.Now().Add(-365 * 24 * time.Hour) }
func youngAccount() time.Time { return time.Now().Add(-2 * 24 * time.Hour) }

// join wires the common fixture: a recorded invite link for inviter, a cached
// before-count, and a join event whose invite list shows one more use.
func join(t *testing.T, svc *Service, guildID, inviteeID, inviterID string, createdAt time.Time, roles ...string) {
	t.Helper()
	ctx := context.Background()

	if err := svc.RecordInviteLink(ctx, guildID, "inv-"+inviterID, inviterID); err != nil {
		t.Fatalf("record invite link: %v", err)
	}
	svc.Invites().Refresh(guildID, []models.InviteUse{{Code: "inv-" + inviterID, Uses: 0}})

	err := svc.HandleMemberJoined(ctx, MemberJoined{
		GuildID:          guildID,
		UserID:           inviteeID,
		AccountCreatedAt: createdAt,
		Roles:            roles,
		Invites:          []models.InviteUse{{Code: "inv-" + inviterID, Uses: 1, OwnerID: inviterID}},
	})
	if err != nil {
		t.Fatalf("handle member joined: %v", err)
	}
}

func points(t *testing.T, svc *Service, guildID, userID string) int64 {
	t.Helper()
	p, err := svc.GetPoints(context.Background(), guildID, userID)
	if err != nil {
		t.Fatalf("get points: %v", err)
	}
	return p
}

func TestJoinLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount())

	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil || rec == nil {
		t.Fatalf("expected attribution record, got %v err=%v", rec, err)
	}
	if rec.InviterID != "inviter" || !rec.ValidAccount {
		t.Fatalf("unexpected attribution: %+v", rec)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("no roles yet, expected 0 points, got %d", got)
	}

	// Members role gained: +1.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Errorf("after members role, expected 1, got %d", got)
	}

	// Striker role gained on top: +2.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole, strikerRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 3 {
		t.Errorf("after striker role, expected 3, got %d", got)
	}

	// Striker role lost: -2.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Errorf("after striker revoke, expected 1, got %d", got)
	}

	// Leave: remaining credit revoked, record deleted.
	if err := svc.HandleMemberLeft(ctx, MemberLeft{GuildID: "g1", UserID: "invitee"}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("after leave, expected 0, got %d", got)
	}
	rec, err = store.Attribution(ctx, "g1", "invitee")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("attribution should be deleted on leave, got %+v", rec)
	}
}

func TestRoleEventReplayIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount())

	evt := MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee",
		RolesAfter: []string{membersRole, strikerRole},
	}
	for i := 0; i < 5; i++ {
		if err := svc.HandleRoleSetChanged(ctx, evt); err != nil {
			t.Fatal(err)
		}
	}
	if got := points(t, svc, "g1", "inviter"); got != 3 {
		t.Errorf("replays must not re-award, expected 3, got %d", got)
	}
}

func TestRoleToggleNetDelta(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount())

	// Any on/off sequence leaves the total matching the final state.
	with := MemberRoleSetChanged{GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole}}
	without := MemberRoleSetChanged{GuildID: "g1", UserID: "invitee", RolesAfter: nil}
	for i := 0; i < 4; i++ {
		if err := svc.HandleRoleSetChanged(ctx, with); err != nil {
			t.Fatal(err)
		}
		if err := svc.HandleRoleSetChanged(ctx, without); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.HandleRoleSetChanged(ctx, with); err != nil {
		t.Fatal(err)
	}

	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Errorf("after toggles ending held, expected 1, got %d", got)
	}
}

func TestRolesHeldAtJoinAwardImmediately(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole, strikerRole)

	if got := points(t, svc, "g1", "inviter"); got != 3 {
		t.Errorf("roles held at join must award, expected 3, got %d", got)
	}
}

func TestJoinWithRolesThenLossThenLeave(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	// Members held at join: +1.
	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)
	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}

	// Striker gained: +2, total 3.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole, strikerRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}

	// Members lost, striker kept: -1, total 2.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{strikerRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}

	// Leave: remaining striker credit revoked, total 0.
	if err := svc.HandleMemberLeft(ctx, MemberLeft{GuildID: "g1", UserID: "invitee"}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestYoungAccountNeverAwards(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", youngAccount(), membersRole)

	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil || rec == nil {
		t.Fatalf("attribution should still be recorded: %v err=%v", rec, err)
	}
	if rec.ValidAccount {
		t.Error("account younger than the minimum must be flagged invalid")
	}

	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole, strikerRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("invalid account earned points: %d", got)
	}
}

func TestGatewayOwnerFallbackWhenLinkUnknown(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	// The code was never minted through the bot; only the gateway knows the owner.
	svc.Invites().Refresh("g1", []models.InviteUse{{Code: "outside", Uses: 4}})
	err := svc.HandleMemberJoined(ctx, MemberJoined{
		GuildID:          "g1",
		UserID:           "invitee",
		AccountCreatedAt: oldAccount(),
		Invites:          []models.InviteUse{{Code: "outside", Uses: 5, OwnerID: "owner42"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil || rec == nil {
		t.Fatalf("expected attribution via gateway owner, got %v err=%v", rec, err)
	}
	if rec.InviterID != "owner42" {
		t.Errorf("expected owner42, got %s", rec.InviterID)
	}
}

func TestJoinWithoutInviterIsInert(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	// Increase on a creatorless, ownerless code (vanity url).
	svc.Invites().Refresh("g1", []models.InviteUse{{Code: "vanity", Uses: 9}})
	err := svc.HandleMemberJoined(ctx, MemberJoined{
		GuildID:          "g1",
		UserID:           "invitee",
		AccountCreatedAt: oldAccount(),
		Invites:          []models.InviteUse{{Code: "vanity", Uses: 10}},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("no inviter known, expected no attribution, got %+v", rec)
	}

	// The cache still advanced, so the next join diffs cleanly.
	if got := svc.Invites().Snapshot("g1")["vanity"]; got != 10 {
		t.Errorf("cache must advance on miss, got %d", got)
	}

	// Later role gains for the unattributed member stay inert.
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: []string{membersRole, strikerRole},
	}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "invitee"); got != 0 {
		t.Errorf("unattributed member's role gains must not award, got %d", got)
	}
}

func TestLeaveAfterRevokesIsNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)
	if err := svc.HandleRoleSetChanged(ctx, MemberRoleSetChanged{
		GuildID: "g1", UserID: "invitee", RolesAfter: nil,
	}); err != nil {
		t.Fatal(err)
	}

	if err := svc.HandleMemberLeft(ctx, MemberLeft{GuildID: "g1", UserID: "invitee"}); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("expected 0 after revoke then leave, got %d", got)
	}
}

func TestRetainOnLeaveKeepsCredit(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{RetainOnLeave: true})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)
	if err := svc.HandleMemberLeft(ctx, MemberLeft{GuildID: "g1", UserID: "invitee"}); err != nil {
		t.Fatal(err)
	}

	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Errorf("retain policy must keep credit, expected 1, got %d", got)
	}
	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil || rec == nil {
		t.Fatalf("retain policy must keep the attribution record: %v err=%v", rec, err)
	}
}

func TestLeaderboardOrderAndTies(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{TopN: 3})
	ctx := context.Background()

	seed := []struct {
		user  string
		delta int64
	}{
		{"first", 5},
		{"second", 5}, // tie with first, created later
		{"third", 9},
		{"fourth", 1},
	}
	for _, s := range seed {
		if _, err := svc.AdjustPoints(ctx, true, "g1", "admin", s.user, s.delta, "seed"); err != nil {
			t.Fatal(err)
		}
	}

	standings, err := svc.GetLeaderboard(ctx, "g1", 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"third", "first", "second"}
	if len(standings) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(standings))
	}
	for i, w := range want {
		if standings[i].UserID != w {
			t.Errorf("rank %d: expected %s, got %s", i+1, w, standings[i].UserID)
		}
	}
}

func TestLeaderboardNotPadded(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	if _, err := svc.AdjustPoints(ctx, true, "g1", "admin", "only", 2, "seed"); err != nil {
		t.Fatal(err)
	}

	standings, err := svc.GetLeaderboard(ctx, "g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings) != 1 {
		t.Errorf("fewer inviters than N must not pad, got %d rows", len(standings))
	}
}

func TestAdjustPointsRequiresAuthorization(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	if _, err := svc.AdjustPoints(ctx, false, "g1", "nobody", "target", 5, ""); err != ErrNotAuthorized {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if got := points(t, svc, "g1", "target"); got != 0 {
		t.Errorf("unauthorized adjust must not apply, got %d", got)
	}

	total, err := svc.AdjustPoints(ctx, true, "g1", "admin", "target", 5, "contest bonus")
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("expected running total 5, got %d", total)
	}
	if len(store.audits) != 1 || store.audits[0].Action != "adjust_points" {
		t.Errorf("expected one adjust_points audit row, got %+v", store.audits)
	}
}

func TestResetAllPoints(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)
	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Fatalf("fixture: expected 1, got %d", got)
	}

	if err := svc.ResetAllPoints(ctx, false, "g1", "nobody"); err != ErrNotAuthorized {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := svc.ResetAllPoints(ctx, true, "g1", "admin"); err != nil {
		t.Fatal(err)
	}

	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("expected 0 after reset, got %d", got)
	}
	standings, err := svc.GetLeaderboard(ctx, "g1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(standings) != 0 {
		t.Errorf("expected empty leaderboard after reset, got %v", standings)
	}
}

// fakeMinter mints predictable codes.
type fakeMinter struct {
	code string
	err  error
}

func (m fakeMinter) MintInvite(ctx context.Context, guildID, channelID, requesterID string) (string, error) {
	return m.code, m.err
}

func TestCreatePersonalInvite(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	code, err := svc.CreatePersonalInvite(ctx, fakeMinter{code: "minted"}, "g1", "chan", "creator")
	if err != nil {
		t.Fatal(err)
	}
	if code != "minted" {
		t.Errorf("expected minted, got %s", code)
	}

	creator, ok, err := store.InviteCreator(ctx, "g1", "minted")
	if err != nil || !ok || creator != "creator" {
		t.Errorf("expected recorded creator, got %q ok=%v err=%v", creator, ok, err)
	}
}

func TestDispatcherRoutesInviteEvents(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	d := NewDispatcher(svc)
	ctx := context.Background()

	if err := d.Dispatch(ctx, InviteListSnapshot{
		GuildID: "g1", Invites: []models.InviteUse{{Code: "alpha", Uses: 2}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(ctx, InviteCreated{GuildID: "g1", Code: "beta", Uses: 0}); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(ctx, InviteDeleted{GuildID: "g1", Code: "alpha"}); err != nil {
		t.Fatal(err)
	}

	snap := svc.Invites().Snapshot("g1")
	if _, ok := snap["alpha"]; ok {
		t.Error("alpha should be deleted")
	}
	if _, ok := snap["beta"]; !ok {
		t.Error("beta should be present")
	}

	if err := d.Dispatch(ctx, struct{}{}); err == nil {
		t.Error("unknown event types must be rejected")
	}
}

// mapPointsCache is a minimal write-through cache for read-path tests.
type mapPointsCache struct {
	mu sync.Mutex
	m  map[string]int64
}

func newMapPointsCache() *mapPointsCache {
	return &mapPointsCache{m: make(map[string]int64)}
}

func (c *mapPointsCache) GetPoints(guildID, userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[guildID+":"+userID]
	return v, ok
}

func (c *mapPointsCache) SetPoints(guildID, userID string, points int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[guildID+":"+userID] = points
}

func (c *mapPointsCache) InvalidateGuild(guildID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := guildID + ":"
	for k := range c.m {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.m, k)
		}
	}
	return nil
}

func TestPointsCacheKeptWriteThrough(t *testing.T) {
	store := newMemStore()
	pc := newMapPointsCache()
	svc := newTestService(store, Config{}).WithPointsCache(pc)
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)

	if v, ok := pc.GetPoints("g1", "inviter"); !ok || v != 1 {
		t.Errorf("award must write through to the cache, got %d ok=%v", v, ok)
	}

	if err := svc.ResetAllPoints(ctx, true, "g1", "admin"); err != nil {
		t.Fatal(err)
	}
	if _, ok := pc.GetPoints("g1", "inviter"); ok {
		t.Error("reset must invalidate cached totals")
	}
}
