package tracker

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"discord-invite-tracker/internal/models"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Config carries the tunables of the point competition.
type Config struct {
	MembersRoleName   string `json:"members_role"`
	StrikerRoleName   string `json:"striker_role"`
	MembersWeight     int64  `json:"members_weight"`
	StrikerWeight     int64  `json:"striker_weight"`
	MinAccountAgeDays int    `json:"min_account_age_days"`
	TopN              int    `json:"top_n"`
	// RetainOnLeave keeps the attribution record (and outstanding credit)
	// when the invitee leaves. The default policy revokes and deletes, so a
	// rejoin is attributed fresh.
	RetainOnLeave bool `json:"retain_on_leave"`
}

func (c Config) withDefaults() Config {
	if c.MembersRoleName == "" {
		c.MembersRoleName = "Members"
	}
	if c.StrikerRoleName == "" {
		c.StrikerRoleName = "Striker"
	}
	if c.MembersWeight == 0 {
		c.MembersWeight = 1
	}
	if c.StrikerWeight == 0 {
		c.StrikerWeight = 2
	}
	if c.MinAccountAgeDays == 0 {
		c.MinAccountAgeDays = 30
	}
	if c.TopN == 0 {
		c.TopN = 10
	}
	return c
}

// LookupCache fronts hot read-mostly lookups (invite code -> creator).
// Satisfied by internal/cache.Cache; nil disables the layer.
type LookupCache interface {
	Get(ctx context.Context, key string, fetch func() (interface{}, error)) (interface{}, error)
	Delete(key string)
}

// Service is the invite-attribution and point-ledger engine. All state
// transitions for one invitee are serialized on a per-(guild, invitee) lock;
// the flag/ledger pair itself is additionally guarded inside the store's
// transactions, so even events that slip past the lock cannot double-apply.
type Service struct {
	store    Store
	roles    RoleResolver
	cfg      Config
	log      *zap.Logger
	invites  *InviteCache
	points   PointsCache
	creators LookupCache
	notifier Notifier

	locks stripedLocks

	// creatorGen invalidates cached creator lookups wholesale per guild:
	// the generation is part of every cache key and bumped on a full wipe.
	genMu      sync.Mutex
	creatorGen map[string]uint64
}

func NewService(store Store, roles RoleResolver, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:      store,
		roles:      roles,
		cfg:        cfg.withDefaults(),
		log:        log,
		invites:    NewInviteCache(),
		creatorGen: make(map[string]uint64),
	}
}

func (s *Service) WithPointsCache(pc PointsCache) *Service {
	s.points = pc
	return s
}

func (s *Service) WithCreatorCache(lc LookupCache) *Service {
	s.creators = lc
	return s
}

func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Invites exposes the invite cache to the gateway layer, which feeds it
// create/delete notifications and connect-time snapshots.
func (s *Service) Invites() *InviteCache {
	return s.invites
}

func (s *Service) Config() Config {
	return s.cfg
}

// HandleMemberJoined resolves which invite the new member consumed, records
// the attribution, and awards immediately for qualifying roles already held.
func (s *Service) HandleMemberJoined(ctx context.Context, evt MemberJoined) error {
	unlock := s.locks.lock(evt.GuildID + ":" + evt.UserID)
	defer unlock()

	minAge := time.Duration(s.cfg.MinAccountAgeDays) * 24 * time.Hour
	validAccount := time.Since(evt.AccountCreatedAt) >= minAge

	before := s.invites.Snapshot(evt.GuildID)
	used, found := resolveUsed(before, evt.Invites)

	// The cache moves to the new truth whether or not attribution succeeds,
	// so the next join diffs against current counters.
	s.invites.Refresh(evt.GuildID, evt.Invites)

	if !found {
		attributionMisses.Inc()
		s.log.Debug("join without usable invite diff",
			zap.String("guild_id", evt.GuildID), zap.String("user_id", evt.UserID))
		return nil
	}

	inviterID, err := s.inviteCreator(ctx, evt.GuildID, used.Code)
	if err != nil {
		return fmt.Errorf("creator lookup for %q: %w", used.Code, err)
	}
	if inviterID == "" {
		inviterID = used.OwnerID
	}
	if inviterID == "" {
		attributionMisses.Inc()
		s.log.Debug("used invite has no known inviter",
			zap.String("guild_id", evt.GuildID), zap.String("code", used.Code))
		return nil
	}

	rec := models.Attribution{
		GuildID:      evt.GuildID,
		InviteeID:    evt.UserID,
		InviterID:    inviterID,
		UsedCode:     used.Code,
		ValidAccount: validAccount,
	}
	if err := s.store.PutAttribution(ctx, rec); err != nil {
		return fmt.Errorf("put attribution: %w", err)
	}

	joinsResolved.Inc()
	s.log.Info("member attributed",
		zap.String("guild_id", evt.GuildID),
		zap.String("invitee_id", evt.UserID),
		zap.String("inviter_id", inviterID),
		zap.String("code", used.Code),
		zap.Bool("valid_account", validAccount))

	// Roles already held at join count as just gained.
	return s.reconcileRoles(ctx, evt.GuildID, evt.UserID, evt.Roles)
}

// HandleRoleSetChanged reconciles the member's current role set against the
// stored award flags. Gained qualifying roles grant, lost ones revoke; the
// flags make replays and redeliveries no-ops.
func (s *Service) HandleRoleSetChanged(ctx context.Context, evt MemberRoleSetChanged) error {
	unlock := s.locks.lock(evt.GuildID + ":" + evt.UserID)
	defer unlock()

	return s.reconcileRoles(ctx, evt.GuildID, evt.UserID, evt.RolesAfter)
}

// HandleMemberLeft revokes outstanding credit and deletes the attribution
// record, unless the retain-on-leave policy is configured.
func (s *Service) HandleMemberLeft(ctx context.Context, evt MemberLeft) error {
	unlock := s.locks.lock(evt.GuildID + ":" + evt.UserID)
	defer unlock()

	if s.cfg.RetainOnLeave {
		return nil
	}

	revoked, inviterID, newTotal, err := s.store.RemoveInvitee(ctx,
		evt.GuildID, evt.UserID, s.cfg.MembersWeight, s.cfg.StrikerWeight)
	if err != nil {
		return fmt.Errorf("remove invitee: %w", err)
	}
	if revoked > 0 && inviterID != "" {
		s.cachePoints(evt.GuildID, inviterID, newTotal)
		s.log.Info("credit revoked on leave",
			zap.String("guild_id", evt.GuildID),
			zap.String("invitee_id", evt.UserID),
			zap.String("inviter_id", inviterID),
			zap.Int64("revoked", revoked))
	}
	return nil
}

func (s *Service) reconcileRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	membersID, strikerID, err := s.roles.QualifyingRoles(guildID)
	if err != nil {
		return fmt.Errorf("resolve qualifying roles: %w", err)
	}

	held := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}

	if membersID != "" {
		if err := s.transition(ctx, guildID, userID, models.AwardMembers, held[membersID]); err != nil {
			return err
		}
	}
	if strikerID != "" {
		if err := s.transition(ctx, guildID, userID, models.AwardStriker, held[strikerID]); err != nil {
			return err
		}
	}
	return nil
}

// transition moves one (invitee, kind) pair toward the observed role state.
// The store transaction rechecks the flag, so a blocked guard is a silent
// no-op rather than an error.
func (s *Service) transition(ctx context.Context, guildID, userID string, kind models.AwardKind, roleHeld bool) error {
	weight := s.weight(kind)

	if roleHeld {
		applied, inviterID, newTotal, err := s.store.GrantAward(ctx, guildID, userID, kind, weight)
		if err != nil {
			return fmt.Errorf("grant %s award: %w", kind, err)
		}
		if applied {
			awardsGranted.WithLabelValues(string(kind)).Inc()
			s.cachePoints(guildID, inviterID, newTotal)
			s.log.Info("award granted",
				zap.String("guild_id", guildID),
				zap.String("invitee_id", userID),
				zap.String("inviter_id", inviterID),
				zap.String("kind", string(kind)),
				zap.Int64("delta", weight))
		}
		return nil
	}

	applied, inviterID, newTotal, err := s.store.RevokeAward(ctx, guildID, userID, kind, weight)
	if err != nil {
		return fmt.Errorf("revoke %s award: %w", kind, err)
	}
	if applied {
		awardsRevoked.WithLabelValues(string(kind)).Inc()
		s.cachePoints(guildID, inviterID, newTotal)
		s.log.Info("award revoked",
			zap.String("guild_id", guildID),
			zap.String("invitee_id", userID),
			zap.String("inviter_id", inviterID),
			zap.String("kind", string(kind)),
			zap.Int64("delta", -weight))
	}
	return nil
}

func (s *Service) weight(kind models.AwardKind) int64 {
	if kind == models.AwardStriker {
		return s.cfg.StrikerWeight
	}
	return s.cfg.MembersWeight
}

// Read path

func (s *Service) GetPoints(ctx context.Context, guildID, userID string) (int64, error) {
	if s.points != nil {
		if points, ok := s.points.GetPoints(guildID, userID); ok {
			return points, nil
		}
	}

	points, err := s.store.Points(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	s.cachePoints(guildID, userID, points)
	return points, nil
}

func (s *Service) GetLeaderboard(ctx context.Context, guildID string, n int) ([]models.Standing, error) {
	if n <= 0 {
		n = s.cfg.TopN
	}
	return s.store.TopInviters(ctx, guildID, n)
}

// Invite links

// CreatePersonalInvite mints a real invite through the gateway and records
// its creator. A minting failure (typically missing channel permission) is
// returned before anything is written.
func (s *Service) CreatePersonalInvite(ctx context.Context, minter InviteMinter, guildID, channelID, userID string) (string, error) {
	code, err := minter.MintInvite(ctx, guildID, channelID, userID)
	if err != nil {
		return "", fmt.Errorf("mint invite: %w", err)
	}
	if err := s.RecordInviteLink(ctx, guildID, code, userID); err != nil {
		return "", err
	}
	return code, nil
}

func (s *Service) RecordInviteLink(ctx context.Context, guildID, code, creatorID string) error {
	link := models.InviteLink{
		GuildID:   guildID,
		Code:      code,
		CreatorID: creatorID,
		CreatedAt: models.Now(),
	}
	if err := s.store.SaveInviteLink(ctx, link); err != nil {
		return fmt.Errorf("save invite link: %w", err)
	}
	if s.creators != nil {
		s.creators.Delete(s.creatorKey(guildID, code))
	}
	s.log.Info("invite link recorded",
		zap.String("guild_id", guildID),
		zap.String("code", code),
		zap.String("creator_id", creatorID))
	return nil
}

func (s *Service) inviteCreator(ctx context.Context, guildID, code string) (string, error) {
	fetch := func() (interface{}, error) {
		id, ok, err := s.store.InviteCreator(ctx, guildID, code)
		if err != nil {
			return nil, err
		}
		if !ok {
			return "", nil
		}
		return id, nil
	}

	if s.creators == nil {
		v, err := fetch()
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	v, err := s.creators.Get(ctx, s.creatorKey(guildID, code), fetch)
	if err != nil {
		return "", err
	}
	id, _ := v.(string)
	return id, nil
}

func (s *Service) creatorKey(guildID, code string) string {
	s.genMu.Lock()
	gen := s.creatorGen[guildID]
	s.genMu.Unlock()
	return fmt.Sprintf("creator:%s:%d:%s", guildID, gen, code)
}

func (s *Service) bumpCreatorGen(guildID string) {
	s.genMu.Lock()
	s.creatorGen[guildID]++
	s.genMu.Unlock()
}

// Admin operations. The permission check happens in the command layer;
// these refuse to run unless the caller asserts it passed.

func (s *Service) AdjustPoints(ctx context.Context, authorized bool, guildID, actorID, userID string, delta int64, reason string) (int64, error) {
	if !authorized {
		return 0, ErrNotAuthorized
	}

	newTotal, err := s.store.AddPoints(ctx, guildID, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust points: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"user_id": userID,
		"delta":   delta,
		"reason":  reason,
	})
	if err := s.store.AppendAudit(ctx, guildID, actorID, "adjust_points", string(payload)); err != nil {
		s.log.Warn("audit append failed", zap.Error(err))
	}

	adminAdjustments.Inc()
	s.cachePoints(guildID, userID, newTotal)
	s.log.Info("points adjusted",
		zap.String("guild_id", guildID),
		zap.String("actor_id", actorID),
		zap.String("user_id", userID),
		zap.Int64("delta", delta),
		zap.String("reason", reason))
	return newTotal, nil
}

// ResetAllPoints zeroes the point ledger only. Attribution history stays, so
// outstanding award flags remain meaningful; this is the admin /reset, not
// the monthly wipe.
func (s *Service) ResetAllPoints(ctx context.Context, authorized bool, guildID, actorID string) error {
	if !authorized {
		return ErrNotAuthorized
	}

	if err := s.store.ResetPoints(ctx, guildID); err != nil {
		return fmt.Errorf("reset points: %w", err)
	}
	if err := s.store.AppendAudit(ctx, guildID, actorID, "reset_points", ""); err != nil {
		s.log.Warn("audit append failed", zap.Error(err))
	}
	s.invalidateGuildPoints(guildID)
	s.log.Info("points reset", zap.String("guild_id", guildID), zap.String("actor_id", actorID))
	return nil
}

func (s *Service) cachePoints(guildID, userID string, points int64) {
	if s.points != nil {
		s.points.SetPoints(guildID, userID, points)
	}
}

func (s *Service) invalidateGuildPoints(guildID string) {
	if s.points == nil {
		return
	}
	if err := s.points.InvalidateGuild(guildID); err != nil {
		s.log.Warn("points cache invalidation failed",
			zap.String("guild_id", guildID), zap.Error(err))
	}
}

// stripedLocks serializes work per key without a lock per invitee. 64
// stripes keeps contention negligible at bot scale.
type stripedLocks struct {
	mus [64]sync.Mutex
}

func (l *stripedLocks) lock(key string) func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	mu := &l.mus[h.Sum32()&63]
	mu.Lock()
	return mu.Unlock
}
