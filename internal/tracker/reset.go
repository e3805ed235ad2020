package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RunMonthlyReset closes out the competition for one guild: it reads the
// final standings, hands them to the notify collaborator, then wipes every
// ledger in one transaction. Notification is best-effort; a failed delivery
// never blocks or rolls back the wipe.
//
// The tracker has no time awareness. The caller (the outer scheduler) is
// responsible for invoking this at most once per calendar month.
func (s *Service) RunMonthlyReset(ctx context.Context, guildID string) error {
	standings, err := s.store.TopInviters(ctx, guildID, s.cfg.TopN)
	if err != nil {
		return fmt.Errorf("read final standings: %w", err)
	}

	if s.notifier != nil {
		report := Report{
			GuildID:     guildID,
			GeneratedAt: time.Now().UTC(),
			Standings:   standings,
		}
		if err := s.notifier.Notify(ctx, report); err != nil {
			notifyFailures.Inc()
			s.log.Warn("monthly report delivery failed",
				zap.String("guild_id", guildID), zap.Error(err))
		}
	}

	if err := s.store.ClearGuild(ctx, guildID); err != nil {
		return fmt.Errorf("clear guild ledgers: %w", err)
	}

	s.bumpCreatorGen(guildID)
	s.invalidateGuildPoints(guildID)
	monthlyResets.Inc()

	s.log.Info("monthly reset complete",
		zap.String("guild_id", guildID),
		zap.Int("reported_standings", len(standings)))
	return nil
}
