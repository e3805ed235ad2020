package bot

import (
	"context"
	"log"
	"time"
)

// RunMonthlyScheduler fires the end-of-month close-out. It checks every
// minute and triggers once per guild in the final minute of the month (UTC);
// the lastRun guard makes the tick idempotent across the whole minute.
func (b *Bot) RunMonthlyScheduler() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastRun time.Month

	for range ticker.C {
		now := time.Now().UTC()
		if !isLastMinuteOfMonth(now) || now.Month() == lastRun {
			continue
		}
		lastRun = now.Month()

		for _, guildID := range b.GuildIDs() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := b.Tracker.RunMonthlyReset(ctx, guildID); err != nil {
				log.Printf("Monthly reset failed for guild %s: %v", guildID, err)
			}
			cancel()
		}
	}
}

func isLastMinuteOfMonth(now time.Time) bool {
	next := now.Add(time.Minute)
	return next.Month() != now.Month()
}
