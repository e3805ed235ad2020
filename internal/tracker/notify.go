package tracker

import (
	"context"
	"time"

	"discord-invite-tracker/internal/models"
)

// Report is handed to the notify collaborator before a monthly wipe.
type Report struct {
	GuildID     string
	GeneratedAt time.Time
	Standings   []models.Standing
}

// Notifier delivers the monthly standings report. Delivery is best-effort:
// a failed Notify is logged and counted, and the reset proceeds regardless.
type Notifier interface {
	Notify(ctx context.Context, report Report) error
}
