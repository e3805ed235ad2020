package notify

import (
	"context"

	"discord-invite-tracker/internal/tracker"

	"golang.org/x/sync/errgroup"
)

// Multi fans one report out to several deliveries concurrently. Every target
// is attempted even when another fails; Wait returns the first failure.
type Multi []tracker.Notifier

func (m Multi) Notify(ctx context.Context, report tracker.Report) error {
	var g errgroup.Group
	for _, n := range m {
		n := n
		g.Go(func() error {
			return n.Notify(ctx, report)
		})
	}
	return g.Wait()
}
