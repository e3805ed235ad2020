package tracker

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestMonthlyResetNotifiesThenWipes(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{}
	svc := NewService(store, staticRoles{membersRole, strikerRole}, Config{TopN: 5}, zap.NewNop()).
		WithNotifier(notifier)
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole, strikerRole)
	if _, err := svc.AdjustPoints(ctx, true, "g1", "admin", "runnerup", 1, "seed"); err != nil {
		t.Fatal(err)
	}

	if err := svc.RunMonthlyReset(ctx, "g1"); err != nil {
		t.Fatal(err)
	}

	if len(notifier.reports) != 1 {
		t.Fatalf("expected one report, got %d", len(notifier.reports))
	}
	report := notifier.reports[0]
	if report.GuildID != "g1" {
		t.Errorf("report for wrong guild: %s", report.GuildID)
	}
	if len(report.Standings) != 2 || report.Standings[0].UserID != "inviter" || report.Standings[0].Points != 3 {
		t.Errorf("report must carry pre-wipe standings, got %+v", report.Standings)
	}

	// Everything is gone: points, attributions, invite links.
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("expected 0 points after wipe, got %d", got)
	}
	rec, err := store.Attribution(ctx, "g1", "invitee")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("attribution must be wiped, got %+v", rec)
	}
	if _, ok, _ := store.InviteCreator(ctx, "g1", "inv-inviter"); ok {
		t.Error("invite links must be wiped")
	}
}

func TestMonthlyResetWipesDespiteNotifyFailure(t *testing.T) {
	store := newMemStore()
	notifier := &captureNotifier{err: errors.New("smtp down")}
	svc := NewService(store, staticRoles{membersRole, strikerRole}, Config{}, zap.NewNop()).
		WithNotifier(notifier)
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)

	if err := svc.RunMonthlyReset(ctx, "g1"); err != nil {
		t.Fatalf("notify failure must not fail the reset: %v", err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("wipe must proceed past a failed delivery, got %d", got)
	}
}

func TestMonthlyResetWithoutNotifier(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})
	ctx := context.Background()

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)

	if err := svc.RunMonthlyReset(ctx, "g1"); err != nil {
		t.Fatal(err)
	}
	if got := points(t, svc, "g1", "inviter"); got != 0 {
		t.Errorf("expected 0 after reset, got %d", got)
	}
}

func TestMonthlyResetFreshStartAfterRejoin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Config{})

	join(t, svc, "g1", "invitee", "inviter", oldAccount(), membersRole)
	if err := svc.RunMonthlyReset(context.Background(), "g1"); err != nil {
		t.Fatal(err)
	}

	// A new cycle attributes and awards from scratch.
	join(t, svc, "g1", "invitee2", "inviter", oldAccount(), membersRole)
	if got := points(t, svc, "g1", "inviter"); got != 1 {
		t.Errorf("expected fresh cycle total 1, got %d", got)
	}
}
