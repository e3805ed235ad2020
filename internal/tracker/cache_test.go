package tracker

import (
	"fmt"
	"testing"

	"discord-invite-tracker/internal/models"
)

func TestInviteCacheRefreshAndSnapshot(t *testing.T) {
	c := NewInviteCache()
	c.Refresh("g1", []models.InviteUse{
		{Code: "alpha", Uses: 2},
		{Code: "beta", Uses: 5},
	})

	snap := c.Snapshot("g1")
	if snap["alpha"] != 2 || snap["beta"] != 5 {
		t.Errorf("unexpected snapshot: %v", snap)
	}
}

func TestInviteCacheSnapshotIsACopy(t *testing.T) {
	c := NewInviteCache()
	c.Refresh("g1", []models.InviteUse{{Code: "alpha", Uses: 2}})

	snap := c.Snapshot("g1")
	snap["alpha"] = 99

	if got := c.Snapshot("g1")["alpha"]; got != 2 {
		t.Errorf("mutating a snapshot leaked into the cache: got %d", got)
	}
}

func TestInviteCacheUnknownGuild(t *testing.T) {
	c := NewInviteCache()
	snap := c.Snapshot("nowhere")
	if snap == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(snap) != 0 {
		t.Errorf("expected empty snapshot, got %v", snap)
	}
}

func TestInviteCacheRecordCreateDelete(t *testing.T) {
	c := NewInviteCache()
	c.RecordCreate("g1", "alpha", 0)
	c.RecordCreate("g1", "beta", 3)

	if snap := c.Snapshot("g1"); snap["beta"] != 3 {
		t.Errorf("expected beta=3, got %v", snap)
	}

	c.RecordDelete("g1", "beta")
	snap := c.Snapshot("g1")
	if _, ok := snap["beta"]; ok {
		t.Error("beta should be gone after delete")
	}
	if _, ok := snap["alpha"]; !ok {
		t.Error("alpha should survive beta's delete")
	}
}

func TestInviteCacheRefreshReplacesWholesale(t *testing.T) {
	c := NewInviteCache()
	c.Refresh("g1", []models.InviteUse{{Code: "old", Uses: 1}})
	c.Refresh("g1", []models.InviteUse{{Code: "new", Uses: 1}})

	snap := c.Snapshot("g1")
	if _, ok := snap["old"]; ok {
		t.Error("refresh must drop codes absent from the new list")
	}
	if snap["new"] != 1 {
		t.Errorf("expected new=1, got %v", snap)
	}
}

func BenchmarkInviteCacheSnapshot(b *testing.B) {
	c := NewInviteCache()
	invites := make([]models.InviteUse, 50)
	for i := range invites {
		invites[i] = models.InviteUse{Code: fmt.Sprintf("code%02d", i), Uses: i}
	}
	c.Refresh("g1", invites)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Snapshot("g1")
	}
}
