package tracker

import "discord-invite-tracker/internal/models"

// resolveUsed diffs a guild's cached use counts against the freshly fetched
// invite list and returns the invite that was consumed. A code missing from
// the before snapshot counts as zero uses (a brand-new invite used
// immediately).
//
// When several invites show an increase in the same diff (simultaneous
// joins between two observations), the lexicographically smallest code wins.
// Platform list order is not stable across fetches, so it cannot be the
// tie-break; misattribution under simultaneous joins is still possible, but
// at least the same inputs always resolve the same way.
func resolveUsed(before map[string]int, after []models.InviteUse) (models.InviteUse, bool) {
	var used models.InviteUse
	found := false
	for _, inv := range after {
		if inv.Uses <= before[inv.Code] {
			continue
		}
		if !found || inv.Code < used.Code {
			used = inv
			found = true
		}
	}
	return used, found
}
