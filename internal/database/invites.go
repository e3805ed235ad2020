package database

import (
	"context"
	"database/sql"
	"fmt"

	"discord-invite-tracker/internal/models"
)

// Invite link operations

func (d *Database) SaveInviteLink(ctx context.Context, link models.InviteLink) error {
	query := `
		INSERT INTO invite_links (guild_id, code, creator_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(guild_id, code) DO UPDATE SET
			creator_id = EXCLUDED.creator_id,
			created_at = EXCLUDED.created_at
	`
	_, err := d.db.ExecContext(ctx, query, link.GuildID, link.Code, link.CreatorID, link.CreatedAt)
	return err
}

// InviteCreator returns the recorded creator of an invite code, or false if
// the code was never registered through the bot.
func (d *Database) InviteCreator(ctx context.Context, guildID, code string) (string, bool, error) {
	var creatorID string
	err := d.PreparedStmts.getCreator.QueryRowContext(ctx, guildID, code).Scan(&creatorID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return creatorID, true, nil
}

// Attribution operations

func (d *Database) PutAttribution(ctx context.Context, rec models.Attribution) error {
	query := `
		INSERT INTO invite_map (guild_id, invitee_id, inviter_id, used_code, valid_account, members_awarded, striker_awarded)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
		ON CONFLICT(guild_id, invitee_id) DO UPDATE SET
			inviter_id = EXCLUDED.inviter_id,
			used_code = EXCLUDED.used_code,
			valid_account = EXCLUDED.valid_account,
			members_awarded = FALSE,
			striker_awarded = FALSE
	`
	_, err := d.db.ExecContext(ctx, query,
		rec.GuildID, rec.InviteeID, rec.InviterID, rec.UsedCode, rec.ValidAccount)
	return err
}

// Attribution returns the attribution record for an invitee, or nil if the
// invitee has never been attributed.
func (d *Database) Attribution(ctx context.Context, guildID, inviteeID string) (*models.Attribution, error) {
	rec := models.Attribution{GuildID: guildID, InviteeID: inviteeID}
	err := d.PreparedStmts.getAttribution.QueryRowContext(ctx, guildID, inviteeID).Scan(
		&rec.InviterID, &rec.UsedCode, &rec.ValidAccount, &rec.MembersAwarded, &rec.StrikerAwarded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// awardColumn maps an award kind to its flag column. Kinds are a closed set,
// so this never interpolates caller input into SQL.
func awardColumn(kind models.AwardKind) (string, error) {
	switch kind {
	case models.AwardMembers:
		return "members_awarded", nil
	case models.AwardStriker:
		return "striker_awarded", nil
	default:
		return "", fmt.Errorf("unknown award kind %q", kind)
	}
}

// GrantAward flips the flag for (invitee, kind) from false to true and
// credits delta points to the attributed inviter in the same transaction.
// Returns applied=false without mutating anything when the guard fails:
// flag already set, account invalid, or no attribution on record.
func (d *Database) GrantAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (bool, string, int64, error) {
	col, err := awardColumn(kind)
	if err != nil {
		return false, "", 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, "", 0, err
	}
	defer tx.Rollback()

	flip := fmt.Sprintf(`
		UPDATE invite_map SET %s = TRUE
		WHERE guild_id = $1 AND invitee_id = $2
			AND %s = FALSE AND valid_account = TRUE AND inviter_id <> ''
		RETURNING inviter_id
	`, col, col)

	var inviterID string
	err = tx.QueryRowContext(ctx, flip, guildID, inviteeID).Scan(&inviterID)
	if err == sql.ErrNoRows {
		return false, "", 0, nil
	}
	if err != nil {
		return false, "", 0, err
	}

	newTotal, err := addPointsTx(ctx, tx, guildID, inviterID, delta)
	if err != nil {
		return false, "", 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, "", 0, err
	}
	return true, inviterID, newTotal, nil
}

// RevokeAward is the inverse transition: flag true -> false plus a negative
// ledger delta, in one transaction. No-op when the flag was not set.
func (d *Database) RevokeAward(ctx context.Context, guildID, inviteeID string, kind models.AwardKind, delta int64) (bool, string, int64, error) {
	col, err := awardColumn(kind)
	if err != nil {
		return false, "", 0, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return false, "", 0, err
	}
	defer tx.Rollback()

	flip := fmt.Sprintf(`
		UPDATE invite_map SET %s = FALSE
		WHERE guild_id = $1 AND invitee_id = $2 AND %s = TRUE
		RETURNING inviter_id
	`, col, col)

	var inviterID string
	err = tx.QueryRowContext(ctx, flip, guildID, inviteeID).Scan(&inviterID)
	if err == sql.ErrNoRows {
		return false, "", 0, nil
	}
	if err != nil {
		return false, "", 0, err
	}

	newTotal, err := addPointsTx(ctx, tx, guildID, inviterID, -delta)
	if err != nil {
		return false, "", 0, err
	}

	if err := tx.Commit(); err != nil {
		return false, "", 0, err
	}
	return true, inviterID, newTotal, nil
}

// RemoveInvitee revokes whatever awards are still outstanding for the
// invitee and deletes the attribution row, all in one transaction, so a
// rejoin starts clean and no credit survives the member leaving.
func (d *Database) RemoveInvitee(ctx context.Context, guildID, inviteeID string, membersWeight, strikerWeight int64) (int64, string, int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", 0, err
	}
	defer tx.Rollback()

	var inviterID string
	var membersAwarded, strikerAwarded bool
	err = tx.QueryRowContext(ctx, `
		SELECT inviter_id, members_awarded, striker_awarded
		FROM invite_map WHERE guild_id = $1 AND invitee_id = $2
		FOR UPDATE
	`, guildID, inviteeID).Scan(&inviterID, &membersAwarded, &strikerAwarded)
	if err == sql.ErrNoRows {
		return 0, "", 0, nil
	}
	if err != nil {
		return 0, "", 0, err
	}

	var revoked, newTotal int64
	if membersAwarded {
		revoked += membersWeight
	}
	if strikerAwarded {
		revoked += strikerWeight
	}
	if revoked != 0 && inviterID != "" {
		newTotal, err = addPointsTx(ctx, tx, guildID, inviterID, -revoked)
		if err != nil {
			return 0, "", 0, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM invite_map WHERE guild_id = $1 AND invitee_id = $2", guildID, inviteeID); err != nil {
		return 0, "", 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, "", 0, err
	}
	return revoked, inviterID, newTotal, nil
}
