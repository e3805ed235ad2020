package database

import (
	"context"
	"database/sql"

	"discord-invite-tracker/internal/models"
)

// addPointsTx applies a point delta inside an open transaction, creating the
// ledger row lazily at 0, and returns the new total.
func addPointsTx(ctx context.Context, tx *sql.Tx, guildID, userID string, delta int64) (int64, error) {
	query := `
		INSERT INTO inviters (guild_id, user_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			points = inviters.points + $3
		RETURNING points
	`
	var newTotal int64
	err := tx.QueryRowContext(ctx, query, guildID, userID, delta).Scan(&newTotal)
	return newTotal, err
}

// AddPoints applies a delta directly, bypassing award-flag gating. Used by
// the admin override path only; role transitions go through GrantAward and
// RevokeAward.
func (d *Database) AddPoints(ctx context.Context, guildID, userID string, delta int64) (int64, error) {
	query := `
		INSERT INTO inviters (guild_id, user_id, points)
		VALUES ($1, $2, $3)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			points = inviters.points + $3
		RETURNING points
	`
	var newTotal int64
	err := d.db.QueryRowContext(ctx, query, guildID, userID, delta).Scan(&newTotal)
	return newTotal, err
}

func (d *Database) Points(ctx context.Context, guildID, userID string) (int64, error) {
	var points int64
	err := d.PreparedStmts.getPoints.QueryRowContext(ctx, guildID, userID).Scan(&points)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return points, err
}

// TopInviters returns up to n standings, descending by points. Ties are
// broken by ledger-row creation order so repeated reads are stable.
func (d *Database) TopInviters(ctx context.Context, guildID string, n int) ([]models.Standing, error) {
	query := `
		SELECT user_id, points FROM inviters
		WHERE guild_id = $1
		ORDER BY points DESC, seq ASC
		LIMIT $2
	`
	rows, err := d.db.QueryContext(ctx, query, guildID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []models.Standing
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.UserID, &s.Points); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

// ResetPoints zeroes the competition by deleting all ledger rows for the
// guild. Attribution history is untouched; see ClearGuild for the full wipe.
func (d *Database) ResetPoints(ctx context.Context, guildID string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM inviters WHERE guild_id = $1", guildID)
	return err
}

// ClearGuild wipes every collection for the guild in one transaction: invite
// links, attributions, ledger rows and the audit log. Concurrent award
// transactions serialize against this, so none is half-applied across the
// wipe boundary.
func (d *Database) ClearGuild(ctx context.Context, guildID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"invite_links", "invite_map", "inviters", "point_audit"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE guild_id = $1", guildID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *Database) AppendAudit(ctx context.Context, guildID, actorID, action, payload string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO point_audit (guild_id, actor_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, guildID, actorID, action, payload, models.Now())
	return err
}
