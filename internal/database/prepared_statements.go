package database

import (
	"database/sql"
	"fmt"
)

// PreparedStatements holds the statements on the join/role-update hot path.
// Every member join costs one creator lookup and one attribution read, and
// every role update costs one attribution read, so these are precompiled.
type PreparedStatements struct {
	db *sql.DB

	getCreator     *sql.Stmt
	getAttribution *sql.Stmt
	getPoints      *sql.Stmt
}

func (d *Database) InitPreparedStatements() error {
	d.PreparedStmts = &PreparedStatements{db: d.db}

	var err error

	d.PreparedStmts.getCreator, err = d.db.Prepare(`
		SELECT creator_id FROM invite_links WHERE guild_id = $1 AND code = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare getCreator: %w", err)
	}

	d.PreparedStmts.getAttribution, err = d.db.Prepare(`
		SELECT inviter_id, used_code, valid_account, members_awarded, striker_awarded
		FROM invite_map WHERE guild_id = $1 AND invitee_id = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare getAttribution: %w", err)
	}

	d.PreparedStmts.getPoints, err = d.db.Prepare(`
		SELECT points FROM inviters WHERE guild_id = $1 AND user_id = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare getPoints: %w", err)
	}

	return nil
}

func (d *Database) ClosePreparedStatements() {
	if d.PreparedStmts == nil {
		return
	}
	for _, stmt := range []*sql.Stmt{
		d.PreparedStmts.getCreator,
		d.PreparedStmts.getAttribution,
		d.PreparedStmts.getPoints,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
}
