package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

type Database struct {
	db               *sql.DB
	PreparedPingStmt *sql.Stmt
	PreparedStmts    *PreparedStatements
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

const schema = `
-- Personal invite links minted through the bot
CREATE TABLE IF NOT EXISTS invite_links (
    guild_id TEXT NOT NULL,
    code TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    PRIMARY KEY (guild_id, code)
);

-- Invitee -> inviter attribution with award flags
CREATE TABLE IF NOT EXISTS invite_map (
    guild_id TEXT NOT NULL,
    invitee_id TEXT NOT NULL,
    inviter_id TEXT NOT NULL,
    used_code TEXT NOT NULL DEFAULT '',
    valid_account BOOLEAN NOT NULL DEFAULT FALSE,
    members_awarded BOOLEAN NOT NULL DEFAULT FALSE,
    striker_awarded BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (guild_id, invitee_id)
);

-- Point ledger, one row per inviter who ever received or lost points.
-- seq fixes leaderboard tie order to row creation order.
CREATE TABLE IF NOT EXISTS inviters (
    guild_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    points BIGINT NOT NULL DEFAULT 0,
    seq BIGSERIAL,
    PRIMARY KEY (guild_id, user_id)
);

-- Append-only log of admin overrides and resets
CREATE TABLE IF NOT EXISTS point_audit (
    id BIGSERIAL PRIMARY KEY,
    guild_id TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    action TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invite_links_creator ON invite_links(guild_id, creator_id);
CREATE INDEX IF NOT EXISTS idx_invite_map_inviter ON invite_map(guild_id, inviter_id);
CREATE INDEX IF NOT EXISTS idx_inviters_points ON inviters(guild_id, points DESC, seq ASC);
CREATE INDEX IF NOT EXISTS idx_point_audit_guild ON point_audit(guild_id);
`

func NewDatabase(cfg PostgresConfig) (*Database, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(1 * time.Hour)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	pingStmt, err := db.Prepare("SELECT 1")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare ping statement: %w", err)
	}

	d := &Database{
		db:               db,
		PreparedPingStmt: pingStmt,
	}

	if err := d.InitPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to init prepared statements: %w", err)
	}

	return d, nil
}

func (d *Database) Close() error {
	if d.PreparedPingStmt != nil {
		d.PreparedPingStmt.Close()
	}
	d.ClosePreparedStatements()
	return d.db.Close()
}

func (d *Database) Ping() error {
	var err error
	if d.PreparedPingStmt != nil {
		var result int
		err = d.PreparedPingStmt.QueryRow().Scan(&result)
	} else {
		err = d.db.Ping()
	}
	return err
}
