package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Mint store (SQLite).
var Migrations = migrate.NewGroup("mint")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_mint_assets",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mint_assets (
    id               TEXT PRIMARY KEY,
    creator_id       TEXT NOT NULL DEFAULT '',
    code             TEXT NOT NULL,
    issuer           TEXT NOT NULL,
    storage_account  TEXT NOT NULL DEFAULT '',
    limit_amount     INTEGER NOT NULL DEFAULT 0,
    limit_unit       TEXT NOT NULL DEFAULT '',
    home_domain      TEXT NOT NULL DEFAULT '',
    content_pointer  TEXT NOT NULL DEFAULT '',
    clawback_enabled INTEGER NOT NULL DEFAULT 0,
    issuer_locked    INTEGER NOT NULL DEFAULT 0,
    state            TEXT NOT NULL DEFAULT 'uninitialized',
    issuance_hash    TEXT NOT NULL DEFAULT '',
    redemptions      INTEGER NOT NULL DEFAULT 0,
    clawbacks        INTEGER NOT NULL DEFAULT 0,
    activated_at     TEXT,
    metadata         TEXT NOT NULL DEFAULT '{}',
    created_at       TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at       TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_assets_code_issuer ON mint_assets (code, issuer);
CREATE INDEX IF NOT EXISTS idx_mint_assets_creator ON mint_assets (creator_id, state);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mint_assets`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_mint_keypairs",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mint_keypairs (
    id            TEXT PRIMARY KEY,
    role          TEXT NOT NULL,
    owner_id      TEXT NOT NULL DEFAULT '',
    public_key    TEXT NOT NULL,
    sealed_secret BLOB NOT NULL,
    retired       INTEGER NOT NULL DEFAULT 0,
    retired_at    TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_keypairs_public_key ON mint_keypairs (public_key);
CREATE INDEX IF NOT EXISTS idx_mint_keypairs_owner_role ON mint_keypairs (owner_id, role);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mint_keypairs`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_mint_subscriptions",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mint_subscriptions (
    id                   TEXT PRIMARY KEY,
    fan_account          TEXT NOT NULL,
    creator_id           TEXT NOT NULL DEFAULT '',
    creator_account      TEXT NOT NULL DEFAULT '',
    asset_id             TEXT NOT NULL DEFAULT '',
    tier                 TEXT NOT NULL DEFAULT '',
    price_amount         INTEGER NOT NULL DEFAULT 0,
    price_unit           TEXT NOT NULL DEFAULT '',
    period_ns            INTEGER NOT NULL DEFAULT 0,
    status               TEXT NOT NULL DEFAULT 'pending',
    current_period_start TEXT NOT NULL DEFAULT (datetime('now')),
    current_period_end   TEXT NOT NULL DEFAULT (datetime('now')),
    renewed_at           TEXT,
    canceled_at          TEXT,
    tx_hash              TEXT NOT NULL DEFAULT '',
    metadata             TEXT NOT NULL DEFAULT '{}',
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_mint_subs_fan ON mint_subscriptions (fan_account, status);
CREATE INDEX IF NOT EXISTS idx_mint_subs_creator ON mint_subscriptions (creator_id);
CREATE INDEX IF NOT EXISTS idx_mint_subs_due ON mint_subscriptions (status, current_period_end);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mint_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_mint_vanities",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mint_vanities (
    id         TEXT PRIMARY KEY,
    slug       TEXT NOT NULL,
    owner_id   TEXT NOT NULL DEFAULT '',
    status     TEXT NOT NULL DEFAULT 'active',
    expires_at TEXT NOT NULL,
    renewed_at TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_vanities_slug ON mint_vanities (slug);
CREATE INDEX IF NOT EXISTS idx_mint_vanities_due ON mint_vanities (status, expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mint_vanities`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_mint_intents",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS mint_intents (
    id              TEXT PRIMARY KEY,
    hash            TEXT NOT NULL,
    kind            TEXT NOT NULL,
    source          TEXT NOT NULL DEFAULT '',
    asset_id        TEXT NOT NULL DEFAULT '',
    subscription_id TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'pending',
    reason          TEXT NOT NULL DEFAULT '',
    confirmed_at    TEXT,
    ledger          INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mint_intents_hash ON mint_intents (hash);
CREATE INDEX IF NOT EXISTS idx_mint_intents_pending ON mint_intents (status, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS mint_intents`)
				return err
			},
		},
	)
}
