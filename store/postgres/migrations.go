package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Mint store.
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
    limit_amount     BIGINT NOT NULL DEFAULT 0,
    limit_unit       TEXT NOT NULL DEFAULT '',
    home_domain      TEXT NOT NULL DEFAULT '',
    content_pointer  TEXT NOT NULL DEFAULT '',
    clawback_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    issuer_locked    BOOLEAN NOT NULL DEFAULT FALSE,
    state            TEXT NOT NULL DEFAULT 'uninitialized',
    issuance_hash    TEXT NOT NULL DEFAULT '',
    redemptions      BIGINT NOT NULL DEFAULT 0,
    clawbacks        BIGINT NOT NULL DEFAULT 0,
    activated_at     TIMESTAMPTZ,
    metadata         JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    sealed_secret BYTEA NOT NULL,
    retired       BOOLEAN NOT NULL DEFAULT FALSE,
    retired_at    TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    price_amount         BIGINT NOT NULL DEFAULT 0,
    price_unit           TEXT NOT NULL DEFAULT '',
    period_ns            BIGINT NOT NULL DEFAULT 0,
    status               TEXT NOT NULL DEFAULT 'pending',
    current_period_start TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    current_period_end   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    renewed_at           TIMESTAMPTZ,
    canceled_at          TIMESTAMPTZ,
    tx_hash              TEXT NOT NULL DEFAULT '',
    metadata             JSONB NOT NULL DEFAULT '{}',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    expires_at TIMESTAMPTZ NOT NULL,
    renewed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    confirmed_at    TIMESTAMPTZ,
    ledger          INT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
