package postgres

import (
	"context"
)

// migrations are applied in order; each runs once and is recorded in
// schema_migrations. Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS galleries (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id    UUID NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		invite_only BOOLEAN NOT NULL DEFAULT FALSE,
		deleted_at  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id            UUID PRIMARY KEY,
		gallery_id    UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
		owner_id      UUID NOT NULL,
		original_name TEXT NOT NULL,
		storage_type  TEXT NOT NULL,
		variants      JSONB NOT NULL,
		metadata      JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_photos_gallery ON photos (gallery_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS share_links (
		id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		token             TEXT NOT NULL,
		gallery_id        UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
		owner_id          UUID NOT NULL,
		password_hash     TEXT,
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at        TIMESTAMPTZ,
		max_views         INTEGER CHECK (max_views IS NULL OR max_views >= 0),
		permissions       JSONB NOT NULL DEFAULT '{}'::jsonb,
		total_views       INTEGER NOT NULL DEFAULT 0,
		unique_views      INTEGER NOT NULL DEFAULT 0,
		first_accessed_at TIMESTAMPTZ,
		last_accessed_at  TIMESTAMPTZ,
		access_log        JSONB NOT NULL DEFAULT '[]'::jsonb,
		deleted_at        TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_share_links_token ON share_links (token)`,
	`CREATE INDEX IF NOT EXISTS idx_share_links_gallery ON share_links (gallery_id) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS invitations (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code            TEXT NOT NULL,
		gallery_id      UUID NOT NULL REFERENCES galleries(id) ON DELETE CASCADE,
		owner_id        UUID NOT NULL,
		recipient_email TEXT NOT NULL DEFAULT '',
		recipient_name  TEXT NOT NULL DEFAULT '',
		active          BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at      TIMESTAMPTZ,
		max_uses        INTEGER CHECK (max_uses IS NULL OR max_uses >= 0),
		current_uses    INTEGER NOT NULL DEFAULT 0,
		first_used_at   TIMESTAMPTZ,
		last_used_at    TIMESTAMPTZ,
		usage_log       JSONB NOT NULL DEFAULT '[]'::jsonb,
		deleted_at      TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_invitations_code ON invitations (code)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_gallery ON invitations (gallery_id) WHERE deleted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id            UUID PRIMARY KEY,
		event_type    TEXT NOT NULL,
		actor_type    TEXT NOT NULL,
		actor_id      UUID,
		resource_type TEXT NOT NULL,
		resource_id   UUID,
		action        TEXT NOT NULL,
		status        TEXT NOT NULL,
		ip_address    TEXT NOT NULL DEFAULT '',
		user_agent    TEXT NOT NULL DEFAULT '',
		request_id    TEXT NOT NULL DEFAULT '',
		metadata      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events (resource_type, resource_id, created_at)`,
}

// Tables lists the tables created by Migrate.
var Tables = []string{"galleries", "photos", "share_links", "invitations", "audit_events"}

// Migrate applies pending schema migrations inside one transaction.
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return errFailedMigrate(0, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return errFailedMigrate(0, err)
	}

	var current int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return errFailedMigrate(0, err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		if _, err := tx.Exec(ctx, migrations[i]); err != nil {
			return errFailedMigrate(version, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return errFailedMigrate(version, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errFailedMigrate(len(migrations), err)
	}
	return nil
}
