package postgres

import (
	"context"
	"strings"
)

// schemaStatements creates the tables used by Repository. Every statement is
// idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS asset_rights (
		asset_id               TEXT PRIMARY KEY,
		asset_name             TEXT NOT NULL DEFAULT '',
		holder_name            TEXT NOT NULL DEFAULT '',
		holder_contact_email   TEXT NOT NULL DEFAULT '',
		holder_contract_id     TEXT NOT NULL DEFAULT '',
		valid_from             TIMESTAMPTZ,
		valid_until            TIMESTAMPTZ,
		allowed_usage_types    TEXT[] NOT NULL DEFAULT '{}',
		restricted_usage_types TEXT[] NOT NULL DEFAULT '{}',
		territories_worldwide  BOOLEAN NOT NULL DEFAULT FALSE,
		allowed_territories    TEXT[] NOT NULL DEFAULT '{}',
		restricted_territories TEXT[] NOT NULL DEFAULT '{}',
		max_downloads          INTEGER CHECK (max_downloads >= 0),
		current_downloads      INTEGER NOT NULL DEFAULT 0 CHECK (current_downloads >= 0),
		requires_watermark     BOOLEAN NOT NULL DEFAULT FALSE,
		watermark_text         TEXT NOT NULL DEFAULT '',
		requires_approval      BOOLEAN NOT NULL DEFAULT FALSE,
		approver_roles         TEXT[] NOT NULL DEFAULT '{}',
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_by             TEXT NOT NULL DEFAULT '',
		CONSTRAINT asset_rights_validity CHECK (valid_from IS NULL OR valid_until IS NULL OR valid_from <= valid_until)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_asset_rights_valid_until ON asset_rights (valid_until) WHERE valid_until IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS asset (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS download_audit_log (
		id              UUID PRIMARY KEY,
		asset_id        TEXT NOT NULL,
		asset_name      TEXT NOT NULL DEFAULT '',
		downloaded_by   TEXT NOT NULL,
		downloaded_at   TIMESTAMPTZ NOT NULL,
		usage_type      TEXT NOT NULL DEFAULT '',
		territory       TEXT NOT NULL DEFAULT '',
		project_id      TEXT NOT NULL DEFAULT '',
		file_size_bytes BIGINT NOT NULL DEFAULT 0,
		file_format     TEXT NOT NULL DEFAULT '',
		file_resolution TEXT NOT NULL DEFAULT '',
		rights_snapshot JSONB NOT NULL DEFAULT '{}',
		ip_address      TEXT NOT NULL DEFAULT '',
		user_agent      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_download_audit_log_asset ON download_audit_log (asset_id, downloaded_at)`,
}

// Schema is the DDL applied by Migrate.
var Schema = strings.Join(schemaStatements, ";\n\n") + ";\n"

// Migrate creates the rights tables in the connection's search_path.
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return handlePostgresError("migrate", err)
		}
	}
	return nil
}
