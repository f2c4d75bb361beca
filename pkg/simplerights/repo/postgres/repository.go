package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-rights/pkg/simplerights"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// txStarter is implemented by pools, connections and transactions.
type txStarter interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository implements simplerights.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplerights.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplerights.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "audit") {
				return fmt.Errorf("audit log entry already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23514": // check_violation
			return fmt.Errorf("%w: %s violates %s", simplerights.ErrInvalidRights, operation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const rightsColumns = `
	asset_id, asset_name, holder_name, holder_contact_email, holder_contract_id,
	valid_from, valid_until, allowed_usage_types, restricted_usage_types,
	territories_worldwide, allowed_territories, restricted_territories,
	max_downloads, current_downloads, requires_watermark, watermark_text,
	requires_approval, approver_roles, created_at, updated_at, created_by`

// Rights operations

func (r *Repository) PutRights(ctx context.Context, rights *simplerights.AssetRights) error {
	query := `
		INSERT INTO asset_rights (` + rightsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (asset_id) DO UPDATE SET
			asset_name = EXCLUDED.asset_name,
			holder_name = EXCLUDED.holder_name,
			holder_contact_email = EXCLUDED.holder_contact_email,
			holder_contract_id = EXCLUDED.holder_contract_id,
			valid_from = EXCLUDED.valid_from,
			valid_until = EXCLUDED.valid_until,
			allowed_usage_types = EXCLUDED.allowed_usage_types,
			restricted_usage_types = EXCLUDED.restricted_usage_types,
			territories_worldwide = EXCLUDED.territories_worldwide,
			allowed_territories = EXCLUDED.allowed_territories,
			restricted_territories = EXCLUDED.restricted_territories,
			max_downloads = EXCLUDED.max_downloads,
			current_downloads = EXCLUDED.current_downloads,
			requires_watermark = EXCLUDED.requires_watermark,
			watermark_text = EXCLUDED.watermark_text,
			requires_approval = EXCLUDED.requires_approval,
			approver_roles = EXCLUDED.approver_roles,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		rights.AssetID, rights.AssetName,
		rights.RightsHolder.Name, rights.RightsHolder.ContactEmail, rights.RightsHolder.ContractID,
		rights.ValidFrom, rights.ValidUntil,
		usageStrings(rights.AllowedUsageTypes), usageStrings(rights.RestrictedUsageTypes),
		rights.AllowedTerritories.IsWorldwide(),
		territoryStrings(rights.AllowedTerritories.Codes()), territoryStrings(rights.RestrictedTerritories),
		rights.MaxDownloads, rights.CurrentDownloads,
		rights.RequiresWatermark, rights.WatermarkText,
		rights.RequiresApproval, nonNilStrings(rights.ApproverRoles),
		rights.CreatedAt, rights.UpdatedAt, rights.CreatedBy)
	if err != nil {
		return handlePostgresError("put rights", err)
	}
	return nil
}

func (r *Repository) GetRights(ctx context.Context, assetID string) (*simplerights.AssetRights, error) {
	query := `SELECT ` + rightsColumns + ` FROM asset_rights WHERE asset_id = $1`

	rights, err := scanRights(r.db.QueryRow(ctx, query, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplerights.ErrRightsNotFound
		}
		return nil, handlePostgresError("get rights", err)
	}
	return rights, nil
}

func (r *Repository) DeleteRights(ctx context.Context, assetID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM asset_rights WHERE asset_id = $1`, assetID)
	if err != nil {
		return handlePostgresError("delete rights", err)
	}
	if tag.RowsAffected() == 0 {
		return simplerights.ErrRightsNotFound
	}
	return nil
}

func (r *Repository) ListRights(ctx context.Context, filter simplerights.ListRightsFilter) ([]*simplerights.AssetRights, error) {
	query := `SELECT ` + rightsColumns + ` FROM asset_rights ORDER BY asset_id`
	args := []interface{}{}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("list rights", err)
	}
	defer rows.Close()

	result := make([]*simplerights.AssetRights, 0)
	for rows.Next() {
		rights, err := scanRights(rows)
		if err != nil {
			return nil, handlePostgresError("scan rights", err)
		}
		result = append(result, rights)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list rights", err)
	}
	return result, nil
}

// Asset catalog operations

func (r *Repository) PutAsset(ctx context.Context, asset simplerights.Asset) error {
	query := `
		INSERT INTO asset (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

	if _, err := r.db.Exec(ctx, query, asset.ID, asset.Name); err != nil {
		return handlePostgresError("put asset", err)
	}
	return nil
}

func (r *Repository) ListAssets(ctx context.Context) ([]simplerights.Asset, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM asset ORDER BY id`)
	if err != nil {
		return nil, handlePostgresError("list assets", err)
	}
	defer rows.Close()

	result := make([]simplerights.Asset, 0)
	for rows.Next() {
		var a simplerights.Asset
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, handlePostgresError("scan asset", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list assets", err)
	}
	return result, nil
}

// Audit log operations

const auditColumns = `
	id, asset_id, asset_name, downloaded_by, downloaded_at, usage_type, territory,
	project_id, file_size_bytes, file_format, file_resolution, rights_snapshot,
	ip_address, user_agent`

func (r *Repository) RecordDownload(ctx context.Context, entry *simplerights.DownloadAuditLog) error {
	record := func(db DBTX) error {
		tag, err := db.Exec(ctx, `
			UPDATE asset_rights SET current_downloads = current_downloads + 1
			WHERE asset_id = $1 AND (max_downloads IS NULL OR current_downloads < max_downloads)`,
			entry.AssetID)
		if err != nil {
			return handlePostgresError("increment downloads", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := db.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM asset_rights WHERE asset_id = $1)`,
				entry.AssetID).Scan(&exists); err != nil {
				return handlePostgresError("increment downloads", err)
			}
			if exists {
				return simplerights.ErrQuotaExhausted
			}
			return simplerights.ErrRightsNotFound
		}
		return insertAuditLog(ctx, db, entry)
	}

	starter, ok := r.db.(txStarter)
	if !ok {
		return record(r.db)
	}
	return pgx.BeginFunc(ctx, starter, func(tx pgx.Tx) error {
		return record(tx)
	})
}

func (r *Repository) ListAuditLogs(ctx context.Context, filter simplerights.AuditLogFilter) ([]*simplerights.DownloadAuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM download_audit_log`
	args := []interface{}{}
	if filter.AssetID != "" {
		args = append(args, filter.AssetID)
		query += " WHERE asset_id = $1"
	}
	query += " ORDER BY downloaded_at, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("list audit logs", err)
	}
	defer rows.Close()

	result := make([]*simplerights.DownloadAuditLog, 0)
	for rows.Next() {
		var (
			entry    simplerights.DownloadAuditLog
			usage    string
			terr     string
			snapshot []byte
		)
		err := rows.Scan(&entry.ID, &entry.AssetID, &entry.AssetName, &entry.DownloadedBy,
			&entry.DownloadedAt, &usage, &terr, &entry.ProjectID,
			&entry.File.SizeBytes, &entry.File.Format, &entry.File.Resolution, &snapshot,
			&entry.IPAddress, &entry.UserAgent)
		if err != nil {
			return nil, handlePostgresError("scan audit log", err)
		}
		entry.UsageType = simplerights.UsageType(usage)
		entry.Territory = simplerights.Territory(terr)
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &entry.RightsSnapshot); err != nil {
				return nil, fmt.Errorf("failed to decode rights snapshot for %s: %w", entry.ID, err)
			}
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list audit logs", err)
	}
	return result, nil
}

func insertAuditLog(ctx context.Context, db DBTX, entry *simplerights.DownloadAuditLog) error {
	snapshot, err := json.Marshal(entry.RightsSnapshot)
	if err != nil {
		return fmt.Errorf("failed to encode rights snapshot: %w", err)
	}

	query := `
		INSERT INTO download_audit_log (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = db.Exec(ctx, query,
		entry.ID, entry.AssetID, entry.AssetName, entry.DownloadedBy, entry.DownloadedAt,
		string(entry.UsageType), string(entry.Territory), entry.ProjectID,
		entry.File.SizeBytes, entry.File.Format, entry.File.Resolution, snapshot,
		entry.IPAddress, entry.UserAgent)
	if err != nil {
		return handlePostgresError("append audit log", err)
	}
	return nil
}

func scanRights(row pgx.Row) (*simplerights.AssetRights, error) {
	var (
		rights                   simplerights.AssetRights
		allowedUsage, restricted []string
		worldwide                bool
		allowedTerr, restrTerr   []string
	)
	err := row.Scan(
		&rights.AssetID, &rights.AssetName,
		&rights.RightsHolder.Name, &rights.RightsHolder.ContactEmail, &rights.RightsHolder.ContractID,
		&rights.ValidFrom, &rights.ValidUntil,
		&allowedUsage, &restricted,
		&worldwide, &allowedTerr, &restrTerr,
		&rights.MaxDownloads, &rights.CurrentDownloads,
		&rights.RequiresWatermark, &rights.WatermarkText,
		&rights.RequiresApproval, &rights.ApproverRoles,
		&rights.CreatedAt, &rights.UpdatedAt, &rights.CreatedBy)
	if err != nil {
		return nil, err
	}

	rights.AllowedUsageTypes = toUsages(allowedUsage)
	rights.RestrictedUsageTypes = toUsages(restricted)
	if worldwide {
		rights.AllowedTerritories = simplerights.Worldwide()
	} else {
		rights.AllowedTerritories = simplerights.Territories(toTerritories(allowedTerr)...)
	}
	rights.RestrictedTerritories = toTerritories(restrTerr)
	return &rights, nil
}

func usageStrings(list []simplerights.UsageType) []string {
	out := make([]string, len(list))
	for i, u := range list {
		out[i] = string(u)
	}
	return out
}

func territoryStrings(list []simplerights.Territory) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = string(t)
	}
	return out
}

func nonNilStrings(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func toUsages(list []string) []simplerights.UsageType {
	out := make([]simplerights.UsageType, len(list))
	for i, s := range list {
		out[i] = simplerights.UsageType(s)
	}
	return out
}

func toTerritories(list []string) []simplerights.Territory {
	out := make([]simplerights.Territory, len(list))
	for i, s := range list {
		out[i] = simplerights.Territory(s)
	}
	return out
}
