package postgres

import (
	"context"
	"encoding/json"
	"time"

	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const shareLinkColumns = `id, token, gallery_id, owner_id, password_hash, active, expires_at, max_views,
	permissions, total_views, unique_views, first_accessed_at, last_accessed_at, access_log,
	deleted_at, created_at, updated_at`

type ShareLinkRepository struct {
	db *DB
}

func NewShareLinkRepository(db *DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

func scanShareLink(row pgx.Row) (*share.ShareLink, error) {
	link := &share.ShareLink{}
	var passwordHash *string
	err := row.Scan(
		&link.ID,
		&link.Token,
		&link.GalleryID,
		&link.OwnerID,
		&passwordHash,
		&link.Active,
		&link.ExpiresAt,
		&link.MaxViews,
		&link.Permissions,
		&link.Stats.TotalViews,
		&link.Stats.UniqueViews,
		&link.Stats.FirstAccessedAt,
		&link.Stats.LastAccessedAt,
		&link.AccessLog,
		&link.DeletedAt,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if passwordHash != nil {
		link.PasswordHash = *passwordHash
	}
	return link, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *ShareLinkRepository) Create(ctx context.Context, input share.CreateShareLinkInput) (*share.ShareLink, error) {
	permissions, err := json.Marshal(input.Permissions)
	if err != nil {
		return nil, errFailedCreateShareLink(err)
	}

	query := `
		INSERT INTO share_links (token, gallery_id, owner_id, password_hash, expires_at, max_views, permissions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + shareLinkColumns

	link, err := scanShareLink(r.db.Pool.QueryRow(ctx, query,
		input.Token,
		input.GalleryID,
		input.OwnerID,
		nullableString(input.PasswordHash),
		input.ExpiresAt,
		input.MaxViews,
		permissions,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("share token already exists")
		}
		return nil, errFailedCreateShareLink(err)
	}

	return link, nil
}

func (r *ShareLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*share.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE id = $1 AND deleted_at IS NULL`

	link, err := scanShareLink(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareLinkNotFound)
		}
		return nil, errFailedGetShareLink(err)
	}

	return link, nil
}

func (r *ShareLinkRepository) GetByToken(ctx context.Context, token string) (*share.ShareLink, error) {
	query := `SELECT ` + shareLinkColumns + ` FROM share_links WHERE token = $1 AND deleted_at IS NULL`

	link, err := scanShareLink(r.db.Pool.QueryRow(ctx, query, token))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareLinkNotFound)
		}
		return nil, errFailedGetShareLinkByToken(err)
	}

	return link, nil
}

// TokenExists includes soft-deleted rows; the unique index covers them too.
func (r *ShareLinkRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM share_links WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, errFailedCheckShareToken(err)
	}
	return exists, nil
}

func (r *ShareLinkRepository) ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*share.ShareLink, error) {
	query := `
		SELECT ` + shareLinkColumns + `
		FROM share_links WHERE gallery_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, galleryID)
	if err != nil {
		return nil, errFailedListShareLinks(err)
	}
	defer rows.Close()

	links := make([]*share.ShareLink, 0)
	for rows.Next() {
		link, err := scanShareLink(rows)
		if err != nil {
			return nil, errFailedScanShareLink(err)
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func (r *ShareLinkRepository) Update(ctx context.Context, id uuid.UUID, input share.UpdateShareLinkInput) (*share.ShareLink, error) {
	var permissions []byte
	if input.Permissions != nil {
		encoded, err := json.Marshal(input.Permissions)
		if err != nil {
			return nil, errFailedUpdateShareLink(err)
		}
		permissions = encoded
	}

	query := `
		UPDATE share_links SET
			active        = COALESCE($2, active),
			expires_at    = CASE WHEN $3::boolean THEN NULL ELSE COALESCE($4, expires_at) END,
			max_views     = CASE WHEN $5::boolean THEN NULL ELSE COALESCE($6, max_views) END,
			password_hash = CASE WHEN $7::boolean THEN NULL ELSE COALESCE($8, password_hash) END,
			permissions   = COALESCE($9::jsonb, permissions),
			updated_at    = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + shareLinkColumns

	link, err := scanShareLink(r.db.Pool.QueryRow(ctx, query,
		id,
		input.Active,
		input.ClearExpiry,
		input.ExpiresAt,
		input.ClearMaxViews,
		input.MaxViews,
		input.ClearPassword,
		input.PasswordHash,
		permissions,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errShareLinkNotFound)
		}
		return nil, errFailedUpdateShareLink(err)
	}

	return link, nil
}

func (r *ShareLinkRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE share_links SET deleted_at = NOW(), active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errFailedDeleteShareLink(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errShareLinkNotFound)
	}

	return nil
}

// recordShareAccessQuery evaluates every SET expression against the pre-update
// row, so dedup looks at the log before the new entry is appended.
const recordShareAccessQuery = `
	UPDATE share_links SET
		total_views = total_views + 1,
		unique_views = unique_views + CASE WHEN EXISTS (
			SELECT 1 FROM jsonb_array_elements(access_log) AS prior(entry)
			WHERE prior.entry->>'ip' = $2
			  AND (prior.entry->>'accessedAt')::timestamptz > $3
		) THEN 0 ELSE 1 END,
		first_accessed_at = COALESCE(first_accessed_at, $4),
		last_accessed_at = $4,
		access_log = (
			SELECT COALESCE(jsonb_agg(kept.entry ORDER BY kept.ord), '[]'::jsonb)
			FROM (
				SELECT log.entry, log.ord
				FROM jsonb_array_elements(access_log || jsonb_build_array($5::jsonb)) WITH ORDINALITY AS log(entry, ord)
				ORDER BY log.ord DESC
				LIMIT $6
			) AS kept
		),
		updated_at = $4
	WHERE id = $1
	  AND deleted_at IS NULL
	  AND (max_views IS NULL OR total_views < max_views)
	RETURNING total_views, unique_views, first_accessed_at, last_accessed_at
`

func (r *ShareLinkRepository) RecordAccess(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*share.Stats, error) {
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, errFailedEncodeAccessLogEntry(err)
	}

	stats := &share.Stats{}
	err = r.db.Pool.QueryRow(ctx, recordShareAccessQuery,
		id,
		entry.IP,
		entry.AccessedAt.Add(-share.UniqueViewWindow),
		entry.AccessedAt,
		encoded,
		share.MaxAccessLogEntries,
	).Scan(&stats.TotalViews, &stats.UniqueViews, &stats.FirstAccessedAt, &stats.LastAccessedAt)
	if err == nil {
		return stats, nil
	}
	if !isNoRows(err) {
		return nil, errFailedRecordShareAccess(err)
	}

	// The conditional update matched nothing: either the link vanished or
	// the quota was consumed by a concurrent request.
	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM share_links WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&exists); err != nil {
		return nil, errFailedRecordShareAccess(err)
	}
	if !exists {
		return nil, apperrors.NotFound(errShareLinkNotFound)
	}
	return nil, apperrors.ErrQuotaExhausted
}
