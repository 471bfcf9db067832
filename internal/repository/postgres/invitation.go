package postgres

import (
	"context"
	"encoding/json"
	"time"

	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invitationColumns = `id, code, gallery_id, owner_id, recipient_email, recipient_name, active,
	expires_at, max_uses, current_uses, first_used_at, last_used_at, usage_log,
	deleted_at, created_at, updated_at`

type InvitationRepository struct {
	db *DB
}

func NewInvitationRepository(db *DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func scanInvitation(row pgx.Row) (*invitation.Invitation, error) {
	inv := &invitation.Invitation{}
	err := row.Scan(
		&inv.ID,
		&inv.Code,
		&inv.GalleryID,
		&inv.OwnerID,
		&inv.RecipientEmail,
		&inv.RecipientName,
		&inv.Active,
		&inv.ExpiresAt,
		&inv.MaxUses,
		&inv.CurrentUses,
		&inv.FirstUsedAt,
		&inv.LastUsedAt,
		&inv.UsageLog,
		&inv.DeletedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvitationRepository) Create(ctx context.Context, input invitation.CreateInvitationInput) (*invitation.Invitation, error) {
	query := `
		INSERT INTO invitations (code, gallery_id, owner_id, recipient_email, recipient_name, expires_at, max_uses)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + invitationColumns

	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, query,
		input.Code,
		input.GalleryID,
		input.OwnerID,
		input.RecipientEmail,
		input.RecipientName,
		input.ExpiresAt,
		input.MaxUses,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("invitation code already exists")
		}
		return nil, errFailedCreateInvitation(err)
	}

	return inv, nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1 AND deleted_at IS NULL`

	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errInvitationNotFound)
		}
		return nil, errFailedGetInvitation(err)
	}

	return inv, nil
}

func (r *InvitationRepository) GetByCode(ctx context.Context, code string) (*invitation.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE code = $1 AND deleted_at IS NULL`

	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errInvitationNotFound)
		}
		return nil, errFailedGetInvitationByCode(err)
	}

	return inv, nil
}

func (r *InvitationRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invitations WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, errFailedCheckInvitationCode(err)
	}
	return exists, nil
}

func (r *InvitationRepository) ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*invitation.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations WHERE gallery_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, galleryID)
	if err != nil {
		return nil, errFailedListInvitations(err)
	}
	defer rows.Close()

	invitations := make([]*invitation.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, errFailedScanInvitation(err)
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

func (r *InvitationRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE invitations SET active = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.Pool.Exec(ctx, query, id, active)
	if err != nil {
		return errFailedUpdateInvitation(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errInvitationNotFound)
	}
	return nil
}

func (r *InvitationRepository) ReplaceCode(ctx context.Context, id uuid.UUID, code string, expiresAt *time.Time) (*invitation.Invitation, error) {
	query := `
		UPDATE invitations SET code = $2, expires_at = $3, active = TRUE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + invitationColumns

	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, query, id, code, expiresAt))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errInvitationNotFound)
		}
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("invitation code already exists")
		}
		return nil, errFailedUpdateInvitation(err)
	}

	return inv, nil
}

func (r *InvitationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE invitations SET deleted_at = NOW(), active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return errFailedDeleteInvitation(err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NotFound(errInvitationNotFound)
	}
	return nil
}

const recordInvitationUseQuery = `
	UPDATE invitations SET
		current_uses = current_uses + 1,
		first_used_at = COALESCE(first_used_at, $2),
		last_used_at = $2,
		usage_log = (
			SELECT COALESCE(jsonb_agg(kept.entry ORDER BY kept.ord), '[]'::jsonb)
			FROM (
				SELECT log.entry, log.ord
				FROM jsonb_array_elements(usage_log || jsonb_build_array($3::jsonb)) WITH ORDINALITY AS log(entry, ord)
				ORDER BY log.ord DESC
				LIMIT $4
			) AS kept
		),
		updated_at = $2
	WHERE id = $1
	  AND deleted_at IS NULL
	  AND (max_uses IS NULL OR current_uses < max_uses)
	RETURNING ` + invitationColumns

func (r *InvitationRepository) RecordUse(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*invitation.Invitation, error) {
	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, errFailedEncodeAccessLogEntry(err)
	}

	inv, err := scanInvitation(r.db.Pool.QueryRow(ctx, recordInvitationUseQuery,
		id,
		entry.AccessedAt,
		encoded,
		invitation.MaxUsageLogEntries,
	))
	if err == nil {
		return inv, nil
	}
	if !isNoRows(err) {
		return nil, errFailedRecordInvitationUse(err)
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invitations WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&exists); err != nil {
		return nil, errFailedRecordInvitationUse(err)
	}
	if !exists {
		return nil, apperrors.NotFound(errInvitationNotFound)
	}
	return nil, apperrors.ErrQuotaExhausted
}
