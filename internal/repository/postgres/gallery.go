package postgres

import (
	"context"

	"gallery-service/internal/domain/gallery"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
)

type GalleryRepository struct {
	db *DB
}

func NewGalleryRepository(db *DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

func (r *GalleryRepository) GetByID(ctx context.Context, id uuid.UUID) (*gallery.Gallery, error) {
	query := `
		SELECT id, owner_id, title, invite_only, deleted_at, created_at
		FROM galleries WHERE id = $1 AND deleted_at IS NULL
	`

	g := &gallery.Gallery{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&g.ID,
		&g.OwnerID,
		&g.Title,
		&g.InviteOnly,
		&g.DeletedAt,
		&g.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errGalleryNotFound)
		}
		return nil, errFailedGetGallery(err)
	}

	return g, nil
}
