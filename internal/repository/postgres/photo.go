package postgres

import (
	"context"
	"encoding/json"

	"gallery-service/internal/domain/photo"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const photoColumns = `id, gallery_id, owner_id, original_name, storage_type, variants, metadata, created_at`

// photoVariants is the JSONB layout of photos.variants.
type photoVariants struct {
	Original    photo.Variant  `json:"original"`
	Preview     photo.Variant  `json:"preview"`
	Thumbnail   photo.Variant  `json:"thumbnail"`
	Watermarked *photo.Variant `json:"watermarked,omitempty"`
}

type PhotoRepository struct {
	db *DB
}

func NewPhotoRepository(db *DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

func scanPhoto(row pgx.Row) (*photo.Photo, error) {
	p := &photo.Photo{}
	var variants photoVariants
	err := row.Scan(
		&p.ID,
		&p.GalleryID,
		&p.OwnerID,
		&p.OriginalName,
		&p.StorageType,
		&variants,
		&p.Metadata,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Original = variants.Original
	p.Preview = variants.Preview
	p.Thumbnail = variants.Thumbnail
	p.Watermarked = variants.Watermarked
	return p, nil
}

func (r *PhotoRepository) Create(ctx context.Context, input photo.CreatePhotoInput) (*photo.Photo, error) {
	variants, err := json.Marshal(photoVariants{
		Original:    input.Original,
		Preview:     input.Preview,
		Thumbnail:   input.Thumbnail,
		Watermarked: input.Watermarked,
	})
	if err != nil {
		return nil, errFailedEncodePhoto(err)
	}
	metadata, err := json.Marshal(input.Metadata)
	if err != nil {
		return nil, errFailedEncodePhoto(err)
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO photos (id, gallery_id, owner_id, original_name, storage_type, variants, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + photoColumns

	p, err := scanPhoto(r.db.Pool.QueryRow(ctx, query,
		id,
		input.GalleryID,
		input.OwnerID,
		input.OriginalName,
		input.StorageType,
		variants,
		metadata,
	))
	if err != nil {
		return nil, errFailedCreatePhoto(err)
	}

	return p, nil
}

func (r *PhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*photo.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE id = $1`

	p, err := scanPhoto(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound(errPhotoNotFound)
		}
		return nil, errFailedGetPhoto(err)
	}

	return p, nil
}

func (r *PhotoRepository) ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*photo.Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE gallery_id = $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, galleryID)
	if err != nil {
		return nil, errFailedListPhotos(err)
	}
	defer rows.Close()

	photos := make([]*photo.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, errFailedScanPhoto(err)
		}
		photos = append(photos, p)
	}

	return photos, rows.Err()
}
