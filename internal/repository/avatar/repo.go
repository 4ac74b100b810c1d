package avatar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/avatar-compressor/internal/model"
)

var ErrAvatarNotFound = errors.New("avatar not found")

type Repository struct {
	db *dbpg.DB
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, a model.Avatar) (uuid.UUID, error) {
	query := `
		INSERT INTO avatars (id, owner_id, filename, path, original_size, target_kb, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
   `

	var id uuid.UUID
	err := r.db.Master.QueryRowContext(
		ctx, query, a.ID, a.OwnerID, a.Filename, a.Path, a.OriginalSize, a.TargetKB, a.Status,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create: failed to save avatar: %w", err)
	}

	return id, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (model.Avatar, error) {
	query := `
		SELECT owner_id, filename, path, compressed_path, thumbnail_path,
		       original_size, compressed_size, target_kb, status, created_at
		FROM avatars
		WHERE id = $1
    `

	var a model.Avatar
	a.ID = id
	err := r.db.Master.QueryRowContext(
		ctx, query, id,
	).Scan(
		&a.OwnerID, &a.Filename, &a.Path, &a.CompressedPath, &a.ThumbnailPath,
		&a.OriginalSize, &a.CompressedSize, &a.TargetKB, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Avatar{}, ErrAvatarNotFound
		}

		return model.Avatar{}, fmt.Errorf("get: failed to get avatar: %w", err)
	}

	return a, nil
}

// SetProcessed records the object paths of the compressed variants and
// marks the avatar as processed.
func (r *Repository) SetProcessed(ctx context.Context, id uuid.UUID, compressedPath, thumbnailPath string, compressedSize int64) error {
	query := `
		UPDATE avatars
		SET compressed_path = $2, thumbnail_path = $3, compressed_size = $4, status = $5
		WHERE id = $1
    `

	rows, err := r.db.ExecContext(ctx, query, id, compressedPath, thumbnailPath, compressedSize, model.StatusProcessed)
	if err != nil {
		return fmt.Errorf("set processed: failed to update avatar: %w", err)
	}

	n, err := rows.RowsAffected()
	if err != nil {
		return fmt.Errorf("set processed: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrAvatarNotFound
	}

	return nil
}

// SetFailed marks the avatar as failed so the caller can fall back to
// the uncompressed original.
func (r *Repository) SetFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE avatars SET status = $2 WHERE id = $1
    `

	rows, err := r.db.ExecContext(ctx, query, id, model.StatusFailed)
	if err != nil {
		return fmt.Errorf("set failed: failed to update avatar: %w", err)
	}

	n, err := rows.RowsAffected()
	if err != nil {
		return fmt.Errorf("set failed: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrAvatarNotFound
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM avatars WHERE id = $1
    `

	rows, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete: failed to delete avatar: %w", err)
	}

	n, err := rows.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrAvatarNotFound
	}

	return nil
}
