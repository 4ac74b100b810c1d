// Package preference persists the compression size preference: a single
// target-size-in-KB value under a fixed key. An absent value is a valid
// state and means uploads are stored without compression.
package preference

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"
)

// ErrPreferenceNotSet is returned by Get when no target size has been
// stored yet.
var ErrPreferenceNotSet = errors.New("compression preference not set")

// preferenceKey is the fixed key the target size is stored under.
const preferenceKey = "avatar_target_kb"

type Repository struct {
	db *dbpg.DB
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored target size in kilobytes.
func (r *Repository) Get(ctx context.Context) (int, error) {
	query := `
		SELECT target_kb FROM preferences WHERE key = $1
    `

	var targetKB int
	err := r.db.Master.QueryRowContext(ctx, query, preferenceKey).Scan(&targetKB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPreferenceNotSet
		}

		return 0, fmt.Errorf("get: failed to get preference: %w", err)
	}

	return targetKB, nil
}

// Set stores the target size, replacing any previous value.
func (r *Repository) Set(ctx context.Context, targetKB int) error {
	query := `
		INSERT INTO preferences (key, target_kb)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET target_kb = EXCLUDED.target_kb
    `

	if _, err := r.db.ExecContext(ctx, query, preferenceKey, targetKB); err != nil {
		return fmt.Errorf("set: failed to save preference: %w", err)
	}

	return nil
}
