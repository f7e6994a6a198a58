package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandhq/strand/internal/models"
)

type WorkspaceStore struct {
	pool *pgxpool.Pool
}

func NewWorkspaceStore(pool *pgxpool.Pool) *WorkspaceStore {
	return &WorkspaceStore{pool: pool}
}

func (s *WorkspaceStore) Create(ctx context.Context, name string) (*models.Workspace, error) {
	query := `
		INSERT INTO workspaces (name, created_at)
		VALUES ($1, now())
		RETURNING id, name, created_at`

	var w models.Workspace
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&w.ID,
		&w.Name,
		&w.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workspace: %w", err)
	}
	return &w, nil
}
