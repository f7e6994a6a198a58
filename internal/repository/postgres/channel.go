package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandhq/strand/internal/models"
)

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

func (s *ChannelStore) Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error) {
	query := `
		INSERT INTO channels (id, workspace_id, name, created_at)
		VALUES (uuid_generate_v4(), $1, $2, now())
		RETURNING id, workspace_id, name, created_at`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, workspaceID, name).Scan(
		&ch.ID,
		&ch.WorkspaceID,
		&ch.Name,
		&ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT id, workspace_id, name, created_at
		FROM channels
		WHERE workspace_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(
			&ch.ID,
			&ch.WorkspaceID,
			&ch.Name,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}

func (s *ChannelStore) InWorkspace(ctx context.Context, workspaceID uuid.UUID, channelID uuid.UUID) (bool, error) {
	// EXISTS stops at the first match — this runs before every message
	// create and list, so it stays O(1).
	query := `
		SELECT EXISTS (
			SELECT 1 FROM channels
			WHERE id = $1 AND workspace_id = $2
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, channelID, workspaceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check channel scope: %w", err)
	}
	return exists, nil
}
