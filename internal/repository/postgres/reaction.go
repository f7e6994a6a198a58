package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandhq/strand/internal/models"
)

type ReactionStore struct {
	pool *pgxpool.Pool
}

func NewReactionStore(pool *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{pool: pool}
}

func (s *ReactionStore) Toggle(ctx context.Context, messageID int64, userID uuid.UUID, emoji string) (bool, error) {
	// Membership flip on the (message, user, emoji) primary key.
	//
	// ON CONFLICT DO NOTHING makes the insert report zero rows affected
	// when the reaction already exists — that's our signal to delete
	// instead. Each branch is a single atomic statement, so two racing
	// toggles from the same user resolve to last-toggle-wins without a
	// transaction.
	insert := `
		INSERT INTO reactions (message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`

	tag, err := s.pool.Exec(ctx, insert, messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("insert reaction: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	del := `
		DELETE FROM reactions
		WHERE message_id = $1 AND user_id = $2 AND emoji = $3`

	if _, err := s.pool.Exec(ctx, del, messageID, userID, emoji); err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	return false, nil
}

func (s *ReactionStore) ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.Reaction, error) {
	byMessage := make(map[int64][]models.Reaction, len(messageIDs))
	if len(messageIDs) == 0 {
		return byMessage, nil
	}

	// created_at ordering keeps emoji groups in first-reacted order, which
	// is the order the aggregator (and therefore the UI) preserves.
	query := `
		SELECT message_id, user_id, emoji, created_at
		FROM reactions
		WHERE message_id = ANY($1)
		ORDER BY created_at ASC, emoji ASC`

	rows, err := s.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		byMessage[r.MessageID] = append(byMessage[r.MessageID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}

	return byMessage, nil
}
