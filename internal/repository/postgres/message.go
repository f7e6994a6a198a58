package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strandhq/strand/internal/models"
	"github.com/strandhq/strand/internal/repository"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, channel_id, thread_id, content, image_url,
	author_id, author_name, author_email, author_avatar, created_at, updated_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var msg models.Message
	err := row.Scan(
		&msg.ID,
		&msg.ChannelID,
		&msg.ThreadID,
		&msg.Content,
		&msg.ImageURL,
		&msg.AuthorID,
		&msg.AuthorName,
		&msg.AuthorEmail,
		&msg.AuthorAvatar,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *MessageStore) Create(ctx context.Context, p repository.CreateMessageParams) (*models.Message, error) {
	// Messages use bigserial, so we don't pass an ID — Postgres generates
	// it and RETURNING gives it back. The author columns are the snapshot
	// from the caller's token, stored verbatim.
	query := `
		INSERT INTO messages
			(channel_id, thread_id, content, image_url,
			 author_id, author_name, author_email, author_avatar,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.pool.QueryRow(ctx, query,
		p.ChannelID,
		p.ThreadID,
		p.Content,
		p.ImageURL,
		p.Author.UserID,
		p.Author.DisplayName,
		p.Author.Email,
		p.Author.AvatarURL,
	))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) GetByID(ctx context.Context, workspaceID uuid.UUID, messageID int64) (*models.Message, error) {
	// The join to channels is the workspace scope check: a message whose
	// channel sits in another workspace scans as not-found here, never as
	// someone else's row.
	query := `
		SELECT m.id, m.channel_id, m.thread_id, m.content, m.image_url,
			m.author_id, m.author_name, m.author_email, m.author_avatar,
			m.created_at, m.updated_at
		FROM messages m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.id = $1 AND c.workspace_id = $2`

	msg, err := scanMessage(s.pool.QueryRow(ctx, query, messageID, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) UpdateContent(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET content = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + messageColumns

	msg, err := scanMessage(s.pool.QueryRow(ctx, query, messageID, content))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}

func (s *MessageStore) ListTopLevel(ctx context.Context, channelID uuid.UUID, cursor int64, limit int) ([]models.Message, error) {
	// Keyset pagination over the total order (created_at, id) descending.
	//
	// cursor=0 → first page, no resume condition.
	// cursor=N → resume strictly after row N in that order (exclusive —
	// the cursor row itself is never re-returned). We resolve the cursor
	// row's created_at first so the comparison is against the full sort
	// key, not just the ID.
	//
	// Because the position is keyed by identity rather than offset, rows
	// inserted after the cursor was issued never shift already-read pages.

	var query string
	var args []any

	switch {
	case cursor > 0:
		var cursorCreated time.Time
		err := s.pool.QueryRow(ctx,
			`SELECT created_at FROM messages WHERE id = $1`, cursor,
		).Scan(&cursorCreated)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Cursor row gone. IDs are monotonic with creation order,
			// so an id-only keyset resumes at the next row as if the
			// cursor row still logically existed.
			query = `
				SELECT ` + messageColumns + `
				FROM messages
				WHERE channel_id = $1 AND thread_id IS NULL AND id < $2
				ORDER BY created_at DESC, id DESC
				LIMIT $3`
			args = []any{channelID, cursor, limit}
		case err != nil:
			return nil, fmt.Errorf("resolve cursor: %w", err)
		default:
			query = `
				SELECT ` + messageColumns + `
				FROM messages
				WHERE channel_id = $1 AND thread_id IS NULL
					AND (created_at, id) < ($2, $3)
				ORDER BY created_at DESC, id DESC
				LIMIT $4`
			args = []any{channelID, cursorCreated, cursor, limit}
		}
	default:
		query = `
			SELECT ` + messageColumns + `
			FROM messages
			WHERE channel_id = $1 AND thread_id IS NULL
			ORDER BY created_at DESC, id DESC
			LIMIT $2`
		args = []any{channelID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func (s *MessageStore) ListReplies(ctx context.Context, threadID int64) ([]models.Message, error) {
	// Oldest first — opposite of the channel listing. Thread panes read
	// chronologically top to bottom.
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := s.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replies: %w", err)
	}

	return messages, nil
}

func (s *MessageStore) ReplyCounts(ctx context.Context, messageIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int, len(messageIDs))
	if len(messageIDs) == 0 {
		return counts, nil
	}

	// One grouped count for the whole page instead of a query per row.
	query := `
		SELECT thread_id, COUNT(*)
		FROM messages
		WHERE thread_id = ANY($1)
		GROUP BY thread_id`

	rows, err := s.pool.Query(ctx, query, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("count replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var threadID int64
		var count int
		if err := rows.Scan(&threadID, &count); err != nil {
			return nil, fmt.Errorf("scan reply count: %w", err)
		}
		counts[threadID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reply counts: %w", err)
	}

	return counts, nil
}
