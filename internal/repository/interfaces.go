package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/strandhq/strand/internal/models"
)

// Every method takes context.Context first: repositories do I/O, and the
// request's deadline and cancellation must reach the query. Every read that
// can cross a workspace boundary takes the workspace ID and filters on it —
// the repository never trusts the caller to have scoped the lookup already.
//
// Not-found is nil, nil at this layer. The service turns that into the
// caller-facing error kind, because only the service knows whether "missing"
// means NotFound, ScopeViolation, or InvalidThreadTarget in context.

// CreateMessageParams carries everything needed to persist one message.
// Author fields are copied from the identity snapshot verbatim; the store
// never resolves them against the users table.
type CreateMessageParams struct {
	ChannelID uuid.UUID
	ThreadID  *int64
	Content   string
	ImageURL  *string
	Author    models.Identity
}

// MessageRepository handles message persistence and pagination.
type MessageRepository interface {
	// Create persists a message and returns it with ID and timestamps
	// populated by the database.
	Create(ctx context.Context, p CreateMessageParams) (*models.Message, error)

	// GetByID returns a message only if its channel belongs to the given
	// workspace. Returns nil, nil if not found in scope.
	GetByID(ctx context.Context, workspaceID uuid.UUID, messageID int64) (*models.Message, error)

	// UpdateContent replaces the content and bumps updated_at. All other
	// fields are immutable. Returns the updated row.
	UpdateContent(ctx context.Context, messageID int64, content string) (*models.Message, error)

	// ListTopLevel returns up to limit top-level messages (no thread
	// parent) in the channel, ordered by (created_at, id) descending.
	// cursor is the ID of the last row of the previous page; the result
	// resumes strictly after it in that order. cursor 0 means first page.
	ListTopLevel(ctx context.Context, channelID uuid.UUID, cursor int64, limit int) ([]models.Message, error)

	// ListReplies returns every reply in the thread rooted at threadID,
	// ordered by (created_at, id) ascending — oldest first.
	ListReplies(ctx context.Context, threadID int64) ([]models.Message, error)

	// ReplyCounts returns reply counts for the given message IDs. IDs with
	// no replies are simply absent from the map.
	ReplyCounts(ctx context.Context, messageIDs []int64) (map[int64]int, error)
}

// ReactionRepository handles the per-user emoji reaction rows.
type ReactionRepository interface {
	// Toggle flips membership of (messageID, userID, emoji): inserts the
	// row if absent, deletes it if present. Returns whether the reaction
	// is now present.
	Toggle(ctx context.Context, messageID int64, userID uuid.UUID, emoji string) (bool, error)

	// ListByMessages returns the raw reaction rows for the given message
	// IDs, in insertion order per message.
	ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.Reaction, error)
}

// ChannelRepository is the channel registry: creation/listing glue plus the
// scope check the message engine depends on.
type ChannelRepository interface {
	// Create inserts a new channel and returns it with ID and CreatedAt populated.
	Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error)

	// ListByWorkspace returns the workspace's channels, newest first.
	// Returns empty slice (not nil) so JSON serializes to [] not null.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error)

	// InWorkspace reports whether the channel belongs to the workspace.
	// Hot-path check — runs before every message create and list.
	InWorkspace(ctx context.Context, workspaceID uuid.UUID, channelID uuid.UUID) (bool, error)
}

// WorkspaceRepository handles workspace rows (created during signup).
type WorkspaceRepository interface {
	Create(ctx context.Context, name string) (*models.Workspace, error)
}

// UserRepository handles user data for the identity glue.
type UserRepository interface {
	Create(ctx context.Context, workspaceID uuid.UUID, email, displayName, avatarURL, passwordHash string) (*models.User, error)

	// GetByID returns a user by their ID, scoped to the workspace.
	GetByID(ctx context.Context, workspaceID uuid.UUID, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks up a user by email (globally, not workspace-scoped).
	// Used for login.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
