package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the top-level isolation boundary. Every user, channel, and
// message belongs to exactly one workspace; nothing is ever visible across
// that line.
type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is a person within a workspace.
//
// Why WorkspaceID here?
//   - So every query can be scoped: "give me users WHERE workspace_id = X".
//   - Prevents cross-workspace data leaks at the query level.
type User struct {
	ID           uuid.UUID `json:"id"`
	WorkspaceID  uuid.UUID `json:"workspace_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	AvatarURL    string    `json:"avatar_url"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Channel is a chat room within a workspace (like #general or #incident-123).
type Channel struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Identity is the already-authenticated caller tuple supplied per request by
// the auth layer (JWT claims). The display fields double as the author
// snapshot stamped onto every message the caller creates.
type Identity struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	AvatarURL   string    `json:"avatar_url"`
}

// Message is a single chat message in a channel, or a reply inside a thread.
//
// Why int64 for ID (not UUID)?
//   - Messages are the highest-volume table. bigserial (auto-incrementing
//     int64) is:
//     1. Smaller (8 bytes vs 16 bytes) — matters at millions of rows.
//     2. Naturally ordered — higher ID = newer message. This is what makes
//        IDs usable as pagination cursors and as the tiebreak for messages
//        created in the same millisecond.
//     3. Index-friendly — B-tree on int64 is faster than on UUID.
//   - UUIDs are great for entities created on multiple servers
//     (users, channels). Messages always go through our API,
//     so a single sequence is fine.
//
// ThreadID is nil for a top-level message and points at the thread's root for
// a reply. Threading is one level deep: a reply can never itself be a thread
// root, and create enforces that.
//
// Author fields are a point-in-time copy taken from the caller's Identity at
// creation. They are never re-resolved — if the author later renames
// themselves, old messages keep the name they were sent under.
//
// Content is an opaque serialized rich-text document. This core never parses
// it; rendering and sanitization belong to the content-transform service.
type Message struct {
	ID           int64     `json:"id"`
	ChannelID    uuid.UUID `json:"channel_id"`
	ThreadID     *int64    `json:"thread_id"`
	Content      string    `json:"content"`
	ImageURL     *string   `json:"image_url"`
	AuthorID     uuid.UUID `json:"author_id"`
	AuthorName   string    `json:"author_name"`
	AuthorEmail  string    `json:"author_email"`
	AuthorAvatar string    `json:"author_avatar"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsReply reports whether the message lives inside a thread.
func (m *Message) IsReply() bool {
	return m.ThreadID != nil
}

// Reaction is one user's emoji reaction to one message. The triple
// (message_id, user_id, emoji) is unique — a user can apply a given emoji to
// a given message at most once, and toggling flips membership rather than
// maintaining a counter.
type Reaction struct {
	MessageID int64     `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupedReaction is the per-emoji aggregate computed fresh for each viewer.
// It is derived, never persisted: ReactedByMe is relative to whoever is
// asking, so caching it across viewers would be wrong.
type GroupedReaction struct {
	Emoji       string `json:"emoji"`
	Count       int    `json:"count"`
	ReactedByMe bool   `json:"reacted_by_me"`
}

// MessageListItem is a message decorated for display: its live reply count
// and its grouped reactions as seen by the requesting viewer.
type MessageListItem struct {
	Message
	ReplyCount int               `json:"reply_count"`
	Reactions  []GroupedReaction `json:"reactions"`
}

// MessagePage is one page of a cursor-paginated listing. NextCursor is set
// iff exactly `limit` rows came back — "there may be more". Empty means
// end-of-data.
type MessagePage struct {
	Items      []MessageListItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ThreadView is a resolved thread: the root message plus its replies,
// oldest first. Thread UIs read top-to-bottom chronologically, the opposite
// of the channel listing.
type ThreadView struct {
	Parent  MessageListItem   `json:"parent"`
	Replies []MessageListItem `json:"replies"`
}

// ReactionUpdate is what a reaction toggle returns: the recomputed aggregate
// for the message, ready to be merged into any cached list the message
// appears in.
type ReactionUpdate struct {
	MessageID int64             `json:"message_id"`
	Reactions []GroupedReaction `json:"reactions"`
}
