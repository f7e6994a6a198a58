// Package service implements the message/thread/reaction engine: scope
// enforcement, thread linkage validation, cursor pagination, and viewer-
// relative decoration of messages with reply counts and grouped reactions.
//
// The service is stateless; all consistency is delegated to the store's
// per-statement atomicity, so concurrent requests need no in-process
// coordination.
package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/apperr"
	"github.com/strandhq/strand/internal/models"
	"github.com/strandhq/strand/internal/reactions"
	"github.com/strandhq/strand/internal/repository"
)

const (
	// DefaultPageSize is used when the caller doesn't ask for a limit.
	DefaultPageSize = 30
	// MaxPageSize caps what a caller may ask for.
	MaxPageSize = 100
)

type Messages struct {
	channels repository.ChannelRepository
	messages repository.MessageRepository
	reacts   repository.ReactionRepository
	logger   *zap.Logger
}

func NewMessages(
	channels repository.ChannelRepository,
	messages repository.MessageRepository,
	reacts repository.ReactionRepository,
	logger *zap.Logger,
) *Messages {
	return &Messages{
		channels: channels,
		messages: messages,
		reacts:   reacts,
		logger:   logger,
	}
}

// CreateInput is a create request after transport decoding. ThreadID set
// means the new message is a reply in that thread.
type CreateInput struct {
	ChannelID uuid.UUID
	ThreadID  *int64
	Content   string
	ImageURL  *string
}

// Create persists a new message authored by the caller.
//
// Scope: the channel must belong to the caller's workspace, otherwise
// ScopeViolation. A thread reply must point at a message that exists in
// scope, sits in the same channel, and is not itself a reply — threading is
// exactly one level deep. Anything else is InvalidThreadTarget.
func (s *Messages) Create(ctx context.Context, caller models.Identity, in CreateInput) (*models.Message, error) {
	ok, err := s.channels.InWorkspace(ctx, caller.WorkspaceID, in.ChannelID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check channel scope", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindScopeViolation, "channel not in caller's workspace")
	}

	if in.ThreadID != nil {
		parent, err := s.messages.GetByID(ctx, caller.WorkspaceID, *in.ThreadID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "load thread parent", err)
		}
		switch {
		case parent == nil:
			return nil, apperr.New(apperr.KindInvalidThreadTarget, "thread parent does not exist")
		case parent.ChannelID != in.ChannelID:
			return nil, apperr.New(apperr.KindInvalidThreadTarget, "thread parent is in a different channel")
		case parent.IsReply():
			return nil, apperr.New(apperr.KindInvalidThreadTarget, "thread parent is itself a reply")
		}
	}

	msg, err := s.messages.Create(ctx, repository.CreateMessageParams{
		ChannelID: in.ChannelID,
		ThreadID:  in.ThreadID,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Author:    caller,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "create message", err)
	}
	return msg, nil
}

// Update replaces a message's content. Only the author may edit; everything
// except content and updated_at is immutable.
func (s *Messages) Update(ctx context.Context, caller models.Identity, messageID int64, content string) (*models.Message, error) {
	msg, err := s.messages.GetByID(ctx, caller.WorkspaceID, messageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load message", err)
	}
	if msg == nil {
		return nil, apperr.New(apperr.KindNotFound, "message not found")
	}
	if msg.AuthorID != caller.UserID {
		return nil, apperr.New(apperr.KindForbidden, "only the author can edit a message")
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "update message", err)
	}
	if updated == nil {
		return nil, apperr.New(apperr.KindNotFound, "message not found")
	}
	return updated, nil
}

// ListTopLevel returns one page of the channel's top-level messages, newest
// first, each decorated with its reply count and the caller's view of its
// reactions.
//
// cursor is the ID of the last item of the previous page (0 for the first
// page); the result resumes strictly after it. limit defaults to
// DefaultPageSize and is clamped to [1, MaxPageSize]. NextCursor is set iff
// exactly limit rows came back.
func (s *Messages) ListTopLevel(ctx context.Context, caller models.Identity, channelID uuid.UUID, cursor int64, limit int) (*models.MessagePage, error) {
	ok, err := s.channels.InWorkspace(ctx, caller.WorkspaceID, channelID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check channel scope", err)
	}
	if !ok {
		return nil, apperr.New(apperr.KindScopeViolation, "channel not in caller's workspace")
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	rows, err := s.messages.ListTopLevel(ctx, channelID, cursor, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list messages", err)
	}

	items, err := s.decorate(ctx, caller.UserID, rows)
	if err != nil {
		return nil, err
	}

	page := &models.MessagePage{Items: items}
	if len(rows) == limit {
		page.NextCursor = strconv.FormatInt(rows[len(rows)-1].ID, 10)
	}
	return page, nil
}

// ResolveThread returns a thread's root and its replies, oldest first, all
// decorated for the caller.
//
// The root must be a top-level message: passing a reply's ID fails with
// InvalidThreadTarget rather than silently resolving to something the
// caller didn't ask for.
func (s *Messages) ResolveThread(ctx context.Context, caller models.Identity, rootID int64) (*models.ThreadView, error) {
	parent, err := s.messages.GetByID(ctx, caller.WorkspaceID, rootID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load thread root", err)
	}
	if parent == nil {
		return nil, apperr.New(apperr.KindNotFound, "thread root not found")
	}
	if parent.IsReply() {
		return nil, apperr.New(apperr.KindInvalidThreadTarget, "thread root is itself a reply")
	}

	replies, err := s.messages.ListReplies(ctx, rootID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list replies", err)
	}

	all := append([]models.Message{*parent}, replies...)
	items, err := s.decorate(ctx, caller.UserID, all)
	if err != nil {
		return nil, err
	}

	return &models.ThreadView{
		Parent:  items[0],
		Replies: items[1:],
	}, nil
}

// ToggleReaction flips the caller's (emoji) reaction on a message and
// returns the recomputed aggregate so the client can merge it into every
// cached list the message appears in.
func (s *Messages) ToggleReaction(ctx context.Context, caller models.Identity, messageID int64, emoji string) (*models.ReactionUpdate, error) {
	msg, err := s.messages.GetByID(ctx, caller.WorkspaceID, messageID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "load message", err)
	}
	if msg == nil {
		return nil, apperr.New(apperr.KindNotFound, "message not found")
	}

	if _, err := s.reacts.Toggle(ctx, messageID, caller.UserID, emoji); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "toggle reaction", err)
	}

	raw, err := s.reacts.ListByMessages(ctx, []int64{messageID})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "reload reactions", err)
	}

	return &models.ReactionUpdate{
		MessageID: messageID,
		Reactions: reactions.Group(raw[messageID], caller.UserID),
	}, nil
}

// decorate batches the reply counts and raw reactions for a set of messages
// and builds viewer-relative list items. One grouped query each, regardless
// of page size.
func (s *Messages) decorate(ctx context.Context, viewerID uuid.UUID, msgs []models.Message) ([]models.MessageListItem, error) {
	items := make([]models.MessageListItem, 0, len(msgs))
	if len(msgs) == 0 {
		return items, nil
	}

	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	counts, err := s.messages.ReplyCounts(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "count replies", err)
	}
	raw, err := s.reacts.ListByMessages(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list reactions", err)
	}

	for _, m := range msgs {
		items = append(items, models.MessageListItem{
			Message:    m,
			ReplyCount: counts[m.ID],
			Reactions:  reactions.Group(raw[m.ID], viewerID),
		})
	}
	return items, nil
}
