package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/models"
	"github.com/strandhq/strand/internal/reconcile"
)

// Session ties the HTTP client to an optimistic cache for one signed-in
// user. Sends render immediately from locally-known identity and reconcile
// when the server answers; page fetches are generation-checked so a
// response that arrives after the user has mutated the cache is discarded.
//
// Session state is explicit and per-instance — there is no ambient
// "current thread" or "staged upload" global; callers pass what they mean.
type Session struct {
	api      *Client
	identity models.Identity
	logger   *zap.Logger

	// Cache is exported read-only in spirit: render from it, mutate only
	// through Session methods.
	Cache *reconcile.Store
}

func NewSession(api *Client, identity models.Identity, logger *zap.Logger) *Session {
	return &Session{
		api:      api,
		identity: identity,
		logger:   logger,
		Cache:    reconcile.NewStore(),
	}
}

// draft builds the locally-synthesized list item rendered while the create
// is in flight: the caller's own identity snapshot, an empty reaction list,
// local clocks for the timestamps. The server record replaces all of it on
// confirm.
func (s *Session) draft(channelID uuid.UUID, content string, imageURL *string, threadID *int64) models.MessageListItem {
	now := time.Now()
	return models.MessageListItem{
		Message: models.Message{
			ChannelID:    channelID,
			ThreadID:     threadID,
			Content:      content,
			ImageURL:     imageURL,
			AuthorID:     s.identity.UserID,
			AuthorName:   s.identity.DisplayName,
			AuthorEmail:  s.identity.Email,
			AuthorAvatar: s.identity.AvatarURL,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		Reactions: []models.GroupedReaction{},
	}
}

// SendMessage submits a top-level message: optimistic prepend, then confirm
// with the canonical record or roll back and return the error for the UI to
// surface.
func (s *Session) SendMessage(ctx context.Context, channelID uuid.UUID, content string, imageURL *string) (reconcile.ItemID, error) {
	tempID := s.Cache.SubmitTopLevel(channelID, s.draft(channelID, content, imageURL, nil))

	msg, err := s.api.CreateMessage(ctx, channelID, content, imageURL, nil)
	if err != nil {
		s.resolve(tempID, nil)
		return tempID, err
	}

	s.resolve(tempID, msg)
	return tempID, nil
}

// SendReply submits a thread reply: optimistic append to the thread plus a
// reply-count bump on the cached parent, both rolled back on failure.
func (s *Session) SendReply(ctx context.Context, channelID uuid.UUID, rootID int64, content string, imageURL *string) (reconcile.ItemID, error) {
	tempID := s.Cache.SubmitReply(channelID, rootID, s.draft(channelID, content, imageURL, &rootID))

	msg, err := s.api.CreateMessage(ctx, channelID, content, imageURL, &rootID)
	if err != nil {
		s.resolve(tempID, nil)
		return tempID, err
	}

	s.resolve(tempID, msg)
	return tempID, nil
}

// resolve settles a pending create: confirm with the canonical record, or
// roll back when msg is nil. Resolution can only fail on a Session bug
// (double resolve, foreign temp ID), so the error is logged, not returned.
func (s *Session) resolve(tempID reconcile.ItemID, msg *models.Message) {
	var err error
	if msg == nil {
		err = s.Cache.Fail(tempID)
	} else {
		err = s.Cache.Confirm(tempID, models.MessageListItem{
			Message:   *msg,
			Reactions: []models.GroupedReaction{},
		})
	}
	if err != nil {
		s.logger.Error("resolve optimistic create",
			zap.String("temp_id", string(tempID)),
			zap.Error(err),
		)
	}
}

// LoadOlder fetches the next page of channel history and appends it to the
// cache unless the cache mutated while the fetch was in flight. Returns
// whether the page was applied.
func (s *Session) LoadOlder(ctx context.Context, channelID uuid.UUID, limit int) (bool, error) {
	generation := s.Cache.ChannelGeneration(channelID)
	cursor := s.Cache.NextCursor(channelID)

	page, err := s.api.ListMessages(ctx, channelID, cursor, limit)
	if err != nil {
		return false, err
	}
	return s.Cache.ApplyChannelPage(channelID, generation, *page), nil
}

// OpenThread resolves a thread from the server and caches its replies.
func (s *Session) OpenThread(ctx context.Context, rootID int64) (*models.ThreadView, error) {
	generation := s.Cache.ThreadGeneration(rootID)

	view, err := s.api.GetThread(ctx, rootID)
	if err != nil {
		return nil, err
	}
	s.Cache.ApplyThread(rootID, generation, *view)
	return view, nil
}

// ToggleReaction flips a reaction server-side and merges the returned
// aggregate into every cached list the message appears in.
func (s *Session) ToggleReaction(ctx context.Context, messageID int64, emoji string) error {
	update, err := s.api.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		return err
	}
	s.Cache.ApplyReactions(*update)
	return nil
}
