package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/strandhq/strand/internal/apperr"
	"github.com/strandhq/strand/internal/models"
	"github.com/strandhq/strand/internal/repository"
)

// ---------------------------------------------------------------
// In-memory fakes for the repository contracts. Same semantics as
// the SQL implementations, including the cursor fallback when the
// cursor row is gone.
// ---------------------------------------------------------------

type fakeChannels struct {
	byChannel map[uuid.UUID]uuid.UUID // channel -> owning workspace
}

func (f *fakeChannels) Create(ctx context.Context, workspaceID uuid.UUID, name string) (*models.Channel, error) {
	return nil, errors.New("not used in these tests")
}

func (f *fakeChannels) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]models.Channel, error) {
	return nil, errors.New("not used in these tests")
}

func (f *fakeChannels) InWorkspace(ctx context.Context, workspaceID uuid.UUID, channelID uuid.UUID) (bool, error) {
	return f.byChannel[channelID] == workspaceID, nil
}

type fakeMessages struct {
	channels map[uuid.UUID]uuid.UUID // channel -> workspace, for scoping
	rows     map[int64]*models.Message
	nextID   int64
	clock    time.Time
}

func (f *fakeMessages) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func (f *fakeMessages) Create(ctx context.Context, p repository.CreateMessageParams) (*models.Message, error) {
	f.nextID++
	now := f.tick()
	msg := &models.Message{
		ID:           f.nextID,
		ChannelID:    p.ChannelID,
		ThreadID:     p.ThreadID,
		Content:      p.Content,
		ImageURL:     p.ImageURL,
		AuthorID:     p.Author.UserID,
		AuthorName:   p.Author.DisplayName,
		AuthorEmail:  p.Author.Email,
		AuthorAvatar: p.Author.AvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.rows[msg.ID] = msg
	out := *msg
	return &out, nil
}

func (f *fakeMessages) GetByID(ctx context.Context, workspaceID uuid.UUID, messageID int64) (*models.Message, error) {
	msg, ok := f.rows[messageID]
	if !ok || f.channels[msg.ChannelID] != workspaceID {
		return nil, nil
	}
	out := *msg
	return &out, nil
}

func (f *fakeMessages) UpdateContent(ctx context.Context, messageID int64, content string) (*models.Message, error) {
	msg, ok := f.rows[messageID]
	if !ok {
		return nil, nil
	}
	msg.Content = content
	msg.UpdatedAt = f.tick()
	out := *msg
	return &out, nil
}

// afterInDescOrder reports whether row comes strictly after the cursor key
// in (created_at, id) descending order.
func afterInDescOrder(row *models.Message, cursorCreated time.Time, cursorID int64) bool {
	if row.CreatedAt.Before(cursorCreated) {
		return true
	}
	return row.CreatedAt.Equal(cursorCreated) && row.ID < cursorID
}

func (f *fakeMessages) ListTopLevel(ctx context.Context, channelID uuid.UUID, cursor int64, limit int) ([]models.Message, error) {
	var rows []models.Message
	for _, m := range f.rows {
		if m.ChannelID != channelID || m.ThreadID != nil {
			continue
		}
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	if cursor > 0 {
		var filtered []models.Message
		if cur, ok := f.rows[cursor]; ok {
			for _, m := range rows {
				if afterInDescOrder(&m, cur.CreatedAt, cursor) {
					filtered = append(filtered, m)
				}
			}
		} else {
			// Cursor row gone: id-only keyset, same as the SQL path.
			for _, m := range rows {
				if m.ID < cursor {
					filtered = append(filtered, m)
				}
			}
		}
		rows = filtered
	}

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeMessages) ListReplies(ctx context.Context, threadID int64) ([]models.Message, error) {
	var rows []models.Message
	for _, m := range f.rows {
		if m.ThreadID != nil && *m.ThreadID == threadID {
			rows = append(rows, *m)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (f *fakeMessages) ReplyCounts(ctx context.Context, messageIDs []int64) (map[int64]int, error) {
	counts := make(map[int64]int)
	want := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}
	for _, m := range f.rows {
		if m.ThreadID != nil && want[*m.ThreadID] {
			counts[*m.ThreadID]++
		}
	}
	return counts, nil
}

type fakeReactions struct {
	rows  []models.Reaction
	clock time.Time
}

func (f *fakeReactions) Toggle(ctx context.Context, messageID int64, userID uuid.UUID, emoji string) (bool, error) {
	for i, r := range f.rows {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return false, nil
		}
	}
	f.clock = f.clock.Add(time.Millisecond)
	f.rows = append(f.rows, models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: f.clock,
	})
	return true, nil
}

func (f *fakeReactions) ListByMessages(ctx context.Context, messageIDs []int64) (map[int64][]models.Reaction, error) {
	want := make(map[int64]bool, len(messageIDs))
	for _, id := range messageIDs {
		want[id] = true
	}
	out := make(map[int64][]models.Reaction)
	for _, r := range f.rows {
		if want[r.MessageID] {
			out[r.MessageID] = append(out[r.MessageID], r)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------

type fixture struct {
	svc       *Messages
	channels  *fakeChannels
	messages  *fakeMessages
	reactions *fakeReactions

	workspaceID uuid.UUID
	channelID   uuid.UUID
	caller      models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	workspaceID := uuid.New()
	channelID := uuid.New()
	byChannel := map[uuid.UUID]uuid.UUID{channelID: workspaceID}

	channels := &fakeChannels{byChannel: byChannel}
	messages := &fakeMessages{
		channels: byChannel,
		rows:     make(map[int64]*models.Message),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	reacts := &fakeReactions{}

	return &fixture{
		svc:       NewMessages(channels, messages, reacts, zap.NewNop()),
		channels:  channels,
		messages:  messages,
		reactions: reacts,

		workspaceID: workspaceID,
		channelID:   channelID,
		caller: models.Identity{
			WorkspaceID: workspaceID,
			UserID:      uuid.New(),
			DisplayName: "Ada",
			Email:       "ada@example.com",
			AvatarURL:   "https://avatars.example.com/ada",
		},
	}
}

func (f *fixture) mustCreate(t *testing.T, in CreateInput) *models.Message {
	t.Helper()
	msg, err := f.svc.Create(context.Background(), f.caller, in)
	require.NoError(t, err)
	return msg
}

// ---------------------------------------------------------------
// Create
// ---------------------------------------------------------------

func TestCreateScopeViolation(t *testing.T) {
	f := newFixture(t)

	foreignChannel := uuid.New() // not registered in any workspace

	_, err := f.svc.Create(context.Background(), f.caller, CreateInput{
		ChannelID: foreignChannel,
		Content:   "hello",
	})

	assert.True(t, apperr.IsKind(err, apperr.KindScopeViolation))
}

func TestCreateStampsAuthorSnapshot(t *testing.T) {
	f := newFixture(t)

	msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "hello"})

	assert.Equal(t, f.caller.UserID, msg.AuthorID)
	assert.Equal(t, "Ada", msg.AuthorName)
	assert.Equal(t, "ada@example.com", msg.AuthorEmail)
	assert.Equal(t, "https://avatars.example.com/ada", msg.AuthorAvatar)
	assert.Nil(t, msg.ThreadID)
}

func TestCreateInvalidThreadTarget(t *testing.T) {
	f := newFixture(t)

	// A second channel in the same workspace.
	otherChannel := uuid.New()
	f.channels.byChannel[otherChannel] = f.workspaceID
	f.messages.channels[otherChannel] = f.workspaceID

	root := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "root"})
	reply := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "reply", ThreadID: &root.ID})

	missing := int64(9999)

	tests := []struct {
		name     string
		threadID int64
	}{
		{"parent does not exist", missing},
		{"parent in a different channel", root.ID},
		{"parent is itself a reply", reply.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := f.channelID
			if tt.name == "parent in a different channel" {
				channel = otherChannel
			}
			_, err := f.svc.Create(context.Background(), f.caller, CreateInput{
				ChannelID: channel,
				Content:   "bad reply",
				ThreadID:  &tt.threadID,
			})
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidThreadTarget), "got %v", err)
		})
	}
}

// ---------------------------------------------------------------
// Update
// ---------------------------------------------------------------

func TestUpdateOnlyAuthor(t *testing.T) {
	f := newFixture(t)
	msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "original"})

	stranger := f.caller
	stranger.UserID = uuid.New()

	_, err := f.svc.Update(context.Background(), stranger, msg.ID, "hijacked")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	updated, err := f.svc.Update(context.Background(), f.caller, msg.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	assert.True(t, updated.UpdatedAt.After(msg.UpdatedAt))
	assert.Equal(t, msg.CreatedAt, updated.CreatedAt)
}

func TestUpdateNotFoundOutsideWorkspace(t *testing.T) {
	f := newFixture(t)
	msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "mine"})

	outsider := models.Identity{WorkspaceID: uuid.New(), UserID: f.caller.UserID}

	_, err := f.svc.Update(context.Background(), outsider, msg.ID, "peek")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// ---------------------------------------------------------------
// ListTopLevel
// ---------------------------------------------------------------

func TestListTwoMessagesOnePerPage(t *testing.T) {
	f := newFixture(t)
	m1 := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "m1"})
	m2 := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "m2"})

	page1, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 1)
	require.NoError(t, err)
	require.Len(t, page1.Items, 1)
	assert.Equal(t, m2.ID, page1.Items[0].ID)
	assert.Equal(t, "2", page1.NextCursor)

	page2, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, m2.ID, 1)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, m1.ID, page2.Items[0].ID)
	// Exactly limit rows came back, so the server can't tell this is the
	// end yet; the next fetch returns empty with no cursor.
	assert.Equal(t, "1", page2.NextCursor)

	page3, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, m1.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, page3.Items)
	assert.Empty(t, page3.NextCursor)
}

func TestListFullTraversalNoGapsNoDuplicates(t *testing.T) {
	f := newFixture(t)

	const n, limit = 7, 3
	for i := 0; i < n; i++ {
		f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "msg"})
	}

	var all []int64
	cursor := int64(0)
	pages := 0
	for {
		page, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, cursor, limit)
		require.NoError(t, err)
		if len(page.Items) == 0 {
			break
		}
		pages++
		for _, item := range page.Items {
			all = append(all, item.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.Items[len(page.Items)-1].ID
	}

	assert.Equal(t, 3, pages) // ceil(7/3)
	require.Len(t, all, n)
	seen := make(map[int64]bool)
	for i, id := range all {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		if i > 0 {
			assert.Less(t, id, all[i-1], "ids must strictly descend")
		}
	}
}

func TestCursorStableUnderConcurrentInsert(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 4; i++ {
		f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "old"})
	}

	page1, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 2)
	require.NoError(t, err)
	cursor := page1.Items[len(page1.Items)-1].ID

	before, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, cursor, 10)
	require.NoError(t, err)

	// A message lands after the cursor was issued.
	f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "new"})

	after, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, cursor, 10)
	require.NoError(t, err)

	assert.Equal(t, itemIDs(before.Items), itemIDs(after.Items))
}

func TestCursorRowDeletedResumesOnward(t *testing.T) {
	f := newFixture(t)
	var ids []int64
	for i := 0; i < 3; i++ {
		msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "msg"})
		ids = append(ids, msg.ID)
	}

	cursor := ids[1] // middle message
	delete(f.messages.rows, cursor)

	page, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, cursor, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[0]}, itemIDs(page.Items))
}

func TestListLimitDefaultsAndClamp(t *testing.T) {
	f := newFixture(t)
	// More rows than the max so an unclamped limit would return extras.
	for i := 0; i < MaxPageSize+10; i++ {
		f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "msg"})
	}

	page, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultPageSize)
	assert.NotEmpty(t, page.NextCursor)

	// Absurd limit clamps to the max instead of erroring or passing through.
	page, err = f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 5000)
	require.NoError(t, err)
	assert.Len(t, page.Items, MaxPageSize)
	assert.NotEmpty(t, page.NextCursor)
}

func TestListExcludesRepliesAndCountsThem(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "root"})
	f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "r1", ThreadID: &root.ID})
	f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "r2", ThreadID: &root.ID})

	page, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, root.ID, page.Items[0].ID)
	assert.Equal(t, 2, page.Items[0].ReplyCount)

	// Denormalized count agrees with what the thread actually resolves to.
	view, err := f.svc.ResolveThread(context.Background(), f.caller, root.ID)
	require.NoError(t, err)
	assert.Len(t, view.Replies, page.Items[0].ReplyCount)
}

func TestListScopeViolation(t *testing.T) {
	f := newFixture(t)
	outsider := models.Identity{WorkspaceID: uuid.New(), UserID: uuid.New()}

	_, err := f.svc.ListTopLevel(context.Background(), outsider, f.channelID, 0, 10)
	assert.True(t, apperr.IsKind(err, apperr.KindScopeViolation))
}

// ---------------------------------------------------------------
// ResolveThread
// ---------------------------------------------------------------

func TestResolveThreadRepliesOldestFirst(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "root"})
	r1 := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "r1", ThreadID: &root.ID})
	r2 := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "r2", ThreadID: &root.ID})

	view, err := f.svc.ResolveThread(context.Background(), f.caller, root.ID)
	require.NoError(t, err)

	assert.Equal(t, root.ID, view.Parent.ID)
	assert.Equal(t, 2, view.Parent.ReplyCount)
	assert.Equal(t, []int64{r1.ID, r2.ID}, itemIDs(view.Replies))
	for _, reply := range view.Replies {
		assert.Zero(t, reply.ReplyCount, "replies can't have replies")
	}
}

func TestResolveThreadRejectsReplyAsRoot(t *testing.T) {
	f := newFixture(t)
	root := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "root"})
	reply := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "r", ThreadID: &root.ID})

	_, err := f.svc.ResolveThread(context.Background(), f.caller, reply.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidThreadTarget))
}

func TestResolveThreadNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResolveThread(context.Background(), f.caller, 42)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// ---------------------------------------------------------------
// ToggleReaction
// ---------------------------------------------------------------

func TestToggleReactionTwiceRemoves(t *testing.T) {
	f := newFixture(t)
	msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "hi"})

	first, err := f.svc.ToggleReaction(context.Background(), f.caller, msg.ID, "👍")
	require.NoError(t, err)
	require.Len(t, first.Reactions, 1)
	assert.Equal(t, models.GroupedReaction{Emoji: "👍", Count: 1, ReactedByMe: true}, first.Reactions[0])

	second, err := f.svc.ToggleReaction(context.Background(), f.caller, msg.ID, "👍")
	require.NoError(t, err)
	assert.Empty(t, second.Reactions)
}

func TestToggleReactionAggregatesPerViewer(t *testing.T) {
	f := newFixture(t)
	msg := f.mustCreate(t, CreateInput{ChannelID: f.channelID, Content: "hi"})

	other := f.caller
	other.UserID = uuid.New()

	_, err := f.svc.ToggleReaction(context.Background(), f.caller, msg.ID, "👍")
	require.NoError(t, err)
	update, err := f.svc.ToggleReaction(context.Background(), other, msg.ID, "👍")
	require.NoError(t, err)

	// The aggregate is relative to whoever toggled last.
	require.Len(t, update.Reactions, 1)
	assert.Equal(t, 2, update.Reactions[0].Count)
	assert.True(t, update.Reactions[0].ReactedByMe)

	// The first user's view of the same rows differs only in the flag.
	page, err := f.svc.ListTopLevel(context.Background(), f.caller, f.channelID, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Len(t, page.Items[0].Reactions, 1)
	assert.Equal(t, 2, page.Items[0].Reactions[0].Count)
	assert.True(t, page.Items[0].Reactions[0].ReactedByMe)
}

func TestToggleReactionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ToggleReaction(context.Background(), f.caller, 42, "👍")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func itemIDs(items []models.MessageListItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
