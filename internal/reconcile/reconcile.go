// Package reconcile is the client-side optimistic cache for message lists.
//
// A submit synthesizes a message under a temporary ID and splices it into
// the cached pages immediately; the server round-trip then either confirms
// it (the temp entry is replaced in place by the canonical record, so
// nothing reorders and scroll position holds) or fails it (the caches
// revert to a snapshot captured synchronously before the splice).
//
// The server store stays the single source of truth: nothing in here is
// authoritative beyond the reconciliation window of one pending create.
package reconcile

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/strandhq/strand/internal/models"
)

// tempPrefix distinguishes locally-synthesized IDs from server IDs, which
// are decimal integers.
const tempPrefix = "optimistic-"

// ItemID identifies a cached entry: either a server message ID rendered in
// decimal, or a temporary optimistic ID.
type ItemID string

// NewTempID returns a fresh locally-unique temporary ID.
func NewTempID() ItemID {
	return ItemID(tempPrefix + uuid.NewString())
}

// ServerID converts a canonical message ID into its cache key.
func ServerID(id int64) ItemID {
	return ItemID(strconv.FormatInt(id, 10))
}

// IsTemporary reports whether the ID is a local optimistic one.
func (id ItemID) IsTemporary() bool {
	return strings.HasPrefix(string(id), tempPrefix)
}

// State is the lifecycle of one pending create.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

var (
	// ErrUnknownOp means the temp ID was never submitted here.
	ErrUnknownOp = errors.New("reconcile: unknown pending operation")
	// ErrResolved means the operation already committed or rolled back —
	// each pending create resolves exactly once.
	ErrResolved = errors.New("reconcile: operation already resolved")
)

// Item is one cached entry. For a confirmed entry the ID is the server ID;
// for an optimistic one it is the temp ID and Message.ID is still zero.
type Item struct {
	ID      ItemID
	Message models.MessageListItem
}

type page struct {
	items      []Item
	nextCursor string
}

// list is one cached listing. Channel lists are newest-first (optimistic
// entries prepend); thread reply lists are oldest-first (they append).
type list struct {
	newestFirst bool
	pages       []page
	generation  uint64
}

type pendingOp struct {
	state     State
	channelID uuid.UUID
	rootID    *int64 // set for thread replies

	// Snapshots of the touched caches, captured before the splice.
	channelSnapshot []page
	threadSnapshot  []page
}

// Store holds the cached channel pages, thread reply lists, and in-flight
// optimistic operations for one client session.
//
// All methods are safe for concurrent use; internally a single mutex plays
// the role of the UI event loop — every cache transition is atomic and
// snapshots are captured under the same critical section as the splice, so
// no other mutation can land in between.
type Store struct {
	mu       sync.Mutex
	channels map[uuid.UUID]*list
	threads  map[int64]*list
	pending  map[ItemID]*pendingOp
}

func NewStore() *Store {
	return &Store{
		channels: make(map[uuid.UUID]*list),
		threads:  make(map[int64]*list),
		pending:  make(map[ItemID]*pendingOp),
	}
}

func (s *Store) channel(id uuid.UUID) *list {
	l, ok := s.channels[id]
	if !ok {
		l = &list{newestFirst: true}
		s.channels[id] = l
	}
	return l
}

func (s *Store) thread(rootID int64) *list {
	l, ok := s.threads[rootID]
	if !ok {
		l = &list{}
		s.threads[rootID] = l
	}
	return l
}

func clonePages(pages []page) []page {
	out := make([]page, len(pages))
	for i, p := range pages {
		out[i] = page{
			items:      append([]Item(nil), p.items...),
			nextCursor: p.nextCursor,
		}
	}
	return out
}

// ---------------------------------------------------------------
// Page fetching
// ---------------------------------------------------------------

// ChannelGeneration returns the channel cache's version token. Capture it
// before issuing a page fetch and hand it back to ApplyChannelPage: if any
// mutation landed in between, the stale result is discarded instead of
// corrupting the current state.
func (s *Store) ChannelGeneration(channelID uuid.UUID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel(channelID).generation
}

// ThreadGeneration is ChannelGeneration for a thread reply cache.
func (s *Store) ThreadGeneration(rootID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread(rootID).generation
}

// ApplyChannelPage appends a fetched page of older messages to the channel
// cache. Returns false (and applies nothing) if the cache has mutated since
// generation was captured.
func (s *Store) ApplyChannelPage(channelID uuid.UUID, generation uint64, p models.MessagePage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.channel(channelID)
	if l.generation != generation {
		return false
	}

	l.pages = append(l.pages, toPage(p))
	return true
}

// ApplyThread replaces the cached reply list for a thread with a freshly
// resolved view. Same staleness rule as ApplyChannelPage.
func (s *Store) ApplyThread(rootID int64, generation uint64, view models.ThreadView) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.thread(rootID)
	if l.generation != generation {
		return false
	}

	items := make([]Item, 0, len(view.Replies))
	for _, m := range view.Replies {
		items = append(items, Item{ID: ServerID(m.ID), Message: m})
	}
	l.pages = []page{{items: items}}
	return true
}

// NextCursor returns the resume cursor for fetching the next (older) page
// of the channel, or "" when the cached tail said end-of-data.
func (s *Store) NextCursor(channelID uuid.UUID) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.channel(channelID)
	if len(l.pages) == 0 {
		return ""
	}
	return l.pages[len(l.pages)-1].nextCursor
}

func toPage(p models.MessagePage) page {
	items := make([]Item, 0, len(p.Items))
	for _, m := range p.Items {
		items = append(items, Item{ID: ServerID(m.ID), Message: m})
	}
	return page{items: items, nextCursor: p.NextCursor}
}

// ---------------------------------------------------------------
// Optimistic mutations
// ---------------------------------------------------------------

// SubmitTopLevel splices an optimistic top-level message into the channel
// cache and registers a pending operation under the returned temp ID.
// Channel lists are newest-first, so the draft is prepended.
func (s *Store) SubmitTopLevel(channelID uuid.UUID, draft models.MessageListItem) ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID := NewTempID()
	l := s.channel(channelID)

	// Snapshot before the splice. Rollback restores exactly this.
	op := &pendingOp{
		state:           StatePending,
		channelID:       channelID,
		channelSnapshot: clonePages(l.pages),
	}
	s.pending[tempID] = op

	s.splice(l, Item{ID: tempID, Message: draft})
	l.generation++

	return tempID
}

// SubmitReply splices an optimistic reply at the bottom of the thread's
// reply cache and bumps the parent's cached reply count in the channel
// cache — both under one snapshot so a failure rolls the pair back together.
func (s *Store) SubmitReply(channelID uuid.UUID, rootID int64, draft models.MessageListItem) ItemID {
	s.mu.Lock()
	defer s.mu.Unlock()

	tempID := NewTempID()
	cl := s.channel(channelID)
	tl := s.thread(rootID)

	op := &pendingOp{
		state:           StatePending,
		channelID:       channelID,
		rootID:          &rootID,
		channelSnapshot: clonePages(cl.pages),
		threadSnapshot:  clonePages(tl.pages),
	}
	s.pending[tempID] = op

	s.splice(tl, Item{ID: tempID, Message: draft})
	tl.generation++

	// The parent's reply count is denormalized into the channel listing;
	// bump it optimistically wherever the parent is cached.
	parentID := ServerID(rootID)
	for pi := range cl.pages {
		for ii := range cl.pages[pi].items {
			if cl.pages[pi].items[ii].ID == parentID {
				cl.pages[pi].items[ii].Message.ReplyCount++
			}
		}
	}
	cl.generation++

	return tempID
}

// splice inserts an optimistic item at the list's "newest message" end: the
// front for newest-first channel listings, the back for oldest-first thread
// reply listings.
func (s *Store) splice(l *list, item Item) {
	if len(l.pages) == 0 {
		l.pages = []page{{}}
	}
	if l.newestFirst {
		first := &l.pages[0]
		first.items = append([]Item{item}, first.items...)
		return
	}
	last := &l.pages[len(l.pages)-1]
	last.items = append(last.items, item)
}

// Confirm resolves a pending create with the server-canonical record. The
// optimistic entry is replaced in place — same position, no reordering, no
// refetch — so the viewport doesn't move under the user.
func (s *Store) Confirm(tempID ItemID, canonical models.MessageListItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.pending[tempID]
	if !ok {
		return ErrUnknownOp
	}
	if op.state != StatePending {
		return ErrResolved
	}

	replacement := Item{ID: ServerID(canonical.ID), Message: canonical}
	replaceItem(s.channel(op.channelID), tempID, replacement)
	if op.rootID != nil {
		replaceItem(s.thread(*op.rootID), tempID, replacement)
	}

	op.state = StateCommitted
	op.channelSnapshot = nil
	op.threadSnapshot = nil
	return nil
}

func replaceItem(l *list, tempID ItemID, replacement Item) {
	for pi := range l.pages {
		for ii := range l.pages[pi].items {
			if l.pages[pi].items[ii].ID == tempID {
				l.pages[pi].items[ii] = replacement
				return
			}
		}
	}
}

// Fail rolls a pending create back: every cache the submit touched reverts
// to its pre-splice snapshot, including the parent's bumped reply count for
// thread replies. The caller surfaces the failure to the user.
func (s *Store) Fail(tempID ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.pending[tempID]
	if !ok {
		return ErrUnknownOp
	}
	if op.state != StatePending {
		return ErrResolved
	}

	cl := s.channel(op.channelID)
	cl.pages = op.channelSnapshot
	cl.generation++
	if op.rootID != nil {
		tl := s.thread(*op.rootID)
		tl.pages = op.threadSnapshot
		tl.generation++
	}

	op.state = StateRolledBack
	op.channelSnapshot = nil
	op.threadSnapshot = nil
	return nil
}

// StateOf reports the lifecycle state of a submitted operation.
func (s *Store) StateOf(tempID ItemID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.pending[tempID]
	if !ok {
		return StatePending, false
	}
	return op.state, true
}

// ---------------------------------------------------------------
// Reaction merges
// ---------------------------------------------------------------

// ApplyReactions merges a toggle's recomputed aggregate into every cached
// list the message appears in — the channel listing and any thread view.
// Late-arriving merges are harmless: the aggregate is absolute, not a delta.
func (s *Store) ApplyReactions(update models.ReactionUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ServerID(update.MessageID)
	for _, l := range s.channels {
		setReactions(l, id, update.Reactions)
	}
	for _, l := range s.threads {
		setReactions(l, id, update.Reactions)
	}
}

func setReactions(l *list, id ItemID, groups []models.GroupedReaction) {
	for pi := range l.pages {
		for ii := range l.pages[pi].items {
			if l.pages[pi].items[ii].ID == id {
				l.pages[pi].items[ii].Message.Reactions = groups
			}
		}
	}
}

// ---------------------------------------------------------------
// Reads
// ---------------------------------------------------------------

// ChannelItems returns a copy of the channel's cached items in display
// order: newest first, older pages after.
func (s *Store) ChannelItems(channelID uuid.UUID) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flatten(s.channel(channelID))
}

// ThreadItems returns a copy of the thread's cached replies, oldest first.
func (s *Store) ThreadItems(rootID int64) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flatten(s.thread(rootID))
}

func flatten(l *list) []Item {
	var out []Item
	for _, p := range l.pages {
		out = append(out, p.items...)
	}
	return out
}
