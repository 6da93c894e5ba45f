// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation collection.
package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Store owns every conversation and message of the process.
//
// All operations are synchronous and total: an unknown conversation or message
// ID turns the call into a no-op. Readers get deep copies, so nothing outside
// the store ever holds a live *model.Message.
type Store struct {
	mu sync.RWMutex

	// convs is in list order, most recently created first.
	convs []*model.Conversation
	index map[string]*model.Conversation

	// version increments on every mutation so renderers can skip redraws.
	version uint64

	snapshot  Snapshotter
	persistMu sync.Mutex
	log       *slog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithSnapshotter persists the collection after structural changes.
func WithSnapshotter(s Snapshotter) Option {
	return func(st *Store) { st.snapshot = s }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(st *Store) { st.now = now }
}

// WithLogger sets the logger used for snapshot failures.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.log = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		index: make(map[string]*model.Conversation),
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Version returns a counter that changes whenever the store is mutated.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// Create inserts an empty conversation at the head of the list and returns its ID.
func (s *Store) Create() string {
	conv := model.NewConversation()
	now := s.now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	s.mu.Lock()
	s.insertHeadLocked(conv)
	s.mu.Unlock()

	s.persist()
	return conv.ID
}

// Delete removes a conversation and returns the conversation that should be
// selected if the deleted one was active: the one that followed it in list
// order, else the one before it, else "" when the list is now empty.
// ok is false when the ID was unknown.
func (s *Store) Delete(id string) (replacement string, ok bool) {
	s.mu.Lock()
	pos := s.positionLocked(id)
	if pos < 0 {
		s.mu.Unlock()
		return "", false
	}
	s.convs = append(s.convs[:pos], s.convs[pos+1:]...)
	delete(s.index, id)
	s.version++

	switch {
	case pos < len(s.convs):
		replacement = s.convs[pos].ID
	case len(s.convs) > 0:
		replacement = s.convs[len(s.convs)-1].ID
	}
	s.mu.Unlock()

	s.persist()
	return replacement, true
}

// DeleteAll removes every conversation.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	s.convs = nil
	s.index = make(map[string]*model.Conversation)
	s.version++
	s.mu.Unlock()

	s.persist()
}

// Rename sets the title. A title that is blank after trimming is ignored.
func (s *Store) Rename(id, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	if !s.mutate(id, func(c *model.Conversation) { c.Title = title }) {
		return
	}
	s.persist()
}

// ToggleStar flips the starred flag.
func (s *Store) ToggleStar(id string) {
	if !s.mutate(id, func(c *model.Conversation) { c.Starred = !c.Starred }) {
		return
	}
	s.persist()
}

// Touch bumps the conversation's last-update timestamp.
func (s *Store) Touch(id string) {
	now := s.now()
	s.mutate(id, func(c *model.Conversation) { c.UpdatedAt = now })
}

// =============================================================================
// MESSAGE OPERATIONS
// =============================================================================

// Append adds messages to the end of a conversation in one step. Readers see
// either none or all of them. Messages whose ConversationID does not match
// are re-owned by the target conversation.
func (s *Store) Append(conversationID string, msgs ...*model.Message) bool {
	if len(msgs) == 0 {
		return false
	}
	return s.mutate(conversationID, func(c *model.Conversation) {
		for _, m := range msgs {
			m = m.Clone()
			m.ConversationID = c.ID
			c.Messages = append(c.Messages, m)
		}
	})
}

// AppendContent appends a text delta to a streaming message.
// Messages in a final state are left untouched.
func (s *Store) AppendContent(conversationID, messageID, delta string) {
	if delta == "" {
		return
	}
	s.mutateMessage(conversationID, messageID, func(m *model.Message) {
		if m.Status.IsFinal() {
			return
		}
		m.Content += delta
	})
}

// ReplaceCitations swaps the citation set of a streaming message.
// An empty batch leaves the existing set alone.
func (s *Store) ReplaceCitations(conversationID, messageID string, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	batch := append([]model.Citation(nil), citations...)
	s.mutateMessage(conversationID, messageID, func(m *model.Message) {
		if m.Status.IsFinal() {
			return
		}
		m.Citations = batch
	})
}

// SetStatus transitions a message. Final messages keep their status.
func (s *Store) SetStatus(conversationID, messageID string, status model.Status) {
	s.mutateMessage(conversationID, messageID, func(m *model.Message) {
		if m.Status.IsFinal() {
			return
		}
		m.Status = status
	})
}

// Fail moves a streaming message to the error state and replaces its content.
func (s *Store) Fail(conversationID, messageID, content string) {
	s.mutateMessage(conversationID, messageID, func(m *model.Message) {
		if m.Status.IsFinal() {
			return
		}
		m.Status = model.StatusError
		m.Content = content
	})
}

// =============================================================================
// INTERNAL HELPERS
// =============================================================================

func (s *Store) insertHeadLocked(conv *model.Conversation) {
	s.convs = append([]*model.Conversation{conv}, s.convs...)
	s.index[conv.ID] = conv
	s.version++
}

func (s *Store) positionLocked(id string) int {
	for i, c := range s.convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// mutate applies fn to a conversation under the write lock.
func (s *Store) mutate(id string, fn func(*model.Conversation)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[id]
	if !ok {
		return false
	}
	fn(conv)
	s.version++
	return true
}

func (s *Store) mutateMessage(conversationID, messageID string, fn func(*model.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return false
	}
	msg := conv.MessageByID(messageID)
	if msg == nil {
		return false
	}
	fn(msg)
	s.version++
	return true
}
