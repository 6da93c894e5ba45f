// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// READS
// =============================================================================

// Get returns a copy of a conversation, or nil if it does not exist.
func (s *Store) Get(id string) *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index[id].Clone()
}

// Exists reports whether a conversation with this ID is in the store.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Message returns a copy of one message, or nil.
func (s *Store) Message(conversationID, messageID string) *model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return nil
	}
	return conv.MessageByID(messageID).Clone()
}

// History returns copies of a conversation's messages.
func (s *Store) History(conversationID string) []*model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return nil
	}
	out := make([]*model.Message, len(conv.Messages))
	for i, m := range conv.Messages {
		out[i] = m.Clone()
	}
	return out
}

// List returns copies of every conversation in list order.
func (s *Store) List() []*model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

// First returns the ID of the first conversation in list order, or "".
func (s *Store) First() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.convs) == 0 {
		return ""
	}
	return s.convs[0].ID
}

// =============================================================================
// SEARCH AND GROUPING
// =============================================================================

// Search returns conversations whose title contains query, ignoring case.
// An empty query matches everything.
func (s *Store) Search(query string) []*model.Conversation {
	all := s.List()
	query = strings.TrimSpace(query)
	if query == "" {
		return all
	}

	fold := cases.Fold()
	needle := fold.String(query)
	out := make([]*model.Conversation, 0, len(all))
	for _, c := range all {
		if strings.Contains(fold.String(c.Title), needle) {
			out = append(out, c)
		}
	}
	return out
}

// Group labels used by GroupByDate.
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupLastWeek  = "Previous 7 Days"
	GroupEarlier   = "Earlier"
)

// DateGroup is a labelled run of conversations.
type DateGroup struct {
	Label         string
	Conversations []*model.Conversation
}

// GroupByDate buckets conversations by last-update day relative to now.
// Groups come out in fixed order, empty ones are omitted and the input order
// is kept inside each group.
func GroupByDate(convs []*model.Conversation, now time.Time) []DateGroup {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	labels := []string{GroupToday, GroupYesterday, GroupLastWeek, GroupEarlier}
	buckets := make(map[string][]*model.Conversation, len(labels))
	for _, c := range convs {
		updated := c.UpdatedAt.In(now.Location())
		var label string
		switch {
		case !updated.Before(today):
			label = GroupToday
		case !updated.Before(yesterday):
			label = GroupYesterday
		case !updated.Before(weekAgo):
			label = GroupLastWeek
		default:
			label = GroupEarlier
		}
		buckets[label] = append(buckets[label], c)
	}

	groups := make([]DateGroup, 0, len(labels))
	for _, label := range labels {
		if len(buckets[label]) > 0 {
			groups = append(groups, DateGroup{Label: label, Conversations: buckets[label]})
		}
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// SEEDING
// =============================================================================

// Welcome conversation content shown on first start.
const (
	WelcomeTitle   = "Welcome to LumenArc"
	WelcomeMessage = "Hello! I'm LumenArc, your personal AI assistant. How can I help you today?"
)

// SeedWelcome adds the welcome conversation and returns its ID.
func (s *Store) SeedWelcome() string {
	conv := model.NewConversation()
	now := s.now()
	conv.Title = WelcomeTitle
	conv.CreatedAt = now
	conv.UpdatedAt = now
	greeting := model.NewAssistantMessage(conv.ID, WelcomeMessage, model.VariantFlash)
	greeting.CreatedAt = now
	conv.Messages = append(conv.Messages, greeting)

	s.mu.Lock()
	s.insertHeadLocked(conv)
	s.mu.Unlock()

	s.persist()
	return conv.ID
}
