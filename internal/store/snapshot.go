// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/lumenarc/internal/kv"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/model"
)

// SnapshotKey is the key-value entry holding persisted conversations.
const SnapshotKey = "lumenarc-conversations"

// Snapshotter saves and restores the whole conversation collection.
type Snapshotter interface {
	Load() ([]*model.Conversation, error)
	Save(convs []*model.Conversation) error
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Flush writes the current collection through the snapshotter, if any.
// Per-chunk patches never flush on their own; callers flush when a turn settles.
func (s *Store) Flush() {
	s.persist()
}

// Restore loads the persisted collection. Messages left streaming by a crash
// are settled to done. It returns the number of conversations loaded.
func (s *Store) Restore() (int, error) {
	if s.snapshot == nil {
		return 0, nil
	}
	convs, err := s.snapshot.Load()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = make([]*model.Conversation, 0, len(convs))
	s.index = make(map[string]*model.Conversation, len(convs))
	for _, c := range convs {
		if c == nil || c.ID == "" {
			continue
		}
		if _, dup := s.index[c.ID]; dup {
			continue
		}
		for _, m := range c.Messages {
			m.ConversationID = c.ID
			if m.Status == model.StatusStreaming || m.Status == model.StatusPending {
				m.Status = model.StatusDone
			}
		}
		s.convs = append(s.convs, c)
		s.index[c.ID] = c
	}
	s.version++
	return len(s.convs), nil
}

// persist holds persistMu across both the read and the write so snapshots
// land in the order they were taken.
func (s *Store) persist() {
	if s.snapshot == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.snapshot.Save(s.List()); err != nil {
		s.log.Warn("failed to persist conversations", logger.Err(err))
	}
}

// =============================================================================
// KEY-VALUE SNAPSHOTTER
// =============================================================================

// KVSnapshot stores the collection as one JSON document in a key-value store.
type KVSnapshot struct {
	kv      kv.Store
	key     string
	timeout time.Duration
}

// NewKVSnapshot creates a snapshotter writing under SnapshotKey.
func NewKVSnapshot(store kv.Store) *KVSnapshot {
	return &KVSnapshot{kv: store, key: SnapshotKey, timeout: 5 * time.Second}
}

// Load reads the collection. A missing key yields an empty collection.
func (k *KVSnapshot) Load() ([]*model.Conversation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	data, err := k.kv.Get(ctx, k.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read conversations: %w", err)
	}

	var convs []*model.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return convs, nil
}

// Save writes the collection.
func (k *KVSnapshot) Save(convs []*model.Conversation) error {
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	if err := k.kv.Put(ctx, k.key, data); err != nil {
		return fmt.Errorf("write conversations: %w", err)
	}
	return nil
}
