// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the key-value persistence boundary.
package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string-keyed blob store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates a store for the named backend. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendBolt, "":
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return OpenBolt(path)
	case BackendSQLite:
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("kv: unknown backend %q", backend)
	}
}

func ensureDir(path string) error {
	if path == "" {
		return errors.New("kv: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("kv: create directory: %w", err)
	}
	return nil
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// Memory is a process-local Store used for ephemeral sessions and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
