// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings holds the user's persisted chat preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeranaias/lumenarc/internal/kv"
	"github.com/jeranaias/lumenarc/internal/logger"
)

// Key is the key-value entry holding the serialized settings.
const Key = "lumenarc-settings"

// Settings are the process-wide chat defaults.
type Settings struct {
	WebSearchDefault    bool    `json:"webSearchDefault"`
	ThinkingModeDefault bool    `json:"thinkingModeDefault"`
	Temperature         float64 `json:"temperature"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		WebSearchDefault:    false,
		ThinkingModeDefault: false,
		Temperature:         0.7,
	}
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager loads settings once and writes every change through to storage.
// Values are not range-checked; the input controls bound them.
type Manager struct {
	mu      sync.RWMutex
	current Settings
	kv      kv.Store
	log     *slog.Logger
	timeout time.Duration
}

// NewManager creates a manager holding the defaults. Call Load to read storage.
func NewManager(store kv.Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		current: Defaults(),
		kv:      store,
		log:     log.With("component", "settings"),
		timeout: 5 * time.Second,
	}
}

// Load reads the stored settings. A missing entry keeps the defaults. A
// corrupt entry is logged and also keeps the defaults.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	data, err := m.kv.Get(ctx, Key)
	if errors.Is(err, kv.ErrNotFound) {
		return m.Get(), nil
	}
	if err != nil {
		return m.Get(), fmt.Errorf("load settings: %w", err)
	}

	// Start from defaults so fields missing from older entries keep sane values.
	loaded := Defaults()
	if err := json.Unmarshal(data, &loaded); err != nil {
		m.log.Warn("stored settings are unreadable, using defaults", logger.Err(err))
		return m.Get(), nil
	}

	m.mu.Lock()
	m.current = loaded
	m.mu.Unlock()
	return loaded, nil
}

// Get returns the current settings.
func (m *Manager) Get() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetWebSearchDefault changes the default web-grounding flag.
func (m *Manager) SetWebSearchDefault(ctx context.Context, v bool) error {
	return m.Update(ctx, func(s *Settings) { s.WebSearchDefault = v })
}

// SetThinkingModeDefault changes the default extended-reasoning flag.
func (m *Manager) SetThinkingModeDefault(ctx context.Context, v bool) error {
	return m.Update(ctx, func(s *Settings) { s.ThinkingModeDefault = v })
}

// SetTemperature changes the sampling temperature.
func (m *Manager) SetTemperature(ctx context.Context, v float64) error {
	return m.Update(ctx, func(s *Settings) { s.Temperature = v })
}

// Update applies fn and writes the result through. The in-memory value only
// changes when the write succeeds.
func (m *Manager) Update(ctx context.Context, fn func(*Settings)) error {
	m.mu.Lock()
	next := m.current
	fn(&next)

	data, err := json.Marshal(next)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encode settings: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.kv.Put(ctx, Key, data); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("save settings: %w", err)
	}
	m.current = next
	m.mu.Unlock()
	return nil
}
