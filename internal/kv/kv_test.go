// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	bolt, err := Open(BackendBolt, filepath.Join(dir, "bolt", "test.db"))
	require.NoError(t, err)
	lite, err := Open(BackendSQLite, filepath.Join(dir, "sqlite", "test.sqlite"))
	require.NoError(t, err)

	stores := map[string]Store{
		BackendMemory: NewMemory(),
		BackendBolt:   bolt,
		BackendSQLite: lite,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrNotFound), "Get(missing) error = %v", err)

			require.NoError(t, s.Put(ctx, "k", []byte(`{"a":1}`)))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(got))

			require.NoError(t, s.Put(ctx, "k", []byte(`{"a":2}`)))
			got, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))

			require.NoError(t, s.Delete(ctx, "k"))
			_, err = s.Get(ctx, "k")
			assert.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestBoltReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lumenarc.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "lumenarc-settings", []byte("x")))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "lumenarc-settings")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.sqlite")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("etcd", "x"); err == nil {
		t.Error("Open(etcd) should fail")
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", buf))
	buf[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
