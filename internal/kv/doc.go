// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the key-value persistence boundary.
//
// Settings and the optional conversation snapshot are stored as JSON blobs
// under fixed keys. Three backends implement Store:
//
//   - Bolt: a bbolt file, the default
//   - SQLite: a modernc SQLite database with a migrated kv table
//   - Memory: a map, for ephemeral sessions and tests
//
// # Usage
//
//	store, err := kv.Open(kv.BackendBolt, filepath.Join(dir, "lumenarc.db"))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	data, err := store.Get(ctx, "lumenarc-settings")
//	if errors.Is(err, kv.ErrNotFound) {
//	    // use defaults
//	}
package kv
