// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation collection.
//
// The Store is constructed once per process and shared by reference with the
// turn controller and the presentation layer. Mutations are field-level
// (AppendContent, ReplaceCitations, SetStatus, Fail) so interleaving with
// user edits such as Rename or Delete stays well defined.
//
// # Key Types
//
//   - Store: the conversation collection with its mutation operations
//   - Snapshotter: optional persistence of the whole collection
//   - KVSnapshot: Snapshotter writing JSON to a kv.Store
//   - DateGroup: sidebar grouping by last-update day
//
// # Usage
//
//	s := store.New(store.WithSnapshotter(store.NewKVSnapshot(kvStore)))
//	if _, err := s.Restore(); err != nil {
//	    return err
//	}
//	id := s.Create()
//	s.Rename(id, "Trip plans")
package store
