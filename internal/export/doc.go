// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations to JSON, Markdown and HTML files.
//
// Every exporter renders the whole conversation list into one document.
// ExportAll picks the exporter by name and writes
// lumenarc-chats-YYYYMMDD-HHMMSS.<ext> into the output directory:
//
//	path, err := export.ExportAll(store.List(), "html", &export.Options{
//	    OutputDir: ".",
//	    Theme:     "dark",
//	})
package export
