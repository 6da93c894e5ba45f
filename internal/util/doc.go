// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared across LumenArc.
//
// String helpers measure text the way a terminal draws it:
//
//	title := util.TruncateWidth(conv.Title, 24)
//	row := util.PadWidth(title, 24)
//
// AtomicWriteFile is used for config files and exports so a crash never
// leaves a half-written file behind:
//
//	err := util.AtomicWriteFile(path, data, 0o600)
package util
