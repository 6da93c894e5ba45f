// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses the lumenarc command line and runs the non-TUI
// commands.
//
// Commands:
//
//	lumenarc [tui]              Full-screen chat (default)
//	lumenarc chat               Line REPL with history and slash commands
//	lumenarc ask "prompt"       One turn, printed to stdout
//	lumenarc export             Write every conversation to a file
//	lumenarc config <sub>       show, path, init, set-setting
//	lumenarc version            Print version information
//
// Handlers return errors instead of exiting; main maps them to exit codes
// with ExitCode.
package cli
