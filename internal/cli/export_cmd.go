// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/export"
	"github.com/jeranaias/lumenarc/internal/ui/styles"
)

// RunExport writes every conversation to one file in args.OutDir and
// prints its path.
func RunExport(a *app.App, args Args, out io.Writer) error {
	convs := a.Store.List()
	if len(convs) == 0 {
		return fmt.Errorf("no conversations to export")
	}

	format := args.Format
	if format == "" {
		format = "json"
	}
	opts := export.DefaultOptions()
	if args.OutDir != "" {
		opts.OutputDir = args.OutDir
	}
	// "auto" keeps the exporter's dark default; the page is not tied to
	// this terminal.
	if t := a.Config.UI.Theme; t == styles.ThemeDark || t == styles.ThemeLight {
		opts.Theme = t
	}

	path, err := export.ExportAll(convs, format, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d conversations to %s\n", len(convs), path)
	return nil
}
