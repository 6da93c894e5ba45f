// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/settings"
)

// Setting keys accepted by "config set-setting".
const (
	SettingWebSearch   = "web_search_default"
	SettingThinking    = "thinking_mode_default"
	SettingTemperature = "temperature"
)

// RunConfig handles the show, path and init subcommands. loadedFrom is the
// file cfg was read from, empty when defaults were used.
func RunConfig(args Args, cfg *config.Config, loadedFrom string, out io.Writer) error {
	switch args.Subcommand {
	case ConfigShow, "":
		if loadedFrom != "" {
			fmt.Fprintf(out, "# Loaded from %s\n", loadedFrom)
		} else {
			fmt.Fprintln(out, "# No config file; built-in defaults")
		}
		fmt.Fprint(out, cfg.String())
		return nil

	case ConfigPath:
		if loadedFrom != "" {
			fmt.Fprintln(out, loadedFrom)
			return nil
		}
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (not created)\n", path)
		return nil

	case ConfigInit:
		path := args.ConfigFile
		if path == "" {
			p, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !args.Force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
		return nil
	}
	return usageErrorf("config", "unknown subcommand %q", args.Subcommand)
}

// RunSetSetting changes one persisted chat default.
func RunSetSetting(ctx context.Context, mgr *settings.Manager, key, value string, out io.Writer) error {
	var err error
	switch name := strings.ToLower(key); name {
	case SettingWebSearch, SettingThinking:
		v, perr := strconv.ParseBool(value)
		if perr != nil {
			return usageErrorf("config set-setting", "%s must be true or false (got %q)", key, value)
		}
		if name == SettingWebSearch {
			err = mgr.SetWebSearchDefault(ctx, v)
		} else {
			err = mgr.SetThinkingModeDefault(ctx, v)
		}
	case SettingTemperature:
		v, perr := strconv.ParseFloat(value, 64)
		if perr != nil || v < 0 || v > 1 {
			return usageErrorf("config set-setting", "temperature must be between 0 and 1 (got %q)", value)
		}
		err = mgr.SetTemperature(ctx, v)
	default:
		return usageErrorf("config set-setting", "unknown setting %q (want %s, %s or %s)",
			key, SettingWebSearch, SettingThinking, SettingTemperature)
	}
	if err != nil {
		return err
	}
	s := mgr.Get()
	fmt.Fprintf(out, "%s = %v\n%s = %v\n%s = %.1f\n",
		SettingWebSearch, s.WebSearchDefault,
		SettingThinking, s.ThinkingModeDefault,
		SettingTemperature, s.Temperature)
	return nil
}
