// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the LumenArc configuration.
//
// # Configuration Precedence
//
//   - Environment variables (LUMENARC_<SECTION>_<KEY>, then GEMINI_API_KEY or
//     OPENAI_API_KEY for the provider key)
//   - The first of config.toml, config.yaml, config.json in ~/.lumenarc
//     (or $LUMENARC_HOME)
//   - Built-in defaults
//
// # Usage
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	budget := cfg.Provider.ThinkingBudget
//
// Dotted keys are used by the config command:
//
//	_ = cfg.Set("storage.persist_conversations", "true")
//	_ = config.Save(cfg)
package config
