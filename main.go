// LumenArc - a terminal chat client for streaming LLM providers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/cli"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cli.PrintUsage(os.Stderr)
		return cli.ExitCode(err)
	}

	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdConfig:
		// init must work even when the current file is broken.
		if args.Subcommand == cli.ConfigInit {
			return report(cli.RunConfig(args, config.Default(), "", os.Stdout))
		}
	}

	cfg, loadedFrom, err := loadConfig(args)
	if err != nil {
		return report(err)
	}
	config.SetGlobal(cfg)

	logCloser, err := setupLogging(cmd, args, cfg)
	if err != nil {
		return report(err)
	}
	defer logCloser.Close()

	if cmd == cli.CmdConfig && args.Subcommand != cli.ConfigSetSetting {
		return report(cli.RunConfig(args, cfg, loadedFrom, os.Stdout))
	}

	// The TUI reads Ctrl+C as a key and the REPL traps SIGINT itself; only
	// ask and export stop on it.
	signals := []os.Signal{syscall.SIGTERM}
	if cmd == cli.CmdAsk || cmd == cli.CmdExport {
		signals = append(signals, os.Interrupt)
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return report(err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("shutdown", logger.Err(err))
		}
	}()
	slog.Debug("starting", "command", cmd.String(), "provider", cfg.Provider.Name, "config", loadedFrom)

	switch cmd {
	case cli.CmdChat:
		err = cli.HandleChat(ctx, a, os.Stdout)
	case cli.CmdAsk:
		err = cli.RunAsk(ctx, a, args, os.Stdout)
	case cli.CmdExport:
		err = cli.RunExport(a, args, os.Stdout)
	case cli.CmdConfig:
		err = cli.RunSetSetting(ctx, a.Settings, args.ConfigKey, args.ConfigVal, os.Stdout)
	default:
		err = chat.Run(ctx, a)
	}
	return report(err)
}

// loadConfig reads --config when given, otherwise the first config file in
// the LumenArc directory.
func loadConfig(args cli.Args) (*config.Config, string, error) {
	if args.ConfigFile != "" {
		cfg, err := config.LoadFromPath(args.ConfigFile)
		return cfg, args.ConfigFile, err
	}
	return config.Load()
}

// setupLogging sends logs to a file in TUI mode, which owns the screen, and
// to stderr at warn level otherwise. --debug lowers both to debug.
func setupLogging(cmd cli.Command, args cli.Args, cfg *config.Config) (io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if args.Debug {
		level = slog.LevelDebug
	}

	if cmd != cli.CmdTUI {
		if !args.Debug && level < slog.LevelWarn {
			level = slog.LevelWarn
		}
		return logger.Setup(level, "")
	}

	path, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	return logger.Setup(level, path)
}

func report(err error) int {
	fmt.Fprint(os.Stderr, cli.FormatError(err))
	return cli.ExitCode(err)
}
