// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/jeranaias/lumenarc/internal/export"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMAND TYPES
// =============================================================================

// Command is the top-level command to run.
type Command int

const (
	// CmdTUI starts the full-screen chat (default).
	CmdTUI Command = iota
	// CmdChat starts the line REPL.
	CmdChat
	// CmdAsk runs a single turn.
	CmdAsk
	// CmdExport writes every conversation to a file.
	CmdExport
	// CmdConfig inspects or initializes configuration.
	CmdConfig
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

var commandNames = map[string]Command{
	"tui":     CmdTUI,
	"chat":    CmdChat,
	"ask":     CmdAsk,
	"export":  CmdExport,
	"config":  CmdConfig,
	"version": CmdVersion,
	"help":    CmdHelp,
}

func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "unknown"
}

// Config subcommands.
const (
	ConfigShow       = "show"
	ConfigPath       = "path"
	ConfigInit       = "init"
	ConfigSetSetting = "set-setting"
)

// Args holds everything parsed from the command line.
type Args struct {
	// Global flags
	ConfigFile string
	Debug      bool

	// ask
	Query  string
	File   string
	Search bool
	Think  bool

	// export
	Format string
	OutDir string

	// config
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Force      bool

	// Raw holds the arguments after the command name.
	Raw []string
}

// =============================================================================
// USAGE
// =============================================================================

const usageText = `LumenArc - terminal chat client for streaming LLM providers

Usage:
  lumenarc [flags] [command]

Commands:
  tui                      Full-screen chat (default)
  chat                     Line-mode chat with history and slash commands
  ask [flags] "prompt"     Send one prompt and print the reply
  export [flags]           Write all conversations to a file
  config <subcommand>      Manage configuration
  version                  Print version information
  help                     Show this help

Ask flags:
  --search                 Ground the answer with web search
  --think                  Use the Pro variant with extended reasoning
  -f, --file <path>        Attach an image

Export flags:
  --format <json|md|html>  Output format (default: json)
  -o, --out <dir>          Output directory (default: current directory)

Config subcommands:
  show                     Print the effective configuration
  path                     Print the config file location
  init [--force]           Write a default config file
  set-setting <key> <val>  Change a chat default
                           (web_search_default, thinking_mode_default, temperature)

Global flags:
  -c, --config <path>      Read configuration from path
  --debug                  Log at debug level
  -h, --help               Show this help
  -v, --version            Print version information

Environment:
  LUMENARC_HOME            Configuration directory (default: ~/.lumenarc)
  LUMENARC_<SECTION>_<KEY> Override a config value, e.g. LUMENARC_PROVIDER_API_KEY
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "lumenarc %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses argv (without the program name). Global flags may appear
// before the command. An empty command line selects the TUI.
func Parse(argv []string) (Command, Args, error) {
	var args Args

	rest, cmd, err := parseGlobalFlags(argv, &args)
	if err != nil {
		return CmdHelp, args, err
	}
	if cmd == CmdHelp || cmd == CmdVersion {
		return cmd, args, nil
	}
	if len(rest) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(rest[0])
	cmd, ok := commandNames[name]
	if !ok {
		return CmdHelp, args, usageErrorf("", "unknown command %q (run 'lumenarc help')", rest[0])
	}
	args.Raw = rest[1:]

	switch cmd {
	case CmdAsk:
		err = parseAskArgs(args.Raw, &args)
	case CmdExport:
		err = parseExportArgs(args.Raw, &args)
	case CmdConfig:
		err = parseConfigArgs(args.Raw, &args)
	case CmdTUI, CmdChat:
		err = parseGlobalOnly(name, args.Raw, &args)
	}
	return cmd, args, err
}

// parseGlobalFlags consumes leading global flags and returns what is left.
func parseGlobalFlags(argv []string, args *Args) ([]string, Command, error) {
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-h" || arg == "--help":
			return nil, CmdHelp, nil
		case arg == "-v" || arg == "--version":
			return nil, CmdVersion, nil
		case arg == "--debug":
			args.Debug = true
		case arg == "-c" || arg == "--config":
			if i+1 >= len(argv) {
				return nil, CmdHelp, usageErrorf("", "%s requires a path", arg)
			}
			i++
			args.ConfigFile = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigFile = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-"):
			return nil, CmdHelp, usageErrorf("", "unknown flag %q", arg)
		default:
			return argv[i:], CmdTUI, nil
		}
	}
	return nil, CmdTUI, nil
}

// parseGlobalOnly accepts only --debug after commands without flags of
// their own.
func parseGlobalOnly(command string, raw []string, args *Args) error {
	for _, arg := range raw {
		if arg == "--debug" {
			args.Debug = true
			continue
		}
		return usageErrorf(command, "unexpected argument %q", arg)
	}
	return nil
}

// parseAskArgs parses arguments for the ask command. Positional words are
// joined into the prompt; "--" ends flag parsing.
func parseAskArgs(raw []string, args *Args) error {
	var words []string
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		switch {
		case arg == "--":
			words = append(words, raw[i+1:]...)
			i = len(raw)
		case arg == "--search":
			args.Search = true
		case arg == "--think":
			args.Think = true
		case arg == "--debug":
			args.Debug = true
		case arg == "-f" || arg == "--file":
			if i+1 >= len(raw) {
				return usageErrorf("ask", "%s requires a path", arg)
			}
			i++
			args.File = raw[i]
		case strings.HasPrefix(arg, "--file="):
			args.File = strings.TrimPrefix(arg, "--file=")
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return usageErrorf("ask", "unknown flag %q", arg)
		default:
			words = append(words, arg)
		}
	}

	args.Query = strings.TrimSpace(strings.Join(words, " "))
	if args.Query == "" && args.File == "" {
		return usageErrorf("ask", "a prompt or --file is required")
	}
	return nil
}

// parseExportArgs parses arguments for the export command.
func parseExportArgs(raw []string, args *Args) error {
	args.Format = "json"
	args.OutDir = "."
	for i := 0; i < len(raw); i++ {
		arg := raw[i]
		var name, value string
		switch {
		case arg == "--debug":
			args.Debug = true
			continue
		case arg == "--format" || arg == "-o" || arg == "--out":
			if i+1 >= len(raw) {
				return usageErrorf("export", "%s requires a value", arg)
			}
			name, value = arg, raw[i+1]
			i++
		case strings.HasPrefix(arg, "--format="):
			name, value = "--format", strings.TrimPrefix(arg, "--format=")
		case strings.HasPrefix(arg, "--out="):
			name, value = "--out", strings.TrimPrefix(arg, "--out=")
		default:
			return usageErrorf("export", "unexpected argument %q", arg)
		}

		if name == "--format" {
			if _, err := export.ForFormat(value, nil); err != nil {
				return usageErrorf("export", "format must be json, md or html (got %q)", value)
			}
			args.Format = strings.ToLower(value)
		} else {
			args.OutDir = value
		}
	}
	return nil
}

// parseConfigArgs parses "config <subcommand> [args]".
func parseConfigArgs(raw []string, args *Args) error {
	var positional []string
	for _, arg := range raw {
		switch arg {
		case "--force":
			args.Force = true
		case "--debug":
			args.Debug = true
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) == 0 {
		args.Subcommand = ConfigShow
		return nil
	}

	args.Subcommand = strings.ToLower(positional[0])
	switch args.Subcommand {
	case ConfigShow, ConfigPath, ConfigInit:
		if len(positional) > 1 {
			return usageErrorf("config "+args.Subcommand, "unexpected argument %q", positional[1])
		}
	case ConfigSetSetting:
		if len(positional) != 3 {
			return usageErrorf("config set-setting", "usage: lumenarc config set-setting <key> <value>")
		}
		args.ConfigKey = positional[1]
		args.ConfigVal = positional[2]
	default:
		return usageErrorf("config", "unknown subcommand %q", positional[0])
	}
	return nil
}
