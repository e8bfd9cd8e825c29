// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command-line parsing for glyphbreaker.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota
	CmdAsk
	CmdAnalyze
	CmdSuggest
	CmdStatus
	CmdCache
	CmdTemplates
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Provider   string
	Model      string
	ConfigPath string
	NoCache    bool
	JSON       bool
	Quiet      bool
	Verbose    bool

	// Name is the command word as typed, kept for CmdUnknown.
	Name string

	// Raw holds the arguments after the command word, global flags removed.
	Raw []string
}

const usageText = `glyphbreaker - red-teaming console for LLM prompt injection
Version: %s

USAGE:
  glyphbreaker [global flags] <command> [args]

COMMANDS:
  chat                     Interactive session REPL (default)
  ask <prompt>             One-shot streamed completion
      --template REF       Use a template's prompt and system prompt
      --system TEXT        Override the system prompt
  analyze                  Security analysis of the active session
  suggest <goal>           Generate the next adversarial user turn
  status                   Check every provider concurrently
  cache stats|clear        Show or clear the response cache
  templates [list|show ID] Browse attack templates
  sessions [list|restore N|delete N|clear]
                           Manage saved sessions
  config [show|get K|set K V|path|keys]
                           View or change configuration
  version                  Print version information
  help                     Show this help

GLOBAL FLAGS:
  -p, --provider NAME      gemini, openai or ollama
  -m, --model ID           Model ID for the provider
      --config PATH        Config file (default ~/.glyphbreaker/config.toml)
      --no-cache           Bypass the response cache for this run
      --json               JSON output where supported
  -q, --quiet              Only errors on stderr
  -v, --verbose            Debug logging on stderr

ENVIRONMENT:
  API_KEY / GEMINI_API_KEY, OPENAI_API_KEY, OLLAMA_URL,
  GLYPH_PROVIDER, GLYPH_MODEL, GLYPH_CACHE_ENABLED, GLYPH_CACHE_BACKEND
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("glyphbreaker version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name) into a command and its
// arguments. Global flags may appear anywhere.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	parsed.Name = remaining[0]
	parsed.Raw = remaining[1:]

	switch strings.ToLower(remaining[0]) {
	case "chat":
		return CmdChat, parsed
	case "ask":
		return CmdAsk, parsed
	case "analyze", "analyse":
		return CmdAnalyze, parsed
	case "suggest":
		return CmdSuggest, parsed
	case "status", "s":
		return CmdStatus, parsed
	case "cache":
		return CmdCache, parsed
	case "templates", "template":
		return CmdTemplates, parsed
	case "sessions", "session":
		return CmdSessions, parsed
	case "config":
		return CmdConfig, parsed
	case "version", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		return CmdUnknown, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	takeValue := func(i *int) string {
		if *i+1 < len(args) {
			*i++
			return args[*i]
		}
		return ""
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-p", "--provider":
			parsed.Provider = takeValue(&i)
		case "-m", "--model":
			parsed.Model = takeValue(&i)
		case "--config":
			parsed.ConfigPath = takeValue(&i)
		case "--no-cache":
			parsed.NoCache = true
		case "--json":
			parsed.JSON = true
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		default:
			switch {
			case strings.HasPrefix(arg, "--provider="):
				parsed.Provider = strings.TrimPrefix(arg, "--provider=")
			case strings.HasPrefix(arg, "--model="):
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--config="):
				parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsed
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion(args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
	}
	PrintVersion()
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp() error {
	PrintUsage()
	return nil
}

// HandleUnknown reports an unrecognized command with a suggestion.
func HandleUnknown(args Args) error {
	msg := fmt.Sprintf("unknown command %q", args.Name)
	if s := SuggestCommand(args.Name); s != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return &CommandError{Command: args.Name, Message: msg + "; run 'glyphbreaker help' for usage"}
}
