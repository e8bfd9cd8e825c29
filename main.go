// glyphbreaker - A terminal red-teaming console for LLM prompt injection.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/ritvikindupuri/GlyphBreaker/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	if err := run(cmd, args); err != nil {
		cli.DisplayError(err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}
}

func run(cmd cli.Command, args cli.Args) error {
	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(args)
	case cli.CmdAnalyze:
		return cli.HandleAnalyze(args)
	case cli.CmdSuggest:
		return cli.HandleSuggest(args)
	case cli.CmdStatus:
		return cli.HandleStatus(args)
	case cli.CmdCache:
		return cli.HandleCache(args)
	case cli.CmdTemplates:
		return cli.HandleTemplates(args)
	case cli.CmdSessions:
		return cli.HandleSessions(args)
	case cli.CmdConfig:
		return cli.HandleConfig(args)
	case cli.CmdVersion:
		return cli.HandleVersion(args)
	case cli.CmdHelp:
		return cli.HandleHelp()
	case cli.CmdUnknown:
		return cli.HandleUnknown(args)
	default:
		return cli.HandleChat(args)
	}
}
