// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the glyphbreaker command line.
//
// Every command builds an App from configuration and global flags, which
// wires the Gemini, OpenAI and Ollama adapters behind an llm.Service with
// the response cache, the template registry and the session store.
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(args)
//	case cli.CmdChat:
//	    err = cli.HandleChat(args)
//	// ... other commands
//	}
//	if err != nil {
//	    cli.DisplayError(err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// # Output
//
// Target replies are classified by the content package and rendered as
// markdown, grouped bullets, aligned tables or bar charts. Attacker text is
// shown with prompt-injection keywords highlighted. Commands accept --json
// and then print a single JSONResponse envelope to stdout.
package cli
