// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for glyphbreaker.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Set a value in the config file
//   reset               Reset the config file to defaults
//   path                Show configuration file path
//   keys                List every settable key
//
// Examples:
//   glyphbreaker config set llm.provider ollama
//   glyphbreaker config set llm.model mistral
//   glyphbreaker config set cache.backend file
//   glyphbreaker config get cache.ttl_hours
//
// show and get report the effective values, environment included. set and
// reset edit only the file, so secrets from the environment are never
// persisted by accident.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ritvikindupuri/GlyphBreaker/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	p := NewArgParser(args.Raw)

	path := args.ConfigPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "show":
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return err
		}
		if args.JSON {
			var redacted any
			if err := json.Unmarshal([]byte(cfg.String()), &redacted); err != nil {
				return err
			}
			return NewJSONResponse("config show", redacted).Print()
		}
		printConfig(cfg, path)
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("key", "glyphbreaker config get <key>")
		}
		cfg, err := config.LoadFrom(path)
		if err != nil {
			return err
		}
		value, err := cfg.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		shown := displayValue(key, value)
		if args.JSON {
			return NewJSONResponse("config get", map[string]string{"key": key, "value": shown}).Print()
		}
		fmt.Println(shown)
		return nil

	case "set":
		key, value := p.Positional(1), p.JoinFrom(2)
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("key and value", "glyphbreaker config set <key> <value>")
		}
		if err := setConfigValue(path, key, value); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config set", map[string]string{"key": key, "value": displayValue(key, value)}).Print()
		}
		fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, displayValue(key, value))
		return nil

	case "reset":
		if err := config.SaveTOML(config.Default(), path); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		if args.JSON {
			return NewJSONResponse("config reset", map[string]string{"path": path}).Print()
		}
		fmt.Printf("%s Configuration reset to defaults\n", SuccessStyle.Render("[OK]"))
		return nil

	case "path":
		_, statErr := os.Stat(path)
		exists := statErr == nil
		if args.JSON {
			return NewJSONResponse("config path", map[string]any{"path": path, "exists": exists}).Print()
		}
		fmt.Println(path)
		if !exists && !args.Quiet {
			fmt.Fprintln(os.Stderr, DimStyle.Render("(not created yet; defaults in use)"))
		}
		return nil

	case "keys":
		keys := config.GetAllKeys()
		if args.JSON {
			return NewJSONResponse("config keys", keys).Print()
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil

	default:
		return &CommandError{Command: "config", Message: fmt.Sprintf("unknown config subcommand %q (use show, get, set, reset, path or keys)", sub)}
	}
}

// setConfigValue edits one key in the file at path, validating the result
// before it is written.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	cfg.SetDefaults()

	if err := cfg.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// displayValue renders a config value, masking secrets.
func displayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if config.IsSecretKey(key) {
		return maskAPIKey(s)
	}
	return s
}

func printConfig(cfg *config.Config, path string) {
	fmt.Println(TitleStyle.Render("GlyphBreaker Configuration"))
	fmt.Println(DimStyle.Render(path))

	section := ""
	for _, key := range config.GetAllKeys() {
		head, field, _ := strings.Cut(key, ".")
		if head != section {
			section = head
			fmt.Println()
			fmt.Println(SectionStyle.Render("[" + section + "]"))
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Printf("  %s%s\n", RenderLabel(field), displayValue(key, value))
	}
}
