// cache_cmd.go - Response cache management.
//
// Command: cache [subcommand]
//
// Subcommands:
//   stats (default)  Show backend, location and entry count
//   clear            Remove every cached response
//
// Hit and miss counters are per process, so from this command they only
// reflect the current invocation; chat shows them at exit.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// HandleCache handles the "cache" command.
func HandleCache(args Args) error {
	p := NewArgParser(args.Raw)

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "stats":
		data := cacheStatsData(app)
		if args.JSON {
			return NewJSONResponse("cache stats", data).Print()
		}
		printCacheStats(data)
		return nil

	case "clear":
		before := app.Cache.Stats().Entries
		if err := app.Cache.Clear(); err != nil {
			return &CommandError{Command: "cache clear", Message: "failed to clear cache", Err: err}
		}
		if args.JSON {
			return NewJSONResponse("cache clear", map[string]int{"removed": before}).Print()
		}
		fmt.Printf("%s Removed %d cached responses\n", SuccessStyle.Render("[OK]"), before)
		return nil

	default:
		return &CommandError{Command: "cache", Message: fmt.Sprintf("unknown cache subcommand %q (use stats or clear)", sub)}
	}
}

func cacheStatsData(app *App) CacheStatsData {
	st := app.Cache.Stats()
	return CacheStatsData{
		Enabled: app.Config.Cache.Enabled,
		Backend: app.CacheBackend,
		Path:    app.CachePath,
		Entries: st.Entries,
		Hits:    st.Hits,
		Misses:  st.Misses,
		Writes:  st.Writes,
		Faults:  st.Faults,
		HitRate: st.HitRate(),
	}
}

func printCacheStats(d CacheStatsData) {
	fmt.Println(SectionStyle.Render("Cache"))
	enabled := SuccessStyle.Render("enabled")
	if !d.Enabled {
		enabled = WarningStyle.Render("disabled")
	}
	fmt.Printf("  %s%s\n", RenderLabel("State"), enabled)
	fmt.Printf("  %s%s\n", RenderLabel("Backend"), d.Backend)
	if d.Path != "" {
		fmt.Printf("  %s%s\n", RenderLabel("Location"), d.Path)
	}
	fmt.Printf("  %s%d\n", RenderLabel("Entries"), d.Entries)
	if d.Hits+d.Misses > 0 {
		fmt.Printf("  %s%d hits / %d misses (%.0f%%)\n", RenderLabel("Lookups"), d.Hits, d.Misses, d.HitRate*100)
	}
	if d.Faults > 0 {
		fmt.Printf("  %s%s\n", RenderLabel("Faults"), WarningStyle.Render(fmt.Sprint(d.Faults)))
	}
}
