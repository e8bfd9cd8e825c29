// session_cmd.go - Saved session management.
//
// Command: sessions [subcommand]
//
// Subcommands:
//   list (default)   Archived sessions, most recent first
//   show             Transcript of the active session
//   restore N|ID     Make an archived session active
//   delete N|ID      Remove an archived session
//   clear            Remove every archived session
//   new              Archive the active session and start a fresh one
//
// N is the 1-based number shown by list.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) error {
	p := NewArgParser(args.Raw)

	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	store := app.Sessions

	switch sub := strings.ToLower(p.Subcommand()); sub {
	case "", "list", "ls":
		history, err := store.History()
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions list", sessionList(history)).Print()
		}
		fmt.Print(storage.FormatSessionList(history))
		if len(history) > 0 {
			fmt.Println()
		}
		return nil

	case "show", "active":
		sess, err := activeSession(app)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions show", sess).Print()
		}
		printTranscriptTo(os.Stdout, sess)
		return nil

	case "restore", "load":
		history, err := store.History()
		if err != nil {
			return err
		}
		id, err := resolveSessionRef(p.Positional(1), history)
		if err != nil {
			return err
		}
		current, err := activeSession(app)
		if err != nil {
			return err
		}
		restored, err := store.Restore(id, current)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions restore", sessionData(0, restored)).Print()
		}
		fmt.Printf("%s Restored %q (%d messages)\n", SuccessStyle.Render("[OK]"), restored.Name, len(restored.Messages))
		return nil

	case "delete", "rm":
		history, err := store.History()
		if err != nil {
			return err
		}
		id, err := resolveSessionRef(p.Positional(1), history)
		if err != nil {
			return err
		}
		if err := store.Delete(id); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions delete", map[string]string{"id": id}).Print()
		}
		fmt.Printf("%s Deleted session %s\n", SuccessStyle.Render("[OK]"), id)
		return nil

	case "clear":
		if err := store.ClearHistory(); err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions clear", map[string]bool{"cleared": true}).Print()
		}
		fmt.Printf("%s Session history cleared\n", SuccessStyle.Render("[OK]"))
		return nil

	case "new":
		current, err := activeSession(app)
		if err != nil {
			return err
		}
		fresh, err := store.Clear(current, templates.DefaultSystemPrompt, app.LlmConfig())
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("sessions new", sessionData(0, fresh)).Print()
		}
		fmt.Printf("%s Started a new session\n", SuccessStyle.Render("[OK]"))
		return nil

	default:
		return &CommandError{Command: "sessions", Message: fmt.Sprintf("unknown sessions subcommand %q (use list, show, restore, delete, clear or new)", sub)}
	}
}

// resolveSessionRef maps a 1-based list number or a session ID to an ID.
func resolveSessionRef(ref string, history []*model.Session) (string, error) {
	if ref == "" {
		return "", ErrMissingArgument("session", "glyphbreaker sessions restore|delete <N|id>")
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(history) {
			return "", fmt.Errorf("%w: no session number %d", storage.ErrSessionNotFound, n)
		}
		return history[n-1].ID, nil
	}
	for _, s := range history {
		if s.ID == ref {
			return s.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", storage.ErrSessionNotFound, ref)
}

func sessionData(index int, s *model.Session) SessionData {
	return SessionData{
		Index:     index,
		ID:        s.ID,
		Name:      s.Name,
		Messages:  len(s.Messages),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
		Preview:   s.Preview(60),
	}
}

func sessionList(history []*model.Session) []SessionData {
	out := make([]SessionData, 0, len(history))
	for i, s := range history {
		out = append(out, sessionData(i+1, s))
	}
	return out
}
