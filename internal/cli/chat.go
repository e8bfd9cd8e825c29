// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive red-teaming console.
//
// Command: chat (default)
// Short:   Attack a target model turn by turn
//
// The REPL works on the active session, saved after every turn so analyze,
// suggest and sessions see the same conversation. Custom templates are
// reloaded while the console runs.
//
// Interactive Commands (during chat):
//   /help, /h              Show available commands
//   /clear, /c             Archive this session and start a new one
//   /history               List archived sessions
//   /restore N             Make archived session N active
//   /templates             List attack templates
//   /template REF          Load a template's system prompt and goal
//   /system [TEXT]         Show or replace the system prompt
//   /analyze               Security analysis of this session
//   /suggest [GOAL]        Generate the next attacker turn
//   /debug [apply TEXT]    Show the next request or patch the system prompt
//   /model [ID]            Show or switch model
//   /provider [NAME]       Show or switch provider
//   /status, /s            Session and cache statistics
//   /quit, /q              Exit chat
//   Ctrl+C                 Cancel current generation
//   Ctrl+D                 Exit chat
//
// Template prompts and suggestions are placed on the next input line for
// editing before they are sent.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/ritvikindupuri/GlyphBreaker/internal/config"
	"github.com/ritvikindupuri/GlyphBreaker/internal/content"
	"github.com/ritvikindupuri/GlyphBreaker/internal/llm"
	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

// templateReloadDebounce coalesces editor save bursts.
const templateReloadDebounce = 300 * time.Millisecond

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line, pre-filled with suggestion when non-empty.
func (c *ChatCLI) ReadInput(prompt, suggestion string) (string, error) {
	var (
		input string
		err   error
	)
	if suggestion != "" {
		input, err = c.line.PromptWithSuggestion(prompt, suggestion, len([]rune(suggestion)))
	} else {
		input, err = c.line.Prompt(prompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CONSOLE STATE
// =============================================================================

// console holds the state of one chat run.
type console struct {
	app  *App
	sess *model.Session
	cfg  model.LlmConfig
	out  io.Writer

	// goal is the adversarial goal of the last selected template.
	goal string

	// pending pre-fills the next input line.
	pending string

	turns     int
	startTime time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newConsole(app *App, sess *model.Session, out io.Writer) *console {
	return &console{
		app:       app,
		sess:      sess,
		cfg:       app.LlmConfig(),
		out:       out,
		startTime: time.Now(),
	}
}

// setCancel records the cancel func of the stream in flight.
func (c *console) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

// interrupt cancels the stream in flight, reporting whether there was one.
func (c *console) interrupt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	return true
}

func (c *console) save() {
	if err := c.app.Sessions.SaveActive(c.sess); err != nil {
		c.app.Logger.Warn("session not saved", "id", c.sess.ID, "error", err)
	}
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the "chat" command.
func HandleChat(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.Sessions.LoadOrCreateActive(templates.DefaultSystemPrompt, app.LlmConfig())
	if err != nil {
		return err
	}
	c := newConsole(app, sess, os.Stdout)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if w, err := templates.NewWatcher(app.Templates, templateReloadDebounce, app.Logger); err != nil {
		app.Logger.Warn("template hot reload disabled", "error", err)
	} else {
		w.Start(ctx)
		defer w.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if c.interrupt() {
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	if !args.Quiet {
		c.printWelcome()
	}

	input := NewChatCLI()
	defer input.Close()

	for {
		suggestion := c.pending
		c.pending = ""

		line, err := input.ReadInput(PromptStyle.Render("attacker> "), suggestion)
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or a closed stdin.
			fmt.Fprintln(c.out)
			c.printExitSummary()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			keepGoing, err := c.handleSlashCommand(ctx, line)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				c.printExitSummary()
				return nil
			}
			continue
		}

		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			c.printExitSummary()
			return nil
		}

		if err := c.sendTurn(ctx, line); err != nil && !isCancellation(err) {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// =============================================================================
// TURN PROCESSING
// =============================================================================

// sendTurn appends input as an attacker message, streams the target's
// reply into the session and saves it. A failed reply stays in the
// transcript as its error text but is never sent back to a provider.
func (c *console) sendTurn(parent context.Context, input string) error {
	if keywords := content.DetectKeywords(input); len(keywords) > 0 {
		fmt.Fprintf(c.out, "%s %s\n", WarningStyle.Render("[Keywords]"), HighlightKeywords(strings.Join(keywords, ", ")))
	}

	c.sess.LlmConfig = c.cfg
	c.sess.AddUserMessage(input)
	history := c.sess.History()
	reply := c.sess.AddAssistantMessage()
	defer c.save()

	ctx, cancel := context.WithCancel(parent)
	c.setCancel(cancel)
	defer func() {
		c.setCancel(nil)
		cancel()
	}()

	start := time.Now()
	stream, err := c.app.Service.StreamCompletion(ctx, llm.CompletionRequest{
		Messages:     history,
		Credentials:  c.app.Config.ApiKeys(),
		SystemPrompt: c.sess.SystemPrompt,
		Config:       c.cfg,
		CacheEnabled: c.app.Config.Cache.Enabled,
	})
	if err != nil {
		reply.Fail(err)
		return err
	}

	// On a terminal the reply is rendered once complete, in its detected
	// shape; otherwise fragments are written as they arrive.
	rendered := IsStdoutTTY()
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, RoleLabel(model.RoleAssistant))
	if rendered {
		fmt.Fprint(c.out, DimStyle.Render("…"))
	}

	err = provider.Each(stream, func(frag string) error {
		reply.AppendToken(frag)
		if !rendered {
			_, werr := io.WriteString(c.out, frag)
			return werr
		}
		return nil
	})
	if rendered {
		fmt.Fprint(c.out, "\r")
	}
	if err != nil {
		fmt.Fprintln(c.out)
		reply.Fail(err)
		return err
	}

	reply.FinalizeStream()
	c.turns++
	if rendered {
		fmt.Fprintln(c.out, RenderContent(reply.Content))
	} else {
		fmt.Fprintln(c.out)
	}
	fmt.Fprintln(c.out, DimStyle.Render(fmt.Sprintf("%s · %s · %s",
		c.cfg.Provider.DisplayName(), c.cfg.Model, formatDurationShort(time.Since(start)))))
	fmt.Fprintln(c.out)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func (c *console) handleSlashCommand(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(line, " ")
	command = strings.ToLower(command)
	rest = strings.TrimSpace(rest)

	switch command {
	case "/help", "/h", "/?", "/":
		c.printHelp()
	case "/quit", "/q", "/exit":
		return false, nil
	case "/clear", "/c":
		return true, c.clear()
	case "/history":
		history, err := c.app.Sessions.History()
		if err != nil {
			return true, err
		}
		fmt.Fprint(c.out, storage.FormatSessionList(history))
		fmt.Fprintln(c.out)
	case "/restore":
		return true, c.restore(rest)
	case "/templates":
		fmt.Fprintln(c.out, renderTable(templateTable(c.app.Templates.List())))
	case "/template", "/t":
		return true, c.selectTemplate(rest)
	case "/system":
		c.system(rest)
	case "/analyze", "/analyse":
		return true, c.analyze(ctx)
	case "/suggest":
		return true, c.suggest(ctx, rest)
	case "/debug":
		return true, c.debug(rest)
	case "/model", "/m":
		return true, c.setModel(rest)
	case "/provider", "/p":
		return true, c.setProvider(rest)
	case "/status", "/s":
		c.printStatus()
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func (c *console) clear() error {
	fresh, err := c.app.Sessions.Clear(c.sess, templates.DefaultSystemPrompt, c.cfg)
	if err != nil {
		return err
	}
	c.sess = fresh
	c.goal = ""
	c.turns = 0
	fmt.Fprintln(c.out, InfoStyle.Render("[Session archived, new session started]"))
	return nil
}

func (c *console) restore(ref string) error {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return NewValidationError("session number", ref, "use a number from /history")
	}
	restored, err := c.app.Sessions.RestoreByIndex(n-1, c.sess)
	if err != nil {
		return err
	}
	c.sess = restored
	fmt.Fprintf(c.out, "%s Restored %q (%d messages)\n", SuccessStyle.Render("[OK]"), restored.Name, len(restored.Messages))
	printTranscriptTo(c.out, restored)
	return nil
}

func (c *console) selectTemplate(ref string) error {
	if ref == "" {
		return ErrMissingArgument("template", "/template <id|name>")
	}
	sel, err := c.app.Templates.Select(ref)
	if err != nil {
		return err
	}
	c.sess.SystemPrompt = sel.SystemPrompt
	c.goal = sel.Goal
	c.pending = sel.UserPrompt
	c.save()

	fmt.Fprintln(c.out, InfoStyle.Render("[System prompt replaced]"))
	if c.goal != "" {
		fmt.Fprintf(c.out, "%s %s\n", WarningStyle.Render("[Adversarial goal]"), c.goal)
		fmt.Fprintln(c.out, DimStyle.Render("Use /suggest to generate attacker turns toward this goal."))
	}
	return nil
}

func (c *console) system(text string) {
	if text == "" {
		fmt.Fprintln(c.out, SectionStyle.Render("System prompt"))
		fmt.Fprintln(c.out, WrapText(c.sess.SystemPrompt, 0))
		return
	}
	c.sess.SystemPrompt = text
	c.save()
	fmt.Fprintln(c.out, InfoStyle.Render("[System prompt replaced]"))
}

func (c *console) analyze(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.setCancel(cancel)
	defer func() {
		c.setCancel(nil)
		cancel()
	}()

	fmt.Fprintln(c.out, DimStyle.Render("Analyzing conversation…"))
	report, err := runAnalysis(ctx, c.app, c.sess.History())
	if err != nil {
		return err
	}
	printReport(report, content.ParseAnalysisReport(report))
	fmt.Fprintln(c.out)
	return nil
}

func (c *console) suggest(ctx context.Context, goal string) error {
	if goal == "" {
		goal = c.goal
	}
	if goal == "" {
		return ErrMissingArgument("goal", "/suggest <goal> (or select an adversarial template)")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.setCancel(cancel)
	defer func() {
		c.setCancel(nil)
		cancel()
	}()

	fmt.Fprintln(c.out, DimStyle.Render("Generating attacker turn…"))
	suggestion, err := runSuggestion(ctx, c.app, c.sess, goal)
	if err != nil {
		return err
	}
	c.goal = goal
	c.pending = suggestion
	fmt.Fprintln(c.out, InfoStyle.Render("[Suggestion placed on the input line]"))
	return nil
}

// debug prints the payload the next request would carry, or with
// "apply TEXT" appends an operator instruction to the system prompt.
func (c *console) debug(arg string) error {
	if rest, ok := strings.CutPrefix(arg, "apply"); ok && (rest == "" || rest[0] == ' ') {
		instruction := strings.TrimSpace(rest)
		if instruction == "" {
			return ErrMissingArgument("instruction", "/debug apply <instruction>")
		}
		c.sess.SystemPrompt = llm.ApplyUserInstruction(c.sess.SystemPrompt, instruction)
		c.save()
		fmt.Fprintln(c.out, InfoStyle.Render("[Instruction appended to system prompt]"))
		return nil
	}

	payload := llm.NewDebugPayload(c.sess.SystemPrompt, c.sess.History(), arg)
	fmt.Fprintln(c.out, SectionStyle.Render("Next request"))
	fmt.Fprintln(c.out, payload.JSON())
	return nil
}

func (c *console) setModel(id string) error {
	if id == "" {
		fmt.Fprintf(c.out, "%s %s / %s\n", InfoStyle.Render("[Model]"), c.cfg.Provider, c.cfg.Model)
		for _, m := range model.ModelsFor(c.cfg.Provider) {
			fmt.Fprintf(c.out, "  %s  %s\n", m.ID, DimStyle.Render(m.Name))
		}
		return nil
	}

	if c.cfg.Provider == model.ProviderOllama && !model.IsValidModel(c.cfg.Provider, id) {
		if err := model.RegisterModel(model.ModelInfo{ID: id, Name: id, Provider: model.ProviderOllama}); err != nil {
			return err
		}
	}
	next := c.cfg
	next.Model = id
	if err := next.Validate(); err != nil {
		return NewValidationError("model", id, err.Error())
	}
	c.cfg = next
	fmt.Fprintf(c.out, "%s Switched to model: %s\n", SuccessStyle.Render("[OK]"), id)
	return nil
}

func (c *console) setProvider(name string) error {
	if name == "" {
		fmt.Fprintf(c.out, "%s %s\n", InfoStyle.Render("[Provider]"), c.cfg.Provider.DisplayName())
		return nil
	}
	p, err := model.ParseProvider(name)
	if err != nil {
		return NewValidationError("provider", name, err.Error())
	}
	if ok, reason := c.app.Service.Available(p); !ok {
		fmt.Fprintf(os.Stderr, "%s %v\n", WarningStyle.Render("[Warning]"), reason)
	}
	c.cfg = c.cfg.WithProvider(p)
	fmt.Fprintf(c.out, "%s Switched to %s (%s)\n", SuccessStyle.Render("[OK]"), p.DisplayName(), c.cfg.Model)
	return nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

func (c *console) printWelcome() {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, TitleStyle.Render("GlyphBreaker red-teaming console"))
	fmt.Fprintln(c.out, RenderSeparator(34))
	fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Target:"), c.cfg.Provider.DisplayName())
	fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Model:"), c.cfg.Model)
	if ok, reason := c.app.Service.Available(c.cfg.Provider); !ok {
		fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Warning:"), WarningStyle.Render(reason.Error()))
	}
	cacheState := "off"
	if c.app.Config.Cache.Enabled {
		cacheState = c.app.CacheBackend
	}
	fmt.Fprintf(c.out, "%s%s\n", RenderLabel("Cache:"), cacheState)
	if !c.sess.IsEmpty() {
		fmt.Fprintf(c.out, "%s%s (%d messages)\n", RenderLabel("Session:"), c.sess.Name, len(c.sess.Messages))
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, DimStyle.Render("Type an attacker message and press Enter. Commands: /help, /quit"))
	fmt.Fprintln(c.out)
}

func (c *console) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Archive this session and start a new one"},
		{"/history", "List archived sessions"},
		{"/restore N", "Make archived session N active"},
		{"/templates", "List attack templates"},
		{"/template REF", "Load a template's system prompt and goal"},
		{"/system [TEXT]", "Show or replace the system prompt"},
		{"/analyze", "Security analysis of this session"},
		{"/suggest [GOAL]", "Generate the next attacker turn"},
		{"/debug [apply TEXT]", "Show the next request or patch the system prompt"},
		{"/model [ID]", "Show or switch model"},
		{"/provider [NAME]", "Show or switch provider"},
		{"/status, /s", "Session and cache statistics"},
		{"/quit, /q", "Exit chat"},
	}

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, SectionStyle.Render("Available Commands"))
	for _, cmd := range commands {
		fmt.Fprintf(c.out, "  %s  %s\n", PromptStyle.Render(fmt.Sprintf("%-20s", cmd.cmd)), DimStyle.Render(cmd.desc))
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, DimStyle.Render("Tip: Ctrl+C cancels current generation, Ctrl+D exits"))
	fmt.Fprintln(c.out)
}

func (c *console) printStatus() {
	st := c.app.Cache.Stats()
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, SectionStyle.Render("Session Status"))
	fmt.Fprintf(c.out, "  %s%s / %s\n", RenderLabel("Target:"), c.cfg.Provider, c.cfg.Model)
	fmt.Fprintf(c.out, "  %s%s\n", RenderLabel("Session:"), c.sess.Name)
	fmt.Fprintf(c.out, "  %s%d\n", RenderLabel("Messages:"), len(c.sess.Messages))
	fmt.Fprintf(c.out, "  %s%d this run\n", RenderLabel("Turns:"), c.turns)
	fmt.Fprintf(c.out, "  %s%s\n", RenderLabel("Duration:"), time.Since(c.startTime).Round(time.Second))
	if c.goal != "" {
		fmt.Fprintf(c.out, "  %s%s\n", RenderLabel("Goal:"), c.goal)
	}
	fmt.Fprintf(c.out, "  %s%d hits / %d misses, %d entries\n", RenderLabel("Cache:"), st.Hits, st.Misses, st.Entries)
	fmt.Fprintln(c.out)
}

func (c *console) printExitSummary() {
	if c.turns == 0 {
		fmt.Fprintln(c.out, DimStyle.Render("Goodbye!"))
		return
	}
	st := c.app.Cache.Stats()
	fmt.Fprintf(c.out, "%s %d turns in %s, %d cache hits. Session %q saved.\n",
		InfoStyle.Render("[Summary]"),
		c.turns,
		time.Since(c.startTime).Round(time.Second),
		st.Hits,
		c.sess.Name)
}

// printTranscriptTo prints every message of sess with its role label.
func printTranscriptTo(w io.Writer, sess *model.Session) {
	if sess.IsEmpty() {
		fmt.Fprintln(w, DimStyle.Render("[No messages yet]"))
		return
	}
	for _, m := range sess.Messages {
		fmt.Fprintln(w, RenderMessage(m))
		fmt.Fprintln(w)
	}
}
