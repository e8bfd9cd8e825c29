// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package templates

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// ErrNotFound is returned by Registry.Get for an unknown template.
var ErrNotFound = errors.New("template not found")

// Registry holds the built-in catalog plus custom templates. Custom
// templates with a built-in ID replace the built-in entry. Safe for
// concurrent use; the Watcher swaps custom templates while readers list.
type Registry struct {
	mu      sync.RWMutex
	builtin []model.AttackTemplate
	custom  []model.AttackTemplate
	dir     string
}

// NewRegistry creates a registry over the built-in catalog. dir may be
// empty to disable custom templates.
func NewRegistry(dir string) *Registry {
	return &Registry{
		builtin: Builtin(),
		dir:     dir,
	}
}

// Dir returns the custom template directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Reload re-reads the custom directory. Valid templates are installed even
// when some files fail; the failures are returned.
func (r *Registry) Reload() error {
	if r.dir == "" {
		return nil
	}
	custom, err := LoadDir(r.dir)

	r.mu.Lock()
	r.custom = custom
	r.mu.Unlock()
	return err
}

// List returns all templates: built-ins in catalog order (with overrides
// applied) followed by new custom templates.
func (r *Registry) List() []model.AttackTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	overrides := make(map[string]model.AttackTemplate, len(r.custom))
	for _, t := range r.custom {
		overrides[t.ID] = t
	}

	out := make([]model.AttackTemplate, 0, len(r.builtin)+len(r.custom))
	used := make(map[string]bool)
	for _, t := range r.builtin {
		if o, ok := overrides[t.ID]; ok {
			out = append(out, o)
			used[t.ID] = true
			continue
		}
		out = append(out, t)
	}
	for _, t := range r.custom {
		if !used[t.ID] {
			out = append(out, t)
			used[t.ID] = true
		}
	}
	return out
}

// Get finds a template by ID, or by name case-insensitively, or by the
// "LLM01"-style prefix of a built-in name.
func (r *Registry) Get(ref string) (model.AttackTemplate, error) {
	ref = strings.TrimSpace(ref)
	all := r.List()
	for _, t := range all {
		if t.ID == ref {
			return t, nil
		}
	}
	for _, t := range all {
		if strings.EqualFold(t.Name, ref) || strings.EqualFold(t.ID, ref) {
			return t, nil
		}
	}
	for _, t := range all {
		if prefix, _, ok := strings.Cut(t.Name, ":"); ok && strings.EqualFold(prefix, ref) {
			return t, nil
		}
	}
	return model.AttackTemplate{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// Selection is what choosing a template puts into a session.
type Selection struct {
	UserPrompt   string
	SystemPrompt string
	Goal         string
}

// Select resolves a template into the user prompt and the first suggested
// system prompt, falling back to DefaultSystemPrompt.
func (r *Registry) Select(ref string) (Selection, error) {
	t, err := r.Get(ref)
	if err != nil {
		return Selection{}, err
	}
	system, ok := t.DefaultSystemPrompt()
	if !ok {
		system = DefaultSystemPrompt
	}
	return Selection{UserPrompt: t.UserPrompt, SystemPrompt: system, Goal: t.Goal}, nil
}
