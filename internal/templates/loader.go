// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

//go:embed builtin.yaml
var builtinYAML []byte

// templateFile is a YAML file holding a list of templates.
type templateFile struct {
	Templates []model.AttackTemplate `yaml:"templates"`
}

// Limits for custom templates.
const (
	MaxNameLength   = 120
	MaxPromptLength = 32 * 1024
	MaxFileSize     = 1 << 20
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Builtin returns the embedded catalog with the format instruction appended
// to every suggested system prompt.
func Builtin() []model.AttackTemplate {
	list, err := Parse(builtinYAML)
	if err != nil {
		// The embedded catalog is covered by tests.
		panic(fmt.Sprintf("templates: builtin catalog: %v", err))
	}
	for i := range list {
		for j := range list[i].SuggestedSystemPrompts {
			p := &list[i].SuggestedSystemPrompts[j]
			p.Prompt = WithFormat(p.Prompt)
		}
	}
	return list
}

// Parse decodes one template, or a list under "templates:", and validates
// each entry.
func Parse(data []byte) ([]model.AttackTemplate, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty template file")
	}

	var list []model.AttackTemplate
	var file templateFile
	if err := root.Decode(&file); err == nil && file.Templates != nil {
		list = file.Templates
	} else {
		var single model.AttackTemplate
		if err := root.Decode(&single); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		list = []model.AttackTemplate{single}
	}

	for i := range list {
		if err := Validate(list[i]); err != nil {
			label := list[i].ID
			if label == "" {
				label = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("template %s: %w", label, err)
		}
	}
	return list, nil
}

// Validate checks the fields a template needs to be usable.
func Validate(t model.AttackTemplate) error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required, validation.Match(idPattern).Error("must be lowercase letters, digits, '-' or '_'")),
		validation.Field(&t.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&t.UserPrompt, validation.Required, validation.Length(1, MaxPromptLength)),
		validation.Field(&t.Goal, validation.Length(0, MaxPromptLength)),
		validation.Field(&t.SuggestedSystemPrompts,
			validation.Required,
			validation.Each(validation.By(validateSuggested)),
		),
	)
}

func validateSuggested(value interface{}) error {
	p, ok := value.(model.SuggestedPrompt)
	if !ok {
		return errors.New("invalid suggested prompt")
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&p.Prompt, validation.Required, validation.Length(1, MaxPromptLength)),
	)
}

// LoadFile reads and parses one template file, marking the result custom.
func LoadFile(path string) ([]model.AttackTemplate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("template %s exceeds %d bytes", path, MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", path, err)
	}

	list, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for i := range list {
		list[i].Custom = true
	}
	return list, nil
}

// LoadDir loads every .yaml and .yml file in dir in lexicographic order.
// A missing directory yields no templates. Broken files are skipped and
// reported together in the returned error alongside the valid templates.
func LoadDir(dir string) ([]model.AttackTemplate, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading template directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var list []model.AttackTemplate
	var errs []error
	for _, name := range names {
		loaded, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		list = append(list, loaded...)
	}
	return list, errors.Join(errs...)
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
