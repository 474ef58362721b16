//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of Organise.
//
// Organise is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Organise is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Organise. If not, see https://www.gnu.org/licenses/.

package modifiers

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/aaronlmathis/organise"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// DefaultModel is used when a mapping file names no default.
const DefaultModel = "Binary"

//go:embed field_model_mappings.toml
var defaultMappings []byte

// FieldModel sets field_model from the row's file extension using a mapping
// loaded once from TOML. The mapping has an optional [extension_lookup] table
// of extension = "Model" pairs, any number of category tables carrying a model
// and a list of extensions, and an optional [default] table with a model.
// Explicit lookups win over categories. Unknown or absent extensions map to
// the default model.
type FieldModel struct {
	mappings     map[string]string
	defaultModel string
}

// DefaultFieldModel loads the embedded mapping.
func DefaultFieldModel() (*FieldModel, error) {
	return ParseFieldModel(defaultMappings)
}

// LoadFieldModel loads a mapping file from disk.
func LoadFieldModel(path string) (*FieldModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading field model mapping %s", path)
	}
	fm, err := ParseFieldModel(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return fm, nil
}

// ParseFieldModel parses a TOML mapping document.
func ParseFieldModel(data []byte) (*FieldModel, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "parsing field model mapping")
	}
	fm := &FieldModel{
		mappings:     make(map[string]string),
		defaultModel: DefaultModel,
	}

	keys := tree.Keys()
	sort.Strings(keys)

	if lookup, ok := tree.Get("extension_lookup").(*toml.Tree); ok {
		for _, ext := range lookup.Keys() {
			model, ok := lookup.Get(ext).(string)
			if !ok {
				return nil, errors.Errorf("extension_lookup.%s: model must be a string", ext)
			}
			fm.mappings[normalizeExtension(ext)] = model
		}
	}

	for _, key := range keys {
		sub, ok := tree.Get(key).(*toml.Tree)
		if !ok {
			return nil, errors.Errorf("%s: expected a table", key)
		}
		switch key {
		case "extension_lookup":
			continue
		case "default":
			if model, ok := sub.Get("model").(string); ok && model != "" {
				fm.defaultModel = model
			}
			continue
		}

		model, ok := sub.Get("model").(string)
		if !ok || model == "" {
			return nil, errors.Errorf("%s: model is required", key)
		}
		exts, err := stringList(sub.Get("extensions"))
		if err != nil {
			return nil, errors.Wrapf(err, "%s.extensions", key)
		}
		for _, ext := range exts {
			ext = normalizeExtension(ext)
			if _, taken := fm.mappings[ext]; !taken {
				fm.mappings[ext] = model
			}
		}
	}
	return fm, nil
}

func stringList(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.Errorf("expected a list, got %T", v)
	}
}

func normalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// ModelFor returns the model for an extension.
func (f *FieldModel) ModelFor(ext string) string {
	key := normalizeExtension(ext)
	if key == "" {
		return f.defaultModel
	}
	if model, ok := f.mappings[key]; ok {
		return model
	}
	return f.defaultModel
}

// Default returns the fallback model.
func (f *FieldModel) Default() string {
	return f.defaultModel
}

// Len returns the number of mapped extensions.
func (f *FieldModel) Len() int {
	return len(f.mappings)
}

// Modify implements organise.ColumnModifier.
func (f *FieldModel) Modify(_ string, row *organise.RowContext) string {
	return f.ModelFor(extensionOf(row))
}

// Description implements organise.ColumnModifier.
func (f *FieldModel) Description() string {
	return "Populates field_model based on configured file extension mappings"
}
