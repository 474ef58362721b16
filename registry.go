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

package organise

import (
	"strings"

	"github.com/pkg/errors"
)

// Binding associates a named modifier with the target column it owns.
type Binding struct {
	Name     string
	Column   string
	Modifier ColumnModifier
}

// Registry holds modifier bindings in registration order. A target column is
// owned by at most one modifier and names are unique.
type Registry struct {
	bindings []Binding
	byName   map[string]int
	byColumn map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]int),
		byColumn: make(map[string]int),
	}
}

// Register binds modifier m to column under name.
func (r *Registry) Register(name, column string, m ColumnModifier) error {
	switch {
	case name == "":
		return errors.New("modifier name is required")
	case column == "":
		return errors.Errorf("modifier %q: target column is required", name)
	case m == nil:
		return errors.Errorf("modifier %q: nil modifier", name)
	}
	if _, ok := r.byName[name]; ok {
		return errors.Errorf("modifier %q already registered", name)
	}
	if i, ok := r.byColumn[column]; ok {
		return errors.Errorf("column %q already owned by modifier %q", column, r.bindings[i].Name)
	}
	r.byName[name] = len(r.bindings)
	r.byColumn[column] = len(r.bindings)
	r.bindings = append(r.bindings, Binding{Name: name, Column: column, Modifier: m})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name, column string, m ColumnModifier) {
	if err := r.Register(name, column, m); err != nil {
		panic(err)
	}
}

// Bindings returns all bindings in registration order.
func (r *Registry) Bindings() []Binding {
	return append([]Binding(nil), r.bindings...)
}

// Names returns the registered modifier names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		names[i] = b.Name
	}
	return names
}

// Lookup returns the binding registered under name.
func (r *Registry) Lookup(name string) (Binding, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Binding{}, false
	}
	return r.bindings[i], true
}

// Active computes the modifiers to apply for one run. When only is non-empty
// every binding not named in it is dropped; every binding named in ignore is
// dropped regardless, so a name in both lists is excluded. Unknown names are an
// error. Registration order is preserved.
func (r *Registry) Active(only, ignore []string) ([]Binding, error) {
	allow, err := r.nameSet(only)
	if err != nil {
		return nil, errors.Wrap(err, "only-run")
	}
	deny, err := r.nameSet(ignore)
	if err != nil {
		return nil, errors.Wrap(err, "ignore-run")
	}

	active := make([]Binding, 0, len(r.bindings))
	for _, b := range r.bindings {
		if len(allow) > 0 && !allow[b.Name] {
			continue
		}
		if deny[b.Name] {
			continue
		}
		active = append(active, b)
	}
	return active, nil
}

// Excluded returns the names of registered modifiers missing from active.
func (r *Registry) Excluded(active []Binding) []string {
	in := make(map[string]bool, len(active))
	for _, b := range active {
		in[b.Name] = true
	}
	var out []string
	for _, b := range r.bindings {
		if !in[b.Name] {
			out = append(out, b.Name)
		}
	}
	return out
}

func (r *Registry) nameSet(names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			return nil, errors.Errorf("unknown modifier %q (known: %s)", name, strings.Join(r.Names(), ", "))
		}
		set[name] = true
	}
	return set, nil
}
