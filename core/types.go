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

package core

import (
	"context"
	"fmt"
	"strings"
)

// Package core defines the core types for the Organise library.
//
// Organise streams tabular records through column-scoped rewrite rules and can
// summarise the result into grouped item rows. This file contains the record
// and schema types and the function adapters.

// Placeholder is the spreadsheet error marker treated as absent data.
const Placeholder = "#VALUE!"

// Schema is the ordered column set established by a stream's header row.
// It is fixed for the duration of one pass.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a schema from header names. Names must be unique.
func NewSchema(names []string) (*Schema, error) {
	s := &Schema{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, name := range s.names {
		if _, dup := s.index[name]; dup {
			return nil, &SchemaError{Op: "header", Column: name, Err: ErrDuplicateColumn}
		}
		s.index[name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for fixed schemas
// and tests.
func MustSchema(names ...string) *Schema {
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns a copy of the column names in order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Has reports whether the schema contains the named column.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Record is one row of named string columns sharing a stream-wide schema.
type Record struct {
	Schema *Schema
	Values []string
}

// NewRecord pairs values with a schema, checking the column count.
func NewRecord(schema *Schema, values []string) (Record, error) {
	if len(values) != schema.Len() {
		return Record{}, &SchemaError{Op: "record", Want: schema.Len(), Got: len(values)}
	}
	return Record{Schema: schema, Values: values}, nil
}

// Get returns the raw value of the named column.
func (r Record) Get(name string) (string, bool) {
	if r.Schema == nil {
		return "", false
	}
	i, ok := r.Schema.Index(name)
	if !ok || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// Set overwrites the named column and reports whether the column exists.
func (r Record) Set(name, value string) bool {
	if r.Schema == nil {
		return false
	}
	i, ok := r.Schema.Index(name)
	if !ok || i >= len(r.Values) {
		return false
	}
	r.Values[i] = value
	return true
}

// Clone returns a record with its own copy of the values.
func (r Record) Clone() Record {
	return Record{Schema: r.Schema, Values: append([]string(nil), r.Values...)}
}

// String renders the record as name=value pairs, mostly for diagnostics.
func (r Record) String() string {
	var b strings.Builder
	for i, v := range r.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		name := fmt.Sprintf("col_%d", i)
		if r.Schema != nil && i < r.Schema.Len() {
			name = r.Schema.names[i]
		}
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(v)
	}
	return b.String()
}

// NormalizeCell trims whitespace and maps the placeholder marker to "".
func NormalizeCell(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, Placeholder) {
		return ""
	}
	return trimmed
}

// IsAbsent reports whether a cell carries no usable data.
func IsAbsent(value string) bool {
	return NormalizeCell(value) == ""
}

// TransformFunc is a function adapter for the Transformer interface.
// Allows ordinary functions to be used as Transformers.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

// Transform implements the Transformer interface for TransformFunc.
func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc is a function adapter for the Filter interface.
// Allows ordinary functions to be used as Filters.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

// ShouldInclude implements the Filter interface for FilterFunc.
func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}
