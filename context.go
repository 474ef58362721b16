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
	"github.com/aaronlmathis/organise/core"
)

// RowContext is an immutable, row-scoped view of a record's columns as they
// were before any modifier ran for the row. The pipeline builds a fresh one
// per row and drops it when the row is done.
type RowContext struct {
	schema *core.Schema
	values []string
	index  int
}

// NewRowContext snapshots values for the row at index (0-based, header
// excluded). The values slice is copied.
func NewRowContext(schema *core.Schema, values []string, index int) *RowContext {
	return &RowContext{
		schema: schema,
		values: append([]string(nil), values...),
		index:  index,
	}
}

// Index returns the 0-based data row index.
func (c *RowContext) Index() int {
	return c.index
}

// Schema returns the stream schema.
func (c *RowContext) Schema() *core.Schema {
	return c.schema
}

// Has reports whether the row carries the named column.
func (c *RowContext) Has(column string) bool {
	return c.schema.Has(column)
}

// Raw returns the unmodified value of the named column.
func (c *RowContext) Raw(column string) (string, bool) {
	i, ok := c.schema.Index(column)
	if !ok || i >= len(c.values) {
		return "", false
	}
	return c.values[i], true
}

// Value returns the normalized value of the named column: trimmed, with the
// placeholder marker mapped to "". Missing columns yield "".
func (c *RowContext) Value(column string) string {
	raw, ok := c.Raw(column)
	if !ok {
		return ""
	}
	return core.NormalizeCell(raw)
}

// FirstValue returns the first non-absent normalized value among columns.
func (c *RowContext) FirstValue(columns ...string) string {
	for _, column := range columns {
		if v := c.Value(column); v != "" {
			return v
		}
	}
	return ""
}
