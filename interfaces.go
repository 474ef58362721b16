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

// Package organise defines the modifier capability, the per-row context and the
// streaming pipeline that applies modifiers to a record stream.
//
// This file contains the modifier interfaces and their function adapters.

// Record, DataSource and DataSink are re-exported from core for callers that
// only import the root package.
type (
	Record     = core.Record
	DataSource = core.DataSource
	DataSink   = core.DataSink
)

// ColumnModifier is a named rewrite rule for one target column.
//
// Modify receives the current raw value of the target column and a read-only
// view of the row as it was before any modifier ran. It must be free of side
// effects and must accept an empty value.
type ColumnModifier interface {
	Modify(value string, row *RowContext) string
	// Description is a human readable label used in diagnostics.
	Description() string
}

// Validator is implemented by modifiers that pre-check the target value.
// A false result is counted and reported; the modifier still runs.
// Modifiers that do not implement Validator accept every value.
type Validator interface {
	Validate(value string, row *RowContext) bool
}

// Explainer is implemented by validating modifiers that can describe why a
// value was rejected. The reason is only used in diagnostics.
type Explainer interface {
	Explain(value string, row *RowContext) string
}

// Applicable is implemented by modifiers that read sibling columns. The
// pipeline skips the modifier for the whole stream when AppliesTo reports
// false for the stream schema. A skipped modifier is not a failure.
type Applicable interface {
	AppliesTo(schema *core.Schema) bool
}

// ModifierFunc adapts ordinary functions to the ColumnModifier and Validator
// interfaces. A nil Check accepts every value.
type ModifierFunc struct {
	Label string
	Fn    func(value string, row *RowContext) string
	Check func(value string, row *RowContext) bool
}

// Modify implements ColumnModifier.
func (f ModifierFunc) Modify(value string, row *RowContext) string {
	return f.Fn(value, row)
}

// Validate implements Validator.
func (f ModifierFunc) Validate(value string, row *RowContext) bool {
	if f.Check == nil {
		return true
	}
	return f.Check(value, row)
}

// Description implements ColumnModifier.
func (f ModifierFunc) Description() string {
	return f.Label
}

// RowCheck is an advisory whole-row check evaluated against the row context
// before modifiers run. A failed check is counted as a validation failure.
type RowCheck interface {
	// Column is the column the check reports against. The check is skipped
	// when the stream does not carry it.
	Column() string
	Description() string
	Check(row *RowContext) bool
}
