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
	"context"

	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/filter"
)

// AccessIdentifier normalizes accessIdentifier and flags values that cannot
// identify an item: absent values and container identifiers ending in _00 or
// _000.
type AccessIdentifier struct{}

var (
	accessIdentifierSchema = core.MustSchema(ColumnAccessIdentifier)

	itemIdentifier = filter.And(
		filter.HasValue(ColumnAccessIdentifier),
		filter.Not(filter.Or(
			filter.HasSuffix(ColumnAccessIdentifier, "_00"),
			filter.HasSuffix(ColumnAccessIdentifier, "_000"),
		)),
	)
)

// Modify implements organise.ColumnModifier.
func (AccessIdentifier) Modify(value string, _ *organise.RowContext) string {
	return core.NormalizeCell(value)
}

// Validate implements organise.Validator.
func (AccessIdentifier) Validate(value string, _ *organise.RowContext) bool {
	ok, err := itemIdentifier.ShouldInclude(context.Background(), core.Record{
		Schema: accessIdentifierSchema,
		Values: []string{value},
	})
	return err == nil && ok
}

// Explain implements organise.Explainer.
func (AccessIdentifier) Explain(value string, _ *organise.RowContext) string {
	if core.IsAbsent(value) {
		return "accessIdentifier is empty"
	}
	return "accessIdentifier names a container, not an item"
}

// Description implements organise.ColumnModifier.
func (AccessIdentifier) Description() string {
	return "Validates accessIdentifier for item-level suitability"
}
