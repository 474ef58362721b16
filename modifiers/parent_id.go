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
	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/core"
)

// ParentID derives parent_id from accessIdentifier by dropping the last
// underscore separated segment. An absent accessIdentifier clears the target.
type ParentID struct{}

// Modify implements organise.ColumnModifier.
func (ParentID) Modify(_ string, row *organise.RowContext) string {
	id := row.Value(ColumnAccessIdentifier)
	if id == "" {
		return ""
	}
	return parentOf(id)
}

// Description implements organise.ColumnModifier.
func (ParentID) Description() string {
	return "Extracts parent_id from accessIdentifier by removing the last underscore segment"
}

// AppliesTo implements organise.Applicable.
func (ParentID) AppliesTo(schema *core.Schema) bool {
	return schema.Has(ColumnAccessIdentifier)
}
