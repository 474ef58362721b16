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
	"path"
	"strings"

	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/core"
)

// FilePath rewrites file as "{parent}/{base}.{ext}", where parent is derived
// from accessIdentifier like ParentID, base is the last element of the current
// file value without its extension and ext comes from file_extension or
// file_extention. Applying it to its own output yields the same path.
//
// When any of the three inputs is absent the cell is cleared and the value
// fails validation.
type FilePath struct{}

func extensionOf(row *organise.RowContext) string {
	return row.FirstValue(ColumnFileExtension, ColumnFileExtensionLegacy)
}

// Modify implements organise.ColumnModifier.
func (FilePath) Modify(value string, row *organise.RowContext) string {
	name := core.NormalizeCell(value)
	ext := strings.TrimLeft(extensionOf(row), ".")
	id := row.Value(ColumnAccessIdentifier)
	if name == "" || ext == "" || id == "" {
		return ""
	}
	// Only the last element of file is kept; subdirectories are replaced by
	// the parent directory. A name that is only an extension keeps an empty
	// stem.
	base := path.Base(name)
	base = strings.TrimSuffix(base, path.Ext(base))
	return parentOf(id) + "/" + base + "." + ext
}

// Validate implements organise.Validator.
func (FilePath) Validate(value string, row *organise.RowContext) bool {
	return len(missingPathInputs(value, row)) == 0
}

// Explain implements organise.Explainer.
func (FilePath) Explain(value string, row *organise.RowContext) string {
	return "missing " + strings.Join(missingPathInputs(value, row), ", ")
}

// Description implements organise.ColumnModifier.
func (FilePath) Description() string {
	return "Creates file path with parent_id directory and file extension from accessIdentifier"
}

// AppliesTo implements organise.Applicable.
func (FilePath) AppliesTo(schema *core.Schema) bool {
	return schema.Has(ColumnAccessIdentifier) &&
		(schema.Has(ColumnFileExtension) || schema.Has(ColumnFileExtensionLegacy))
}

func missingPathInputs(value string, row *organise.RowContext) []string {
	var missing []string
	if core.IsAbsent(value) {
		missing = append(missing, ColumnFile)
	}
	if strings.TrimLeft(extensionOf(row), ".") == "" {
		missing = append(missing, ColumnFileExtension)
	}
	if row.Value(ColumnAccessIdentifier) == "" {
		missing = append(missing, ColumnAccessIdentifier)
	}
	return missing
}
