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
	"strings"

	"github.com/aaronlmathis/organise"
)

// FieldDescription escapes unescaped semicolons in field_description and
// wraps the result in double quotes.
type FieldDescription struct{}

// Modify implements organise.ColumnModifier.
func (FieldDescription) Modify(value string, _ *organise.RowContext) string {
	if value == "" {
		return `""`
	}
	var b strings.Builder
	b.Grow(len(value) + 2)
	var prev rune
	for _, r := range value {
		if r == ';' && prev != '\\' {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return quote(b.String())
}

// Description implements organise.ColumnModifier.
func (FieldDescription) Description() string {
	return "Escapes unescaped semicolons in field_description"
}

func quote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s
	}
	return `"` + s + `"`
}
