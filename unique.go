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
	"github.com/zeebo/xxh3"
)

// UniqueColumn is a RowCheck that rejects a row whose normalized value in
// column was already seen earlier in the stream. Absent values always pass.
// Seen values are kept as 64-bit fingerprints, so a hash collision reads as a
// false duplicate. The check is advisory and never alters the row.
type UniqueColumn struct {
	column string
	seen   map[uint64]struct{}
}

// NewUniqueColumn returns a duplicate check for column.
func NewUniqueColumn(column string) *UniqueColumn {
	return &UniqueColumn{column: column, seen: make(map[uint64]struct{})}
}

// Column implements RowCheck.
func (u *UniqueColumn) Column() string {
	return u.column
}

// Description implements RowCheck.
func (u *UniqueColumn) Description() string {
	return "Rejects duplicate " + u.column + " values"
}

// Check implements RowCheck.
func (u *UniqueColumn) Check(row *RowContext) bool {
	v := row.Value(u.column)
	if v == "" {
		return true
	}
	h := xxh3.HashString(v)
	if _, dup := u.seen[h]; dup {
		return false
	}
	u.seen[h] = struct{}{}
	return true
}

// Seen returns the number of distinct values observed.
func (u *UniqueColumn) Seen() int {
	return len(u.seen)
}
