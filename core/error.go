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
	"fmt"

	"github.com/pkg/errors"
)

// Package core defines the error types for the Organise library.

var (
	// ErrDuplicateColumn is returned when a header names a column twice.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrMissingColumn is returned when a consumer requires a column the
	// stream does not carry.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnknownColumn is returned when a record names a column the header
	// does not declare.
	ErrUnknownColumn = errors.New("unknown column")
)

// SchemaError reports a record that does not fit the stream's schema.
// Schema errors are fatal to a run.
type SchemaError struct {
	Op     string // "header", "record" or "require"
	Row    int    // 1-based data row number, 0 when not row specific
	Column string // offending column, if any
	Want   int    // expected column count
	Got    int    // actual column count
	Err    error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "" && e.Err != nil:
		return fmt.Sprintf("schema %s: column %q: %v", e.Op, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("schema %s: row %d has %d columns, header has %d", e.Op, e.Row, e.Got, e.Want)
	default:
		return fmt.Sprintf("schema %s: record has %d columns, header has %d", e.Op, e.Got, e.Want)
	}
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// RequireColumns returns a SchemaError when any of the names is missing.
func RequireColumns(schema *Schema, names ...string) error {
	for _, name := range names {
		if !schema.Has(name) {
			return &SchemaError{Op: "require", Column: name, Err: ErrMissingColumn}
		}
	}
	return nil
}
