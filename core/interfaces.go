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
	"io"
)

// Package core defines the core interfaces for the Organise library.
//
// This file contains the primary interfaces for record sources, sinks,
// whole-record transformation, and filtering.

// DataSource defines the interface for record extraction.
// Implementations stream records from a byte source one at a time.
type DataSource interface {
	// Schema returns the column set established by the header row.
	Schema() *Schema
	// Read returns the next record or io.EOF when no more records are available.
	Read(ctx context.Context) (Record, error)
	// Close releases any resources held by the data source.
	Close() error
}

// DataSink defines the interface for record loading.
// Implementations write records to a destination incrementally.
type DataSink interface {
	// Write outputs a single record to the sink.
	Write(ctx context.Context, record Record) error
	// Flush ensures all buffered data is written to the sink.
	Flush() error
	// Close releases any resources held by the data sink.
	Close() error
}

// Aborter is implemented by sinks and destinations that can discard their
// output instead of committing it. Abort releases resources like Close, and a
// later Close is a no-op.
type Aborter interface {
	Abort() error
}

// Finish releases c. When failed is set and c is an Aborter its output is
// discarded instead of committed.
func Finish(c io.Closer, failed bool) error {
	if a, ok := c.(Aborter); ok && failed {
		return a.Abort()
	}
	return c.Close()
}

// Transformer defines the interface for whole-record transformation.
// Transformers run before column modifiers and may rewrite any cell.
type Transformer interface {
	// Transform applies the transformation to a record and returns the result.
	Transform(ctx context.Context, record Record) (Record, error)
}

// Filter defines the interface for record filtering.
// Filters determine whether a record should be considered by a consumer.
type Filter interface {
	// ShouldInclude returns true if the record should be included.
	ShouldInclude(ctx context.Context, record Record) (bool, error)
}
