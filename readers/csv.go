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

package readers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aaronlmathis/organise/core"
)

const utf8BOM = "\ufeff"

// CSVReaderError wraps structured error information for the CSV reader.
type CSVReaderError struct {
	Op  string
	Err error
}

func (e *CSVReaderError) Error() string {
	return fmt.Sprintf("csv reader %s: %v", e.Op, e.Err)
}

func (e *CSVReaderError) Unwrap() error {
	return e.Err
}

// CSVReaderStats holds statistics about the CSV reader's performance.
type CSVReaderStats struct {
	RecordsRead      int64
	ReadDuration     time.Duration
	LastReadTime     time.Time
	EmptyValueCounts map[string]int64
}

// CSVReaderOptions configures the CSV reader.
type CSVReaderOptions struct {
	Comma      rune
	Comment    rune
	LazyQuotes bool
}

// ReaderOptionCSV allows functional customization of CSVReader.
type ReaderOptionCSV func(*CSVReaderOptions)

func WithCSVComma(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comma = r }
}

func WithCSVComment(r rune) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.Comment = r }
}

func WithCSVLazyQuotes(lazy bool) ReaderOptionCSV {
	return func(o *CSVReaderOptions) { o.LazyQuotes = lazy }
}

// CSVReader implements core.DataSource for CSV input. The first record is the
// header and fixes the schema; a leading UTF-8 byte order mark is dropped.
// Records are decoded one at a time and cell values are passed through
// untouched.
type CSVReader struct {
	reader *csv.Reader
	schema *core.Schema
	names  []string
	closer io.Closer
	stats  CSVReaderStats
	opts   CSVReaderOptions
	row    int
}

// NewCSVReader creates a CSVReader with default or overridden options and
// reads the header row.
func NewCSVReader(r io.ReadCloser, options ...ReaderOptionCSV) (*CSVReader, error) {
	opts := CSVReaderOptions{
		Comma: ',',
	}

	for _, opt := range options {
		opt(&opts)
	}

	csvReader := csv.NewReader(r)
	csvReader.Comma = opts.Comma
	csvReader.Comment = opts.Comment
	csvReader.LazyQuotes = opts.LazyQuotes
	// Column counts are checked against the header by Read.
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("missing header row")
		}
		return nil, &CSVReaderError{Op: "read_headers", Err: err}
	}
	if strings.HasPrefix(headers[0], utf8BOM) {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	schema, err := core.NewSchema(headers)
	if err != nil {
		return nil, &CSVReaderError{Op: "read_headers", Err: err}
	}

	return &CSVReader{
		reader: csvReader,
		schema: schema,
		names:  schema.Names(),
		closer: r,
		opts:   opts,
		stats:  CSVReaderStats{EmptyValueCounts: make(map[string]int64)},
	}, nil
}

// Schema implements the DataSource interface.
func (c *CSVReader) Schema() *core.Schema {
	return c.schema
}

// Read implements the DataSource interface. A record whose column count
// differs from the header yields a *core.SchemaError carrying its 1-based
// data row number.
func (c *CSVReader) Read(ctx context.Context) (core.Record, error) {
	start := time.Now()

	select {
	case <-ctx.Done():
		return core.Record{}, &CSVReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	values, err := c.reader.Read()
	if err != nil {
		if err == io.EOF {
			return core.Record{}, io.EOF
		}
		return core.Record{}, &CSVReaderError{Op: "read_record", Err: err}
	}
	c.row++

	if len(values) != c.schema.Len() {
		return core.Record{}, &core.SchemaError{Op: "record", Row: c.row, Want: c.schema.Len(), Got: len(values)}
	}

	for i, val := range values {
		if core.IsAbsent(val) {
			c.stats.EmptyValueCounts[c.names[i]]++
		}
	}

	c.stats.RecordsRead++
	c.stats.LastReadTime = time.Now()
	c.stats.ReadDuration += time.Since(start)

	return core.Record{Schema: c.schema, Values: values}, nil
}

// Close implements the DataSource interface.
func (c *CSVReader) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Stats returns CSV reader performance stats.
func (c *CSVReader) Stats() CSVReaderStats {
	return c.stats
}
