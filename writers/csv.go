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

package writers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aaronlmathis/organise/core"
)

// CSVWriterError wraps CSV-specific write errors with context.
type CSVWriterError struct {
	Op  string
	Err error
}

func (e *CSVWriterError) Error() string {
	return fmt.Sprintf("csv writer %s: %v", e.Op, e.Err)
}

func (e *CSVWriterError) Unwrap() error {
	return e.Err
}

// CSVWriterStats holds CSV write performance statistics.
type CSVWriterStats struct {
	RecordsWritten   int64
	FlushCount       int64
	FlushDuration    time.Duration
	LastFlushTime    time.Time
	EmptyValueCounts map[string]int64
}

// CSVWriterOptions configures CSV output.
type CSVWriterOptions struct {
	Comma       rune
	UseCRLF     bool
	WriteHeader bool
	BatchSize   int
}

// WriterOptionCSV is a functional option.
type WriterOptionCSV func(*CSVWriterOptions)

func WithComma(delim rune) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.Comma = delim
	}
}

func WithWriteHeader(write bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.WriteHeader = write
	}
}

// WithCSVBatchSize flushes the underlying writer every size records.
func WithCSVBatchSize(size int) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.BatchSize = size
	}
}

func WithUseCRLF(useCRLF bool) WriterOptionCSV {
	return func(opts *CSVWriterOptions) {
		opts.UseCRLF = useCRLF
	}
}

// CSVWriter implements core.DataSink for CSV output. The header is the
// writer's schema and is written before the first record, or on Flush when no
// record was written. Each record is encoded as soon as it is written.
type CSVWriter struct {
	writer      *csv.Writer
	closer      io.Closer
	options     CSVWriterOptions
	schema      *core.Schema
	names       []string
	pending     int
	stats       CSVWriterStats
	wroteHeader bool
	errorState  bool
	closed      bool
	mu          sync.Mutex
}

// NewCSVWriter creates a new CSV writer for records of schema.
func NewCSVWriter(w io.WriteCloser, schema *core.Schema, opts ...WriterOptionCSV) (*CSVWriter, error) {
	if schema == nil {
		return nil, &CSVWriterError{Op: "init", Err: fmt.Errorf("schema is required")}
	}
	options := CSVWriterOptions{
		Comma:       ',',
		UseCRLF:     false,
		WriteHeader: true,
		BatchSize:   0,
	}

	for _, opt := range opts {
		opt(&options)
	}

	cw := csv.NewWriter(w)
	cw.Comma = options.Comma
	cw.UseCRLF = options.UseCRLF

	return &CSVWriter{
		writer:  cw,
		closer:  w,
		options: options,
		schema:  schema,
		names:   schema.Names(),
		stats:   CSVWriterStats{EmptyValueCounts: make(map[string]int64)},
	}, nil
}

// Write implements the DataSink interface. Records sharing the writer's
// schema are written positionally; records of another schema are matched by
// column name and missing columns are left empty.
func (c *CSVWriter) Write(ctx context.Context, record core.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.errorState {
		return &CSVWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if c.closed {
		return &CSVWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	if err := c.writeHeaderUnsafe(); err != nil {
		return err
	}

	row := c.project(record)
	for i, v := range row {
		if core.IsAbsent(v) {
			c.stats.EmptyValueCounts[c.names[i]]++
		}
	}
	if err := c.writer.Write(row); err != nil {
		c.errorState = true
		return &CSVWriterError{Op: "write_row", Err: err}
	}
	c.stats.RecordsWritten++
	c.pending++

	if c.options.BatchSize > 0 && c.pending >= c.options.BatchSize {
		if err := c.flushUnsafe(); err != nil {
			c.errorState = true
			return &CSVWriterError{Op: "flush_batch", Err: err}
		}
	}

	return nil
}

func (c *CSVWriter) project(record core.Record) []string {
	return project(c.names, c.schema, record)
}

// project orders record's values by names. Columns the record lacks are
// empty.
func project(names []string, schema *core.Schema, record core.Record) []string {
	if record.Schema == nil || record.Schema == schema {
		if len(record.Values) == len(names) {
			return record.Values
		}
	}
	row := make([]string, len(names))
	for i, name := range names {
		if v, ok := record.Get(name); ok {
			row[i] = v
		}
	}
	return row
}

func (c *CSVWriter) writeHeaderUnsafe() error {
	if c.wroteHeader || !c.options.WriteHeader {
		return nil
	}
	if err := c.writer.Write(c.names); err != nil {
		c.errorState = true
		return &CSVWriterError{Op: "write_header", Err: err}
	}
	c.wroteHeader = true
	return nil
}

// Flush implements the DataSink interface.
func (c *CSVWriter) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if err := c.writeHeaderUnsafe(); err != nil {
		return err
	}
	if err := c.flushUnsafe(); err != nil {
		c.errorState = true
		return &CSVWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements the DataSink interface. Buffered output is flushed, the
// header is not forced, and the underlying writer is closed once.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var err error
	if ferr := c.flushUnsafe(); ferr != nil {
		err = &CSVWriterError{Op: "close", Err: ferr}
	}
	if c.closer != nil {
		if cerr := c.closer.Close(); cerr != nil && err == nil {
			err = &CSVWriterError{Op: "close", Err: cerr}
		}
	}
	return err
}

// Abort implements core.Aborter. Buffered rows are dropped and the
// underlying destination is aborted when it supports that, closed otherwise.
func (c *CSVWriter) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if err := abortDestination(c.closer); err != nil {
		return &CSVWriterError{Op: "abort", Err: err}
	}
	return nil
}

// abortDestination aborts c, or closes it when it cannot abort.
func abortDestination(c io.Closer) error {
	if c == nil {
		return nil
	}
	if a, ok := c.(core.Aborter); ok {
		return a.Abort()
	}
	return c.Close()
}

// flushUnsafe flushes encoded rows to the underlying writer (must hold mutex).
func (c *CSVWriter) flushUnsafe() error {
	start := time.Now()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return err
	}

	c.stats.FlushCount++
	c.stats.LastFlushTime = time.Now()
	c.stats.FlushDuration += time.Since(start)
	c.pending = 0
	return nil
}

// Stats returns write statistics.
func (c *CSVWriter) Stats() CSVWriterStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy to prevent races
	statsCopy := c.stats
	statsCopy.EmptyValueCounts = make(map[string]int64)
	for k, v := range c.stats.EmptyValueCounts {
		statsCopy.EmptyValueCounts[k] = v
	}
	return statsCopy
}
