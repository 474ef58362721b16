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
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/organise/core"
)

// ParquetWriterError wraps Parquet-specific write errors with the operation
// that failed.
type ParquetWriterError struct {
	Op  string
	Err error
}

func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriterStats holds Parquet write statistics.
type ParquetWriterStats struct {
	RecordsWritten int64
	BatchesWritten int64
	FlushDuration  time.Duration
	LastFlushTime  time.Time
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int
	RowGroupSize int64
	Compression  compress.Compression
}

// WriterOptionParquet is a functional option.
type WriterOptionParquet func(*ParquetWriterOptions)

// WithParquetBatchSize sets the number of records buffered per record batch.
func WithParquetBatchSize(size int) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithRowGroupSize caps the number of rows in a row group.
func WithRowGroupSize(size int64) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// WithCompression sets the column compression codec.
func WithCompression(codec compress.Compression) WriterOptionParquet {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = codec
	}
}

// ParquetWriter implements core.DataSink for Parquet output. Every column of
// the writer's schema is a non-null UTF-8 string column. Records are buffered
// in Arrow builders and written as one record batch every BatchSize records.
type ParquetWriter struct {
	dest       *onceCloser
	writer     *pqarrow.FileWriter
	builder    *array.RecordBuilder
	schema     *core.Schema
	names      []string
	options    ParquetWriterOptions
	pending    int
	stats      ParquetWriterStats
	errorState bool
	closed     bool
}

// NewParquetWriter creates a Parquet writer for records of schema. The file
// footer is written on Close.
func NewParquetWriter(w io.WriteCloser, schema *core.Schema, opts ...WriterOptionParquet) (*ParquetWriter, error) {
	if schema == nil {
		return nil, &ParquetWriterError{Op: "init", Err: fmt.Errorf("schema is required")}
	}
	options := ParquetWriterOptions{
		BatchSize:    1000,
		RowGroupSize: 10000,
		Compression:  compress.Codecs.Snappy,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.BatchSize <= 0 {
		options.BatchSize = 1000
	}

	names := schema.Names()
	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String}
	}
	arrowSchema := arrow.NewSchema(fields, nil)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(options.Compression),
		parquet.WithMaxRowGroupLength(options.RowGroupSize),
	)
	dest := &onceCloser{WriteCloser: w}
	fw, err := pqarrow.NewFileWriter(arrowSchema, dest, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, &ParquetWriterError{Op: "create_writer", Err: err}
	}

	return &ParquetWriter{
		dest:    dest,
		writer:  fw,
		builder: array.NewRecordBuilder(memory.NewGoAllocator(), arrowSchema),
		schema:  schema,
		names:   names,
		options: options,
	}, nil
}

// Write implements the DataSink interface. Records under another schema are
// projected by column name.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	for i, v := range project(p.names, p.schema, record) {
		p.builder.Field(i).(*array.StringBuilder).Append(v)
	}
	p.pending++
	p.stats.RecordsWritten++

	if p.pending >= p.options.BatchSize {
		return p.flushBatch()
	}
	return nil
}

// Flush implements the DataSink interface. Buffered records are written as a
// record batch.
func (p *ParquetWriter) Flush() error {
	if p.closed {
		return nil
	}
	return p.flushBatch()
}

func (p *ParquetWriter) flushBatch() error {
	if p.pending == 0 {
		return nil
	}
	start := time.Now()

	rec := p.builder.NewRecord()
	defer rec.Release()
	p.pending = 0

	if err := p.writer.Write(rec); err != nil {
		p.errorState = true
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}

	p.stats.BatchesWritten++
	p.stats.FlushDuration += time.Since(start)
	p.stats.LastFlushTime = time.Now()
	return nil
}

// Close implements the DataSink interface. It writes buffered records and the
// file footer, then closes the destination.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	var err error
	if !p.errorState {
		err = p.flushBatch()
	}
	p.closed = true
	p.builder.Release()

	if cerr := p.writer.Close(); cerr != nil && err == nil {
		err = &ParquetWriterError{Op: "close_writer", Err: cerr}
	}
	if cerr := p.dest.Close(); cerr != nil && err == nil {
		err = &ParquetWriterError{Op: "close", Err: cerr}
	}
	return err
}

// Abort implements core.Aborter. Buffered records and the footer are never
// written.
func (p *ParquetWriter) Abort() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.builder.Release()
	if err := p.dest.abort(); err != nil {
		return &ParquetWriterError{Op: "abort", Err: err}
	}
	return nil
}

// Stats returns a copy of the writer statistics.
func (p *ParquetWriter) Stats() ParquetWriterStats {
	return p.stats
}

// onceCloser closes or aborts the destination exactly once, whichever comes
// first. The Parquet file writer may close its sink itself.
type onceCloser struct {
	io.WriteCloser
	done bool
}

func (o *onceCloser) Close() error {
	if o.done {
		return nil
	}
	o.done = true
	return o.WriteCloser.Close()
}

func (o *onceCloser) abort() error {
	if o.done {
		return nil
	}
	o.done = true
	return abortDestination(o.WriteCloser)
}
