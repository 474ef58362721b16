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
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/organise/core"
)

// ParquetReaderError wraps Parquet-specific read errors with the operation
// that failed.
type ParquetReaderError struct {
	Op  string
	Err error
}

func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ParquetReader implements DataSource for Parquet files. The schema is the
// file's column order. String and binary columns read as is, numbers and
// booleans as their decimal text and nulls as "".
type ParquetReader struct {
	closer  io.Closer
	records pqarrow.RecordReader
	schema  *core.Schema
	batch   arrow.Record
	pos     int
	read    int64
}

// NewParquetReader reads the footer of the Parquet file behind r. Readers
// that cannot seek, such as HTTP or S3 bodies, are buffered in memory.
func NewParquetReader(r io.ReadCloser) (*ParquetReader, error) {
	src, ok := r.(parquet.ReaderAtSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			r.Close()
			return nil, &ParquetReaderError{Op: "read_file", Err: err}
		}
		src = bytes.NewReader(data)
	}

	pf, err := file.NewParquetReader(src)
	if err != nil {
		r.Close()
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: 1024}, memory.NewGoAllocator())
	if err != nil {
		r.Close()
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}
	arrowSchema, err := fr.Schema()
	if err != nil {
		r.Close()
		return nil, &ParquetReaderError{Op: "read_schema", Err: err}
	}
	names := make([]string, len(arrowSchema.Fields()))
	for i, f := range arrowSchema.Fields() {
		names[i] = f.Name
	}
	schema, err := core.NewSchema(names)
	if err != nil {
		r.Close()
		return nil, &ParquetReaderError{Op: "read_schema", Err: err}
	}
	records, err := fr.GetRecordReader(context.Background(), nil, nil)
	if err != nil {
		r.Close()
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{closer: r, records: records, schema: schema}, nil
}

// Schema implements the DataSource interface.
func (p *ParquetReader) Schema() *core.Schema {
	return p.schema
}

// Read implements the DataSource interface.
func (p *ParquetReader) Read(ctx context.Context) (core.Record, error) {
	select {
	case <-ctx.Done():
		return core.Record{}, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	for p.batch == nil || p.pos >= int(p.batch.NumRows()) {
		if err := p.nextBatch(); err != nil {
			return core.Record{}, err
		}
	}

	values := make([]string, p.batch.NumCols())
	for i := range values {
		v, err := cellString(p.batch.Column(i), p.pos)
		if err != nil {
			return core.Record{}, &ParquetReaderError{
				Op:  "read_record",
				Err: fmt.Errorf("row %d column %q: %w", p.read+1, p.schema.Names()[i], err),
			}
		}
		values[i] = v
	}
	p.pos++
	p.read++
	return core.Record{Schema: p.schema, Values: values}, nil
}

// nextBatch replaces the current batch. The record reader owns the batches
// it returns, so each one is retained until the next is loaded.
func (p *ParquetReader) nextBatch() error {
	if p.batch != nil {
		p.batch.Release()
		p.batch = nil
	}
	rec, err := p.records.Read()
	if err == io.EOF || (err == nil && rec == nil) {
		return io.EOF
	}
	if err != nil {
		return &ParquetReaderError{Op: "load_batch", Err: err}
	}
	rec.Retain()
	p.batch, p.pos = rec, 0
	return nil
}

func cellString(col arrow.Array, i int) (string, error) {
	if col.IsNull(i) {
		return "", nil
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(i), nil
	case *array.LargeString:
		return a.Value(i), nil
	case *array.Binary:
		return string(a.Value(i)), nil
	case *array.Boolean:
		return strconv.FormatBool(a.Value(i)), nil
	case *array.Int32:
		return strconv.FormatInt(int64(a.Value(i)), 10), nil
	case *array.Int64:
		return strconv.FormatInt(a.Value(i), 10), nil
	case *array.Float32:
		return strconv.FormatFloat(float64(a.Value(i)), 'f', -1, 32), nil
	case *array.Float64:
		return strconv.FormatFloat(a.Value(i), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported column type %s", col.DataType())
	}
}

// RecordsRead returns the number of records returned so far.
func (p *ParquetReader) RecordsRead() int64 {
	return p.read
}

// Close implements the DataSource interface.
func (p *ParquetReader) Close() error {
	if p.batch != nil {
		p.batch.Release()
		p.batch = nil
	}
	if p.records != nil {
		p.records.Release()
		p.records = nil
	}
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}
