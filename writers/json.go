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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aaronlmathis/organise/core"
)

// JSONWriterError wraps JSON-specific write errors with context.
type JSONWriterError struct {
	Op  string
	Err error
}

func (e *JSONWriterError) Error() string {
	return fmt.Sprintf("json writer %s: %v", e.Op, e.Err)
}

func (e *JSONWriterError) Unwrap() error {
	return e.Err
}

// JSONWriter implements DataSink for JSON lines output. Each record becomes
// one object whose keys follow the record's column order.
type JSONWriter struct {
	writer  *bufio.Writer
	closer  io.Closer
	buf     bytes.Buffer
	written int64
	closed  bool
}

// NewJSONWriter creates a new JSON writer for line-delimited JSON output
func NewJSONWriter(w io.WriteCloser) *JSONWriter {
	return &JSONWriter{
		writer: bufio.NewWriter(w),
		closer: w,
	}
}

// Write implements the DataSink interface
func (j *JSONWriter) Write(ctx context.Context, record core.Record) error {
	if record.Schema == nil {
		return &JSONWriterError{Op: "write", Err: fmt.Errorf("record has no schema")}
	}
	names := record.Schema.Names()

	j.buf.Reset()
	j.buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			j.buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return &JSONWriterError{Op: "marshal", Err: err}
		}
		var value string
		if i < len(record.Values) {
			value = record.Values[i]
		}
		val, err := json.Marshal(value)
		if err != nil {
			return &JSONWriterError{Op: "marshal", Err: err}
		}
		j.buf.Write(key)
		j.buf.WriteByte(':')
		j.buf.Write(val)
	}
	j.buf.WriteString("}\n")

	if _, err := j.writer.Write(j.buf.Bytes()); err != nil {
		return &JSONWriterError{Op: "write", Err: err}
	}
	j.written++
	return nil
}

// Flush implements the DataSink interface
func (j *JSONWriter) Flush() error {
	if err := j.writer.Flush(); err != nil {
		return &JSONWriterError{Op: "flush", Err: err}
	}
	return nil
}

// Close implements the DataSink interface
func (j *JSONWriter) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	ferr := j.writer.Flush()
	if j.closer != nil {
		if err := j.closer.Close(); err != nil {
			return &JSONWriterError{Op: "close", Err: err}
		}
	}
	if ferr != nil {
		return &JSONWriterError{Op: "close", Err: ferr}
	}
	return nil
}

// Abort implements core.Aborter. Buffered objects are dropped.
func (j *JSONWriter) Abort() error {
	if j.closed {
		return nil
	}
	j.closed = true
	if err := abortDestination(j.closer); err != nil {
		return &JSONWriterError{Op: "abort", Err: err}
	}
	return nil
}

// RecordsWritten returns the number of objects written.
func (j *JSONWriter) RecordsWritten() int64 {
	return j.written
}
