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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aaronlmathis/organise/core"
)

// JSONReaderError wraps JSON lines read failures.
type JSONReaderError struct {
	Op  string
	Err error
}

func (e *JSONReaderError) Error() string {
	return fmt.Sprintf("json reader %s: %v", e.Op, e.Err)
}

func (e *JSONReaderError) Unwrap() error {
	return e.Err
}

// JSONReader implements DataSource for JSON lines files. The schema is the
// key order of the first object; later objects may omit keys, which read as
// empty cells, but may not add new ones. Strings are read as is, null as ""
// and other values as their JSON text.
type JSONReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	schema  *core.Schema
	first   []string
	pending bool
	row     int
	read    int64
}

// NewJSONReader creates a new JSON reader for line-delimited JSON and reads
// the first object to establish the schema. A stream without objects yields
// an empty schema and no records.
func NewJSONReader(r io.ReadCloser) (*JSONReader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	j := &JSONReader{scanner: scanner, closer: r}

	line, err := j.next()
	if err == io.EOF {
		j.schema = core.MustSchema()
		return j, nil
	}
	if err != nil {
		return nil, &JSONReaderError{Op: "read_schema", Err: err}
	}
	keys, values, err := decodeObject(line)
	if err != nil {
		return nil, &JSONReaderError{Op: "read_schema", Err: err}
	}
	if j.schema, err = core.NewSchema(keys); err != nil {
		return nil, &JSONReaderError{Op: "read_schema", Err: err}
	}
	j.first, j.pending = values, true
	return j, nil
}

// Schema implements the DataSource interface.
func (j *JSONReader) Schema() *core.Schema {
	return j.schema
}

// Read implements the DataSource interface
func (j *JSONReader) Read(ctx context.Context) (core.Record, error) {
	select {
	case <-ctx.Done():
		return core.Record{}, &JSONReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if j.pending {
		values := j.first
		j.first, j.pending = nil, false
		j.row++
		j.read++
		return core.Record{Schema: j.schema, Values: values}, nil
	}

	line, err := j.next()
	if err != nil {
		if err == io.EOF {
			return core.Record{}, io.EOF
		}
		return core.Record{}, &JSONReaderError{Op: "read_record", Err: err}
	}
	j.row++

	keys, values, err := decodeObject(line)
	if err != nil {
		return core.Record{}, &JSONReaderError{Op: "read_record", Err: fmt.Errorf("line %d: %w", j.row, err)}
	}
	out := make([]string, j.schema.Len())
	for i, key := range keys {
		idx, ok := j.schema.Index(key)
		if !ok {
			return core.Record{}, &core.SchemaError{Op: "record", Row: j.row, Column: key, Err: core.ErrUnknownColumn}
		}
		out[idx] = values[i]
	}
	j.read++
	return core.Record{Schema: j.schema, Values: out}, nil
}

// next returns the next non-blank line.
func (j *JSONReader) next() ([]byte, error) {
	for j.scanner.Scan() {
		if line := bytes.TrimSpace(j.scanner.Bytes()); len(line) > 0 {
			return line, nil
		}
	}
	if err := j.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// decodeObject decodes one flat JSON object preserving key order.
func decodeObject(line []byte) (keys, values []string, err error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		value, err := cellText(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		keys = append(keys, key)
		values = append(values, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func cellText(raw json.RawMessage) (string, error) {
	switch {
	case bytes.Equal(raw, []byte("null")):
		return "", nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	default:
		return string(raw), nil
	}
}

// RecordsRead returns the number of records returned so far.
func (j *JSONReader) RecordsRead() int64 {
	return j.read
}

// Close implements the DataSource interface
func (j *JSONReader) Close() error {
	if j.closer != nil {
		return j.closer.Close()
	}
	return nil
}
