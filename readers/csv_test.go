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
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aaronlmathis/organise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadCloser struct {
	*strings.Reader
	closed bool
}

func (m *mockReadCloser) Close() error {
	m.closed = true
	return nil
}

func newMockReadCloser(s string) *mockReadCloser {
	return &mockReadCloser{Reader: strings.NewReader(s)}
}

func readAll(t *testing.T, r *CSVReader) [][]string {
	t.Helper()
	var out [][]string
	for {
		rec, err := r.Read(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		assert.Same(t, r.Schema(), rec.Schema)
		out = append(out, rec.Values)
	}
}

func TestCSVReader(t *testing.T) {
	t.Run("reads header and records", func(t *testing.T) {
		rc := newMockReadCloser("accessIdentifier,file,title\na_1,doc, A \n\"b,2\",#VALUE!,\n")
		r, err := NewCSVReader(rc)
		require.NoError(t, err)

		assert.Equal(t, []string{"accessIdentifier", "file", "title"}, r.Schema().Names())
		rows := readAll(t, r)
		assert.Equal(t, [][]string{{"a_1", "doc", " A "}, {"b,2", "#VALUE!", ""}}, rows)

		stats := r.Stats()
		assert.Equal(t, int64(2), stats.RecordsRead)
		assert.Equal(t, int64(1), stats.EmptyValueCounts["file"])
		assert.Equal(t, int64(1), stats.EmptyValueCounts["title"])

		require.NoError(t, r.Close())
		assert.True(t, rc.closed)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("\ufeffparent_id,fileTitle\nx,y\n"))
		require.NoError(t, err)
		assert.True(t, r.Schema().Has("parent_id"))
	})

	t.Run("header only", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("a,b\n"))
		require.NoError(t, err)
		assert.Empty(t, readAll(t, r))
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := NewCSVReader(newMockReadCloser(""))
		require.Error(t, err)
		var re *CSVReaderError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "read_headers", re.Op)
	})

	t.Run("duplicate header", func(t *testing.T) {
		_, err := NewCSVReader(newMockReadCloser("a,a\n1,2\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDuplicateColumn)
	})

	t.Run("column count mismatch", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("a,b\n1,2\n3\n4,5\n"))
		require.NoError(t, err)

		_, err = r.Read(context.Background())
		require.NoError(t, err)
		_, err = r.Read(context.Background())
		require.Error(t, err)
		var se *core.SchemaError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 2, se.Row)
		assert.Equal(t, 2, se.Want)
		assert.Equal(t, 1, se.Got)
	})

	t.Run("custom comma", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("a;b\n1;2\n"), WithCSVComma(';'))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"1", "2"}}, readAll(t, r))
	})

	t.Run("comments and lazy quotes", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("a,b\n# skipped\nx \"y\" z,2\n"),
			WithCSVComment('#'), WithCSVLazyQuotes(true))
		require.NoError(t, err)
		assert.Equal(t, [][]string{{`x "y" z`, "2"}}, readAll(t, r))
	})

	t.Run("cancelled context", func(t *testing.T) {
		r, err := NewCSVReader(newMockReadCloser("a\n1\n"))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = r.Read(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
