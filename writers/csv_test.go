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
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aaronlmathis/organise/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock writer for CSV and JSON testing
type mockWriteCloser struct {
	*strings.Builder
	closed    int
	writes    int
	failWrite bool
	failClose bool
	mu        sync.Mutex
}

func (m *mockWriteCloser) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return 0, io.ErrUnexpectedEOF
	}
	m.writes++
	return m.Builder.Write(p)
}

func (m *mockWriteCloser) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	if m.failClose {
		return io.ErrClosedPipe
	}
	return nil
}

func (m *mockWriteCloser) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Builder.String()
}

func newMockWriteCloser() *mockWriteCloser {
	return &mockWriteCloser{Builder: &strings.Builder{}}
}

func parseCSV(t *testing.T, s string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

var testSchema = core.MustSchema("accessIdentifier", "file", "title")

func rec(values ...string) core.Record {
	return core.Record{Schema: testSchema, Values: values}
}

// TestCSVWriter_BasicFunctionality tests core write operations
func TestCSVWriter_BasicFunctionality(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, rec("a_1", "a/doc.pdf", "Title, with comma")))
	require.NoError(t, writer.Write(ctx, rec("a_2", "", `Quote "here"`)))
	require.NoError(t, writer.Flush())
	require.NoError(t, writer.Close())

	rows := parseCSV(t, mock.String())
	assert.Equal(t, [][]string{
		{"accessIdentifier", "file", "title"},
		{"a_1", "a/doc.pdf", "Title, with comma"},
		{"a_2", "", `Quote "here"`},
	}, rows)
	assert.Equal(t, 1, mock.closed)
}

// TestCSVWriter_EmptyStream writes only the header
func TestCSVWriter_EmptyStream(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema)
	require.NoError(t, err)
	require.NoError(t, writer.Flush())
	require.NoError(t, writer.Close())
	assert.Equal(t, "accessIdentifier,file,title\n", mock.String())
}

// TestCSVWriter_RequiresSchema rejects a nil schema
func TestCSVWriter_RequiresSchema(t *testing.T) {
	_, err := NewCSVWriter(newMockWriteCloser(), nil)
	require.Error(t, err)
	var we *CSVWriterError
	assert.True(t, errors.As(err, &we))
}

// TestCSVWriter_ProjectsForeignSchema matches columns by name
func TestCSVWriter_ProjectsForeignSchema(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema)
	require.NoError(t, err)

	other := core.Record{Schema: core.MustSchema("title", "accessIdentifier"), Values: []string{"T", "id"}}
	require.NoError(t, writer.Write(context.Background(), other))
	require.NoError(t, writer.Close())

	rows := parseCSV(t, mock.String())
	assert.Equal(t, []string{"id", "", "T"}, rows[1])
}

// TestCSVWriter_CustomDelimiter tests custom delimiter functionality
func TestCSVWriter_CustomDelimiter(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, core.MustSchema("name", "value"), WithComma(';'), WithUseCRLF(true))
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), core.Record{Values: []string{"test", "data"}}))
	require.NoError(t, writer.Close())

	assert.Equal(t, "name;value\r\ntest;data\r\n", mock.String())
}

// TestCSVWriter_NoHeaders tests writing without headers
func TestCSVWriter_NoHeaders(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema, WithWriteHeader(false))
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), rec("a", "b", "c")))
	require.NoError(t, writer.Flush())
	require.NoError(t, writer.Close())

	assert.Equal(t, "a,b,c\n", mock.String())
}

// TestCSVWriter_BatchedWrites flushes every BatchSize records
func TestCSVWriter_BatchedWrites(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema, WithCSVBatchSize(2))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, rec("1", "", "")))
	assert.Empty(t, mock.String())
	require.NoError(t, writer.Write(ctx, rec("2", "", "")))
	assert.Len(t, parseCSV(t, mock.String()), 3)

	require.NoError(t, writer.Write(ctx, rec("3", "", "")))
	require.NoError(t, writer.Close())
	assert.Len(t, parseCSV(t, mock.String()), 4)

	stats := writer.Stats()
	assert.Equal(t, int64(3), stats.RecordsWritten)
	assert.Equal(t, int64(2), stats.FlushCount)
}

// TestCSVWriter_EmptyValueTracking counts absent cells per column
func TestCSVWriter_EmptyValueTracking(t *testing.T) {
	writer, err := NewCSVWriter(newMockWriteCloser(), testSchema)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, writer.Write(ctx, rec("a", "", "#VALUE!")))
	require.NoError(t, writer.Write(ctx, rec("b", " ", "t")))

	stats := writer.Stats()
	assert.Equal(t, int64(2), stats.EmptyValueCounts["file"])
	assert.Equal(t, int64(1), stats.EmptyValueCounts["title"])
	assert.Zero(t, stats.EmptyValueCounts["accessIdentifier"])

	stats.EmptyValueCounts["file"] = 99
	assert.Equal(t, int64(2), writer.Stats().EmptyValueCounts["file"])
}

// TestCSVWriter_ErrorHandling tests write, flush and close failures
func TestCSVWriter_ErrorHandling(t *testing.T) {
	ctx := context.Background()

	t.Run("flush failure enters error state", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failWrite = true
		writer, err := NewCSVWriter(mock, testSchema)
		require.NoError(t, err)

		require.NoError(t, writer.Write(ctx, rec("a", "b", "c")))
		err = writer.Flush()
		require.Error(t, err)
		var we *CSVWriterError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, "flush", we.Op)

		err = writer.Write(ctx, rec("a", "b", "c"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error state")
	})

	t.Run("close failure", func(t *testing.T) {
		mock := newMockWriteCloser()
		mock.failClose = true
		writer, err := NewCSVWriter(mock, testSchema)
		require.NoError(t, err)
		assert.ErrorIs(t, writer.Close(), io.ErrClosedPipe)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock, testSchema)
		require.NoError(t, err)
		require.NoError(t, writer.Close())
		require.NoError(t, writer.Close())
		assert.Equal(t, 1, mock.closed)
		assert.Error(t, writer.Write(ctx, rec("a", "b", "c")))
	})
}

// TestCSVWriter_ConcurrentSafety writes from several goroutines
func TestCSVWriter_ConcurrentSafety(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, testSchema)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(t, writer.Write(context.Background(), rec("x", "y", "z")))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, writer.Close())

	assert.Len(t, parseCSV(t, mock.String()), 201)
	assert.Equal(t, int64(200), writer.Stats().RecordsWritten)
}

// abortingWriteCloser is a destination that can discard its output.
type abortingWriteCloser struct {
	*mockWriteCloser
	aborted int
}

func (a *abortingWriteCloser) Abort() error {
	a.aborted++
	return nil
}

// TestCSVWriter_Abort discards the output instead of closing the destination
func TestCSVWriter_Abort(t *testing.T) {
	ctx := context.Background()

	t.Run("destination can abort", func(t *testing.T) {
		dest := &abortingWriteCloser{mockWriteCloser: newMockWriteCloser()}
		writer, err := NewCSVWriter(dest, testSchema)
		require.NoError(t, err)
		require.NoError(t, writer.Write(ctx, rec("a_1", "", "")))

		require.NoError(t, writer.Abort())
		require.NoError(t, writer.Close())
		assert.Equal(t, 1, dest.aborted)
		assert.Equal(t, 0, dest.closed)
	})

	t.Run("destination is closed otherwise", func(t *testing.T) {
		mock := newMockWriteCloser()
		writer, err := NewCSVWriter(mock, testSchema)
		require.NoError(t, err)

		require.NoError(t, writer.Abort())
		require.NoError(t, writer.Abort())
		assert.Equal(t, 1, mock.closed)
		assert.Error(t, writer.Write(ctx, rec("a_1", "", "")))
	})
}
