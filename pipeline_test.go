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

package organise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource serves fixed rows under a fixed schema.
type sliceSource struct {
	schema *core.Schema
	rows   [][]string
	pos    int
	closed bool
}

func newSliceSource(header []string, rows ...[]string) *sliceSource {
	return &sliceSource{schema: core.MustSchema(header...), rows: rows}
}

func (s *sliceSource) Schema() *core.Schema { return s.schema }

func (s *sliceSource) Read(ctx context.Context) (Record, error) {
	if s.pos >= len(s.rows) {
		return Record{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return Record{Schema: s.schema, Values: append([]string(nil), row...)}, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// memorySink collects written records.
type memorySink struct {
	records  [][]string
	flushed  bool
	closed   bool
	failOn   int // fail the nth write (1-based), 0 never
	failErr  error
	writeCnt int
}

func (m *memorySink) Write(ctx context.Context, r Record) error {
	m.writeCnt++
	if m.failOn > 0 && m.writeCnt == m.failOn {
		return m.failErr
	}
	m.records = append(m.records, append([]string(nil), r.Values...))
	return nil
}

func (m *memorySink) Flush() error {
	m.flushed = true
	return nil
}

func (m *memorySink) Close() error {
	m.closed = true
	return nil
}

// abortingSink records whether the pipeline discarded its output.
type abortingSink struct {
	memorySink
	aborted bool
}

func (a *abortingSink) Abort() error {
	a.aborted = true
	return nil
}

// upper rewrites its target to upper case and rejects empty values.
type upper struct{}

func (upper) Modify(v string, _ *RowContext) string { return strings.ToUpper(v) }
func (upper) Description() string                   { return "Upper cases the value" }
func (upper) Validate(v string, _ *RowContext) bool { return v != "" }

// copyFrom copies a sibling column into the target.
type copyFrom struct{ source string }

func (c copyFrom) Modify(_ string, row *RowContext) string { return row.Value(c.source) }
func (c copyFrom) Description() string                     { return "Copies " + c.source }
func (c copyFrom) AppliesTo(s *core.Schema) bool           { return s.Has(c.source) }

func TestPipelineBuilder(t *testing.T) {
	t.Run("requires source and sink", func(t *testing.T) {
		_, err := NewPipeline().To(&memorySink{}).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data source")

		_, err = NewPipeline().From(newSliceSource([]string{"a"})).Build()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data sink")
	})

	t.Run("filters without registry", func(t *testing.T) {
		_, err := NewPipeline().
			From(newSliceSource([]string{"a"})).
			To(&memorySink{}).
			OnlyRun("x").
			Build()
		require.Error(t, err)
	})

	t.Run("active set honours only and ignore", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister("parent-id", "parent_id", upper{})
		reg.MustRegister("file-extension", "file", upper{})
		reg.MustRegister("other", "other", upper{})

		p, err := NewPipeline().
			From(newSliceSource([]string{"a"})).
			To(&memorySink{}).
			WithRegistry(reg).
			OnlyRun("parent-id", "file-extension").
			IgnoreRun("file-extension").
			Build()
		require.NoError(t, err)
		active := p.Active()
		require.Len(t, active, 1)
		assert.Equal(t, "parent-id", active[0].Name)
	})

	t.Run("rejects two bindings on one column", func(t *testing.T) {
		reg := NewRegistry()
		reg.MustRegister("one", "a", upper{})
		_, err := NewPipeline().
			From(newSliceSource([]string{"a"})).
			To(&memorySink{}).
			WithRegistry(reg).
			Modify(Binding{Name: "two", Column: "a", Modifier: upper{}}).
			Build()
		require.Error(t, err)
	})
}

func TestPipelineExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("counts rows and modifications", func(t *testing.T) {
		src := newSliceSource([]string{"name", "other"},
			[]string{"alpha", "x"},
			[]string{"BETA", "y"},
			[]string{"gamma", "z"},
		)
		sink := &memorySink{}
		stats, err := Run(ctx, []Binding{{Name: "upper", Column: "name", Modifier: upper{}}}, src, sink)
		require.NoError(t, err)

		assert.Equal(t, int64(3), stats.TotalRows)
		assert.Equal(t, int64(2), stats.CellsModified)
		assert.Equal(t, int64(0), stats.ValidationFailures)
		assert.Equal(t, []string{"name"}, stats.ColumnsProcessed)
		assert.True(t, stats.Processed("name"))
		assert.False(t, stats.Processed("other"))
		assert.Equal(t, [][]string{{"ALPHA", "x"}, {"BETA", "y"}, {"GAMMA", "z"}}, sink.records)
		assert.True(t, sink.flushed)
		assert.True(t, sink.closed)
		assert.True(t, src.closed)
	})

	t.Run("empty stream", func(t *testing.T) {
		sink := &memorySink{}
		stats, err := Run(ctx, nil, newSliceSource([]string{"a"}), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.TotalRows)
		assert.Empty(t, stats.ColumnsProcessed)
		assert.True(t, sink.flushed)
	})

	t.Run("no modifiers passes rows through", func(t *testing.T) {
		sink := &memorySink{}
		stats, err := Run(ctx, nil, newSliceSource([]string{"a", "b"}, []string{"1", "2"}), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalRows)
		assert.Equal(t, int64(0), stats.CellsModified)
		assert.Equal(t, [][]string{{"1", "2"}}, sink.records)
	})

	t.Run("missing target column is skipped", func(t *testing.T) {
		sink := &memorySink{}
		stats, err := Run(ctx, []Binding{{Name: "upper", Column: "absent", Modifier: upper{}}},
			newSliceSource([]string{"a"}, []string{"x"}), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalRows)
		assert.Equal(t, int64(0), stats.ValidationFailures)
		assert.Equal(t, [][]string{{"x"}}, sink.records)
	})

	t.Run("missing source column is skipped", func(t *testing.T) {
		sink := &memorySink{}
		stats, err := Run(ctx, []Binding{{Name: "copy", Column: "a", Modifier: copyFrom{source: "b"}}},
			newSliceSource([]string{"a"}, []string{"x"}), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.CellsModified)
		assert.Equal(t, [][]string{{"x"}}, sink.records)
	})

	t.Run("modifiers read pre-modification values", func(t *testing.T) {
		src := newSliceSource([]string{"a", "b"}, []string{"one", "two"})
		sink := &memorySink{}
		active := []Binding{
			{Name: "a-from-b", Column: "a", Modifier: copyFrom{source: "b"}},
			{Name: "b-from-a", Column: "b", Modifier: copyFrom{source: "a"}},
		}
		stats, err := Run(ctx, active, src, sink)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"two", "one"}}, sink.records)
		assert.Equal(t, int64(2), stats.CellsModified)
		assert.Equal(t, []string{"a", "b"}, stats.ColumnsProcessed)
	})

	t.Run("validation failure does not stop modify", func(t *testing.T) {
		log := logger.NewBufferLogger()
		src := newSliceSource([]string{"name"}, []string{""}, []string{"ok"})
		sink := &memorySink{}
		stats, err := Run(ctx, []Binding{{Name: "upper", Column: "name", Modifier: upper{}}}, src, sink,
			WithValidationReporter(NewValidationReporter(log, 25)))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.ValidationFailures)
		assert.Equal(t, int64(2), stats.TotalRows)
		assert.Equal(t, [][]string{{""}, {"OK"}}, sink.records)
		lines := log.Lines()
		require.Len(t, lines, 1)
		assert.Contains(t, lines[0], "column 'name' at row 1")
	})

	t.Run("schema error aborts the run", func(t *testing.T) {
		src := newSliceSource([]string{"a", "b"},
			[]string{"1", "2"},
			[]string{"3"},
			[]string{"4", "5"},
		)
		sink := &memorySink{}
		stats, err := Run(ctx, nil, src, sink)
		require.Error(t, err)

		var se *core.SchemaError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 2, se.Row)
		assert.Equal(t, 2, se.Want)
		assert.Equal(t, 1, se.Got)
		assert.Equal(t, int64(1), stats.TotalRows)
		assert.Len(t, sink.records, 1)
		assert.False(t, sink.flushed)
		assert.True(t, sink.closed)
	})

	t.Run("sink error is fatal", func(t *testing.T) {
		sink := &memorySink{failOn: 2, failErr: fmt.Errorf("disk full")}
		src := newSliceSource([]string{"a"}, []string{"1"}, []string{"2"}, []string{"3"})
		_, err := Run(ctx, nil, src, sink)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Contains(t, err.Error(), "row 2")
		assert.Len(t, sink.records, 1)
	})

	t.Run("failed run aborts the sink", func(t *testing.T) {
		sink := &abortingSink{memorySink: memorySink{failOn: 1, failErr: fmt.Errorf("disk full")}}
		_, err := Run(ctx, nil, newSliceSource([]string{"a"}, []string{"1"}), sink)
		require.Error(t, err)
		assert.True(t, sink.aborted)
		assert.False(t, sink.closed)
	})

	t.Run("successful run closes an abortable sink", func(t *testing.T) {
		sink := &abortingSink{}
		_, err := Run(ctx, nil, newSliceSource([]string{"a"}, []string{"1"}), sink)
		require.NoError(t, err)
		assert.False(t, sink.aborted)
		assert.True(t, sink.closed)
	})

	t.Run("context cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Run(cctx, nil, newSliceSource([]string{"a"}, []string{"1"}), &memorySink{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("transformer changes are counted", func(t *testing.T) {
		trim := core.TransformFunc(func(ctx context.Context, r Record) (Record, error) {
			for i, v := range r.Values {
				r.Values[i] = strings.TrimSpace(v)
			}
			return r, nil
		})
		src := newSliceSource([]string{"a", "b"}, []string{" x ", "y"})
		sink := &memorySink{}
		stats, err := Run(ctx, nil, src, sink, WithTransformers(trim))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.CellsModified)
		assert.Equal(t, []string{"a"}, stats.ColumnsProcessed)
		assert.Equal(t, [][]string{{"x", "y"}}, sink.records)
	})

	t.Run("row checks report failures but keep rows", func(t *testing.T) {
		src := newSliceSource([]string{"accessIdentifier"},
			[]string{"a_01"}, []string{"a_02"}, []string{" a_01 "}, []string{""}, []string{""},
		)
		sink := &memorySink{}
		stats, err := Run(ctx, nil, src, sink, WithChecks(NewUniqueColumn("accessIdentifier")))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.ValidationFailures)
		assert.Len(t, sink.records, 5)
	})
}

func TestPipelineReporterLimit(t *testing.T) {
	rows := make([][]string, 100)
	for i := range rows {
		rows[i] = []string{""}
	}
	log := logger.NewBufferLogger()
	reporter := NewValidationReporter(log, 25)

	stats, err := Run(context.Background(),
		[]Binding{{Name: "upper", Column: "name", Modifier: upper{}}},
		newSliceSource([]string{"name"}, rows...), &memorySink{},
		WithValidationReporter(reporter))
	require.NoError(t, err)

	assert.Equal(t, int64(100), stats.ValidationFailures)
	assert.Equal(t, int64(25), reporter.Emitted())
	assert.Equal(t, int64(75), reporter.Suppressed())

	lines := log.Lines()
	require.Len(t, lines, 26)
	assert.Contains(t, lines[25], "Suppressed 75")
}

func TestPipelineModifierFunc(t *testing.T) {
	trim := ModifierFunc{
		Label: "Trims notes",
		Fn:    func(v string, _ *RowContext) string { return strings.TrimSpace(v) },
	}
	label := ModifierFunc{
		Label: "Labels from title",
		Fn:    func(_ string, row *RowContext) string { return "item: " + row.Value("title") },
		Check: func(_ string, row *RowContext) bool { return row.Value("title") != "" },
	}

	reg := NewRegistry()
	reg.MustRegister("trim-notes", "notes", trim)
	reg.MustRegister("label", "label", label)

	log := logger.NewBufferLogger()
	sink := &memorySink{}
	p, err := NewPipeline().
		From(newSliceSource([]string{"title", "notes", "label"},
			[]string{"Map", " a ", ""},
			[]string{"", "", "old"},
		)).
		To(sink).
		WithRegistry(reg).
		WithReporter(NewValidationReporter(log, DefaultValidationLogLimit)).
		Build()
	require.NoError(t, err)

	stats, err := p.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"Map", "a", "item: Map"},
		{"", "", "item: "},
	}, sink.records)
	assert.Equal(t, int64(1), stats.ValidationFailures, "nil Check accepts every value")
	assert.Equal(t, int64(3), stats.CellsModified)
	assert.Equal(t, []string{"label", "notes"}, stats.ColumnsProcessed)

	lines := log.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Validation failed for column 'label' at row 2 using modifier 'Labels from title'")
	assert.Contains(t, lines[0], "Value='old'")
	assert.True(t, trim.Validate("", nil))
}
