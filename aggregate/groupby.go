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

package aggregate

import (
	"context"

	"github.com/aaronlmathis/organise/core"
	"github.com/pkg/errors"
)

type output struct {
	field      string
	aggregator Aggregator
}

type group struct {
	key         string
	aggregators []Aggregator
}

// GroupBy accumulates records into one group per distinct normalized key
// value. Groups are kept in order of first appearance. Records whose key is
// empty or the placeholder marker are skipped.
type GroupBy struct {
	keyField string
	outputs  []output
	groups   []*group
	index    map[string]int
	skipped  int
}

// NewGroupBy creates a GroupBy keyed on keyField.
func NewGroupBy(keyField string) *GroupBy {
	return &GroupBy{
		keyField: keyField,
		index:    make(map[string]int),
	}
}

// Count adds a count aggregator for the specified output field
func (g *GroupBy) Count(outputField string) *GroupBy {
	return g.With(outputField, &CountAggregator{})
}

// First adds an aggregator keeping the first value of field
func (g *GroupBy) First(field, outputField string) *GroupBy {
	return g.With(outputField, &FirstAggregator{Field: field})
}

// With adds a custom aggregator. It is cloned for every group.
func (g *GroupBy) With(outputField string, a Aggregator) *GroupBy {
	g.outputs = append(g.outputs, output{field: outputField, aggregator: a})
	return g
}

// Add folds record into its group and reports whether it was counted.
func (g *GroupBy) Add(ctx context.Context, record core.Record) (bool, error) {
	raw, _ := record.Get(g.keyField)
	key := core.NormalizeCell(raw)
	if key == "" {
		g.skipped++
		return false, nil
	}

	i, ok := g.index[key]
	if !ok {
		grp := &group{key: key, aggregators: make([]Aggregator, len(g.outputs))}
		for j, o := range g.outputs {
			grp.aggregators[j] = o.aggregator.Clone()
		}
		i = len(g.groups)
		g.groups = append(g.groups, grp)
		g.index[key] = i
	}

	for j, a := range g.groups[i].aggregators {
		if err := a.Add(ctx, record); err != nil {
			return false, errors.Wrapf(err, "aggregation error for field %s", g.outputs[j].field)
		}
	}
	return true, nil
}

// Schema returns the result schema: the key field followed by the outputs.
func (g *GroupBy) Schema() (*core.Schema, error) {
	names := make([]string, 0, len(g.outputs)+1)
	names = append(names, g.keyField)
	for _, o := range g.outputs {
		names = append(names, o.field)
	}
	return core.NewSchema(names)
}

// Results returns one record per group in first appearance order.
func (g *GroupBy) Results() ([]core.Record, error) {
	schema, err := g.Schema()
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, 0, len(g.groups))
	for _, grp := range g.groups {
		values := make([]string, 0, schema.Len())
		values = append(values, grp.key)
		for _, a := range grp.aggregators {
			values = append(values, a.Result())
		}
		out = append(out, core.Record{Schema: schema, Values: values})
	}
	return out, nil
}

// Len returns the number of groups.
func (g *GroupBy) Len() int {
	return len(g.groups)
}

// Skipped returns the number of records without a usable key.
func (g *GroupBy) Skipped() int {
	return g.skipped
}

// Reset discards all groups.
func (g *GroupBy) Reset() {
	g.groups = nil
	g.index = make(map[string]int)
	g.skipped = 0
}
