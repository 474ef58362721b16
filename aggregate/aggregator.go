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
	"strconv"

	"github.com/aaronlmathis/organise/core"
)

// Aggregator defines the interface for per-group accumulation.
// Aggregators process the records of one group and produce a single cell.
type Aggregator interface {
	// Add processes a record for aggregation.
	Add(ctx context.Context, record core.Record) error
	// Result returns the aggregated cell value.
	Result() string
	// Reset clears the aggregator state for reuse.
	Reset()
	// Clone returns a fresh aggregator with the same configuration.
	Clone() Aggregator
}

// CountAggregator counts the records of a group.
type CountAggregator struct {
	count int
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	c.count++
	return nil
}

func (c *CountAggregator) Result() string {
	return strconv.Itoa(c.count)
}

func (c *CountAggregator) Reset() {
	c.count = 0
}

func (c *CountAggregator) Clone() Aggregator {
	return &CountAggregator{}
}

// Count returns the number of records added so far.
func (c *CountAggregator) Count() int {
	return c.count
}

// FirstAggregator keeps the normalized value of Field from the first record of
// a group. Later records never overwrite it, even when the first was absent.
type FirstAggregator struct {
	Field string
	value string
	set   bool
}

func (f *FirstAggregator) Add(ctx context.Context, record core.Record) error {
	if f.set {
		return nil
	}
	v, _ := record.Get(f.Field)
	f.value = core.NormalizeCell(v)
	f.set = true
	return nil
}

func (f *FirstAggregator) Result() string {
	return f.value
}

func (f *FirstAggregator) Reset() {
	f.value = ""
	f.set = false
}

func (f *FirstAggregator) Clone() Aggregator {
	return &FirstAggregator{Field: f.Field}
}
