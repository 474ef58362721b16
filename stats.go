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
	"sort"
)

// ProcessingStats is the read-only result of a pipeline run.
type ProcessingStats struct {
	TotalRows          int64
	CellsModified      int64
	ValidationFailures int64
	// ColumnsProcessed lists, sorted, every column with at least one changed cell.
	ColumnsProcessed []string
}

// Processed reports whether column had at least one changed cell.
func (s ProcessingStats) Processed(column string) bool {
	i := sort.SearchStrings(s.ColumnsProcessed, column)
	return i < len(s.ColumnsProcessed) && s.ColumnsProcessed[i] == column
}

// statsCollector accumulates counts during one run. It is owned by the
// processing loop and never shared.
type statsCollector struct {
	totalRows          int64
	cellsModified      int64
	validationFailures int64
	columns            map[string]struct{}
}

func newStatsCollector() *statsCollector {
	return &statsCollector{columns: make(map[string]struct{})}
}

func (c *statsCollector) row() {
	c.totalRows++
}

func (c *statsCollector) modified(column string) {
	c.cellsModified++
	c.columns[column] = struct{}{}
}

func (c *statsCollector) failure() {
	c.validationFailures++
}

func (c *statsCollector) snapshot() ProcessingStats {
	cols := make([]string, 0, len(c.columns))
	for col := range c.columns {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return ProcessingStats{
		TotalRows:          c.totalRows,
		CellsModified:      c.cellsModified,
		ValidationFailures: c.validationFailures,
		ColumnsProcessed:   cols,
	}
}
