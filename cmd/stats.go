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

package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/aggregate"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/mattn/go-isatty"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newTable returns a two column table rendering to w. Box drawing is only
// used on a terminal.
func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if isTerminal(w) {
		t.SetStyle(table.StyleLight)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Statistic", "Value"})
	return t
}

// writeProcessingStats renders the --stats table of a modify run.
func writeProcessingStats(w io.Writer, stats organise.ProcessingStats, src *source, written int64, reporter *organise.ValidationReporter) {
	t := newTable(w, "Processing statistics")
	t.AppendRows([]table.Row{
		{"Total rows", stats.TotalRows},
		{"Cells modified", stats.CellsModified},
		{"Validation failures", stats.ValidationFailures},
		{"Failures logged", reporter.Emitted()},
		{"Failures suppressed", reporter.Suppressed()},
		{"Columns processed", joinOrNone(stats.ColumnsProcessed)},
		{"Records read", src.read()},
		{"Records written", written},
	})
	if src.csv != nil {
		read := src.csv.Stats()
		t.AppendRow(table.Row{"Read time", read.ReadDuration.String()})
		if empty := emptyColumns(read.EmptyValueCounts); empty != "" {
			t.AppendRow(table.Row{"Empty cells read", empty})
		}
	}
	t.Render()
}

// writeItemStats renders the statistics of an item summary.
func writeItemStats(w io.Writer, stats aggregate.ItemStats) {
	t := newTable(w, "Item statistics")
	t.AppendRows([]table.Row{
		{"Unique parents", stats.UniqueParents},
		{"Total items", stats.TotalItems},
		{"Skipped rows", stats.SkippedRows},
	})
	t.Render()
}

// emptyColumns formats the non-zero per-column empty counts sorted by name.
func emptyColumns(counts map[string]int64) string {
	if len(counts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(counts))
	for col, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", col, n))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
