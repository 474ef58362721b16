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
	"io"

	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/filter"
	"github.com/pkg/errors"
)

// Input and output columns of the item summary.
const (
	ColumnParentID       = "parent_id"
	ColumnFileTitle      = "fileTitle"
	ColumnFileIdentifier = "file_identifier"
	ColumnTitle          = "title"
	ColumnItemCount      = "# of items"
	ColumnMemberOf       = "field_member_of"
)

// ItemsSchema is the fixed schema of the item summary.
var ItemsSchema = core.MustSchema(ColumnFileIdentifier, ColumnTitle, ColumnItemCount, ColumnMemberOf)

// ItemStats describes one GenerateItems run.
type ItemStats struct {
	UniqueParents int // summary rows written
	TotalItems    int // records read
	SkippedRows   int // records without a usable parent_id
}

// GenerateItems groups src by parent_id and writes one summary row per parent
// to sink, in order of first appearance. The title is the fileTitle of the
// first record seen for the parent and node is stamped on every row.
//
// Nothing is written until src is exhausted, so a failed run emits no summary
// rows. The source and sink are closed when GenerateItems returns.
func GenerateItems(ctx context.Context, src core.DataSource, sink core.DataSink, node string) (stats ItemStats, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing source")
		}
		if cerr := core.Finish(sink, err != nil); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing sink")
		}
	}()

	schema := src.Schema()
	if schema == nil {
		return stats, errors.New("data source has no schema")
	}
	// An empty JSON stream has no columns and no records.
	if schema.Len() > 0 {
		if err := core.RequireColumns(schema, ColumnParentID, ColumnFileTitle); err != nil {
			return stats, err
		}
	}

	hasParent := filter.HasValue(ColumnParentID)
	groups := NewGroupBy(ColumnParentID).
		First(ColumnFileTitle, ColumnTitle).
		Count(ColumnItemCount)

	for row := 1; ; row++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		record, err := src.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, errors.Wrapf(err, "reading row %d", row)
		}
		if len(record.Values) != schema.Len() {
			return stats, &core.SchemaError{Op: "record", Row: row, Want: schema.Len(), Got: len(record.Values)}
		}
		record.Schema = schema
		stats.TotalItems++

		keep, err := hasParent.ShouldInclude(ctx, record)
		if err != nil {
			return stats, err
		}
		if !keep {
			stats.SkippedRows++
			continue
		}
		if _, err := groups.Add(ctx, record); err != nil {
			return stats, errors.Wrapf(err, "row %d", row)
		}
	}

	results, err := groups.Results()
	if err != nil {
		return stats, err
	}
	for _, r := range results {
		out := core.Record{
			Schema: ItemsSchema,
			Values: []string{r.Values[0], r.Values[1], r.Values[2], node},
		}
		if err := sink.Write(ctx, out); err != nil {
			return stats, errors.Wrapf(err, "writing summary for %s", r.Values[0])
		}
	}
	if err := sink.Flush(); err != nil {
		return stats, errors.Wrap(err, "flushing sink")
	}
	stats.UniqueParents = len(results)
	return stats, nil
}
