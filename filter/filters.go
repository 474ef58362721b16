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

package filter

import (
	"context"
	"strings"

	"github.com/aaronlmathis/organise/core"
)

// Package filter provides reusable, composable record filters.
//
// Cells are compared after normalization, so surrounding whitespace and the
// spreadsheet error marker never count as data. Records without the named
// field are excluded.

// HasValue creates a filter that excludes records where the field is absent,
// empty or the placeholder marker.
func HasValue(field string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record.Get(field)
		if !exists {
			return false, nil
		}
		return !core.IsAbsent(value), nil
	})
}

// HasSuffix creates a filter that includes records where the normalized field
// ends with suffix.
func HasSuffix(field, suffix string) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		value, exists := record.Get(field)
		if !exists {
			return false, nil
		}
		return strings.HasSuffix(core.NormalizeCell(value), suffix), nil
	})
}

// And includes a record when every filter includes it. An empty And includes
// everything.
func And(filters ...core.Filter) core.Filter {
	return firstMatch(filters, false)
}

// Or includes a record when any filter includes it. An empty Or includes
// nothing.
func Or(filters ...core.Filter) core.Filter {
	return firstMatch(filters, true)
}

// firstMatch evaluates filters in order and stops at the first result equal
// to stop, returning it. Otherwise it returns !stop.
func firstMatch(filters []core.Filter, stop bool) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		for _, f := range filters {
			ok, err := f.ShouldInclude(ctx, record)
			if err != nil {
				return false, err
			}
			if ok == stop {
				return stop, nil
			}
		}
		return !stop, nil
	})
}

// Not inverts f. Errors pass through.
func Not(f core.Filter) core.Filter {
	return core.FilterFunc(func(ctx context.Context, record core.Record) (bool, error) {
		ok, err := f.ShouldInclude(ctx, record)
		return err == nil && !ok, err
	})
}
