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

package transform

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/aaronlmathis/organise/core"
	"golang.org/x/text/encoding/charmap"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Package transform provides record level transformers that run before the
// column modifiers see a row.
//
// Every transformer rewrites cells in place and keeps the record's schema.
// When no fields are named a transformer applies to every column.

const nbsp = "\u00a0"

// mojibakeMarkers are runes that UTF-8 text decoded as Windows-1252 starts
// its multi-byte sequences with.
const mojibakeMarkers = "ÃÂâÅÆ"

// TrimSpace creates a transformer that trims leading and trailing whitespace.
func TrimSpace(fields ...string) core.Transformer {
	return apply(fields, strings.TrimSpace)
}

// NormalizePlaceholders creates a transformer that clears cells holding only
// the spreadsheet error marker.
func NormalizePlaceholders(fields ...string) core.Transformer {
	return apply(fields, func(s string) string {
		if core.IsAbsent(s) {
			return ""
		}
		return s
	})
}

// RepairText creates a transformer that undoes UTF-8 text that was decoded as
// Windows-1252, replaces no-break spaces with ordinary spaces and composes the
// result to NFC.
func RepairText(fields ...string) core.Transformer {
	return apply(fields, Repair)
}

// Repair applies the RepairText rules to a single value.
func Repair(s string) string {
	if strings.ContainsAny(s, mojibakeMarkers) {
		if raw, err := charmap.Windows1252.NewEncoder().String(s); err == nil && utf8.ValidString(raw) {
			s = raw
		}
	}
	if strings.Contains(s, nbsp) {
		s = strings.ReplaceAll(s, nbsp, " ")
	}
	if !norm.NFC.IsNormalString(s) {
		if composed, _, err := xtransform.String(norm.NFC, s); err == nil {
			s = composed
		}
	}
	return s
}

func apply(fields []string, fn func(string) string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		if len(fields) == 0 {
			for i, v := range record.Values {
				record.Values[i] = fn(v)
			}
			return record, nil
		}
		for _, field := range fields {
			if v, ok := record.Get(field); ok {
				record.Set(field, fn(v))
			}
		}
		return record, nil
	})
}
