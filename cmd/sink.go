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
	"context"

	"github.com/aaronlmathis/organise/config"
	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/location"
	"github.com/aaronlmathis/organise/writers"
	"github.com/pkg/errors"
)

// sink is the output selected by --format.
type sink struct {
	core.DataSink
	written func() int64
}

// Abort discards the output when the underlying writer supports it.
func (s *sink) Abort() error {
	return core.Finish(s.DataSink, true)
}

// newSink creates uri and encodes records with schema in format.
func newSink(ctx context.Context, uri string, schema *core.Schema, format string, opts []location.Option) (*sink, error) {
	wc, err := location.Create(ctx, uri, opts...)
	if err != nil {
		return nil, err
	}
	switch format {
	case config.FormatJSON:
		w := writers.NewJSONWriter(wc)
		return &sink{DataSink: w, written: w.RecordsWritten}, nil
	case config.FormatParquet:
		w, err := writers.NewParquetWriter(wc, schema)
		if err != nil {
			core.Finish(wc, true)
			return nil, errors.Wrapf(err, "writing %s", uri)
		}
		return &sink{DataSink: w, written: func() int64 { return w.Stats().RecordsWritten }}, nil
	case config.FormatCSV, "":
		w, err := writers.NewCSVWriter(wc, schema)
		if err != nil {
			wc.Close()
			return nil, errors.Wrapf(err, "writing %s", uri)
		}
		return &sink{DataSink: w, written: func() int64 { return w.Stats().RecordsWritten }}, nil
	default:
		wc.Close()
		return nil, errors.Errorf("unknown output format %q", format)
	}
}
