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
	"fmt"
	"io"

	"github.com/aaronlmathis/organise/aggregate"
	"github.com/aaronlmathis/organise/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newGenerateItemsCommand(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ccmd := &cobra.Command{
		Use:   "generate-items [INPUT]",
		Short: "Summarise a processed spreadsheet into one row per parent.",
		Long: `Reads a processed spreadsheet and writes one row per distinct parent_id
with the title of its first file, the number of files and the node
reference given with --node. Rows without a parent_id are skipped.
`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			cfg.GenerateItems = true
			r := newRunner(cfg, stdin, stdout, stderr)
			if err := cfg.Validate(); err != nil {
				return err
			}
			output := cfg.Output
			if output == "" {
				output = placeIn(cfg.OutputDir, "items"+formatExt(cfg.Format))
			}
			stats, err := r.generateItems(c.Context(), r.input(), output)
			if err != nil {
				return err
			}
			r.printItems(r.messages(output), stats, output)
			return nil
		},
	}
	config.RegisterNodeFlag(ccmd.Flags(), cfg)
	return ccmd
}

// generateItems reads the processed records at input and writes their item
// summary to output.
func (r *runner) generateItems(ctx context.Context, input, output string) (aggregate.ItemStats, error) {
	src, err := r.openSource(ctx, input)
	if err != nil {
		return aggregate.ItemStats{}, err
	}
	sink, err := newSink(ctx, output, aggregate.ItemsSchema, r.cfg.Format, r.locationOptions())
	if err != nil {
		src.Close()
		return aggregate.ItemStats{}, err
	}
	stats, err := aggregate.GenerateItems(ctx, src, sink, r.cfg.Node)
	if err != nil {
		return stats, errors.Wrapf(err, "generating items from %s", input)
	}
	return stats, nil
}

func (r *runner) printItems(w io.Writer, stats aggregate.ItemStats, output string) {
	fmt.Fprintf(w, "Generated %d item rows from %d records (%d without parent_id)\n",
		stats.UniqueParents, stats.TotalItems, stats.SkippedRows)
	fmt.Fprintf(w, "Items written to %s\n", output)
	if r.cfg.Stats {
		writeItemStats(w, stats)
	}
}
