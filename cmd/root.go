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

// Package cmd implements the organise command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/config"
	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/location"
	"github.com/aaronlmathis/organise/logger"
	"github.com/aaronlmathis/organise/modifiers"
	"github.com/aaronlmathis/organise/readers"
	"github.com/aaronlmathis/organise/transform"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// sheetsOutputName is the default output name for a Google Sheets input.
const sheetsOutputName = "sheets-output-modified"

// NewRootCommand returns the organise command. Run without a subcommand it
// applies the active modifiers to one CSV input.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cfg := config.Default()
	rc := &cobra.Command{
		Use:   "organise [INPUT]",
		Short: "Rewrite derived columns of a repository ingest spreadsheet.",
		Long: `Organise streams a CSV export, recomputes derived columns such as
parent_id and file from the accessIdentifier of each row, and writes the
result next to the input.

INPUT may be a local path, - for stdin, or s3://bucket/key. Use --url to
read a Google Sheets document instead.

Available modifiers: parent-id, file-extension. Optional modifiers enabled
with --enable: access-identifier, field-description, field-model.
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.Bind(viper.New(), cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Input = args[0]
			}
			return newRunner(cfg, stdin, stdout, stderr).modify(cmd.Context())
		},
	}
	config.RegisterPersistentFlags(rc.PersistentFlags(), cfg)
	config.RegisterRunFlags(rc.Flags(), cfg)

	rc.AddCommand(newGenerateItemsCommand(cfg, stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// runner carries the state shared by the commands of one invocation.
type runner struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    logger.Logger
}

func newRunner(cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) *runner {
	return &runner{
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		log:    logger.NewLevelLogger(stderr, cfg.Level()),
	}
}

// locationOptions translates the S3 and HTTP settings.
func (r *runner) locationOptions() []location.Option {
	c := r.cfg
	opts := []location.Option{
		location.WithStdio(r.stdin, r.stdout),
		location.WithLogger(r.log.WithPrefix("location: ")),
		location.WithHTTPTimeout(c.HTTP.Timeout),
		location.WithHTTPRetries(c.HTTP.Retries),
	}
	if c.S3.Region != "" {
		opts = append(opts, location.WithS3Region(c.S3.Region))
	}
	if c.S3.Endpoint != "" {
		opts = append(opts, location.WithS3Endpoint(c.S3.Endpoint))
	}
	if c.S3.PathStyle {
		opts = append(opts, location.WithS3PathStyle(true))
	}
	if c.S3.AccessKey != "" || c.S3.SecretKey != "" {
		opts = append(opts, location.WithS3Credentials(c.S3.AccessKey, c.S3.SecretKey))
	}
	return opts
}

// input returns the location to read.
func (r *runner) input() string {
	if r.cfg.URL != "" {
		return r.cfg.URL
	}
	return r.cfg.Input
}

// messages returns where progress text goes. It is stderr when the records
// themselves are written to stdout.
func (r *runner) messages(output string) io.Writer {
	if output == "-" {
		return r.stderr
	}
	return r.stdout
}

// source is the input, decoded as JSON lines or Parquet when its name says
// so and as CSV otherwise.
type source struct {
	core.DataSource
	csv  *readers.CSVReader
	read func() int64
}

func isJSONName(uri string) bool {
	switch strings.ToLower(path.Ext(uri)) {
	case ".json", ".jsonl", ".ndjson":
		return true
	}
	return false
}

func isParquetName(uri string) bool {
	return strings.EqualFold(path.Ext(uri), ".parquet")
}

// openSource opens uri and decodes its header.
func (r *runner) openSource(ctx context.Context, uri string) (*source, error) {
	rc, err := location.Open(ctx, uri, r.locationOptions()...)
	if err != nil {
		return nil, err
	}
	if isParquetName(uri) {
		src, err := readers.NewParquetReader(rc)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", uri)
		}
		return &source{DataSource: src, read: src.RecordsRead}, nil
	}
	if isJSONName(uri) {
		src, err := readers.NewJSONReader(rc)
		if err != nil {
			rc.Close()
			return nil, errors.Wrapf(err, "reading %s", uri)
		}
		return &source{DataSource: src, read: src.RecordsRead}, nil
	}
	src, err := readers.NewCSVReader(rc)
	if err != nil {
		rc.Close()
		return nil, errors.Wrapf(err, "reading %s", uri)
	}
	return &source{DataSource: src, csv: src, read: func() int64 { return src.Stats().RecordsRead }}, nil
}

// modify runs the modifier pipeline and, with --full, the item summary.
func (r *runner) modify(ctx context.Context) error {
	c := r.cfg
	if err := c.Validate(); err != nil {
		return err
	}
	output, err := modifiedOutput(c)
	if err != nil {
		return err
	}
	var itemsOutput string
	if c.Full {
		if output == "-" {
			return errors.New("--full needs a file or s3 output to read back")
		}
		itemsOutput = c.ItemsOutput
		if itemsOutput == "" {
			itemsOutput = fullItemsOutput(output, c.Format)
		}
	}

	var fieldModel *modifiers.FieldModel
	if c.FieldModelConfig != "" {
		if fieldModel, err = modifiers.LoadFieldModel(c.FieldModelConfig); err != nil {
			return err
		}
	}
	reg, err := modifiers.NewRegistry(c.Enable, fieldModel)
	if err != nil {
		return err
	}
	active, err := reg.Active(c.OnlyRun, c.IgnoreRun)
	if err != nil {
		return err
	}

	out := r.messages(output)
	fmt.Fprintf(out, "Applying modifiers: %s\n", joinOrNone(bindingNames(active)))
	if skipped := reg.Excluded(active); len(skipped) > 0 {
		fmt.Fprintf(out, "Skipping modifiers: %s\n", strings.Join(skipped, ", "))
	}
	if len(active) == 0 {
		r.log.Warnf("no modifiers are active, output will match input")
	}

	src, err := r.openSource(ctx, r.input())
	if err != nil {
		return err
	}
	sink, err := newSink(ctx, output, src.Schema(), c.Format, r.locationOptions())
	if err != nil {
		src.Close()
		return err
	}

	reporter := organise.NewValidationReporter(r.log, c.ValidationLogLimit)
	opts := []organise.Option{
		organise.WithValidationReporter(reporter),
		organise.WithRunLogger(r.log.WithPrefix("pipeline: ")),
	}
	if c.RepairText {
		opts = append(opts, organise.WithTransformers(transform.RepairText()))
	}
	if c.DetectDuplicates {
		opts = append(opts, organise.WithChecks(organise.NewUniqueColumn(modifiers.ColumnAccessIdentifier)))
	}

	stats, err := organise.Run(ctx, active, src, sink, opts...)
	if err != nil {
		return errors.Wrapf(err, "processing %s", r.input())
	}

	fmt.Fprintf(out, "Processed %d rows: %d cells modified, %d validation failures\n",
		stats.TotalRows, stats.CellsModified, stats.ValidationFailures)
	fmt.Fprintf(out, "Output written to %s\n", output)
	if c.Stats {
		writeProcessingStats(out, stats, src, sink.written(), reporter)
	}

	if !c.Full {
		return nil
	}
	items, err := r.generateItems(ctx, output, itemsOutput)
	if err != nil {
		return err
	}
	r.printItems(out, items, itemsOutput)
	return nil
}

func bindingNames(bs []organise.Binding) []string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name
	}
	return names
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

// modifiedOutput resolves the output of the modify command.
func modifiedOutput(c *config.Config) (string, error) {
	if c.Output != "" {
		return c.Output, nil
	}
	if c.URL != "" {
		return placeIn(c.OutputDir, sheetsOutputName+formatExt(c.Format)), nil
	}
	loc, err := location.Parse(c.Input)
	if err != nil {
		return "", err
	}
	if loc.Kind == location.KindStdio {
		return "-", nil
	}
	base := loc.Base()
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if c.Format != config.FormatCSV || ext == "" || isJSONName(base) || isParquetName(base) {
		ext = formatExt(c.Format)
	}
	name := stem + "-modified" + ext
	if c.OutputDir != "" {
		return placeIn(c.OutputDir, name), nil
	}
	return loc.Sibling(name), nil
}

// fullItemsOutput names the item summary written beside a processed output.
func fullItemsOutput(output, format string) string {
	name := "items" + formatExt(format)
	loc, err := location.Parse(output)
	if err != nil {
		return name
	}
	base := loc.Base()
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return loc.Sibling(stem + "-" + name)
}

func formatExt(format string) string {
	switch format {
	case config.FormatJSON:
		return ".json"
	case config.FormatParquet:
		return ".parquet"
	}
	return ".csv"
}

// placeIn joins name onto dir. An empty dir leaves name relative.
func placeIn(dir, name string) string {
	switch {
	case dir == "":
		return name
	case strings.HasPrefix(dir, "s3://"):
		return strings.TrimSuffix(dir, "/") + "/" + name
	default:
		return filepath.Join(dir, name)
	}
}
