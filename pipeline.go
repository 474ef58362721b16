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
	"context"
	"io"

	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/logger"
	"github.com/pkg/errors"
)

// Example usage:
//
//   reg := organise.NewRegistry()
//   modifiers.RegisterDefaults(reg)
//   p, err := organise.NewPipeline().
//       From(csvReader).
//       WithRegistry(reg).
//       IgnoreRun("file-extension").
//       To(csvWriter).
//       Build()
//   if err != nil { log.Fatal(err) }
//   stats, err := p.Execute(context.Background())
//
// A run reads one record at a time, so memory use is proportional to a row.

// PipelineBuilder provides a fluent API for constructing a modifier pipeline.
// Use NewPipeline() to create a new builder, then chain From, To and
// configuration methods.
type PipelineBuilder struct {
	pipeline *Pipeline
	registry *Registry
	only     []string
	ignore   []string
	bindings []Binding
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			transformers: make([]core.Transformer, 0),
			checks:       make([]RowCheck, 0),
			log:          logger.NopLogger,
		},
	}
}

// From sets the DataSource for the pipeline.
func (pb *PipelineBuilder) From(source DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// To sets the DataSink for the pipeline.
func (pb *PipelineBuilder) To(sink DataSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// WithRegistry selects the registry the active modifier set is computed from.
func (pb *PipelineBuilder) WithRegistry(reg *Registry) *PipelineBuilder {
	pb.registry = reg
	return pb
}

// OnlyRun restricts the active set to the named modifiers.
func (pb *PipelineBuilder) OnlyRun(names ...string) *PipelineBuilder {
	pb.only = append(pb.only, names...)
	return pb
}

// IgnoreRun removes the named modifiers from the active set.
func (pb *PipelineBuilder) IgnoreRun(names ...string) *PipelineBuilder {
	pb.ignore = append(pb.ignore, names...)
	return pb
}

// Modify appends an already resolved binding. Bindings added this way run
// after those selected from the registry.
func (pb *PipelineBuilder) Modify(b Binding) *PipelineBuilder {
	pb.bindings = append(pb.bindings, b)
	return pb
}

// Transform adds a record level transformer that runs before the row context
// is taken. Cells it changes are counted as modifications.
func (pb *PipelineBuilder) Transform(t core.Transformer) *PipelineBuilder {
	pb.pipeline.transformers = append(pb.pipeline.transformers, t)
	return pb
}

// Check adds an advisory row check.
func (pb *PipelineBuilder) Check(c RowCheck) *PipelineBuilder {
	pb.pipeline.checks = append(pb.pipeline.checks, c)
	return pb
}

// WithReporter sets the validation failure reporter.
func (pb *PipelineBuilder) WithReporter(r *ValidationReporter) *PipelineBuilder {
	pb.pipeline.reporter = r
	return pb
}

// WithLogger sets the logger used for run diagnostics.
func (pb *PipelineBuilder) WithLogger(log logger.Logger) *PipelineBuilder {
	if log != nil {
		pb.pipeline.log = log
	}
	return pb
}

// Build validates and constructs the Pipeline. The active modifier set is
// computed here, once, before any record is read.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	p := pb.pipeline
	if p.source == nil {
		return nil, errors.New("pipeline requires a data source")
	}
	if p.sink == nil {
		return nil, errors.New("pipeline requires a data sink")
	}

	var active []Binding
	if pb.registry != nil {
		var err error
		active, err = pb.registry.Active(pb.only, pb.ignore)
		if err != nil {
			return nil, err
		}
	} else if len(pb.only) > 0 || len(pb.ignore) > 0 {
		return nil, errors.New("only-run and ignore-run require a registry")
	}
	active = append(active, pb.bindings...)

	seen := make(map[string]string, len(active))
	for _, b := range active {
		if owner, dup := seen[b.Column]; dup {
			return nil, errors.Errorf("column %q bound by both %q and %q", b.Column, owner, b.Name)
		}
		seen[b.Column] = b.Name
	}
	p.active = active

	if p.reporter == nil {
		p.reporter = NewValidationReporter(p.log, DefaultValidationLogLimit)
	}
	return p, nil
}

// Pipeline applies an active set of column modifiers to every record of a
// stream and writes the result to a sink.
type Pipeline struct {
	source       DataSource
	sink         DataSink
	active       []Binding
	transformers []core.Transformer
	checks       []RowCheck
	reporter     *ValidationReporter
	log          logger.Logger
}

// Active returns the modifier bindings the pipeline will consider, in
// application order.
func (p *Pipeline) Active() []Binding {
	return append([]Binding(nil), p.active...)
}

// binding is an active binding resolved against the stream schema.
type binding struct {
	Binding
	index     int
	validator Validator
	explainer Explainer
}

type check struct {
	RowCheck
	index int
}

// plan resolves bindings and checks against schema. Bindings whose target
// column is missing, or that do not apply to the schema, are skipped for the
// whole stream.
func (p *Pipeline) plan(schema *core.Schema) ([]binding, []check) {
	bs := make([]binding, 0, len(p.active))
	for _, b := range p.active {
		i, ok := schema.Index(b.Column)
		if !ok {
			p.log.Debugf("modifier %s skipped: column %q not present", b.Name, b.Column)
			continue
		}
		if a, ok := b.Modifier.(Applicable); ok && !a.AppliesTo(schema) {
			p.log.Debugf("modifier %s skipped: source columns not present", b.Name)
			continue
		}
		rb := binding{Binding: b, index: i}
		rb.validator, _ = b.Modifier.(Validator)
		rb.explainer, _ = b.Modifier.(Explainer)
		bs = append(bs, rb)
	}

	cs := make([]check, 0, len(p.checks))
	for _, c := range p.checks {
		i, ok := schema.Index(c.Column())
		if !ok {
			p.log.Debugf("check %q skipped: column %q not present", c.Description(), c.Column())
			continue
		}
		cs = append(cs, check{RowCheck: c, index: i})
	}
	return bs, cs
}

// Execute runs the pipeline, processing all records from source to sink.
//
// A record whose column count differs from the header aborts the run with a
// *core.SchemaError. Validation failures are counted and reported but never
// stop the run. Sink errors are fatal. The source and sink are closed when
// Execute returns.
func (p *Pipeline) Execute(ctx context.Context) (stats ProcessingStats, err error) {
	collector := newStatsCollector()
	defer func() {
		p.reporter.Finish()
		if cerr := p.source.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing source")
		}
		if cerr := core.Finish(p.sink, err != nil); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing sink")
		}
		stats = collector.snapshot()
	}()

	schema := p.source.Schema()
	if schema == nil {
		return stats, errors.New("data source has no schema")
	}
	bindings, checks := p.plan(schema)

	for row := 0; ; row++ {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		record, err := p.source.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, errors.Wrapf(err, "reading row %d", row+1)
		}
		if len(record.Values) != schema.Len() {
			return stats, &core.SchemaError{Op: "record", Row: row + 1, Want: schema.Len(), Got: len(record.Values)}
		}
		record.Schema = schema

		record, err = p.applyTransformations(ctx, record, collector)
		if err != nil {
			return stats, errors.Wrapf(err, "transforming row %d", row+1)
		}

		rc := NewRowContext(schema, record.Values, row)
		for _, c := range checks {
			if !c.Check(rc) {
				collector.failure()
				p.reporter.Report(ValidationFailure{
					Modifier: c.Description(),
					Column:   c.Column(),
					Row:      row + 1,
					Value:    record.Values[c.index],
					Reason:   "row check failed",
				})
			}
		}

		for _, b := range bindings {
			current := record.Values[b.index]
			if b.validator != nil && !b.validator.Validate(current, rc) {
				collector.failure()
				f := ValidationFailure{
					Modifier: b.Modifier.Description(),
					Column:   b.Column,
					Row:      row + 1,
					Value:    current,
				}
				if b.explainer != nil {
					f.Reason = b.explainer.Explain(current, rc)
				}
				p.reporter.Report(f)
			}
			if updated := b.Modifier.Modify(current, rc); updated != current {
				record.Values[b.index] = updated
				collector.modified(b.Column)
			}
		}

		collector.row()
		if err := p.sink.Write(ctx, record); err != nil {
			return stats, errors.Wrapf(err, "writing row %d", row+1)
		}
	}

	if err := p.sink.Flush(); err != nil {
		return stats, errors.Wrap(err, "flushing sink")
	}
	return stats, nil
}

// applyTransformations applies all configured transformers to a record in
// sequence and counts the cells they changed.
func (p *Pipeline) applyTransformations(ctx context.Context, record Record, c *statsCollector) (Record, error) {
	if len(p.transformers) == 0 {
		return record, nil
	}
	before := append([]string(nil), record.Values...)
	current := record
	for _, transformer := range p.transformers {
		transformed, err := transformer.Transform(ctx, current)
		if err != nil {
			return Record{}, err
		}
		current = transformed
	}
	if len(current.Values) != len(before) {
		return Record{}, errors.Errorf("transformer changed column count from %d to %d", len(before), len(current.Values))
	}
	current.Schema = record.Schema
	names := record.Schema.Names()
	for i := range before {
		if current.Values[i] != before[i] {
			c.modified(names[i])
		}
	}
	return current, nil
}

// Option configures the pipeline built by Run.
type Option func(*PipelineBuilder)

// WithTransformers adds record transformers to a Run.
func WithTransformers(ts ...core.Transformer) Option {
	return func(pb *PipelineBuilder) {
		for _, t := range ts {
			pb.Transform(t)
		}
	}
}

// WithChecks adds row checks to a Run.
func WithChecks(cs ...RowCheck) Option {
	return func(pb *PipelineBuilder) {
		for _, c := range cs {
			pb.Check(c)
		}
	}
}

// WithValidationReporter sets the reporter used by a Run.
func WithValidationReporter(r *ValidationReporter) Option {
	return func(pb *PipelineBuilder) {
		pb.WithReporter(r)
	}
}

// WithRunLogger sets the diagnostics logger used by a Run.
func WithRunLogger(log logger.Logger) Option {
	return func(pb *PipelineBuilder) {
		pb.WithLogger(log)
	}
}

// Run applies an already computed active set to source and writes the
// result to sink. The source and sink are closed when Run returns, also when
// the pipeline cannot be built.
func Run(ctx context.Context, active []Binding, source DataSource, sink DataSink, opts ...Option) (ProcessingStats, error) {
	pb := NewPipeline().From(source).To(sink)
	for _, b := range active {
		pb.Modify(b)
	}
	for _, opt := range opts {
		opt(pb)
	}
	p, err := pb.Build()
	if err != nil {
		if source != nil {
			source.Close()
		}
		if sink != nil {
			sink.Close()
		}
		return ProcessingStats{}, err
	}
	return p.Execute(ctx)
}
