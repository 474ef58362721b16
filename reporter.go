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
	"github.com/aaronlmathis/organise/logger"
)

// DefaultValidationLogLimit is the number of validation failures logged in
// full before the reporter switches to counting.
const DefaultValidationLogLimit = 25

// ValidationFailure describes one rejected value.
type ValidationFailure struct {
	Modifier string // modifier description
	Column   string
	Row      int // 1-based data row number
	Value    string
	Reason   string
}

// ValidationReporter logs the first Limit failures of a run in full, counts the
// rest, and logs a single rollup on Finish. It never affects ProcessingStats.
type ValidationReporter struct {
	log        logger.Logger
	limit      int
	emitted    int64
	suppressed int64
	finished   bool
}

// NewValidationReporter returns a reporter writing warnings to log. A negative
// limit selects DefaultValidationLogLimit.
func NewValidationReporter(log logger.Logger, limit int) *ValidationReporter {
	if log == nil {
		log = logger.NopLogger
	}
	if limit < 0 {
		limit = DefaultValidationLogLimit
	}
	return &ValidationReporter{log: log, limit: limit}
}

// Report records one failure.
func (r *ValidationReporter) Report(f ValidationFailure) {
	if r.emitted >= int64(r.limit) {
		r.suppressed++
		return
	}
	r.emitted++
	reason := f.Reason
	if reason == "" {
		reason = "validation predicate returned false"
	}
	r.log.Warnf("Validation failed for column '%s' at row %d using modifier '%s'. Value='%s'. Reason: %s",
		f.Column, f.Row, f.Modifier, f.Value, reason)
}

// Finish logs the rollup of suppressed failures, if any. Calling it more than
// once has no further effect.
func (r *ValidationReporter) Finish() {
	if r.finished {
		return
	}
	r.finished = true
	if r.suppressed > 0 {
		r.log.Warnf("Suppressed %d additional validation failures after the first %d", r.suppressed, r.limit)
	}
}

// Emitted returns the number of failures logged in full.
func (r *ValidationReporter) Emitted() int64 {
	return r.emitted
}

// Suppressed returns the number of failures only counted.
func (r *ValidationReporter) Suppressed() int64 {
	return r.suppressed
}
