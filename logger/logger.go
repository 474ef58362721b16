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

// Package logger provides the leveled logger shared by the pipeline, the
// validation reporter and the command line.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RFC3339UsecTz0 is the timestamp layout: UTC, constant width, microseconds.
const RFC3339UsecTz0 = "2006-01-02T15:04:05.000000Z07:00"

// Logger is the logging interface used across organise.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a Logger with the same destination and level whose
	// messages are preceded by prefix.
	WithPrefix(prefix string) Logger
}

// Levels, most severe first. A logger at a level drops everything after it.
const (
	LevelError = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelTags = [...]string{"ERROR: ", "WARN:  ", "INFO:  ", "DEBUG: "}

// ParseLevel maps a level name to its constant.
func ParseLevel(name string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	}
	return 0, errors.Errorf("unknown log level %q", name)
}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debugf(format string, v ...interface{}) {}
func (nopLogger) Infof(format string, v ...interface{})  {}
func (nopLogger) Warnf(format string, v ...interface{})  {}
func (nopLogger) Errorf(format string, v ...interface{}) {}
func (n nopLogger) WithPrefix(string) Logger             { return n }

// writerLogger writes timestamped lines to an io.Writer. Loggers derived
// with WithPrefix share the writer and its lock.
type writerLogger struct {
	out    *lockedWriter
	level  int
	prefix string
	now    func() time.Time
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLevelLogger returns a logger writing to w that drops messages less
// severe than level.
func NewLevelLogger(w io.Writer, level int) Logger {
	return &writerLogger{out: &lockedWriter{w: w}, level: level, now: time.Now}
}

func (l *writerLogger) logf(level int, format string, v ...interface{}) {
	if level > l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	fmt.Fprintf(l.out.w, "%s %s%s%s\n", l.now().UTC().Format(RFC3339UsecTz0), levelTags[level], l.prefix, strings.TrimSuffix(msg, "\n"))
}

func (l *writerLogger) Debugf(format string, v ...interface{}) { l.logf(LevelDebug, format, v...) }
func (l *writerLogger) Infof(format string, v ...interface{})  { l.logf(LevelInfo, format, v...) }
func (l *writerLogger) Warnf(format string, v ...interface{})  { l.logf(LevelWarn, format, v...) }
func (l *writerLogger) Errorf(format string, v ...interface{}) { l.logf(LevelError, format, v...) }

func (l *writerLogger) WithPrefix(prefix string) Logger {
	return &writerLogger{out: l.out, level: l.level, prefix: l.prefix + prefix, now: l.now}
}

// Logfer is a thing that has only a Logf() method, like testing.T.
type Logfer interface {
	Logf(format string, v ...interface{})
}

// LogfLogger routes every level to a Logfer, so test output carries the
// diagnostics of the code under test.
type LogfLogger struct {
	wrapped Logfer
	prefix  string
}

// NewLogfLogger returns a LogfLogger writing to l.
func NewLogfLogger(l Logfer) *LogfLogger {
	return &LogfLogger{wrapped: l}
}

func (ll *LogfLogger) logf(level int, format string, v ...interface{}) {
	ll.wrapped.Logf(levelTags[level]+ll.prefix+format, v...)
}

func (ll *LogfLogger) Debugf(format string, v ...interface{}) { ll.logf(LevelDebug, format, v...) }
func (ll *LogfLogger) Infof(format string, v ...interface{})  { ll.logf(LevelInfo, format, v...) }
func (ll *LogfLogger) Warnf(format string, v ...interface{})  { ll.logf(LevelWarn, format, v...) }
func (ll *LogfLogger) Errorf(format string, v ...interface{}) { ll.logf(LevelError, format, v...) }

func (ll *LogfLogger) WithPrefix(prefix string) Logger {
	return &LogfLogger{wrapped: ll.wrapped, prefix: ll.prefix + prefix}
}

// BufferLogger holds info, warn and error messages in memory, one line per
// message, for assertions. Debug messages are dropped.
type BufferLogger struct {
	buf    *bytes.Buffer
	mu     *sync.Mutex
	prefix string
}

// NewBufferLogger returns an empty BufferLogger.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{buf: &bytes.Buffer{}, mu: &sync.Mutex{}}
}

func (b *BufferLogger) logf(level int, format string, v ...interface{}) {
	s := strings.TrimSuffix(fmt.Sprintf(format, v...), "\n")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(levelTags[level] + b.prefix + s + "\n")
}

func (b *BufferLogger) Debugf(format string, v ...interface{}) {}
func (b *BufferLogger) Infof(format string, v ...interface{})  { b.logf(LevelInfo, format, v...) }
func (b *BufferLogger) Warnf(format string, v ...interface{})  { b.logf(LevelWarn, format, v...) }
func (b *BufferLogger) Errorf(format string, v ...interface{}) { b.logf(LevelError, format, v...) }

// WithPrefix returns a BufferLogger sharing this one's buffer.
func (b *BufferLogger) WithPrefix(prefix string) Logger {
	return &BufferLogger{buf: b.buf, mu: b.mu, prefix: b.prefix + prefix}
}

// String returns everything logged so far.
func (b *BufferLogger) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the logged messages one per element.
func (b *BufferLogger) Lines() []string {
	s := strings.TrimSuffix(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
