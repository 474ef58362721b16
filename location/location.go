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

// Package location resolves input and output locations. A location is a local
// path, "-" for the standard streams, an s3://bucket/key URI or, for input
// only, a Google Sheets URL fetched as a CSV export.
package location

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aaronlmathis/organise/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// Kind identifies how a location is accessed.
type Kind int

const (
	KindFile Kind = iota
	KindStdio
	KindS3
	KindSheets
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindStdio:
		return "stdio"
	case KindS3:
		return "s3"
	case KindSheets:
		return "sheets"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Location is a parsed input or output location.
type Location struct {
	Kind   Kind
	Raw    string
	Path   string // KindFile
	Bucket string // KindS3
	Key    string // KindS3
}

// Parse classifies uri.
func Parse(uri string) (Location, error) {
	loc := Location{Raw: uri}
	switch {
	case uri == "":
		return loc, errors.New("empty location")
	case uri == "-":
		loc.Kind = KindStdio
	case strings.HasPrefix(uri, "s3://"):
		rest := strings.TrimPrefix(uri, "s3://")
		i := strings.Index(rest, "/")
		if i <= 0 || i == len(rest)-1 {
			return loc, errors.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
		}
		loc.Kind = KindS3
		loc.Bucket = rest[:i]
		loc.Key = rest[i+1:]
	case IsSheetsURL(uri):
		loc.Kind = KindSheets
	case strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://"):
		return loc, errors.Errorf("unsupported URL %q: only Google Sheets URLs can be fetched", uri)
	default:
		loc.Kind = KindFile
		loc.Path = uri
	}
	return loc, nil
}

// Base returns the final element of the location's path or key.
func (l Location) Base() string {
	switch l.Kind {
	case KindFile:
		return filepath.Base(l.Path)
	case KindS3:
		return filepath.Base(l.Key)
	default:
		return ""
	}
}

// Sibling returns a location of the same kind named name in the same
// directory or key prefix.
func (l Location) Sibling(name string) string {
	switch l.Kind {
	case KindFile:
		return filepath.Join(filepath.Dir(l.Path), name)
	case KindS3:
		dir := ""
		if i := strings.LastIndex(l.Key, "/"); i >= 0 {
			dir = l.Key[:i+1]
		}
		return "s3://" + l.Bucket + "/" + dir + name
	default:
		return name
	}
}

// Options configures access to remote locations.
type Options struct {
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
	S3AccessKey string
	S3SecretKey string
	S3Client    S3API

	HTTPTimeout  time.Duration
	HTTPRetries  int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// SheetsBaseURL replaces https://docs.google.com in export URLs.
	SheetsBaseURL string

	Stdin  io.Reader
	Stdout io.Writer
	Logger logger.Logger
}

// Option is a functional option for Open and Create.
type Option func(*Options)

func WithS3Region(region string) Option {
	return func(o *Options) { o.S3Region = region }
}

func WithS3Endpoint(endpoint string) Option {
	return func(o *Options) { o.S3Endpoint = endpoint }
}

func WithS3PathStyle(pathStyle bool) Option {
	return func(o *Options) { o.S3PathStyle = pathStyle }
}

// WithS3Credentials sets static credentials instead of the default chain.
func WithS3Credentials(accessKey, secretKey string) Option {
	return func(o *Options) {
		o.S3AccessKey = accessKey
		o.S3SecretKey = secretKey
	}
}

// WithS3Client uses client instead of building one from the options.
func WithS3Client(client S3API) Option {
	return func(o *Options) { o.S3Client = client }
}

func WithHTTPTimeout(d time.Duration) Option {
	return func(o *Options) { o.HTTPTimeout = d }
}

func WithHTTPRetries(n int) Option {
	return func(o *Options) { o.HTTPRetries = n }
}

// WithRetryWait bounds the backoff between fetch attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *Options) {
		o.RetryWaitMin = min
		o.RetryWaitMax = max
	}
}

func WithSheetsBaseURL(base string) Option {
	return func(o *Options) { o.SheetsBaseURL = base }
}

// WithStdio sets the streams used for "-".
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *Options) {
		o.Stdin = in
		o.Stdout = out
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func newOptions(opts []Option) Options {
	o := Options{
		HTTPTimeout:  30 * time.Second,
		HTTPRetries:  3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		Stdin:        os.Stdin,
		Stdout:       os.Stdout,
		Logger:       logger.NopLogger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns a reader for uri. Acquisition errors are reported before any
// data is returned.
func Open(ctx context.Context, uri string, opts ...Option) (io.ReadCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)

	switch loc.Kind {
	case KindStdio:
		return io.NopCloser(o.Stdin), nil
	case KindS3:
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		return openS3(ctx, client, loc)
	case KindSheets:
		return fetchSheet(ctx, uri, o)
	default:
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, "opening input")
		}
		return f, nil
	}
}

// Create returns a writer for uri. For s3 locations the object is uploaded
// when the writer is closed.
func Create(ctx context.Context, uri string, opts ...Option) (io.WriteCloser, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)

	switch loc.Kind {
	case KindStdio:
		return nopWriteCloser{o.Stdout}, nil
	case KindS3:
		client, err := o.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		return createS3(ctx, client, loc)
	case KindSheets:
		return nil, errors.Errorf("cannot write to %s", uri)
	default:
		if dir := filepath.Dir(loc.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "creating output directory")
			}
		}
		f, err := os.Create(loc.Path)
		if err != nil {
			return nil, errors.Wrap(err, "creating output")
		}
		return f, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// FetchError reports a failed remote acquisition.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", redact(e.URL), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", redact(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

var _ S3API = (*s3.Client)(nil)
