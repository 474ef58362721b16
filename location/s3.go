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

package location

import (
	"context"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

// S3API is the subset of the S3 client used for object input and output.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Client returns the injected client or builds one from the options.
func (o Options) s3Client(ctx context.Context) (S3API, error) {
	if o.S3Client != nil {
		return o.S3Client, nil
	}
	cfg, err := o.awsConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS configuration")
	}
	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.S3Endpoint != "" {
			so.BaseEndpoint = aws.String(o.S3Endpoint)
		}
		so.UsePathStyle = o.S3PathStyle
	}), nil
}

// awsConfig creates AWS configuration from options
func (o Options) awsConfig(ctx context.Context) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if o.S3Region != "" {
		configOpts = append(configOpts, config.WithRegion(o.S3Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if o.S3AccessKey != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(o.S3AccessKey, o.S3SecretKey, ""),
		)
	}
	return cfg, nil
}

func openS3(ctx context.Context, client S3API, loc Location) (io.ReadCloser, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, &FetchError{URL: loc.Raw, Err: err}
	}
	return out.Body, nil
}

// s3WriteCloser stages output in a temporary file and uploads it on Close.
// Abort discards the staged file, leaving any existing object untouched.
type s3WriteCloser struct {
	ctx    context.Context
	client S3API
	loc    Location
	file   *os.File
	closed bool
}

func createS3(ctx context.Context, client S3API, loc Location) (io.WriteCloser, error) {
	f, err := os.CreateTemp("", "organise-*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "staging s3 output")
	}
	return &s3WriteCloser{ctx: ctx, client: client, loc: loc, file: f}, nil
}

func (s *s3WriteCloser) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Abort implements core.Aborter.
func (s *s3WriteCloser) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	cerr := s.file.Close()
	if err := os.Remove(s.file.Name()); err != nil {
		return errors.Wrap(err, "discarding staged output")
	}
	return cerr
}

func (s *s3WriteCloser) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer os.Remove(s.file.Name())

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		s.file.Close()
		return errors.Wrap(err, "rewinding staged output")
	}
	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.loc.Bucket),
		Key:    aws.String(s.loc.Key),
		Body:   s.file,
	})
	cerr := s.file.Close()
	if err != nil {
		return &FetchError{URL: s.loc.Raw, Err: errors.Wrap(err, "uploading")}
	}
	return cerr
}
