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
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aaronlmathis/organise/core"
	"github.com/aaronlmathis/organise/logger"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0"

func TestParse(t *testing.T) {
	tests := []struct {
		uri  string
		kind Kind
		err  bool
	}{
		{"data/input.csv", KindFile, false},
		{"-", KindStdio, false},
		{"s3://bucket/path/to/file.csv", KindS3, false},
		{sheetURL, KindSheets, false},
		{"", 0, true},
		{"s3://bucket", 0, true},
		{"s3://bucket/", 0, true},
		{"s3:///key", 0, true},
		{"https://example.com/data.csv", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			loc, err := Parse(tt.uri)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, loc.Kind)
		})
	}

	loc, err := Parse("s3://bucket/path/to/file.csv")
	require.NoError(t, err)
	assert.Equal(t, "bucket", loc.Bucket)
	assert.Equal(t, "path/to/file.csv", loc.Key)
	assert.Equal(t, "file.csv", loc.Base())
	assert.Equal(t, "s3://bucket/path/to/other.csv", loc.Sibling("other.csv"))

	loc, err = Parse(filepath.Join("dir", "in.csv"))
	require.NoError(t, err)
	assert.Equal(t, "in.csv", loc.Base())
	assert.Equal(t, filepath.Join("dir", "out.csv"), loc.Sibling("out.csv"))
	assert.Equal(t, "s3", KindS3.String())
}

func TestSheetsExportURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{sheetURL, "https://docs.google.com/spreadsheets/d/1AbC-d_9/export?format=csv", false},
		{"https://docs.google.com/spreadsheets/d/abc123", "https://docs.google.com/spreadsheets/d/abc123/export?format=csv", false},
		{"https://docs.google.com/spreadsheets/d/edit", "", true},
		{"https://docs.google.com/spreadsheets/d/a/edit", "", true},
		{"https://docs.google.com/spreadsheets/d/-abc/edit", "", true},
		{"https://docs.google.com/spreadsheets/d/ab.c/edit", "", true},
		{"https://docs.google.com/spreadsheets/d//edit", "", true},
		{"https://docs.google.com/document/d/abc/edit", "", true},
		{"https://example.com/spreadsheets/d/abc/edit", "", true},
		{"://bad", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := SheetsExportURL(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.True(t, IsSheetsURL(sheetURL))
	assert.False(t, IsSheetsURL("https://example.com/spreadsheets/d/abc"))
}

func fastRetry() Option {
	return WithRetryWait(time.Millisecond, 5*time.Millisecond)
}

func TestOpenSheets(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches export", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/spreadsheets/d/1AbC-d_9/export", r.URL.Path)
			assert.Equal(t, "csv", r.URL.Query().Get("format"))
			io.WriteString(w, "a,b\n1,2\n")
		}))
		defer srv.Close()

		rc, err := Open(ctx, sheetURL, WithSheetsBaseURL(srv.URL), WithLogger(logger.NewLogfLogger(t)))
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2\n", string(body))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			io.WriteString(w, "a\n")
		}))
		defer srv.Close()

		var out bytes.Buffer
		log := logger.NewLevelLogger(&out, logger.LevelDebug).WithPrefix("sheets: ")
		rc, err := Open(ctx, sheetURL, WithSheetsBaseURL(srv.URL), WithHTTPRetries(3), fastRetry(), WithLogger(log))
		require.NoError(t, err)
		rc.Close()
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
		assert.Contains(t, out.String(), "DEBUG: sheets: ")
		assert.Contains(t, out.String(), "retrying in")
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := Open(ctx, sheetURL, WithSheetsBaseURL(srv.URL), fastRetry())
		require.Error(t, err)
		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.Contains(t, err.Error(), "HTTP 404")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("gives up after retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := Open(ctx, sheetURL, WithSheetsBaseURL(srv.URL), WithHTTPRetries(1), fastRetry())
		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	})

	t.Run("invalid sheet id is rejected before fetching", func(t *testing.T) {
		_, err := Open(ctx, "https://docs.google.com/spreadsheets/d/x/edit")
		assert.Error(t, err)
	})
}

func TestOpenCreateFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	w, err := Create(ctx, path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello", string(data))

	_, err = Open(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Create(ctx, sheetURL)
	assert.Error(t, err)
}

func TestStdio(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	opt := WithStdio(strings.NewReader("in"), &out)

	r, err := Open(ctx, "-", opt)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "in", string(data))

	w, err := Create(ctx, "-", opt)
	require.NoError(t, err)
	io.WriteString(w, "out")
	require.NoError(t, w.Close())
	assert.Equal(t, "out", out.String())
}

type fakeS3 struct {
	objects map[string][]byte
	fail    error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{"bucket/in.csv": []byte("a\n1\n")}}

	r, err := Open(ctx, "s3://bucket/in.csv", WithS3Client(fake))
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "a\n1\n", string(data))

	w, err := Create(ctx, "s3://bucket/out/result.csv", WithS3Client(fake))
	require.NoError(t, err)
	io.WriteString(w, "x,y\n")
	assert.NotContains(t, fake.objects, "bucket/out/result.csv")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.Equal(t, "x,y\n", string(fake.objects["bucket/out/result.csv"]))

	_, err = Open(ctx, "s3://bucket/missing.csv", WithS3Client(fake))
	var fe *FetchError
	require.True(t, errors.As(err, &fe))

	fake.fail = errors.New("access denied")
	w, err = Create(ctx, "s3://bucket/denied.csv", WithS3Client(fake))
	require.NoError(t, err)
	assert.Error(t, w.Close())
}

func TestS3Abort(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{"bucket/out.csv": []byte("previous\n")}}

	w, err := Create(ctx, "s3://bucket/out.csv", WithS3Client(fake))
	require.NoError(t, err)
	io.WriteString(w, "partial")

	a, ok := w.(core.Aborter)
	require.True(t, ok)
	require.NoError(t, a.Abort())
	require.NoError(t, w.Close())
	assert.Equal(t, "previous\n", string(fake.objects["bucket/out.csv"]))

	staged := w.(*s3WriteCloser).file.Name()
	_, err = os.Stat(staged)
	assert.True(t, os.IsNotExist(err))
}
