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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/aaronlmathis/organise/logger"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

const (
	sheetsHost = "docs.google.com"
	sheetsPath = "/spreadsheets/d/"
)

// IsSheetsURL reports whether raw looks like a Google Sheets URL.
func IsSheetsURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Host == sheetsHost && strings.Contains(u.Path, sheetsPath)
}

// SheetID extracts and validates the spreadsheet ID from a Google Sheets URL.
func SheetID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "invalid Google Sheets URL")
	}
	if u.Host != sheetsHost {
		host := u.Host
		if host == "" {
			host = "unknown"
		}
		return "", errors.Errorf("URL must be from %s, got: %s", sheetsHost, host)
	}
	i := strings.Index(u.Path, sheetsPath)
	if i < 0 {
		return "", errors.Errorf("could not extract spreadsheet ID from URL, path should contain %q: %s", sheetsPath, raw)
	}
	id := u.Path[i+len(sheetsPath):]
	if j := strings.Index(id, "/"); j >= 0 {
		id = id[:j]
	}
	if !validSheetID(id) {
		return "", errors.Errorf("invalid or empty spreadsheet ID in URL: %s", raw)
	}
	return id, nil
}

func validSheetID(id string) bool {
	if len(id) < 2 || id == "edit" {
		return false
	}
	for i, r := range id {
		alnum := unicode.IsLetter(r) || unicode.IsDigit(r)
		if i == 0 && !alnum {
			return false
		}
		if !alnum && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// SheetsExportURL converts a Google Sheets URL to its CSV export URL.
func SheetsExportURL(raw string) (string, error) {
	return sheetsExportURL(raw, "https://"+sheetsHost)
}

func sheetsExportURL(raw, base string) (string, error) {
	id, err := SheetID(raw)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?format=csv", strings.TrimSuffix(base, "/"), id), nil
}

// retryLogger routes retryablehttp's per-attempt chatter to debug.
type retryLogger struct {
	log logger.Logger
}

func (l retryLogger) Printf(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

func newRetryClient(o Options) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = o.HTTPRetries
	client.RetryWaitMin = o.RetryWaitMin
	client.RetryWaitMax = o.RetryWaitMax
	client.HTTPClient.Timeout = o.HTTPTimeout
	client.Logger = retryLogger{log: o.Logger}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return client
}

// fetchSheet downloads the CSV export of a Google Sheets URL. Transient
// failures are retried; any final non-2xx response is a *FetchError.
func fetchSheet(ctx context.Context, raw string, o Options) (io.ReadCloser, error) {
	base := "https://" + sheetsHost
	if o.SheetsBaseURL != "" {
		base = o.SheetsBaseURL
	}
	exportURL, err := sheetsExportURL(raw, base)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequest(http.MethodGet, exportURL, nil)
	if err != nil {
		return nil, &FetchError{URL: exportURL, Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "text/csv")

	o.Logger.Infof("fetching %s", exportURL)
	resp, err := newRetryClient(o).Do(req)
	if err != nil {
		fe := &FetchError{URL: exportURL, Err: err}
		if resp != nil {
			fe.StatusCode = resp.StatusCode
			resp.Body.Close()
		}
		return nil, fe
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{
			URL:        exportURL,
			StatusCode: resp.StatusCode,
			Err:        errors.Errorf("failed to fetch Google Sheets data: %s", http.StatusText(resp.StatusCode)),
		}
	}
	return resp.Body, nil
}
