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

// Package config holds the command-line configuration of organise and binds
// it from flags, the environment and an optional TOML file.
package config

import (
	"strings"
	"time"

	"github.com/aaronlmathis/organise"
	"github.com/aaronlmathis/organise/logger"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Bind.
const EnvPrefix = "ORGANISE"

// Output formats.
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// S3 configures access to s3:// locations.
type S3 struct {
	Region    string
	Endpoint  string
	PathStyle bool
	AccessKey string
	SecretKey string
}

// HTTP configures the Google Sheets fetch.
type HTTP struct {
	Timeout time.Duration
	Retries int
}

// Config is the complete configuration of one invocation.
type Config struct {
	// Input is the positional input path; URL is its alternative.
	Input string
	URL   string

	Output      string
	OutputDir   string
	ItemsOutput string
	Format      string

	OnlyRun   []string
	IgnoreRun []string
	Enable    []string

	Stats bool
	Full  bool
	Node  string

	ValidationLogLimit int
	FieldModelConfig   string
	RepairText         bool
	DetectDuplicates   bool

	LogLevel string
	Verbose  bool

	S3   S3
	HTTP HTTP

	// GenerateItems is set by the generate-items command, which accepts
	// node and output without --full.
	GenerateItems bool
}

// Default returns a Config holding the default value of every option.
func Default() *Config {
	return &Config{
		Format:             FormatCSV,
		ValidationLogLimit: organise.DefaultValidationLogLimit,
		LogLevel:           "info",
		HTTP: HTTP{
			Timeout: 30 * time.Second,
			Retries: 3,
		},
	}
}

// RegisterPersistentFlags registers the options shared by every command.
func RegisterPersistentFlags(flags *pflag.FlagSet, c *Config) {
	flags.StringP("config", "c", "", "Configuration file to read from.")
	flags.StringVar(&c.URL, "url", c.URL, "Google Sheets URL to read instead of a local file")
	flags.StringVarP(&c.Output, "output", "o", c.Output, "output location (file, s3://bucket/key or - for stdout)")
	flags.StringVar(&c.OutputDir, "output-dir", c.OutputDir, "directory for default output names")
	flags.BoolVar(&c.Stats, "stats", c.Stats, "print detailed statistics")
	flags.StringVar(&c.Format, "format", c.Format, "output format: csv, json or parquet")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
	flags.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose, "enable debug logging")
	flags.StringVar(&c.S3.Region, "s3-region", c.S3.Region, "AWS region for s3:// locations")
	flags.StringVar(&c.S3.Endpoint, "s3-endpoint", c.S3.Endpoint, "custom S3 endpoint")
	flags.BoolVar(&c.S3.PathStyle, "s3-path-style", c.S3.PathStyle, "use path-style S3 addressing")
	flags.StringVar(&c.S3.AccessKey, "s3-access-key", c.S3.AccessKey, "static S3 access key")
	flags.StringVar(&c.S3.SecretKey, "s3-secret-key", c.S3.SecretKey, "static S3 secret key")
	flags.DurationVar(&c.HTTP.Timeout, "http-timeout", c.HTTP.Timeout, "timeout of each Google Sheets request")
	flags.IntVar(&c.HTTP.Retries, "http-retries", c.HTTP.Retries, "retries of a failed Google Sheets request")
}

// RegisterRunFlags registers the options of the modify command.
func RegisterRunFlags(flags *pflag.FlagSet, c *Config) {
	flags.StringSliceVar(&c.OnlyRun, "only-run", c.OnlyRun, "run only the named modifiers")
	flags.StringSliceVar(&c.IgnoreRun, "ignore-run", c.IgnoreRun, "skip the named modifiers")
	flags.StringSliceVar(&c.Enable, "enable", c.Enable, "register optional modifiers: access-identifier, field-description, field-model")
	flags.BoolVar(&c.Full, "full", c.Full, "also generate the item summary from the processed output")
	flags.StringVar(&c.ItemsOutput, "items-output", c.ItemsOutput, "item summary location used with --full")
	flags.IntVar(&c.ValidationLogLimit, "validation-log-limit", c.ValidationLogLimit, "validation failures logged in full before counting")
	flags.StringVar(&c.FieldModelConfig, "field-model-config", c.FieldModelConfig, "TOML file mapping file extensions to field models")
	flags.BoolVar(&c.RepairText, "repair-text", c.RepairText, "repair non-breaking spaces and mis-decoded text")
	flags.BoolVar(&c.DetectDuplicates, "detect-duplicates", c.DetectDuplicates, "report repeated accessIdentifier values")
	RegisterNodeFlag(flags, c)
}

// RegisterNodeFlag registers the member reference stamped on item rows.
func RegisterNodeFlag(flags *pflag.FlagSet, c *Config) {
	flags.StringVarP(&c.Node, "node", "n", c.Node, "node reference written to field_member_of")
}

// Bind takes flags to be the definition of all configuration options and
// their defaults. It reads the command line, the environment and a config
// file (if "config" is set) and applies them in that priority order. Each
// flag holds a pointer to its destination, so values land directly in the
// Config the flags were registered against.
//
// Environment variables are the flag names upper-cased, with dashes replaced
// by underscores, prefixed with EnvPrefix and an underscore.
func Bind(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", c)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return errors.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// A slice from the config file is not a string to viper.
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = errors.Wrapf(err, "option %s", f.Name)
		}
	})
	return flagErr
}

// Level returns the effective log level.
func (c *Config) Level() int {
	if c.Verbose {
		return logger.LevelDebug
	}
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return level
}

// Validate checks option combinations that flags alone cannot express.
func (c *Config) Validate() error {
	switch {
	case c.Input == "" && c.URL == "":
		return errors.New("an input path or --url is required")
	case c.Input != "" && c.URL != "":
		return errors.New("an input path and --url are mutually exclusive")
	}
	switch c.Format {
	case FormatCSV, FormatJSON, FormatParquet:
	default:
		return errors.Errorf("unknown output format %q (want %s, %s or %s)", c.Format, FormatCSV, FormatJSON, FormatParquet)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.HTTP.Retries < 0 {
		return errors.Errorf("http-retries must not be negative, got %d", c.HTTP.Retries)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.Errorf("http-timeout must be positive, got %s", c.HTTP.Timeout)
	}
	if !c.GenerateItems && !c.Full {
		if c.Node != "" {
			return errors.New("--node requires --full")
		}
		if c.ItemsOutput != "" {
			return errors.New("--items-output requires --full")
		}
	}
	return nil
}
