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

// Package modifiers provides the built-in column modifiers and helpers that
// register them under their stable names.
package modifiers

import (
	"github.com/aaronlmathis/organise"
	"github.com/pkg/errors"
)

// Modifier names accepted by only-run, ignore-run and enable.
const (
	ParentIDName         = "parent-id"
	FileExtensionName    = "file-extension"
	AccessIdentifierName = "access-identifier"
	FieldDescriptionName = "field-description"
	FieldModelName       = "field-model"
)

// Column names read or written by the built-in modifiers.
const (
	ColumnAccessIdentifier    = "accessIdentifier"
	ColumnParentID            = "parent_id"
	ColumnFile                = "file"
	ColumnFileExtension       = "file_extension"
	ColumnFileExtensionLegacy = "file_extention"
	ColumnFieldDescription    = "field_description"
	ColumnFieldModel          = "field_model"
)

// ExtraNames lists the opt-in modifiers in registration order.
var ExtraNames = []string{AccessIdentifierName, FieldDescriptionName, FieldModelName}

// RegisterDefaults registers parent-id and file-extension, in that order.
func RegisterDefaults(reg *organise.Registry) error {
	if err := reg.Register(ParentIDName, ColumnParentID, ParentID{}); err != nil {
		return err
	}
	return reg.Register(FileExtensionName, ColumnFile, FilePath{})
}

// RegisterExtras registers the named opt-in modifiers after the defaults.
// fieldModel is used for field-model and may be nil, in which case the
// embedded mapping is loaded.
func RegisterExtras(reg *organise.Registry, names []string, fieldModel *FieldModel) error {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		known := false
		for _, extra := range ExtraNames {
			if name == extra {
				known = true
			}
		}
		if !known {
			return errors.Errorf("unknown optional modifier %q", name)
		}
		want[name] = true
	}

	for _, name := range ExtraNames {
		if !want[name] {
			continue
		}
		var err error
		switch name {
		case AccessIdentifierName:
			err = reg.Register(name, ColumnAccessIdentifier, AccessIdentifier{})
		case FieldDescriptionName:
			err = reg.Register(name, ColumnFieldDescription, FieldDescription{})
		case FieldModelName:
			if fieldModel == nil {
				if fieldModel, err = DefaultFieldModel(); err != nil {
					return err
				}
			}
			err = reg.Register(name, ColumnFieldModel, fieldModel)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the defaults followed by the named
// opt-in modifiers.
func NewRegistry(extras []string, fieldModel *FieldModel) (*organise.Registry, error) {
	reg := organise.NewRegistry()
	if err := RegisterDefaults(reg); err != nil {
		return nil, err
	}
	if err := RegisterExtras(reg, extras, fieldModel); err != nil {
		return nil, err
	}
	return reg, nil
}

// parentOf returns everything before the last underscore, or id when it has
// none.
func parentOf(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '_' {
			return id[:i]
		}
	}
	return id
}
