// Marquee - Movie Metadata Star-Schema Warehouse
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package validation wraps go-playground/validator v10 with a shared
// singleton and readable error messages.
//
// Configuration structs declare their rules as tags and are checked once
// at startup:
//
//	type WarehouseConfig struct {
//	    Path      string `koanf:"path" validate:"required"`
//	    MaxMemory string `koanf:"max_memory" validate:"required,memsize"`
//	}
//
//	if err := validation.ValidateStruct(cfg); err != nil {
//	    return fmt.Errorf("invalid configuration: %w", err)
//	}
//
// Custom tags:
//   - memsize: a DuckDB memory limit such as 512MB, 2GB or 75%
//   - filepath_dir: a path whose parent directory is well formed
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

var memSizePattern = regexp.MustCompile(`^(?i)\d+(\.\d+)?\s*(b|kb|mb|gb|tb|kib|mib|gib|tib|%)$`)

// FieldError is a single failed rule.
type FieldError struct {
	Namespace string
	Tag       string
	Param     string
	Value     interface{}
	Message   string
}

// Error returns the human-readable message.
func (e FieldError) Error() string {
	return e.Message
}

// StructValidationError collects every failed rule of one struct.
type StructValidationError struct {
	Fields []FieldError
}

// Error joins the field messages.
func (e *StructValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		messages[i] = f.Message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the process-wide validator.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Registration only fails for empty tags or nil funcs.
		_ = validate.RegisterValidation("memsize", func(fl validator.FieldLevel) bool {
			return memSizePattern.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		_ = validate.RegisterValidation("filepath_dir", func(fl validator.FieldLevel) bool {
			p := fl.Field().String()
			if p == "" || p == ":memory:" {
				return true
			}
			return filepath.Base(p) != "." && filepath.Base(p) != string(filepath.Separator)
		})
	})
	return validate
}

// ValidateStruct validates s and returns nil or a *StructValidationError.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &StructValidationError{Fields: []FieldError{{Namespace: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &StructValidationError{Fields: make([]FieldError, len(fieldErrs))}
	for i, fe := range fieldErrs {
		out.Fields[i] = FieldError{
			Namespace: trimRoot(fe.Namespace()),
			Tag:       fe.Tag(),
			Param:     fe.Param(),
			Value:     fe.Value(),
			Message:   translate(fe),
		}
	}
	return out
}

// trimRoot drops the root struct name: "Config.Warehouse.Path" -> "Warehouse.Path".
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

var simpleMessages = map[string]string{
	"required":     "%s is required",
	"memsize":      "%s must be a memory size such as 512MB or 2GB",
	"filepath_dir": "%s must be a file path",
	"url":          "%s must be a valid URL",
}

var paramMessages = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translate(fe validator.FieldError) string {
	field := trimRoot(fe.Namespace())
	if tmpl, ok := simpleMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := paramMessages[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}
