// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/mod/semver"
)

// configValidate is the validator instance for configuration structs.
// Initialized in init() with custom validators.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()

	// Report YAML key names instead of Go field names.
	configValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = configValidate.RegisterValidation("regex", validateRegex)
	_ = configValidate.RegisterValidation("release", validateRelease)
}

// validateRegex accepts strings that compile as Go regular expressions.
func validateRegex(fl validator.FieldLevel) bool {
	_, err := regexp.Compile(fl.Field().String())
	return err == nil
}

// validateRelease accepts semantic versions with or without a leading v.
func validateRelease(fl validator.FieldLevel) bool {
	return semver.IsValid(canonicalVersion(fl.Field().String()))
}

func canonicalVersion(v string) string {
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// CheckVersion fails when running is older than MinVersion. Builds
// without a semantic version, such as "dev", always pass.
func (c Config) CheckVersion(running string) error {
	if c.MinVersion == "" {
		return nil
	}
	have := canonicalVersion(running)
	if !semver.IsValid(have) {
		return nil
	}
	if semver.Compare(have, canonicalVersion(c.MinVersion)) < 0 {
		return fmt.Errorf("%w: min_version %s is newer than this cppgate (%s)", ErrInvalidConfig, c.MinVersion, running)
	}
	return nil
}

// describeValidation turns validator errors into "path: rule" text.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "regex":
			parts = append(parts, fmt.Sprintf("%s: invalid regular expression %q", path, fe.Value()))
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", path))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be >= %s, got %v", path, fe.Param(), fe.Value()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value()))
		case "required_with":
			parts = append(parts, fmt.Sprintf("%s is required when %s is set", path, strings.ToLower(fe.Param())))
		case "hostname_port":
			parts = append(parts, fmt.Sprintf("%s must be host:port, got %q", path, fe.Value()))
		case "url":
			parts = append(parts, fmt.Sprintf("%s: invalid URL %q", path, fe.Value()))
		case "release":
			parts = append(parts, fmt.Sprintf("%s: invalid version %q", path, fe.Value()))
		case "startswith":
			parts = append(parts, fmt.Sprintf("%s must start with %q, got %q", path, fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", path, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
