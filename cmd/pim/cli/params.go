// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// FlagBinder is implemented by parameter groups that register their
// own flags. [BindFlags] calls AddFlags instead of reading tags.
type FlagBinder interface {
	AddFlags(flagSet *pflag.FlagSet)
}

// FlagsFromParams creates a flag set bound to the tagged fields of
// params, a pointer to a struct. It panics on invalid params, which is
// a programming error.
func FlagsFromParams(name string, params any) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SortFlags = false
	if err := BindFlags(params, flagSet); err != nil {
		panic(fmt.Sprintf("cli.FlagsFromParams(%q): %v", name, err))
	}
	return flagSet
}

// BindFlags registers a flag for each tagged field of params.
//
// Tags:
//
//   - flag:"name" or flag:"name,n" -- long name and optional shorthand.
//     Untagged fields are skipped.
//   - desc:"help text"
//   - default:"value" -- parsed according to the field type.
//
// Supported field types are string, bool, int, time.Duration,
// []string, and any pointer-receiver [pflag.Value]. Embedded structs
// are bound recursively unless they implement [FlagBinder].
func BindFlags(params any, flagSet *pflag.FlagSet) error {
	value := reflect.ValueOf(params)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("params must be a pointer to a struct, got %T", params)
	}
	return bindStructFields(value.Elem(), flagSet)
}

func bindStructFields(structValue reflect.Value, flagSet *pflag.FlagSet) error {
	structType := structValue.Type()

	for i := range structType.NumField() {
		field := structType.Field(i)
		fieldValue := structValue.Field(i)

		if field.Type.Kind() == reflect.Struct && field.IsExported() && fieldValue.CanAddr() {
			if binder, ok := fieldValue.Addr().Interface().(FlagBinder); ok {
				binder.AddFlags(flagSet)
				continue
			}
		}

		flagTag := field.Tag.Get("flag")
		if field.Anonymous && field.Type.Kind() == reflect.Struct && flagTag == "" {
			if err := bindStructFields(fieldValue, flagSet); err != nil {
				return fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			continue
		}
		if flagTag == "" {
			continue
		}
		if !fieldValue.CanAddr() {
			return fmt.Errorf("field %s: not addressable", field.Name)
		}

		name, shorthand, _ := strings.Cut(flagTag, ",")
		if err := bindField(fieldValue, flagSet, name, shorthand, field.Tag.Get("desc"), field.Tag.Get("default")); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bindField(fieldValue reflect.Value, flagSet *pflag.FlagSet, name, shorthand, description, defaultString string) error {
	pointer := fieldValue.Addr().Interface()

	switch target := pointer.(type) {
	case *string:
		flagSet.StringVarP(target, name, shorthand, defaultString, description)

	case *bool:
		defaultValue := false
		if defaultString != "" {
			parsed, err := strconv.ParseBool(defaultString)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
			defaultValue = parsed
		}
		flagSet.BoolVarP(target, name, shorthand, defaultValue, description)

	case *int:
		defaultValue := 0
		if defaultString != "" {
			parsed, err := strconv.Atoi(defaultString)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
			defaultValue = parsed
		}
		flagSet.IntVarP(target, name, shorthand, defaultValue, description)

	case *time.Duration:
		var defaultValue time.Duration
		if defaultString != "" {
			parsed, err := time.ParseDuration(defaultString)
			if err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
			defaultValue = parsed
		}
		flagSet.DurationVarP(target, name, shorthand, defaultValue, description)

	case *[]string:
		var defaultValue []string
		if defaultString != "" {
			defaultValue = strings.Split(defaultString, ",")
		}
		flagSet.StringSliceVarP(target, name, shorthand, defaultValue, description)

	case pflag.Value:
		if defaultString != "" {
			if err := target.Set(defaultString); err != nil {
				return fmt.Errorf("default for --%s: %w", name, err)
			}
		}
		flagSet.VarP(target, name, shorthand, description)

	default:
		return fmt.Errorf("unsupported type %s for flag --%s", fieldValue.Type(), name)
	}
	return nil
}
