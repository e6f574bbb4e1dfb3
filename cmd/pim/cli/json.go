// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"io"
	"os"
	"reflect"
)

// Stdout is where command results are written. Tests replace it.
var Stdout io.Writer = os.Stdout

// JSONOutput adds a --json flag to a parameter struct by embedding.
//
//	type listParams struct {
//	    cli.JSONOutput
//	    Scope string `flag:"scope" desc:"scope path"`
//	}
//
//	if done, err := params.EmitJSON(rows); done {
//	    return err
//	}
//	// ... table output ...
type JSONOutput struct {
	OutputJSON bool `json:"-" flag:"json" desc:"output as JSON"`
}

// EmitJSON writes result as indented JSON when --json is set and
// reports whether it did. Nil slices are written as [].
func (j *JSONOutput) EmitJSON(result any) (bool, error) {
	if !j.OutputJSON {
		return false, nil
	}
	return true, WriteJSON(normalizeNilSlice(result))
}

// WriteJSON writes value as indented JSON to Stdout.
func WriteJSON(value any) error {
	encoder := json.NewEncoder(Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func normalizeNilSlice(value any) any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Slice && v.IsNil() {
		return reflect.MakeSlice(v.Type(), 0, 0).Interface()
	}
	return value
}
