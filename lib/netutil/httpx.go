// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize bounds response body reads: 16 MB.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a bounded response body and JSON-decodes it
// into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
