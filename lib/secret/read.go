// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadFromPath reads a secret from path, or the first line of stdin when
// path is "-". Surrounding whitespace is trimmed; an empty secret is an
// error.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fromTrimmed(data)
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, fmt.Errorf("stdin is empty")
	}
	return fromTrimmed(scanner.Bytes())
}

func fromTrimmed(data []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		Zero(data)
		return nil, fmt.Errorf("secret is empty")
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(data)
	if err != nil {
		return nil, err
	}
	return buffer, nil
}
