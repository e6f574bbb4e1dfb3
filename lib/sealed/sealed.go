// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/pim/lib/secret"
)

// Keypair is an age X25519 identity and its public recipient string.
// Close releases the identity.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient.
	PublicKey string
}

// Close releases the private key memory. Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair creates a new X25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating keypair: %w", err)
	}
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Recipient returns the public recipient for an identity.
func Recipient(privateKey *secret.Buffer) (string, error) {
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return "", fmt.Errorf("sealed: parsing private key: %w", err)
	}
	return identity.Recipient().String(), nil
}

// Seal encrypts plaintext to every recipient. At least one is required.
func Seal(plaintext []byte, recipientKeys ...string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("sealed: at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("sealed: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: finalizing: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts ciphertext with privateKey. The caller closes the
// returned buffer.
func Open(ciphertext []byte, privateKey *secret.Buffer) (*secret.Buffer, error) {
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing private key: %w", err)
	}
	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		return secret.New(1)
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting plaintext: %w", err)
	}
	return buffer, nil
}

// ReadIdentityFile loads the first AGE-SECRET-KEY line of an identity
// file in the format written by age-keygen (and by WriteIdentityFile).
func ReadIdentityFile(path string) (*secret.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer secret.Zero(data)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "AGE-SECRET-KEY-") {
			continue
		}
		if _, err := age.ParseX25519Identity(line); err != nil {
			return nil, fmt.Errorf("sealed: %s: %w", path, err)
		}
		return secret.NewFromBytes([]byte(line))
	}
	return nil, fmt.Errorf("sealed: %s: no AGE-SECRET-KEY line", path)
}

// WriteIdentityFile writes keypair to path with mode 0600 in the
// age-keygen layout. It refuses to overwrite an existing file.
func WriteIdentityFile(path string, keypair *Keypair) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.String())
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
