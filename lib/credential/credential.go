// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential is the codec for the opaque ticket credential
// embedded in a ticket's QR symbol.
//
// A [Credential] is an immutable value: it is issued once by the
// server, never regenerated, and compared by exact string equality.
// The client never interprets its contents. Parsing only normalizes
// what a QR decoder or a paste buffer commonly adds (surrounding
// whitespace) and rejects input that cannot be a credential at all, so
// that a garbled scan never reaches the check-in endpoint.
//
// Raw credentials are bearer secrets; log [Credential.Fingerprint]
// instead of the value.
package credential

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
	"github.com/zeebo/blake3"
)

// MaxLength bounds a credential in bytes. QR version 40 at medium
// error correction carries about 2.3 KB of binary data; server-issued
// credentials are far shorter.
const MaxLength = 2048

var (
	// ErrEmpty is returned when the input is empty after trimming.
	ErrEmpty = errors.New("credential: empty")

	// ErrInvalid is returned when the input cannot be a credential.
	ErrInvalid = errors.New("credential: invalid")
)

// Credential is the opaque string that identifies one ticket instance.
// The zero value is not a valid credential.
type Credential struct {
	value string
}

// Parse validates raw and returns the credential it carries.
// Surrounding whitespace is removed. Input that is empty, longer than
// MaxLength, not valid UTF-8, or contains control characters is
// rejected. Inner spaces are kept: the value is opaque and may be a
// structured payload.
func Parse(raw string) (Credential, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Credential{}, ErrEmpty
	}
	if len(value) > MaxLength {
		return Credential{}, fmt.Errorf("%w: %d bytes exceeds maximum %d", ErrInvalid, len(value), MaxLength)
	}
	if !utf8.ValidString(value) {
		return Credential{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalid)
	}
	for index, r := range value {
		if unicode.IsControl(r) {
			return Credential{}, fmt.Errorf("%w: unexpected character %U at offset %d", ErrInvalid, r, index)
		}
	}
	return Credential{value: value}, nil
}

// MustParse is Parse for constants and tests. Panics on invalid input.
func MustParse(raw string) Credential {
	credential, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return credential
}

// String returns the credential exactly as issued.
func (c Credential) String() string { return c.value }

// IsZero reports whether c is the zero value.
func (c Credential) IsZero() bool { return c.value == "" }

// Equal reports whether c and other identify the same ticket.
func (c Credential) Equal(other Credential) bool { return c.value == other.value }

// Fingerprint returns a short, stable, non-reversible identifier for
// logs and on-screen diagnostics: the first 8 bytes of the BLAKE3 hash
// in hex.
func (c Credential) Fingerprint() string {
	if c.IsZero() {
		return ""
	}
	sum := blake3.Sum256([]byte(c.value))
	return hex.EncodeToString(sum[:8])
}

// QRCode renders the credential as a square PNG of the given pixel
// size, using medium error correction (15% recovery), which survives
// screen glare and cracked phone displays without inflating the symbol.
func (c Credential) QRCode(size int) ([]byte, error) {
	if c.IsZero() {
		return nil, ErrEmpty
	}
	png, err := qrcode.Encode(c.value, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("credential: rendering QR symbol: %w", err)
	}
	return png, nil
}

// QRText renders the credential as a QR symbol drawn with Unicode
// half blocks, two modules per character row, for display in a
// terminal. Inverse swaps dark and light for dark-background terminals.
func (c Credential) QRText(inverse bool) (string, error) {
	if c.IsZero() {
		return "", ErrEmpty
	}
	symbol, err := qrcode.New(c.value, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("credential: building QR symbol: %w", err)
	}
	return symbol.ToSmallString(inverse), nil
}

// MarshalText implements encoding.TextMarshaler so credentials travel
// as plain strings in JSON and CBOR.
func (c Credential) MarshalText() ([]byte, error) {
	return []byte(c.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Decoded values
// come from the server, which issued them, so they are kept exactly as
// received without the input checks of [Parse]; one unusual credential
// must not make a whole ticket list undecodable. An empty string
// decodes to the zero value, since ticket payloads may omit the
// credential (for example in a push notification).
func (c *Credential) UnmarshalText(data []byte) error {
	*c = Credential{value: string(data)}
	return nil
}
