// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"plain", "TKT-7f3a9c", "TKT-7f3a9c", nil},
		{"surrounding whitespace", "  TKT-7f3a9c\n", "TKT-7f3a9c", nil},
		{"opaque punctuation", "eyJ0aWQiOiIxMjMifQ==.sig_-", "eyJ0aWQiOiIxMjMifQ==.sig_-", nil},
		{"empty", "", "", ErrEmpty},
		{"only whitespace", " \t\n", "", ErrEmpty},
		{"inner space", "TKT 7f3a9c", "TKT 7f3a9c", nil},
		{"inner newline", "TKT\n7f3a9c", "", ErrInvalid},
		{"control character", "TKT\x007f3a9c", "", ErrInvalid},
		{"invalid utf8", "TKT\xff", "", ErrInvalid},
		{"too long", strings.Repeat("a", MaxLength+1), "", ErrInvalid},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.raw)
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("Parse(%q) error = %v, want %v", test.raw, err, test.wantErr)
				}
				if !got.IsZero() {
					t.Errorf("Parse(%q) returned non-zero credential on error", test.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", test.raw, err)
			}
			if got.String() != test.want {
				t.Errorf("Parse(%q) = %q, want %q", test.raw, got.String(), test.want)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("TKT-1")
	b := MustParse(" TKT-1 ")
	c := MustParse("tkt-1")
	if !a.Equal(b) {
		t.Error("credentials differing only in surrounding whitespace should be equal")
	}
	if a.Equal(c) {
		t.Error("credential comparison must be case-sensitive")
	}
	if a != b {
		t.Error("Credential must be comparable with ==")
	}
}

func TestFingerprint(t *testing.T) {
	a := MustParse("TKT-1")
	if a.Fingerprint() != a.Fingerprint() {
		t.Fatal("fingerprint is not stable")
	}
	if len(a.Fingerprint()) != 16 {
		t.Errorf("fingerprint length = %d, want 16 hex chars", len(a.Fingerprint()))
	}
	if strings.Contains(a.Fingerprint(), "TKT") {
		t.Error("fingerprint leaks the credential")
	}
	if a.Fingerprint() == MustParse("TKT-2").Fingerprint() {
		t.Error("distinct credentials share a fingerprint")
	}
	if (Credential{}).Fingerprint() != "" {
		t.Error("zero credential should have an empty fingerprint")
	}
}

func TestQRCode(t *testing.T) {
	png, err := MustParse("TKT-7f3a9c").QRCode(256)
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("QRCode output is not a PNG")
	}

	if _, err := (Credential{}).QRCode(256); !errors.Is(err, ErrEmpty) {
		t.Errorf("QRCode on zero credential: err = %v, want ErrEmpty", err)
	}
}

func TestQRText(t *testing.T) {
	text, err := MustParse("TKT-7f3a9c").QRText(false)
	if err != nil {
		t.Fatalf("QRText: %v", err)
	}
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) < 10 {
		t.Errorf("QRText produced %d lines, want a full symbol", len(lines))
	}
	if _, err := (Credential{}).QRText(false); !errors.Is(err, ErrEmpty) {
		t.Errorf("QRText on zero credential: err = %v, want ErrEmpty", err)
	}
}

func TestJSONText(t *testing.T) {
	type ticket struct {
		QRCode Credential `json:"qrCode"`
	}
	data, err := json.Marshal(ticket{QRCode: MustParse("TKT-1")})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"qrCode":"TKT-1"}` {
		t.Errorf("Marshal = %s", data)
	}

	var decoded ticket
	if err := json.Unmarshal([]byte(`{"qrCode":""}`), &decoded); err != nil {
		t.Fatalf("Unmarshal empty: %v", err)
	}
	if !decoded.QRCode.IsZero() {
		t.Error("empty string should decode to the zero credential")
	}

	// Issued values are kept verbatim, including ones Parse would
	// reject from a scanner.
	issued := `{\"ticketId\": \"T2\"}`
	if err := json.Unmarshal([]byte(`{"qrCode":"`+issued+`"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal structured credential: %v", err)
	}
	if want := `{"ticketId": "T2"}`; decoded.QRCode.String() != want {
		t.Errorf("decoded = %q, want %q", decoded.QRCode.String(), want)
	}
	if err := json.Unmarshal([]byte(`{"qrCode":"  tab\tinside "}`), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.QRCode.String() != "  tab\tinside " {
		t.Errorf("decoded = %q, want the value unchanged", decoded.QRCode.String())
	}
}
