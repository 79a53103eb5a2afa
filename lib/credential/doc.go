// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential handles the opaque QR credential that identifies
// one ticket instance. The server issues it; the client only carries
// it, renders it as a QR symbol for the attendee's screen, and submits
// it when door staff scan one.
//
// [Parse] is the single entry point for untrusted input (scanner
// output, pasted text). It rejects values a scanner could not have
// produced from a server-issued code, so a garbled scan fails locally
// instead of costing a round trip. [Credential.Fingerprint] gives a
// short stable identifier for logs that never exposes the credential
// itself.
package credential
