// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the check-in
// client.
//
// Configuration is loaded from a single file specified by either the
// CHECKIN_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search. Files ending in
// .json or .jsonc may carry comments and trailing commas; everything
// else is parsed as YAML.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production defaults are quieter and
// more persistent: logging at warn and ten reconnect attempts.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the API token
// and the two service URLs, so tokens can stay out of the file.
//
// This package depends on no other packages of this module.
package config
