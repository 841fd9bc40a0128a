// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Bureau widget
// binaries.
//
// Configuration is loaded from a single file specified by either the
// BUREAU_WIDGET_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). Binaries that run without either use
// [Default]. There is no automatic file search.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter: JSON
// logs at info level, and transports are never forced.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${BUREAU_WIDGET_ROOT}, and ${VAR:-default} patterns are
// expanded.
//
// This package depends on no other Bureau packages.
package config
