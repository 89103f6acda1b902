// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

package guard

import (
	"os"
	"path/filepath"
)

// Well-known socket file names. The elevation daemon listens under
// the system temporary directory; the agent listens under the user's
// runtime directory.
const (
	GuardoSocketName     = ".guardo-sock"
	AgentGuardSocketName = ".agent-guard-sock"
)

// GuardoSocketPath returns the elevation daemon's endpoint,
// /tmp/.guardo-sock in a default environment. os.TempDir honors
// TMPDIR, which is how tests point negotiations at a scratch daemon.
func GuardoSocketPath() string {
	return filepath.Join(os.TempDir(), GuardoSocketName)
}

// AgentSocketPath returns the trusted agent's endpoint inside the
// user runtime directory: XDG_RUNTIME_DIR when set, the user's home
// directory otherwise.
func AgentSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.Getenv("HOME")
	}
	return filepath.Join(dir, AgentGuardSocketName)
}
