// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection layer for hioload-green.
//
// Provides:
//   - Immutable per-runtime configuration with build-time defaults
//   - Atomic scheduler and storage counters
//   - Metrics snapshots, state export and probe registration
package control
