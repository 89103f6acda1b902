// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

// Package intercept is the in-process interception layer of the
// guardian agent. When a syscall of a supported kind fails with a
// permission error, the layer negotiates authorization with the
// elevation daemon and the user's trusted agent, has the operation
// replayed with elevated rights, and returns a result
// indistinguishable from a normal syscall return.
//
// The pipeline, in data-flow order:
//
//   - hook.go: the syscall filter. Decides eligibility against a
//     fixed allow-list, runs the real syscall first, and starts an
//     elevation attempt only on a permission failure. It is also the
//     single error boundary: nothing below it may unwind into the
//     interception mechanism.
//   - args.go: per-syscall-kind reinterpretation of the six-register
//     ABI tuple, with bounds and NUL validation before any foreign
//     memory is touched.
//   - ops.go: builds the syscall-agnostic guard.Operation for each
//     supported kind and applies the execute-check eligibility rule.
//   - resolve.go: rewrites raw directory-fd arguments to stable
//     paths and collects the descriptors to transplant.
//   - negotiate.go: the challenge/credential/elevation state machine
//     over the two guard sockets.
//
// Each intercepted syscall gets exactly one elevation attempt with
// its own connections, Operation, and descriptors; threads never
// share negotiation state. The only process-wide state is the
// one-shot hook registration in register.go.
package intercept
