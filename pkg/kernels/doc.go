// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels generates the code of one kernel per graph node, and the metadata needed to
// link it into a larger generated program.
//
// The main elements are:
//
//   - Context: the snapshot of a node's input and output tensors, plus the temporary tensors
//     allocated while generating the kernel body.
//   - Emitter: runs the emission of one kernel -- name, signature, body, call site, dependency
//     declarations and comments -- and memoizes the result.
//   - FunctionUnit: the six code units of a generated kernel. Everything but the call site is
//     immutable once built.
//   - Cache: maps kernel names to FunctionUnit, so a kernel is generated at most once per
//     compilation session, even with concurrent emitters.
//   - Session: owns a Cache and a Config for one compilation, and drives the parallel emission of
//     many nodes using the kernels registered with Register.
//
// The body of a kernel is generated by a BodyEmitter hook, specific to an operator and device.
// See package builtin for reference implementations.
//
// # Error Handling
//
// Malformed graphs (nil tensors), missing stream bindings and dependency cycles are bugs of the
// compiler and panic (see github.com/gomlx/exceptions). Session converts those panics to errors
// at the kernel boundary, so only the kernel being generated fails. A BodyEmitter that doesn't
// support a node is not an error: GetOrEmitSource returns nil and the caller may fall back to
// another kernel.
package kernels
