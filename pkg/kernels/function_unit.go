// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"strings"
	"sync/atomic"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/codegen"
)

// Definition holds the immutable units of a generated kernel.
type Definition struct {
	// Name holds the kernel name, which is also its cache key.
	Name *codegen.Unit

	// Signature holds the C declaration "void <name>(<params>)", and Params its structured form.
	Signature *codegen.Unit
	Params    *Signature

	Body       *codegen.Unit
	Dependency *codegen.Unit
	Comment    *codegen.Unit
}

// FunctionUnit is a generated kernel: an immutable Definition plus a call site that the emitter
// that built it may regenerate (e.g. after streams are assigned).
//
// The dependency order body after dependency, call after body, is wired at construction.
type FunctionUnit struct {
	*Definition

	call  atomic.Pointer[codegen.Unit]
	owner *Emitter
}

// newFunctionUnit wires the dependencies of the units of a kernel.
func newFunctionUnit(def *Definition, call *codegen.Unit, owner *Emitter) *FunctionUnit {
	for _, u := range []*codegen.Unit{def.Name, def.Signature, def.Body, def.Dependency, def.Comment, call} {
		if u == nil {
			exceptions.Panicf("kernels: FunctionUnit for %q missing a unit", owner.KernelName())
		}
	}
	def.Body.Require(def.Dependency)
	fu := &FunctionUnit{Definition: def, owner: owner}
	fu.setCall(call)
	return fu
}

// KernelName returns the name of the kernel.
func (fu *FunctionUnit) KernelName() string { return fu.Name.Code() }

// Call returns the current call site unit.
func (fu *FunctionUnit) Call() *codegen.Unit { return fu.call.Load() }

// Owner returns the emitter that built the kernel, the only one allowed to refresh its call site.
func (fu *FunctionUnit) Owner() *Emitter { return fu.owner }

func (fu *FunctionUnit) setCall(call *codegen.Unit) {
	call.Require(fu.Body)
	fu.call.Store(call)
}

// Source returns the kernel definition: documentation block, signature and body.
// Its dependencies are not included, see AssembleProgram.
func (fu *FunctionUnit) Source() string {
	var sb strings.Builder
	sb.WriteString(fu.Comment.Code())
	sb.WriteString(fu.Signature.Code())
	sb.WriteString("\n{\n")
	sb.WriteString(fu.Body.Code())
	if code := fu.Body.Code(); code != "" && !strings.HasSuffix(code, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
	return sb.String()
}

// AssembleProgram returns the source of a program made of the given kernels: first the
// dependencies of all kernels in dependency order, then each kernel definition once (kernels are
// deduplicated by name), and finally the call sites in the order given.
//
// Nil entries (unsupported kernels) are skipped.
func AssembleProgram(kernels []*FunctionUnit) string {
	var sb strings.Builder
	var depRoots []*codegen.Unit
	seen := make(map[string]bool)
	var unique []*FunctionUnit
	for _, fu := range kernels {
		if fu == nil || seen[fu.KernelName()] {
			continue
		}
		seen[fu.KernelName()] = true
		unique = append(unique, fu)
		depRoots = append(depRoots, fu.Dependency)
	}
	sb.WriteString(codegen.Assemble(depRoots...))
	for _, fu := range unique {
		sb.WriteByte('\n')
		sb.WriteString(fu.Source())
	}
	sb.WriteString("\n// Call sites:\n")
	for _, fu := range kernels {
		if fu == nil {
			continue
		}
		sb.WriteString(fu.Call().Code())
	}
	return sb.String()
}
