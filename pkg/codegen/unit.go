// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package codegen implements Unit, a named fragment of generated source code that declares which
// other fragments must come before it in the final program.
//
// Units form a directed acyclic graph through their required sets: Linearize returns a
// dependency-first order over that graph, and Assemble concatenates the fragments in that order.
//
// While generating a fragment one often finds out that it needs some other fragment (a helper
// function, a header, a global), but not yet which unit should own that requirement. Those are
// staged with RequireSymbol, and later promoted into a required set with PromoteStaged or
// TransferStaged.
package codegen

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/support/sets"
)

// Unit is a named, appendable text buffer plus the set of units it requires.
//
// Units may be shared by many holders (e.g. the same header unit required by many kernels),
// but a Unit is not safe for concurrent mutation.
type Unit struct {
	name     string
	code     strings.Builder
	required sets.Ordered[*Unit]
	staged   map[string]*Unit
}

var _ io.Writer = (*Unit)(nil)

// NewUnit creates an empty unit with the given name.
func NewUnit(name string) *Unit {
	return &Unit{name: name}
}

// NewUnitWithCode creates a unit with the given name and initial code.
func NewUnitWithCode(name, code string) *Unit {
	u := NewUnit(name)
	u.code.WriteString(code)
	return u
}

// Name of the unit.
func (u *Unit) Name() string { return u.name }

// Code returns the text accumulated so far.
func (u *Unit) Code() string { return u.code.String() }

// Write implements io.Writer, appending p to the unit's code.
func (u *Unit) Write(p []byte) (int, error) {
	return u.code.Write(p)
}

// Printf appends the formatted text to the unit's code.
func (u *Unit) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(&u.code, format, args...)
}

// Println appends the text followed by a new line.
func (u *Unit) Println(text string) {
	u.code.WriteString(text)
	u.code.WriteByte('\n')
}

// Require adds dep to the units that must precede u. It is idempotent, and it returns whether
// dep was newly added.
//
// It panics if dep is nil, if dep is u itself, or if dep already requires u (directly or
// transitively): the required graph must stay acyclic.
func (u *Unit) Require(dep *Unit) bool {
	if dep == nil {
		exceptions.Panicf("codegen.Unit(%q).Require(nil)", u.name)
	}
	if u.required.Has(dep) {
		return false
	}
	if dep == u || dep.DependsOn(u) {
		exceptions.Panicf("codegen.Unit(%q).Require(%q) would create a dependency cycle", u.name, dep.name)
	}
	return u.required.Insert(dep)
}

// Required returns the units u requires directly, in the order they were required.
func (u *Unit) Required() []*Unit {
	return u.required.Slice()
}

// DependsOn returns whether u requires other, directly or transitively.
func (u *Unit) DependsOn(other *Unit) bool {
	visited := sets.Make[*Unit]()
	var visit func(node *Unit) bool
	visit = func(node *Unit) bool {
		for dep := range node.required.All() {
			if dep == other {
				return true
			}
			if visited.Has(dep) {
				continue
			}
			visited.Insert(dep)
			if visit(dep) {
				return true
			}
		}
		return false
	}
	return visit(u)
}

// RequireSymbol stages dep as a requirement under the given symbol name, without adding it to
// the required set yet. A later stage for the same symbol replaces the previous one.
func (u *Unit) RequireSymbol(symbol string, dep *Unit) {
	if dep == nil {
		exceptions.Panicf("codegen.Unit(%q).RequireSymbol(%q, nil)", u.name, symbol)
	}
	if u.staged == nil {
		u.staged = make(map[string]*Unit)
	}
	u.staged[symbol] = dep
}

// Staged returns a copy of the staged symbol requirements.
func (u *Unit) Staged() map[string]*Unit {
	return maps.Clone(u.staged)
}

// stagedInOrder returns the staged units sorted by symbol name, so promotion is deterministic.
func (u *Unit) stagedInOrder() []*Unit {
	symbols := slices.Sorted(maps.Keys(u.staged))
	units := make([]*Unit, 0, len(symbols))
	for _, symbol := range symbols {
		units = append(units, u.staged[symbol])
	}
	return units
}

// PromoteStaged moves every staged requirement into u's required set, and clears the staging area.
func (u *Unit) PromoteStaged() {
	u.TransferStaged(u)
}

// TransferStaged moves every staged requirement of u into the required set of target, and
// clears u's staging area. It's used to centralize the incidental requirements of many units
// into a single one.
func (u *Unit) TransferStaged(target *Unit) {
	for _, dep := range u.stagedInOrder() {
		target.Require(dep)
	}
	u.ClearStaged()
}

// ClearStaged drops the staged requirements without promoting them.
func (u *Unit) ClearStaged() {
	u.staged = nil
}

// String implements fmt.Stringer.
func (u *Unit) String() string {
	return fmt.Sprintf("Unit(%q, %d bytes, %d required)", u.name, u.code.Len(), u.required.Len())
}
