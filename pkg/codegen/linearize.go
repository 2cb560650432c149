// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"strings"

	"github.com/gomlx/exceptions"
)

// visitState of a unit during the depth-first traversal.
type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

// Linearize returns all units reachable from roots in dependency order: every unit comes after
// all the units it requires. Each unit appears once.
//
// The order is deterministic: roots are visited in the order given and required units in the
// order they were required.
//
// It panics if a cycle is found, which can only happen if the required sets were modified
// bypassing Unit.Require.
func Linearize(roots ...*Unit) []*Unit {
	state := make(map[*Unit]visitState)
	var order []*Unit
	var path []string
	var visit func(u *Unit)
	visit = func(u *Unit) {
		switch state[u] {
		case done:
			return
		case visiting:
			exceptions.Panicf("codegen.Linearize: dependency cycle %s -> %q", strings.Join(path, " -> "), u.name)
		}
		state[u] = visiting
		path = append(path, u.name)
		for dep := range u.required.All() {
			visit(dep)
		}
		path = path[:len(path)-1]
		state[u] = done
		order = append(order, u)
	}
	for _, root := range roots {
		if root != nil {
			visit(root)
		}
	}
	return order
}

// Assemble concatenates the code of all units reachable from roots, in the order given by
// Linearize.
func Assemble(roots ...*Unit) string {
	var sb strings.Builder
	for _, u := range Linearize(roots...) {
		sb.WriteString(u.Code())
	}
	return sb.String()
}
